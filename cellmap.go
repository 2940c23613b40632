/*
 * cellmap.go, part of gophonon.
 *
 * Copyright 2024 The gophonon developers
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package phonon

import (
	"log"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

/*MD engines tile the primitive cell into the simulation supercell in one of
 * two orders: replicas of one primitive atom grouped together ("atom major"),
 * or whole cells repeated with the atom type as the innermost index. The
 * functions here decide which one a trajectory follows, by comparing the
 * integer cell coordinates each ordering predicts against the fractional
 * coordinates of the time-averaged positions, and produce the permutation
 * that rewrites the second ordering into the first.*/

// cellTuple is the (x, y, z, type) cell assignment an encoding predicts for a
// flat atom index.
type cellTuple [4]int

// atomMajor predicts the cell assignment of atom i when replicas of each
// primitive atom are contiguous and the primitive atom index varies slowest.
func atomMajor(i int, size [3]int, natom int) cellTuple {
	sx, sy, sz := size[0], size[1], size[2]
	return cellTuple{
		i % sx,
		(i % (sx * sy)) / sy,
		(i % (sx * sy * sz)) / (sy * sx),
		i / (sy * sx * sz),
	}
}

// typeInner predicts the cell assignment of atom i when the primitive atom
// type is the innermost index and whole cells repeat around it.
func typeInner(i int, size [3]int, natom int) cellTuple {
	sx, sy := size[0], size[1]
	return cellTuple{
		(i % (sx * natom)) / natom,
		(i % (sx * natom * sy)) / (sx * natom),
		i / (sy * sx * natom),
		i % natom,
	}
}

// AveragedPositions samples nsamples random frames of the trajectory, with
// replacement, and returns their average configuration. With nsamples <= 0 a
// default of 1000 is used.
func AveragedPositions(traj []*mat.Dense, nsamples int) *mat.Dense {
	if nsamples <= 0 {
		nsamples = 1000
	}
	natoms, _ := traj[0].Dims()
	avg := mat.NewDense(natoms, 3, nil)
	for s := 0; s < nsamples; s++ {
		frame := traj[rand.Intn(len(traj))]
		avg.Add(avg, frame)
	}
	avg.Scale(1.0/float64(nsamples), avg)
	return avg
}

// ResolveArrangement decides which tiling convention the averaged positions
// follow and, when it is the type-innermost one, returns the permutation that
// reorders the atom axis into atom-major order: element i of the returned
// slice is the index the atom now at position i must be read from. A nil
// result with nil error means the trajectory is already in atom-major order
// and no reordering is needed. Ties between the two conventions keep the
// identity, since a tie gives no evidence the stored order is wrong.
func ResolveArrangement(averaged *mat.Dense, structure *Structure) ([]int, error) {
	natoms, _ := averaged.Dims()
	if natoms == 0 {
		return nil, NewError(MissingInput, ErrNoTrajectory, "ResolveArrangement")
	}

	var inv mat.Dense
	if err := inv.Inverse(structure.cell); err != nil {
		return nil, fmtError(StructuralMismatch, "ResolveArrangement", "Singular cell matrix: %v", err)
	}

	// integer cell coordinates of each averaged position
	cellCoords := make([][3]int, natoms)
	var meansum [3]float64
	for i := 0; i < natoms; i++ {
		for a := 0; a < 3; a++ {
			var frac float64
			for k := 0; k < 3; k++ {
				frac += inv.At(a, k) * averaged.At(i, k)
			}
			cellCoords[i][a] = int(frac) // truncation toward zero, not rounding
			meansum[a] += float64(cellCoords[i][a])
		}
	}

	var size [3]int
	for a := 0; a < 3; a++ {
		size[a] = int(math.Round(2.0*meansum[a]/float64(natoms) + 1.0))
		if size[a] < 1 {
			size[a] = 1
		}
	}

	ncellAtoms := structure.Len()

	// average squared deviation of each encoding's prediction, per axis
	var dev [2][3]float64
	for i := 0; i < natoms; i++ {
		t1 := atomMajor(i, size, ncellAtoms)
		t2 := typeInner(i, size, ncellAtoms)
		for a := 0; a < 3; a++ {
			d1 := float64(t1[a] - cellCoords[i][a])
			d2 := float64(t2[a] - cellCoords[i][a])
			dev[0][a] += d1 * d1
			dev[1][a] += d2 * d2
		}
	}
	var norm [2]float64
	for e := 0; e < 2; e++ {
		var s float64
		for a := 0; a < 3; a++ {
			m := dev[e][a] / float64(natoms)
			s += m * m
		}
		norm[e] = math.Sqrt(s)
	}

	if norm[1] >= norm[0] {
		return nil, nil //already atom major, or no clear winner
	}

	// the trajectory is type-innermost: for every target slot under the
	// atom-major encoding, find the equal tuple under the other one.
	arrangement := make([]int, 0, natoms)
	for i := 0; i < natoms; i++ {
		ref := atomMajor(i, size, ncellAtoms)
		found := -1
		for j := 0; j < natoms; j++ {
			if typeInner(j, size, ncellAtoms) == ref {
				found = j
				break
			}
		}
		if found < 0 {
			log.Printf("gophonon: no counterpart for atom %d while matching tilings, keeping original order", i)
			return nil, nil
		}
		arrangement = append(arrangement, found)
	}
	return arrangement, nil
}
