/*
 * structure.go, part of gophonon.
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
	"gonum.org/v1/gonum/mat"
)

// Structure holds a reference primitive cell: the cell matrix, with lattice
// vectors as columns, and the mass and atom type of each atom in the cell.
// A Structure is immutable once built; it is shared, read only, by every
// Dynamics that references it.
type Structure struct {
	cell      *mat.Dense
	masses    []float64
	typeIndex []int
	ntypes    int
}

// NewStructure builds a Structure from a 3x3 cell matrix (columns are lattice
// vectors), the mass of each primitive atom and the atom type index of each
// primitive atom. Type indices must be 0-based and contiguous.
func NewStructure(cell *mat.Dense, masses []float64, typeIndex []int) (*Structure, error) {
	r, c := cell.Dims()
	if r != 3 || c != 3 {
		return nil, fmtError(DimensionMismatch, "NewStructure", "Cell matrix must be 3x3, got %dx%d", r, c)
	}
	if len(masses) == 0 || len(masses) != len(typeIndex) {
		return nil, fmtError(DimensionMismatch, "NewStructure", "Need one mass and one type index per atom: %d masses, %d indices", len(masses), len(typeIndex))
	}
	ntypes := 0
	for _, t := range typeIndex {
		if t < 0 {
			return nil, fmtError(DimensionMismatch, "NewStructure", "Negative atom type index: %d", t)
		}
		if t+1 > ntypes {
			ntypes = t + 1
		}
	}
	seen := make([]bool, ntypes)
	for _, t := range typeIndex {
		seen[t] = true
	}
	for t, ok := range seen {
		if !ok {
			return nil, fmtError(DimensionMismatch, "NewStructure", "Atom type indices are not contiguous: type %d unused", t)
		}
	}
	s := new(Structure)
	s.cell = mat.DenseCopyOf(cell)
	s.masses = append([]float64{}, masses...)
	s.typeIndex = append([]int{}, typeIndex...)
	s.ntypes = ntypes
	return s, nil
}

// Cell returns a copy of the 3x3 cell matrix.
func (S *Structure) Cell() *mat.Dense {
	return mat.DenseCopyOf(S.cell)
}

// Len returns the number of atoms in the primitive cell.
func (S *Structure) Len() int {
	return len(S.masses)
}

// NAtomTypes returns the number of distinct atom types.
func (S *Structure) NAtomTypes() int {
	return S.ntypes
}

// NDims returns the spatial dimensionality, always 3.
func (S *Structure) NDims() int {
	return 3
}

// ncells is the number of primitive replicas in the given supercell.
func ncells(supercell []int) int {
	n := 1
	for _, v := range supercell {
		n *= v
	}
	return n
}

// Masses returns the mass of every atom. If a supercell multiplicity vector is
// given, the primitive assignment is tiled atom-major: all replicas of the
// first primitive atom come first, then all replicas of the second, and so on.
// This is the ordering the cell mapping normalizes trajectories to.
func (S *Structure) Masses(supercell ...[]int) []float64 {
	if len(supercell) == 0 || supercell[0] == nil {
		return append([]float64{}, S.masses...)
	}
	n := ncells(supercell[0])
	ret := make([]float64, 0, len(S.masses)*n)
	for _, m := range S.masses {
		for i := 0; i < n; i++ {
			ret = append(ret, m)
		}
	}
	return ret
}

// AtomTypeIndex returns the atom type index of every atom, tiled the same way
// as Masses when a supercell multiplicity vector is given.
func (S *Structure) AtomTypeIndex(supercell ...[]int) []int {
	if len(supercell) == 0 || supercell[0] == nil {
		return append([]int{}, S.typeIndex...)
	}
	n := ncells(supercell[0])
	ret := make([]int, 0, len(S.typeIndex)*n)
	for _, t := range S.typeIndex {
		for i := 0; i < n; i++ {
			ret = append(ret, t)
		}
	}
	return ret
}

// TypeCounts returns, for each atom type, how many primitive atoms carry it.
func (S *Structure) TypeCounts() []int {
	counts := make([]int, S.ntypes)
	for _, t := range S.typeIndex {
		counts[t]++
	}
	return counts
}
