/*
 * lattice.go, part of gophonon.
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

import "gonum.org/v1/gonum/mat"

// Relativizer removes the periodic lattice contribution from a raw Cartesian
// trajectory, producing positions relative to each atom's equilibrium lattice
// site. The output has the same shape as the input trajectory. More elaborate
// implementations can project against the ideal lattice; the default below
// only needs the trajectory itself.
type Relativizer func(d *Dynamics) ([]*mat.CDense, error)

// MeanLatticeRelativizer subtracts from every atom its time-averaged
// position. For an equilibrated solid the time average sits on the
// equilibrium lattice site, so the result is the local displacement with any
// collective drift removed.
func MeanLatticeRelativizer(d *Dynamics) ([]*mat.CDense, error) {
	traj, err := d.Trajectory()
	if err != nil {
		return nil, errDecorate(err, "MeanLatticeRelativizer")
	}
	nat, _ := traj[0].Dims()
	avg := mat.NewDense(nat, 3, nil)
	for _, f := range traj {
		avg.Add(avg, f)
	}
	avg.Scale(1.0/float64(len(traj)), avg)

	rel := make([]*mat.CDense, len(traj))
	for t, f := range traj {
		r := mat.NewCDense(nat, 3, nil)
		for i := 0; i < nat; i++ {
			for a := 0; a < 3; a++ {
				r.Set(i, a, complex(f.At(i, a)-avg.At(i, a), 0))
			}
		}
		rel[t] = r
	}
	return rel, nil
}
