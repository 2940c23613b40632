/*
 * doc.go, part of gophonon.
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

/*Package phonon estimates vibrational power spectra from molecular dynamics
trajectories and prepares the trajectories for that estimation.

	**gophonon capabilities**

    Infers the supercell multiplicity relating an MD simulation cell to a
	reference primitive cell, and the corresponding atom ordering.

    Removes lattice drift from Cartesian trajectories, producing displacements
	relative to each atom's equilibrium site.

    Derives velocities from positions by finite differencing when the MD engine
	did not write them.

    Mass-weights velocities, the natural variable for phonon projections.

    Accumulates per-species anisotropic mean square displacement tensors.

    Estimates power spectral densities per vibrational degree of freedom with
	three interchangeable methods (see the spectrum subpackage): direct
	correlation Fourier transform, FFT of the autocorrelation, and maximum
	entropy (autoregressive) estimation.

    Scans the maximum entropy model order and fits Lorentzian lineshapes to
	extract peak position, width and fitting error (see the scan and fit
	subpackages).

    Plots spectra and scan diagnostics (specplot) and stores spectra in a
	compressed text format (specio).

All dense linear algebra is based on gonum (gonum.org/v1/gonum/mat).
Trajectories are ordered slices of frames, each frame an natoms x 3 matrix.
Stages that pass through Fourier space can carry residual imaginary parts;
physical quantities always take the real component, and a warning is logged
when the imaginary residue exceeds ImagTolerance.*/
package phonon
