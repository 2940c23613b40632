/*
 * dynamics.go, part of gophonon.
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

	"gonum.org/v1/gonum/mat"
)

// ImagTolerance is the largest imaginary component, relative to nothing in
// particular but experience, that a physically real buffer may carry before a
// warning is logged. Transform round trips leave residues well below it.
const ImagTolerance = 1e-8

// Dynamics owns an MD run: the raw trajectory, and the optional velocity,
// energy and time series that came with it, together with the reference
// Structure and the simulation (super) cell matrix. Derived quantities are
// computed lazily and cached per instance; Crop invalidates the caches that
// depend on the time axis. The Structure is referenced, never mutated.
type Dynamics struct {
	structure *Structure
	traj      []*mat.Dense
	velocity  []*mat.CDense
	energy    []float64
	time      []float64
	superCell *mat.Dense

	relativize Relativizer

	//lazy caches, each invalidated independently
	timeStepAverage float64
	velocityMass    []*mat.CDense
	relativeTraj    []*mat.CDense
	scMatrix        []int
	natoms          int
	meanDisp        []*mat.Dense
}

// NewDynamics builds a Dynamics from a reference structure, a trajectory and
// the 3x3 simulation cell matrix (columns are lattice vectors). If a
// trajectory is given, the atom ordering correction of ResolveArrangement is
// applied in place, once. traj may be nil when velocities will be supplied
// directly.
func NewDynamics(structure *Structure, traj []*mat.Dense, superCell *mat.Dense) (*Dynamics, error) {
	if structure == nil {
		return nil, NewError(MissingInput, "Initialization without structure", "NewDynamics")
	}
	d := new(Dynamics)
	d.structure = structure
	d.superCell = superCell
	d.relativize = MeanLatticeRelativizer
	if traj != nil {
		if err := checkFrames(traj); err != nil {
			return nil, errDecorate(err, "NewDynamics")
		}
		arr, err := ResolveArrangement(AveragedPositions(traj, 0), structure)
		if err != nil {
			return nil, errDecorate(err, "NewDynamics")
		}
		if arr != nil {
			traj = permuteAtoms(traj, arr)
		}
		d.traj = traj
	}
	return d, nil
}

func checkFrames(traj []*mat.Dense) error {
	if len(traj) == 0 {
		return NewError(MissingInput, ErrNoTrajectory, "checkFrames")
	}
	nat, c := traj[0].Dims()
	if c != 3 {
		return fmtError(DimensionMismatch, "checkFrames", "Frames must have 3 columns, got %d", c)
	}
	for _, f := range traj {
		r, _ := f.Dims()
		if r != nat {
			return NewError(DimensionMismatch, ErrUnevenFrames, "checkFrames")
		}
	}
	return nil
}

func permuteAtoms(traj []*mat.Dense, arrangement []int) []*mat.Dense {
	ret := make([]*mat.Dense, len(traj))
	for t, f := range traj {
		nat, _ := f.Dims()
		nf := mat.NewDense(nat, 3, nil)
		for i, src := range arrangement {
			for a := 0; a < 3; a++ {
				nf.Set(i, a, f.At(src, a))
			}
		}
		ret[t] = nf
	}
	return ret
}

// SetTime sets the simulation time of each frame, in ps.
func (D *Dynamics) SetTime(time []float64) error {
	if D.traj != nil && time != nil && len(time) != len(D.traj) {
		return NewError(DimensionMismatch, ErrLengthMismatch, "SetTime")
	}
	D.time = time
	D.timeStepAverage = 0
	return nil
}

// SetEnergy sets the total energy series of the run.
func (D *Dynamics) SetEnergy(energy []float64) error {
	if D.traj != nil && energy != nil && len(energy) != len(D.traj) {
		return NewError(DimensionMismatch, ErrLengthMismatch, "SetEnergy")
	}
	D.energy = energy
	return nil
}

// SetVelocity supplies velocities read from the MD engine, overriding the
// derived-by-differencing fallback.
func (D *Dynamics) SetVelocity(velocity []*mat.CDense) error {
	if velocity != nil {
		if len(velocity) == 0 {
			return NewError(MissingInput, "Empty velocity slice", "SetVelocity")
		}
		nat, c := velocity[0].Dims()
		if c != 3 {
			return fmtError(DimensionMismatch, "SetVelocity", "Frames must have 3 columns, got %d", c)
		}
		for _, f := range velocity {
			r, _ := f.Dims()
			if r != nat {
				return NewError(DimensionMismatch, ErrUnevenFrames, "SetVelocity")
			}
		}
		if D.traj != nil && len(velocity) != len(D.traj) {
			return NewError(DimensionMismatch, ErrLengthMismatch, "SetVelocity")
		}
	}
	D.velocity = velocity
	D.velocityMass = nil
	return nil
}

// SetRelativizer replaces the lattice drift removal collaborator. The
// default subtracts each atom's time-averaged position.
func (D *Dynamics) SetRelativizer(r Relativizer) {
	D.relativize = r
	D.relativeTraj = nil
	D.meanDisp = nil
}

// Structure returns the reference structure.
func (D *Dynamics) Structure() *Structure { return D.structure }

// SuperCell returns the simulation cell matrix.
func (D *Dynamics) SuperCell() *mat.Dense { return D.superCell }

// Trajectory returns the (possibly reordered, possibly cropped) trajectory.
func (D *Dynamics) Trajectory() ([]*mat.Dense, error) {
	if D.traj == nil {
		return nil, NewError(MissingInput, ErrNoTrajectory, "Trajectory")
	}
	return D.traj, nil
}

// Time returns the time series, which may be nil.
func (D *Dynamics) Time() []float64 { return D.time }

// Energy returns the energy series, which may be nil.
func (D *Dynamics) Energy() []float64 { return D.energy }

// NSteps returns the number of frames currently held.
func (D *Dynamics) NSteps() int { return len(D.traj) }

// Crop keeps only the final lastSteps samples of the trajectory, energy, time
// and velocity series, each independently and only if present. Asking for
// more steps than available keeps everything and logs a warning. Negative
// or zero lastSteps is a no-op. The mass weighted velocity and relative
// trajectory caches are dropped, as are the quantities derived from them.
func (D *Dynamics) Crop(lastSteps int) {
	if lastSteps <= 0 {
		return
	}
	if D.traj != nil {
		if lastSteps > len(D.traj) {
			log.Printf("gophonon: specified step number larger than available")
		}
		D.traj = D.traj[len(D.traj)-min(lastSteps, len(D.traj)):]
	}
	if D.energy != nil {
		D.energy = D.energy[len(D.energy)-min(lastSteps, len(D.energy)):]
	}
	if D.time != nil {
		D.time = D.time[len(D.time)-min(lastSteps, len(D.time)):]
	}
	if D.velocity != nil {
		if lastSteps > len(D.velocity) {
			log.Printf("gophonon: specified step number larger than available")
		}
		D.velocity = D.velocity[len(D.velocity)-min(lastSteps, len(D.velocity)):]
	}
	D.velocityMass = nil
	D.relativeTraj = nil
	D.meanDisp = nil
}

// NAtoms returns the atom count of the simulation cell: the primitive atom
// count times the product of the supercell multiplicities. Cached.
func (D *Dynamics) NAtoms() (int, error) {
	if D.natoms == 0 {
		sc, err := D.SuperCellMatrix()
		if err != nil {
			return 0, errDecorate(err, "NAtoms")
		}
		D.natoms = D.structure.Len() * ncells(sc)
	}
	return D.natoms, nil
}

// AverageTimeStep returns the mean of consecutive time differences, in ps.
// Cached after the first call. It needs a time series with at least two
// samples.
func (D *Dynamics) AverageTimeStep() (float64, error) {
	if D.timeStepAverage == 0 {
		if len(D.time) < 2 {
			return 0, NewError(MissingInput, ErrNoTime, "AverageTimeStep")
		}
		n := float64(len(D.time) - 1)
		var acc float64
		for i := 0; i < len(D.time)-1; i++ {
			acc += (D.time[i+1] - D.time[i]) / n
		}
		D.timeStepAverage = acc
	}
	return D.timeStepAverage, nil
}

// cellNorms returns the Euclidean norms of the three column lattice vectors.
func cellNorms(h *mat.Dense) [3]float64 {
	var p [3]float64
	for j := 0; j < 3; j++ {
		p[j] = math.Hypot(math.Hypot(h.At(0, j), h.At(1, j)), h.At(2, j))
	}
	return p
}

// SuperCellMatrix returns the integer multiplicity of the simulation cell
// along each lattice direction of the reference cell: the element-wise ratio
// of lattice vector norms, rounded. If the rounded vector does not reproduce
// the real ratio within the relative tolerance (0.01 when not given), the
// cells do not tile and a StructuralMismatch error is returned. Cached.
func (D *Dynamics) SuperCellMatrix(tolerance ...float64) ([]int, error) {
	if D.scMatrix == nil {
		tol := 0.01
		if len(tolerance) > 0 {
			tol = tolerance[0]
		}
		if D.superCell == nil {
			return nil, NewError(MissingInput, "No simulation cell given", "SuperCellMatrix")
		}
		super := cellNorms(D.superCell)
		prim := cellNorms(D.structure.cell)
		var real3 [3]float64
		sc := make([]int, 3)
		var devsum, normsq float64
		for j := 0; j < 3; j++ {
			real3[j] = super[j] / prim[j]
			sc[j] = int(math.Round(real3[j]))
			devsum += float64(sc[j]) - real3[j]
			normsq += real3[j] * real3[j]
		}
		if math.Abs(devsum/math.Sqrt(normsq)) > tol {
			return nil, fmtError(StructuralMismatch, "SuperCellMatrix",
				ErrCellsDontFit+" Cell size relation is not integer: [%.4f %.4f %.4f]",
				real3[0], real3[1], real3[2])
		}
		D.scMatrix = sc
	}
	return D.scMatrix, nil
}

// Velocity returns the velocity frames. If no velocity was supplied, it is
// derived once by numerically differentiating the relative trajectory with
// respect to the average time step, per atom and axis: forward and backward
// differences at the ends, central differences in between. The derived buffer
// is complex valued; physical use takes real parts.
func (D *Dynamics) Velocity() ([]*mat.CDense, error) {
	if D.velocity == nil {
		if D.traj == nil {
			return nil, NewError(MissingInput, ErrNoVelocity, "Velocity")
		}
		log.Printf("gophonon: no velocity provided, calculating it from coordinates")
		rel, err := D.RelativeTrajectory()
		if err != nil {
			return nil, errDecorate(err, "Velocity")
		}
		dt, err := D.AverageTimeStep()
		if err != nil {
			return nil, errDecorate(err, "Velocity")
		}
		D.velocity = gradientFrames(rel, dt)
	}
	return D.velocity, nil
}

// gradientFrames differentiates each atom and axis of the frame sequence
// with respect to the uniform step dt.
func gradientFrames(rel []*mat.CDense, dt float64) []*mat.CDense {
	n := len(rel)
	nat, _ := rel[0].Dims()
	v := make([]*mat.CDense, n)
	for t := range v {
		v[t] = mat.NewCDense(nat, 3, nil)
	}
	h := complex(dt, 0)
	for i := 0; i < nat; i++ {
		for a := 0; a < 3; a++ {
			if n == 1 {
				continue //single frame has no derivative; left at zero
			}
			v[0].Set(i, a, (rel[1].At(i, a)-rel[0].At(i, a))/h)
			v[n-1].Set(i, a, (rel[n-1].At(i, a)-rel[n-2].At(i, a))/h)
			for t := 1; t < n-1; t++ {
				v[t].Set(i, a, (rel[t+1].At(i, a)-rel[t-1].At(i, a))/(2*h))
			}
		}
	}
	return v
}

// MassWeightedVelocity returns the velocity of every atom scaled by the
// square root of its mass, resolved through the supercell-aware atom type
// assignment. The result is cached; a fresh copy is returned on every call so
// callers cannot mutate the cache.
func (D *Dynamics) MassWeightedVelocity() ([]*mat.CDense, error) {
	if D.velocityMass == nil {
		vel, err := D.Velocity()
		if err != nil {
			return nil, errDecorate(err, "MassWeightedVelocity")
		}
		sc, err := D.SuperCellMatrix()
		if err != nil {
			return nil, errDecorate(err, "MassWeightedVelocity")
		}
		masses := D.structure.Masses(sc)
		nat, _ := vel[0].Dims()
		if len(masses) != nat {
			return nil, fmtError(DimensionMismatch, "MassWeightedVelocity",
				"Supercell expansion gives %d atoms but frames have %d", len(masses), nat)
		}
		wv := make([]*mat.CDense, len(vel))
		for t, f := range vel {
			w := mat.NewCDense(nat, 3, nil)
			for i := 0; i < nat; i++ {
				sq := complex(math.Sqrt(masses[i]), 0)
				for a := 0; a < 3; a++ {
					w.Set(i, a, f.At(i, a)*sq)
				}
			}
			wv[t] = w
		}
		D.velocityMass = wv
	}
	ret := make([]*mat.CDense, len(D.velocityMass))
	for t, f := range D.velocityMass {
		nf := mat.NewCDense(f.RawCMatrix().Rows, f.RawCMatrix().Cols, nil)
		nf.Copy(f)
		ret[t] = nf
	}
	return ret, nil
}

// RelativeTrajectory returns the lattice drift removed trajectory: positions
// relative to each atom's equilibrium lattice site, as produced by the
// configured Relativizer. Cached.
func (D *Dynamics) RelativeTrajectory() ([]*mat.CDense, error) {
	if D.relativeTraj == nil {
		if D.traj == nil {
			return nil, NewError(MissingInput, ErrNoTrajectory, "RelativeTrajectory")
		}
		rel, err := D.relativize(D)
		if err != nil {
			return nil, errDecorate(err, "RelativeTrajectory")
		}
		D.relativeTraj = rel
	}
	return D.relativeTraj, nil
}

// MeanDisplacementMatrix accumulates, for each atom type, the outer product
// of the relative displacement vectors of all atoms of that type, normalized
// by the number of equivalent primitive atoms of the type, the number of
// supercell replicas and the number of time samples. The result is one 3x3
// anisotropic mean square displacement tensor per atom type. Cached.
func (D *Dynamics) MeanDisplacementMatrix() ([]*mat.Dense, error) {
	if D.meanDisp == nil {
		sc, err := D.SuperCellMatrix()
		if err != nil {
			return nil, errDecorate(err, "MeanDisplacementMatrix")
		}
		rel, err := D.RelativeTrajectory()
		if err != nil {
			return nil, errDecorate(err, "MeanDisplacementMatrix")
		}
		typeIndex := D.structure.AtomTypeIndex(sc)
		primEquiv := D.structure.TypeCounts()
		nat, _ := rel[0].Dims()
		if len(typeIndex) != nat {
			return nil, fmtError(DimensionMismatch, "MeanDisplacementMatrix",
				"Supercell expansion gives %d atoms but frames have %d", len(typeIndex), nat)
		}
		nsteps := len(rel)
		nequiv := float64(ncells(sc))

		mdm := make([]*mat.Dense, D.structure.NAtomTypes())
		for t := range mdm {
			mdm[t] = mat.NewDense(3, 3, nil)
		}
		var maxImag float64
		for i := 0; i < nat; i++ {
			norm := float64(primEquiv[typeIndex[i]])
			m := mdm[typeIndex[i]]
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					var acc float64
					for t := 0; t < nsteps; t++ {
						da := rel[t].At(i, a)
						db := rel[t].At(i, b)
						if im := math.Abs(imag(da)); im > maxImag {
							maxImag = im
						}
						acc += real(da * db)
					}
					m.Set(a, b, m.At(a, b)+acc/norm)
				}
			}
		}
		if maxImag > ImagTolerance {
			log.Printf("gophonon: relative trajectory carries imaginary residue up to %g", maxImag)
		}
		for _, m := range mdm {
			m.Scale(1.0/(nequiv*float64(nsteps)), m)
		}
		D.meanDisp = mdm
	}
	return D.meanDisp, nil
}

// MassWeightedModes flattens the mass weighted velocity frames into a
// (time x mode) matrix whose columns enumerate one atom's one spatial axis
// each, the layout the spectral estimators consume.
func (D *Dynamics) MassWeightedModes() (*mat.CDense, error) {
	wv, err := D.MassWeightedVelocity()
	if err != nil {
		return nil, errDecorate(err, "MassWeightedModes")
	}
	return Modes(wv), nil
}

// Modes flattens a frame sequence into a (time x natoms*3) matrix, columns
// ordered atom-major: atom 0 x, atom 0 y, atom 0 z, atom 1 x, ...
func Modes(frames []*mat.CDense) *mat.CDense {
	nat, _ := frames[0].Dims()
	vq := mat.NewCDense(len(frames), nat*3, nil)
	for t, f := range frames {
		for i := 0; i < nat; i++ {
			for a := 0; a < 3; a++ {
				vq.Set(t, i*3+a, f.At(i, a))
			}
		}
	}
	return vq
}

// RealPart reduces a complex series to its physical, real component. If the
// imaginary residue exceeds ImagTolerance a warning is logged; see the
// package documentation.
func RealPart(series []complex128) []float64 {
	ret := make([]float64, len(series))
	var maxImag float64
	for i, v := range series {
		ret[i] = real(v)
		if im := math.Abs(imag(v)); im > maxImag {
			maxImag = im
		}
	}
	if maxImag > ImagTolerance {
		log.Printf("gophonon: dropping imaginary residue up to %g from physical series", maxImag)
	}
	return ret
}
