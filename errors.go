/*
 * errors.go, part of gophonon.
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

import "fmt"

// Error is the interface for errors that all packages in this library implement.
// The Decorate method allows to add and retrieve info from the error, without
// changing its type or wrapping it around something else. If passed an empty
// string it just returns the current decoration slice.
type Error interface {
	Error() string
	Decorate(string) []string
}

// Kind classifies the failure modes of the preparation and estimation stages.
// FitFailure is the only recoverable kind: callers skip the offending candidate
// and keep going. Every other kind must be reported to the caller, which
// decides whether to abort or retry with different parameters.
type Kind int

const (
	StructuralMismatch Kind = iota + 1
	MissingInput
	UnderdeterminedModel
	FitFailure
	DimensionMismatch
)

func (k Kind) String() string {
	switch k {
	case StructuralMismatch:
		return "structural mismatch"
	case MissingInput:
		return "missing input"
	case UnderdeterminedModel:
		return "underdetermined model"
	case FitFailure:
		return "fit failure"
	case DimensionMismatch:
		return "dimension mismatch"
	}
	return "unknown"
}

// CError is the concrete error type of the phonon package.
type CError struct {
	msg  string
	kind Kind
	deco []string
}

func NewError(kind Kind, msg string, caller string) *CError {
	return &CError{msg: msg, kind: kind, deco: []string{caller}}
}

func (err *CError) Error() string { return err.msg }

// Decorate adds the dec string to the decoration slice of strings of the error,
// and returns the resulting slice.
func (err *CError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Kind returns the classification of the error.
func (err *CError) Kind() Kind { return err.kind }

// KindOf returns the Kind of err, or 0 if err does not carry one.
func KindOf(err error) Kind {
	type kinder interface{ Kind() Kind }
	if k, ok := err.(kinder); ok {
		return k.Kind()
	}
	return 0
}

// errDecorate asserts that the error implements phonon.Error and decorates it
// with the caller's name before returning it. Used with any other error type
// it will panic.
func errDecorate(err error, caller string) error {
	err2 := err.(Error)
	err2.Decorate(caller)
	return err2
}

// Diagnostic messages shared across the package.
const (
	ErrNoTrajectory   = "No trajectory loaded"
	ErrNoVelocity     = "No velocity provided and no trajectory to derive it from"
	ErrCellsDontFit   = "Warning! Structure cell and MD cell do not fit!"
	ErrNoTime         = "Time series with at least 2 samples is needed"
	ErrEmptySeries    = "Empty time series"
	ErrEmptyFreqs     = "Empty frequency grid"
	ErrTooManyCoefs   = "Number of coefficients should be smaller than the number of time steps"
	ErrUnevenFrames   = "Atom count changes between frames"
	ErrLengthMismatch = "Series length does not match the trajectory"
)

var _ Error = (*CError)(nil)

func fmtError(kind Kind, caller, format string, a ...interface{}) *CError {
	return NewError(kind, fmt.Sprintf(format, a...), caller)
}
