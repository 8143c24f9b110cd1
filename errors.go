package hilbertcluster

import (
	"errors"
	"fmt"

	"github.com/cohenw/hilbertcluster/cluster"
	"github.com/cohenw/hilbertcluster/hilbert"
	"github.com/cohenw/hilbertcluster/optimizer"
	"github.com/cohenw/hilbertcluster/point"
)

var (
	// ErrTooFewPoints is returned when the input set is below the
	// search minimum or leaves the estimator nothing to score.
	ErrTooFewPoints = errors.New("too few points")

	// ErrInvalidPoolSize is returned when a non-positive result pool
	// size is requested.
	ErrInvalidPoolSize = errors.New("pool size must be positive")

	// ErrInvalidPermutation is returned for a starting permutation that
	// is not a bijection over the points' axes.
	ErrInvalidPermutation = errors.New("invalid permutation")
)

// ErrInvalidBits indicates an unsupported bits-per-dimension setting.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidBits struct {
	Bits  int
	cause error
}

func (e *ErrInvalidBits) Error() string {
	return fmt.Sprintf("invalid bits per dimension: %d", e.Bits)
}

func (e *ErrInvalidBits) Unwrap() error { return e.cause }

// ErrDimensionMismatch indicates a point whose dimensionality differs
// from the rest of its set.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Too-few-points unification.
	var tfp *optimizer.ErrTooFewPoints
	if errors.As(err, &tfp) {
		return fmt.Errorf("%w: %w", ErrTooFewPoints, err)
	}
	if errors.Is(err, cluster.ErrTooFewPoints) {
		return fmt.Errorf("%w: %w", ErrTooFewPoints, err)
	}

	// Argument normalization.
	if errors.Is(err, optimizer.ErrInvalidPoolSize) {
		return fmt.Errorf("%w: %w", ErrInvalidPoolSize, err)
	}
	var ip *hilbert.ErrInvalidPermutation
	if errors.As(err, &ip) {
		return fmt.Errorf("%w: %w", ErrInvalidPermutation, err)
	}
	var ib *point.ErrInvalidBits
	if errors.As(err, &ib) {
		return &ErrInvalidBits{Bits: ib.Bits, cause: err}
	}
	var dm *point.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
