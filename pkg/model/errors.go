package model

import (
	"errors"
	"fmt"
)

var (
	ErrInfeasible = errors.New("no assignment satisfies every constraint")
	ErrUnbounded  = errors.New("the objective is unbounded")
)

// ProjectionInconsistencyError reports a solved assignment that breaks a schedule invariant. It points at a modeling
// or solver-interface bug and is never turned into a displayable schedule
type ProjectionInconsistencyError struct {
	Reason string
}

func (err *ProjectionInconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent solution: %v", err.Reason)
}

func inconsistency(format string, args ...any) error {
	return &ProjectionInconsistencyError{Reason: fmt.Sprintf(format, args...)}
}
