package mip

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Error
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Error:
		return "Error"
	}
	return fmt.Sprintf("Status(%d)", int(status))
}

// Solution is what a backend reports. Objective and Values are only meaningful when Status is Optimal, in which case
// Values holds the value of every variable of the model
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Solver hands a model to a MIP backend. A non-nil error is returned if and only if the status is Error, and such an
// error is always a *SolverError
type Solver interface {
	Solve(ctx context.Context, model *Model) (Solution, error)
}

type SolverError struct {
	Backend string
	Timeout bool
	Err     error
}

func (err *SolverError) Error() string {
	if err.Timeout {
		return fmt.Sprintf("%v solver timed out: %v", err.Backend, err.Err)
	}
	return fmt.Sprintf("%v solver failed: %v", err.Backend, err.Err)
}

func (err *SolverError) Unwrap() error {
	return err.Err
}

func failure(backend string, err error) (Solution, error) {
	return Solution{Status: Error}, &SolverError{Backend: backend, Err: err}
}

func timeout(backend string, err error) (Solution, error) {
	if err == nil {
		err = context.DeadlineExceeded
	}
	return Solution{Status: Error}, &SolverError{Backend: backend, Timeout: true, Err: err}
}

// contextFailure classifies a context error: a deadline is a timeout, any other cancellation is a plain failure
func contextFailure(backend string, err error) (Solution, error) {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeout(backend, err)
	}
	return failure(backend, err)
}

type timeoutSolver struct {
	solver  Solver
	timeout time.Duration
}

// WithTimeout bounds every Solve call of the wrapped solver. A solve that exceeds the limit reports Error with a
// timeout, never a partial assignment
func WithTimeout(solver Solver, timeout time.Duration) Solver {
	if timeout <= 0 {
		return solver
	}
	return &timeoutSolver{solver: solver, timeout: timeout}
}

func (solver *timeoutSolver) Backend() string {
	return backendName(solver.solver)
}

func (solver *timeoutSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	ctx, cancel := context.WithTimeout(ctx, solver.timeout)
	defer cancel()

	solution, err := solver.solver.Solve(ctx, model)
	if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
		// The backend returned, but only after the deadline
		return contextFailure(backendName(solver.solver), ctxErr)
	}
	return solution, err
}
