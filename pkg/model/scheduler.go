package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"go.uber.org/zap"
)

// Recorder receives the measurements of each run
type Recorder interface {
	RecordModel(variables, constraints int)
	RecordSolve(status mip.Status, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordModel(int, int) {}
func (nopRecorder) RecordSolve(mip.Status, time.Duration) {}

// Scheduler runs the build, solve and project pipeline. It keeps no state between runs, so one scheduler can be
// reused for many catalogs
type Scheduler struct {
	solver   mip.Solver
	scale    float64
	timeout  time.Duration
	logger   *zap.Logger
	recorder Recorder
}

type Option func(*Scheduler)

// WithScale sets the factor the objective and the reported total cost are multiplied by
func WithScale(scale float64) Option {
	return func(scheduler *Scheduler) { scheduler.scale = scale }
}

// WithTimeout bounds the solve step
func WithTimeout(timeout time.Duration) Option {
	return func(scheduler *Scheduler) { scheduler.timeout = timeout }
}

func WithLogger(logger *zap.Logger) Option {
	return func(scheduler *Scheduler) { scheduler.logger = logger }
}

func WithRecorder(recorder Recorder) Option {
	return func(scheduler *Scheduler) { scheduler.recorder = recorder }
}

func NewScheduler(solver mip.Solver, options ...Option) *Scheduler {
	scheduler := &Scheduler{
		solver:   solver,
		scale:    1,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

// Outcome is the result of one run. Schedule is set only when Status is Optimal; otherwise Message explains why no
// optimal solution was found
type Outcome struct {
	RunID     string        `json:"runId"`
	Status    mip.Status    `json:"-"`
	Schedule  *Schedule     `json:"schedule,omitempty"`
	Message   string        `json:"message"`
	Stats     Stats         `json:"stats"`
	Diagnosis *Diagnosis    `json:"diagnosis,omitempty"`
	Duration  time.Duration `json:"duration"`
	err       error
}

// Optimal reports whether a schedule was found
func (outcome Outcome) Optimal() bool {
	return outcome.Status == mip.Optimal
}

// Err returns the recovered cause of a non-optimal outcome: ErrInfeasible, ErrUnbounded or a *mip.SolverError
func (outcome Outcome) Err() error {
	return outcome.err
}

// Run builds the model of the catalog, solves it and projects the solution. Infeasible, unbounded and failed solves
// are recovered into the outcome; configuration errors and inconsistent solutions are returned as errors
func (scheduler *Scheduler) Run(ctx context.Context, c *catalog.Catalog) (Outcome, error) {
	outcome := Outcome{RunID: uuid.NewString()}
	logger := scheduler.logger.With(zap.String("runID", outcome.RunID))

	//** Build model
	problem, err := Build(c, BuildOptions{Scale: scheduler.scale, BreakSymmetry: true})
	if err != nil {
		return outcome, err
	}
	outcome.Stats = problem.Stats
	scheduler.recorder.RecordModel(problem.Stats.Variables, problem.Stats.Constraints)
	logger.Info("model built",
		zap.Int("variables", problem.Stats.Variables),
		zap.Int("constraints", problem.Stats.Constraints),
		zap.Int("pruned", problem.Stats.Eligibility),
	)

	//** Solve model
	solver := mip.WithTimeout(scheduler.solver, scheduler.timeout)
	start := time.Now()
	solution, err := solver.Solve(ctx, problem.Model)
	outcome.Duration = time.Since(start)
	outcome.Status = solution.Status
	scheduler.recorder.RecordSolve(solution.Status, outcome.Duration)
	logger.Info("model solved",
		zap.Stringer("status", solution.Status),
		zap.Duration("duration", outcome.Duration),
	)

	switch solution.Status {
	case mip.Infeasible:
		outcome.err = ErrInfeasible
		outcome.Message = fmt.Sprintf("no optimal solution found: %v", ErrInfeasible)
		diagnosis, err := Diagnose(c)
		if err != nil {
			logger.Warn("cannot diagnose infeasible catalog", zap.Error(err))
		} else {
			outcome.Diagnosis = &diagnosis
			outcome.Message = fmt.Sprintf("%v (%v)", outcome.Message, diagnosis)
		}
		return outcome, nil
	case mip.Unbounded:
		outcome.err = ErrUnbounded
		outcome.Message = fmt.Sprintf("no optimal solution found: %v", ErrUnbounded)
		return outcome, nil
	case mip.Error:
		var solverError *mip.SolverError
		if err == nil {
			err = &mip.SolverError{Backend: "unknown", Err: errors.New("no error was reported")}
		} else if !errors.As(err, &solverError) {
			err = &mip.SolverError{Backend: "unknown", Err: err}
		}
		outcome.err = err
		outcome.Message = fmt.Sprintf("no optimal solution found: %v", err)
		logger.Warn("solver failed", zap.Error(err))
		return outcome, nil
	case mip.Optimal:
	default:
		return outcome, fmt.Errorf("solver returned an unknown status %v", solution.Status)
	}

	//** Project solution
	schedule, err := Project(problem, c, solution)
	if err != nil {
		logger.Error("solution is inconsistent", zap.Error(err))
		return outcome, err
	}
	outcome.Schedule = &schedule
	outcome.Message = "optimal schedule found"
	logger.Info("schedule projected", zap.Float64("totalCost", schedule.TotalCost))

	return outcome, nil
}
