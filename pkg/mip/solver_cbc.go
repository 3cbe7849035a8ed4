package mip

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const cbcBackend = "cbc"

type cbcSolver struct {
	executable string
	logger     *zap.Logger
}

// NewCBCSolver returns a backend that runs the COIN-OR CBC executable on an LP file
func NewCBCSolver(executable string, logger *zap.Logger) Solver {
	return &cbcSolver{executable: executable, logger: orNop(logger)}
}

func (solver *cbcSolver) Backend() string {
	return cbcBackend
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := model.Validate(); err != nil {
		return failure(cbcBackend, err)
	}

	workspace, err := newWorkspace(cbcBackend, solver.logger)
	if err != nil {
		return failure(cbcBackend, err)
	}
	defer workspace.close()

	modelFile, err := workspace.writeModel(model)
	if err != nil {
		return failure(cbcBackend, err)
	}
	solutionFile := workspace.path("solution.txt")

	args := []string{modelFile}
	if seconds, ok := secondsLeft(ctx); ok {
		args = append(args, "sec", strconv.Itoa(seconds))
	}
	args = append(args, "solve", "solu", solutionFile)

	if _, _, err := run(ctx, solver.executable, args...); err != nil {
		if ctx.Err() != nil {
			return contextFailure(cbcBackend, err)
		}
		return failure(cbcBackend, fmt.Errorf("an error occurred during cbc execution: %v", err))
	}

	output, err := os.ReadFile(solutionFile)
	if err != nil {
		return failure(cbcBackend, fmt.Errorf("failed to read solution file: %v", err))
	}
	return parseCBCSolution(string(output), model)
}

// parseCBCSolution reads a CBC solution file: a status line followed by one line per nonzero column
// ("index name value reduced-cost", optionally prefixed by "**" when the value violates a bound)
func parseCBCSolution(output string, model *Model) (Solution, error) {
	lines := lo.Filter(strings.Split(output, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) == 0 {
		return failure(cbcBackend, fmt.Errorf("empty solution file"))
	}

	header := strings.TrimSpace(lines[0])
	switch {
	case strings.HasPrefix(header, "Optimal"):
	case strings.HasPrefix(header, "Infeasible"), strings.HasPrefix(header, "Integer infeasible"):
		return Solution{Status: Infeasible}, nil
	case strings.HasPrefix(header, "Unbounded"):
		return Solution{Status: Unbounded}, nil
	case strings.HasPrefix(header, "Stopped on time"):
		return timeout(cbcBackend, fmt.Errorf("%v", header))
	default:
		return failure(cbcBackend, fmt.Errorf("unexpected status: %v", header))
	}

	values := make([]float64, len(model.Variables))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			return failure(cbcBackend, fmt.Errorf("malformed solution line: %q", line))
		}
		variable, ok := ParseLPName(fields[1])
		if !ok || variable >= len(values) {
			return failure(cbcBackend, fmt.Errorf("unknown column in solution: %v", fields[1]))
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return failure(cbcBackend, fmt.Errorf("invalid value in solution line %q: %v", line, err))
		}
		values[variable] = value
	}

	return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
}
