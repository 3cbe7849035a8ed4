package mip

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const glpkBackend = "glpk"

type glpkSolver struct {
	executable string
	logger     *zap.Logger
}

// NewGLPKSolver returns a backend that runs glpsol on an LP file and reads its raw MIP solution
func NewGLPKSolver(executable string, logger *zap.Logger) Solver {
	return &glpkSolver{executable: executable, logger: orNop(logger)}
}

func (solver *glpkSolver) Backend() string {
	return glpkBackend
}

func (solver *glpkSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := model.Validate(); err != nil {
		return failure(glpkBackend, err)
	}

	workspace, err := newWorkspace(glpkBackend, solver.logger)
	if err != nil {
		return failure(glpkBackend, err)
	}
	defer workspace.close()

	modelFile, err := workspace.writeModel(model)
	if err != nil {
		return failure(glpkBackend, err)
	}
	solutionFile := workspace.path("solution.txt")

	args := []string{"--lp", modelFile, "-w", solutionFile}
	if seconds, ok := secondsLeft(ctx); ok {
		args = append(args, "--tmlim", strconv.Itoa(seconds))
	}

	if _, _, err := run(ctx, solver.executable, args...); err != nil {
		if ctx.Err() != nil {
			return contextFailure(glpkBackend, err)
		}
		return failure(glpkBackend, fmt.Errorf("an error occurred during glpsol execution: %v", err))
	}

	output, err := os.ReadFile(solutionFile)
	if err != nil {
		return failure(glpkBackend, fmt.Errorf("failed to read solution file: %v", err))
	}
	return parseGLPKSolution(string(output), model)
}

// parseGLPKSolution reads the GLPK raw solution format. The "s mip ROWS COLS STATUS OBJECTIVE" line carries the status
// (o optimal, f feasible, n no feasible solution, u undefined) and each "j COL VALUE" line a column value, columns
// being numbered from 1 in the order they appear in the LP file
func parseGLPKSolution(output string, model *Model) (Solution, error) {
	var status string
	values := make([]float64, len(model.Variables))

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "s":
			if len(fields) < 5 || fields[1] != "mip" {
				return failure(glpkBackend, fmt.Errorf("unexpected solution line: %q", line))
			}
			status = fields[4]
		case "j":
			if len(fields) < 3 {
				return failure(glpkBackend, fmt.Errorf("malformed column line: %q", line))
			}
			column, err := strconv.Atoi(fields[1])
			if err != nil || column < 1 || column > len(values) {
				return failure(glpkBackend, fmt.Errorf("unknown column in solution line %q", line))
			}
			value, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return failure(glpkBackend, fmt.Errorf("invalid value in solution line %q: %v", line, err))
			}
			values[column-1] = value
		}
	}

	switch status {
	case "o":
		return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
	case "n":
		return Solution{Status: Infeasible}, nil
	case "f":
		return timeout(glpkBackend, fmt.Errorf("search stopped before proving optimality"))
	case "":
		return failure(glpkBackend, fmt.Errorf("solution file has no status line"))
	}
	return failure(glpkBackend, fmt.Errorf("undefined solution status %q", status))
}
