package mip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backend names accepted by NewSolver
const (
	BranchAndBoundBackend = bnbBackend
	GophersatBackend      = gophersatBackend
	CBCBackend            = cbcBackend
	GLPKBackend           = glpkBackend
)

var Backends = []string{BranchAndBoundBackend, GophersatBackend, CBCBackend, GLPKBackend}

// NewSolver builds the backend with the given name. External backends take the path of their executable from paths,
// falling back to the executable name so that it is looked up in PATH, and report cleanup problems to logger
func NewSolver(name string, paths map[string]string, logger *zap.Logger) (Solver, error) {
	switch name {
	case BranchAndBoundBackend:
		return NewBranchAndBoundSolver(), nil
	case GophersatBackend:
		return NewGophersatSolver(), nil
	case CBCBackend:
		return NewCBCSolver(executablePath(paths, CBCBackend, "cbc"), logger), nil
	case GLPKBackend:
		return NewGLPKSolver(executablePath(paths, GLPKBackend, "glpsol"), logger), nil
	}
	return nil, fmt.Errorf("unknown solver backend \"%v\": allowed values are %v", name, Backends)
}

func executablePath(paths map[string]string, backend, fallback string) string {
	if path, ok := paths[backend]; ok && path != "" {
		return path
	}
	return fallback
}

// backendName is the name a solver reports in its errors
func backendName(solver Solver) string {
	if named, ok := solver.(interface{ Backend() string }); ok {
		return named.Backend()
	}
	return fmt.Sprintf("%T", solver)
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// workspace holds the temporary files of a single external solve
type workspace struct {
	directory string
	logger    *zap.Logger
}

func newWorkspace(backend string, logger *zap.Logger) (*workspace, error) {
	directory, err := os.MkdirTemp("", backend+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %v", err)
	}
	return &workspace{directory: directory, logger: logger}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.directory, name)
}

func (w *workspace) writeModel(model *Model) (string, error) {
	file, err := os.Create(w.path("model.lp"))
	if err != nil {
		return "", fmt.Errorf("failed to create model file: %v", err)
	}
	if err := model.WriteLP(file); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write model file: %v", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close model file: %v", err)
	}
	return file.Name(), nil
}

func (w *workspace) remove() error {
	if err := os.RemoveAll(w.directory); err != nil {
		return fmt.Errorf("failed to remove temporary directory %v: %w", w.directory, err)
	}
	return nil
}

// close removes the workspace once the solve is over. A leftover directory does not change the outcome, so it is
// only logged
func (w *workspace) close() {
	if err := w.remove(); err != nil {
		w.logger.Warn("cannot clean up solver workspace", zap.String("directory", w.directory), zap.Error(err))
	}
}

// run executes the solver binary. The process is killed when the context is done
func run(ctx context.Context, executable string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, executable, args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdOut.String(), stdErr.String(), ctxErr
	}
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return stdOut.String(), stdErr.String(), fmt.Errorf("exit code %d: %v", exitError.ExitCode(), stdErr.String())
		}
		return stdOut.String(), stdErr.String(), err
	}
	return stdOut.String(), stdErr.String(), nil
}

// secondsLeft returns the whole seconds left before the context deadline, so that the solver can stop on its own
// before being killed
func secondsLeft(ctx context.Context) (int, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return max(1, int(time.Until(deadline).Seconds())), true
}
