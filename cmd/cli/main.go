package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/limaJavier/mipschedule/internal/logging"
	"github.com/limaJavier/mipschedule/internal/metrics"
	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/limaJavier/mipschedule/pkg/model"
	"github.com/limaJavier/mipschedule/pkg/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitConfiguration = 1
	exitOptimal       = 10
	exitInconsistent  = 15
	exitNoSolution    = 20
)

// exitError carries the exit code of a failed command
type exitError struct {
	code int
	err  error
}

func (err *exitError) Error() string {
	if err.err == nil {
		return fmt.Sprintf("exit status %d", err.code)
	}
	return err.err.Error()
}

func (err *exitError) Unwrap() error {
	return err.err
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.sync()

	command := newRootCommand(a)
	command.SetArgs(args)
	err := command.ExecuteContext(ctx)

	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, exit.err)
		}
		return exit.code
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitConfiguration
	}
}

// app is the state shared by the commands once the configuration is loaded
type app struct {
	config Config
	logger *zap.Logger
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mipschedule",
		Short:         "Assigns every subject to a teacher, a time slot and a room at minimum cost",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig(viper.New(), cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(config.Log.Level, config.Log.Development)
			if err != nil {
				return err
			}
			a.config, a.logger = config, logger
			return nil
		},
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "solve",
			Short: "Solve the catalog and print the optimal schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.solve(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "catalog",
			Short: "Print the catalog the schedule is built from",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printCatalog(cmd.OutOrStdout())
			},
		},
		newValidateCommand(a),
	)

	return root
}

func newValidateCommand(a *app) *cobra.Command {
	var lpFile string

	command := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and report the size of its model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.validate(cmd.OutOrStdout(), lpFile)
		},
	}
	command.Flags().StringVar(&lpFile, "lp", "", "Write the model in CPLEX LP format to this file")

	return command
}

func (a *app) loadCatalog() (*catalog.Catalog, error) {
	if a.config.Catalog == "" {
		a.logger.Debug("using the built-in catalog")
		return catalog.Default(), nil
	}
	a.logger.Debug("loading catalog", zap.String("file", a.config.Catalog))
	return catalog.Load(a.config.Catalog)
}

func (a *app) solve(ctx context.Context, out io.Writer) error {
	c, err := a.loadCatalog()
	if err != nil {
		return &exitError{code: exitConfiguration, err: err}
	}

	solver, err := mip.NewSolver(a.config.Solver, a.config.Solvers, a.logger)
	if err != nil {
		return &exitError{code: exitConfiguration, err: err}
	}
	recorder := metrics.NewRecorder(a.config.Solver)
	scheduler := model.NewScheduler(solver,
		model.WithScale(a.config.Scale),
		model.WithTimeout(a.config.Timeout),
		model.WithLogger(a.logger.With(zap.String("solver", a.config.Solver))),
		model.WithRecorder(recorder),
	)

	outcome, err := scheduler.Run(ctx, c)
	if metricsErr := a.writeMetrics(recorder); metricsErr != nil {
		a.logger.Warn("cannot write metrics", zap.Error(metricsErr))
	}

	var configurationError *catalog.ConfigurationError
	var inconsistencyError *model.ProjectionInconsistencyError
	switch {
	case errors.As(err, &configurationError):
		return &exitError{code: exitConfiguration, err: err}
	case errors.As(err, &inconsistencyError):
		return &exitError{code: exitInconsistent, err: err}
	case err != nil:
		return &exitError{code: exitNoSolution, err: err}
	}

	// Verify schedule correctness
	if outcome.Schedule != nil {
		if err := model.Verify(*outcome.Schedule, c); err != nil {
			return &exitError{code: exitInconsistent, err: err}
		}
	}

	if err := a.write(out, outcome, c); err != nil {
		return &exitError{code: exitConfiguration, err: fmt.Errorf("an error occurred while writing the output: %w", err)}
	}

	if !outcome.Optimal() {
		return &exitError{code: exitNoSolution}
	}
	return &exitError{code: exitOptimal}
}

func (a *app) write(out io.Writer, outcome model.Outcome, c *catalog.Catalog) error {
	if a.config.Output == "json" {
		return report.WriteJSON(out, report.NewDocument(outcome, c))
	}
	if err := report.WriteCatalog(out, c); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return report.WriteOutcome(out, outcome)
}

func (a *app) writeMetrics(recorder *metrics.Recorder) error {
	if a.config.Metrics.File == "" {
		return nil
	}
	return recorder.WriteFile(a.config.Metrics.File)
}

func (a *app) printCatalog(out io.Writer) error {
	c, err := a.loadCatalog()
	if err != nil {
		return &exitError{code: exitConfiguration, err: err}
	}
	if a.config.Output == "json" {
		return report.WriteJSON(out, report.Document{Catalog: c.Table()})
	}
	return report.WriteCatalog(out, c)
}

func (a *app) validate(out io.Writer, lpFile string) error {
	c, err := a.loadCatalog()
	if err != nil {
		return &exitError{code: exitConfiguration, err: err}
	}
	problem, err := model.Build(c, model.BuildOptions{Scale: a.config.Scale})
	if err != nil {
		return &exitError{code: exitConfiguration, err: err}
	}

	if lpFile != "" {
		file, err := os.Create(lpFile)
		if err != nil {
			return &exitError{code: exitConfiguration, err: err}
		}
		defer file.Close()
		if err := problem.Model.WriteLP(file); err != nil {
			return &exitError{code: exitConfiguration, err: fmt.Errorf("cannot write model: %w", err)}
		}
	}

	stats := problem.Stats
	fmt.Fprintf(out, "Variables: %v\n", stats.Variables)
	fmt.Fprintf(out, "Constraints: %v (demand %v, teacher %v, room %v, eligibility %v)\n",
		stats.Constraints, stats.Demand, stats.Teacher, stats.Room, stats.Eligibility)

	diagnosis, err := model.Diagnose(c)
	if err != nil {
		return err
	}
	if !diagnosis.Empty() {
		fmt.Fprintf(out, "Catalog is infeasible: %v\n", diagnosis)
		return &exitError{code: exitNoSolution}
	}
	return nil
}
