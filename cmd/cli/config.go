package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MIPSCHEDULE"

var validOutputs = []string{"table", "json"}

type Config struct {
	Solver  string        `mapstructure:"solver"`
	Timeout time.Duration `mapstructure:"timeout"`
	Scale   float64       `mapstructure:"scale"`
	Catalog string        `mapstructure:"catalog"`
	Output  string        `mapstructure:"output"`
	Log     struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Metrics struct {
		File string `mapstructure:"file"`
	} `mapstructure:"metrics"`
	Solvers map[string]string `mapstructure:"solvers"`
}

// Flags and the keys they override
var flagKeys = map[string]string{
	"solver":       "solver",
	"timeout":      "timeout",
	"scale":        "scale",
	"catalog":      "catalog",
	"output":       "output",
	"log-level":    "log.level",
	"metrics-file": "metrics.file",
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to the configuration file; config.yaml next to the executable or in the working directory is used if empty")
	flags.String("solver", mip.BranchAndBoundBackend, fmt.Sprintf("MIP backend to use. Allowed values are: %v", mip.Backends))
	flags.Duration("timeout", 30*time.Second, "Time limit of a solve, 0 disables it")
	flags.Float64("scale", 1, "Factor the objective and the reported total cost are multiplied by")
	flags.String("catalog", "", "Path to a YAML or JSON catalog; the built-in scenario is used if empty")
	flags.String("output", "table", fmt.Sprintf("Output format. Allowed values are: %v", validOutputs))
	flags.String("log-level", "info", "Minimum level of the logs written to the standard error")
	flags.String("metrics-file", "", "File the run metrics are written to in the Prometheus text format")
}

// loadConfig merges defaults, the configuration file, MIPSCHEDULE_* environment variables and flags, in increasing
// order of precedence
func loadConfig(v *viper.Viper, flags *pflag.FlagSet) (Config, error) {
	v.SetDefault("solver", mip.BranchAndBoundBackend)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("scale", 1.0)
	v.SetDefault("output", "table")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("solvers."+mip.CBCBackend, "cbc")
	v.SetDefault("solvers."+mip.GLPKBackend, "glpsol")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Config{}, fmt.Errorf("cannot bind flag %v: %w", flag, err)
		}
	}

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if execPath, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(execPath))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("cannot read configuration: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("cannot decode configuration: %w", err)
	}
	config.Solver = strings.ToLower(config.Solver)
	config.Output = strings.ToLower(config.Output)

	return config, config.validate()
}

func (config Config) validate() error {
	if !slices.Contains(mip.Backends, config.Solver) {
		return fmt.Errorf("%v is not a valid solver: allowed values are %v", config.Solver, mip.Backends)
	} else if !slices.Contains(validOutputs, config.Output) {
		return fmt.Errorf("%v is not a valid output: allowed values are %v", config.Output, validOutputs)
	} else if config.Timeout < 0 {
		return fmt.Errorf("timeout must be nonnegative: %v", config.Timeout)
	} else if config.Scale <= 0 {
		return fmt.Errorf("scale must be greater than 0: %v", config.Scale)
	}
	return nil
}
