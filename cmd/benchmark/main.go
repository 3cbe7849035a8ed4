package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/limaJavier/mipschedule/pkg/model"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"
)

// Executables of the external backends, a backend is skipped when its executable is not in PATH
var executables = map[string]string{
	mip.CBCBackend:  "cbc",
	mip.GLPKBackend: "glpsol",
}

type TestMetadata struct {
	Name     string
	Size     int
	Seed     uint64
	Teachers int
	Subjects int
	Slots    int
	Rooms    int
}

type BenchmarkResult struct {
	Solver    string
	Test      TestMetadata
	Run       int
	Duration  time.Duration
	Variables int
	Status    mip.Status
	Objective float64
}

func main() {
	sizes := pflag.IntSlice("sizes", []int{3, 5, 7, 9, 12}, "Number of teachers, subjects and slots of the generated catalogs")
	runs := pflag.Int("runs", 3, "Number of solves per catalog and solver")
	seed := pflag.Uint64("seed", 1, "Seed of the catalog generator")
	solvers := pflag.StringSlice("solvers", mip.Backends, "Backends to benchmark")
	timeout := pflag.Duration("timeout", time.Minute, "Time limit of each solve")
	out := pflag.String("out", "benchmark_results.csv", "Path of the CSV file the results are written to")
	pflag.Parse()

	tests := getTests(*sizes, *seed)
	results := make([]BenchmarkResult, 0, len(tests)*len(*solvers)*(*runs))

	for _, solverName := range getSolvers(*solvers) {
		solver, err := mip.NewSolver(solverName, nil, nil)
		if err != nil {
			log.Fatalf("cannot create solver: %v", err)
		}
		scheduler := model.NewScheduler(solver, model.WithTimeout(*timeout))

		for _, test := range tests {
			c := lo.Must(catalog.New(generateCatalog(test)))
			for run := range *runs {
				fmt.Printf("Benchmarking test \"%v\" with solver \"%v\" (run %v)\n", test.Name, solverName, run+1)
				result, err := measure(scheduler, c)
				if err != nil {
					log.Fatalf("an error occurred during the execution of test \"%v\" using solver \"%v\": %v", test.Name, solverName, err)
				}
				result.Solver, result.Test, result.Run = solverName, test, run
				results = append(results, result)
			}
		}
	}

	file, err := os.Create(*out)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()
	if err := toCsv(file, results); err != nil {
		log.Panicf("cannot write CSV file: %v", err)
	}

	for _, summary := range summarize(results) {
		fmt.Printf("%v\t%v\tmean %.3fs\tstddev %.3fs\n", summary.Solver, summary.Test, summary.Mean, summary.StdDev)
	}
}

func getTests(sizes []int, seed uint64) []TestMetadata {
	return lo.Map(sizes, func(size int, i int) TestMetadata {
		rooms := size/2 + 1
		return TestMetadata{
			Name:     fmt.Sprintf("random-%v", size),
			Size:     size,
			Seed:     seed + uint64(i),
			Teachers: size,
			Subjects: size,
			Slots:    size,
			Rooms:    rooms,
		}
	})
}

// getSolvers keeps the requested backends that can run on this machine
func getSolvers(requested []string) []string {
	return lo.Filter(requested, func(name string, _ int) bool {
		executable, external := executables[name]
		if !external {
			return lo.Contains(mip.Backends, name)
		}
		if _, err := exec.LookPath(executable); err != nil {
			fmt.Printf("Skipping solver \"%v\": %v\n", name, err)
			return false
		}
		return true
	})
}

// generateCatalog builds a random catalog that always has a schedule: subject i can be taught by teacher i at slot i,
// so no slot needs more than one room. Extra qualifications and availability are added at random
func generateCatalog(test TestMetadata) catalog.RawCatalog {
	rng := rand.New(rand.NewPCG(test.Seed, uint64(test.Size)))
	name := func(prefix string, i int) string { return prefix + strconv.Itoa(i+1) }

	raw := catalog.RawCatalog{
		Teachers:       lo.Times(test.Teachers, func(i int) string { return name("T", i) }),
		Subjects:       lo.Times(test.Subjects, func(i int) string { return name("s", i) }),
		Slots:          lo.Times(test.Slots, func(i int) int { return i + 1 }),
		Rooms:          lo.Times(test.Rooms, func(i int) string { return name("r", i) }),
		Qualifications: make(map[string][]string),
		Availability:   make(map[string][]int),
		Costs: catalog.RawCosts{
			Teachers: make(map[string]int64),
			Subjects: make(map[string]int64),
			Slots:    make(map[string]int64),
			Rooms:    make(map[string]int64),
		},
	}

	for t, teacher := range raw.Teachers {
		qualifications := []string{raw.Subjects[t%len(raw.Subjects)]}
		availability := []int{raw.Slots[t%len(raw.Slots)]}
		for s, subject := range raw.Subjects {
			if s != t%len(raw.Subjects) && rng.Float64() < 0.3 {
				qualifications = append(qualifications, subject)
			}
		}
		for h, slot := range raw.Slots {
			if h != t%len(raw.Slots) && rng.Float64() < 0.3 {
				availability = append(availability, slot)
			}
		}
		raw.Qualifications[teacher] = qualifications
		raw.Availability[teacher] = availability
		raw.Costs.Teachers[teacher] = 1 + rng.Int64N(50)
	}
	for _, subject := range raw.Subjects {
		raw.Costs.Subjects[subject] = 1 + rng.Int64N(50)
	}
	for _, slot := range raw.Slots {
		raw.Costs.Slots[strconv.Itoa(slot)] = 1 + rng.Int64N(50)
	}
	for _, room := range raw.Rooms {
		raw.Costs.Rooms[room] = 1 + rng.Int64N(50)
	}

	return raw
}

func measure(scheduler *model.Scheduler, c *catalog.Catalog) (BenchmarkResult, error) {
	outcome, err := scheduler.Run(context.Background(), c)
	if err != nil {
		return BenchmarkResult{}, err
	}

	result := BenchmarkResult{
		Duration:  outcome.Duration,
		Variables: outcome.Stats.Variables,
		Status:    outcome.Status,
	}
	if outcome.Schedule != nil {
		result.Objective = outcome.Schedule.TotalCost
	}
	return result, nil
}

func toCsv(w io.Writer, results []BenchmarkResult) error {
	writer := csv.NewWriter(w)

	header := []string{"Solver", "Test", "Seed", "Teachers", "Subjects", "Slots", "Rooms", "Run", "Variables", "Duration(ms)", "Status", "Objective"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Test.Name,
			fmt.Sprintf("%d", result.Test.Seed),
			fmt.Sprintf("%d", result.Test.Teachers),
			fmt.Sprintf("%d", result.Test.Subjects),
			fmt.Sprintf("%d", result.Test.Slots),
			fmt.Sprintf("%d", result.Test.Rooms),
			fmt.Sprintf("%d", result.Run),
			fmt.Sprintf("%d", result.Variables),
			fmt.Sprintf("%d", result.Duration.Milliseconds()),
			result.Status.String(),
			strconv.FormatFloat(result.Objective, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

type Summary struct {
	Solver string
	Test   string
	Mean   float64
	StdDev float64
}

// summarize reports the mean and standard deviation of the solve time, in seconds, per solver and test
func summarize(results []BenchmarkResult) []Summary {
	type group struct{ solver, test string }
	groups := lo.GroupBy(results, func(result BenchmarkResult) group { return group{result.Solver, result.Test.Name} })
	order := lo.Uniq(lo.Map(results, func(result BenchmarkResult, _ int) group { return group{result.Solver, result.Test.Name} }))

	return lo.Map(order, func(key group, _ int) Summary {
		seconds := lo.Map(groups[key], func(result BenchmarkResult, _ int) float64 { return result.Duration.Seconds() })
		mean, stdDev := stat.MeanStdDev(seconds, nil)
		return Summary{Solver: key.solver, Test: key.test, Mean: mean, StdDev: stdDev}
	})
}
