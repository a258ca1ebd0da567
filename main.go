package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/mbrt/yasat/internal/dimacs"
	"github.com/mbrt/yasat/internal/sat"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagMaxConflict = flag.Int64(
	"max_conflicts",
	-1,
	"maximum number of conflicts allowed to solve the problem (-1 = no maximum)",
)

var flagTimeout = flag.Duration(
	"timeout",
	-1,
	"give up after this long (-1 = no timeout)",
)

var flagVerbosity = flag.Int(
	"v",
	0,
	"verbosity level (0 = silent, 1 = periodic search stats)",
)

var flagGzip = flag.Bool(
	"gzip",
	false,
	"treat the instance file as gzip-compressed (default: guessed from a .gz suffix)",
)

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	instanceFile := flag.Arg(0)
	return &config{
		instanceFile: instanceFile,
		gzip:         *flagGzip || strings.HasSuffix(instanceFile, ".gz"),
		memProfile:   *flagMemProfile,
		cpuProfile:   *flagCPUProfile,
		maxConflicts: *flagMaxConflict,
		timeout:      *flagTimeout,
		verbosity:    *flagVerbosity,
	}, nil
}

type config struct {
	instanceFile string
	gzip         bool
	memProfile   bool
	cpuProfile   bool
	maxConflicts int64
	timeout      time.Duration
	verbosity    int
}

func solverOptions(cfg *config) sat.Options {
	options := sat.DefaultOptions
	if cfg.maxConflicts >= 0 {
		options.MaxConflicts = cfg.maxConflicts
	}
	if cfg.timeout >= 0 {
		options.Timeout = cfg.timeout
	}
	options.Verbosity = cfg.verbosity
	return options
}

// Exit codes follow the SAT competition convention: 10 for a satisfiable
// instance, 20 for unsatisfiable, everything else for anything short of a
// definite answer.
const (
	exitSAT     = 10
	exitUNSAT   = 20
	exitUnknown = 0
)

func run(cfg *config) (int, error) {
	instance, err := dimacs.ParseDIMACS(cfg.instanceFile, cfg.gzip)
	if err != nil {
		return exitUnknown, fmt.Errorf("could not parse instance: %s", err)
	}

	s := sat.NewSolver(solverOptions(cfg))
	if err := dimacs.Instantiate(s, instance); err != nil {
		return exitUnknown, fmt.Errorf("could not build instance: %s", err)
	}

	fmt.Printf("c file:       %s\n", filepath.Base(cfg.instanceFile))
	fmt.Printf("c variables:  %d\n", instance.Variables)
	fmt.Printf("c clauses:    %d\n", len(instance.Clauses))

	t := time.Now()
	status := s.Solve()
	elapsed := time.Since(t)

	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
	fmt.Printf("c conflicts:  %d (%.2f /sec)\n", s.TotalConflicts, float64(s.TotalConflicts)/elapsed.Seconds())
	fmt.Printf("c restarts:   %d\n", s.TotalRestarts)

	switch status {
	case sat.True:
		fmt.Println("s SATISFIABLE")
		printModel(s.Models[len(s.Models)-1])
		return exitSAT, nil
	case sat.False:
		fmt.Println("s UNSATISFIABLE")
		return exitUNSAT, nil
	default:
		fmt.Println("s UNKNOWN")
		return exitUnknown, nil
	}
}

// printModel writes the model in SAT competition "v" line format: signed
// DIMACS literals, at most 10 per line, terminated by a trailing 0.
func printModel(model []bool) {
	const perLine = 10
	line := make([]string, 0, perLine)
	flush := func() {
		if len(line) == 0 {
			return
		}
		fmt.Println("v " + strings.Join(line, " "))
		line = line[:0]
	}
	for i, val := range model {
		lit := i + 1
		if !val {
			lit = -lit
		}
		line = append(line, fmt.Sprintf("%d", lit))
		if len(line) == perLine {
			flush()
		}
	}
	flush()
	fmt.Println("v 0")
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
	}

	code, err := run(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		pprof.StopCPUProfile()
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}

	os.Exit(code)
}
