package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"gthreads/internal/job"
	"gthreads/internal/sched"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gthreads: ")

	configPath := flag.String("config", defaultConfig, "YAML or TOML config file")
	csvPath := flag.String("csv", "", "write scheduler events as CSV to this file")
	trace := flag.Bool("trace", false, "log every scheduling decision to stderr")
	timeout := flag.Duration("timeout", 0, "stop the scheduler after this long (0 = run until all tasks end)")
	cooperative := flag.Bool("cooperative", false, "disable timer preemption")
	flag.Usage = usage
	flag.Parse()

	example := 1
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			usage()
			os.Exit(1)
		}
		example = n
	}
	ex, ok := job.Examples[example]
	if !ok {
		usage()
		os.Exit(1)
	}

	// Read the configuration
	explicit := false
	flag.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
	cfg, err := loadConfig(*configPath, explicit)
	if err != nil {
		log.Fatal(err)
	}
	if *cooperative {
		cfg.Preemptive = false
	}
	fmt.Printf("Loaded config: %+v\n", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	if err := run(ctx, cfg, ex, *csvPath, *trace); err != nil {
		log.Fatal(err)
	}
}

// defaultConfig is read when -config is not given; a missing file there
// means defaults.
const defaultConfig = "config.yml"

func loadConfig(path string, explicit bool) (sched.Config, error) {
	cfg, err := sched.LoadFile(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return sched.DefaultConfig(), nil
	}
	return cfg, err
}

func run(ctx context.Context, cfg sched.Config, ex job.Example, csvPath string, trace bool) error {
	// the log is opened first so it outlives the scheduler: Close reports
	// the tasks it kills
	var csvLog *sched.CSVLog
	if csvPath != "" {
		l, err := sched.OpenCSVLog(csvPath)
		if err != nil {
			return err
		}
		defer l.Close()
		csvLog = l
	}

	s, err := sched.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if trace {
		s.Observe(sched.NewPrinter(log.New(os.Stderr, "", 0)))
	}
	if csvLog != nil {
		s.Observe(csvLog)
	}

	fmt.Printf("=== Running %s ===\n\n", ex.Title)
	if err := ex.Setup(s, os.Stdout); err != nil {
		return err
	}
	fmt.Println(job.RenderTaskList(s.List()))

	start := time.Now()
	err = s.StartScheduler(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fmt.Printf("\nStopped after %v with tasks still alive\n", time.Since(start).Round(time.Millisecond))
		fmt.Println(job.RenderTaskList(s.List()))
		return nil
	case err != nil:
		return err
	}

	fmt.Println("\nThreads finished")
	return nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] [example]\n\nexamples:\n", os.Args[0])
	for _, n := range job.ExampleNumbers() {
		fmt.Fprintf(out, "  %d - %s\n", n, job.Examples[n].Title)
	}
	fmt.Fprintln(out, "\nflags:")
	flag.PrintDefaults()
}
