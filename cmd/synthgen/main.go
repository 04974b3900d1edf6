package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/export"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"bitbucket.org/mmdatafocus/books_synth/workflow"
	"github.com/sirupsen/logrus"
)

const (
	exitOK            = 0
	exitRunFailed     = 1
	exitConfiguration = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("synthgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to the generation config (YAML). Defaults are used when empty.")
	outDir := fs.String("out", "", "Optional: output directory, overrides output.dir.")
	seed := fs.Int64("seed", 0, "Optional: random seed, overrides random_seed when non-zero.")
	strict := fs.Bool("strict", false, "Treat WARN reconciliation results as failures (also SYNTH_STRICT_RECONCILIATION).")
	serial := fs.Bool("serial", false, "Generate the tables of a stage group one by one (also SYNTH_SERIAL_STAGES).")
	correlationId := fs.String("correlation-id", "", "Optional: correlation id echoed in logs and the run summary.")
	if err := fs.Parse(args); err != nil {
		return exitConfiguration
	}

	logger := config.GetLogger()
	cfg, err := config.LoadGenerationConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitConfiguration
	}
	if strings.TrimSpace(*outDir) != "" {
		cfg.Output.Dir = strings.TrimSpace(*outDir)
	}
	if *seed != 0 {
		cfg.RandomSeed = *seed
	}

	store, closeStore, err := newCounterStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "counter store: %v\n", err)
		return exitConfiguration
	}
	defer closeStore()

	sinks, err := newSinks(ctx, logger)
	if err != nil {
		fmt.Fprintf(stderr, "publish targets: %v\n", err)
		return exitConfiguration
	}

	if *serial {
		ctx = utils.SetSerialStagesInContext(ctx, true)
	}
	if strings.TrimSpace(*correlationId) != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, strings.TrimSpace(*correlationId))
	}

	publisher := export.NewLocalPublisher(cfg.Output.Dir, logger, sinks...)
	result, err := workflow.NewPipeline(cfg, store, publisher, logger).Run(ctx)
	if result != nil {
		if jsonErr := writeSummary(stdout, result.Summary); jsonErr != nil {
			fmt.Fprintf(stderr, "write summary: %v\n", jsonErr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "run failed: %v\n", err)
		if models.IsConfigurationError(err) {
			return exitConfiguration
		}
		return exitRunFailed
	}
	if result.Summary.Failed(*strict || config.StrictReconciliation()) {
		return exitRunFailed
	}
	return exitOK
}

func writeSummary(w io.Writer, summary *workflow.RunSummary) error {
	out, err := utils.MarshalToJSON(summary)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// newCounterStore opens the backend named by output.counter_store. The
// returned func releases its connections.
func newCounterStore(ctx context.Context, cfg *config.GenerationConfig) (sequence.CounterStore, func(), error) {
	noop := func() {}
	switch cfg.Output.CounterStore {
	case config.CounterStoreMemory:
		return sequence.NewMemoryCounterStore(), noop, nil
	case config.CounterStoreFile, "":
		path := cfg.Output.CounterFile
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(cfg.Output.Dir, "id_counters.json")
		}
		return sequence.NewFileCounterStore(path), noop, nil
	case config.CounterStoreRedis:
		rdb, locker, err := config.ConnectRedis(ctx)
		if err != nil {
			return nil, noop, err
		}
		return sequence.NewRedisCounterStore(rdb, locker, cfg.Output.CounterNamespace, config.RedisCounterLockTTL()), func() { rdb.Close() }, nil
	case config.CounterStoreDB:
		db, err := config.ConnectDatabase(ctx)
		if err != nil {
			return nil, noop, err
		}
		store := sequence.NewDBCounterStore(db, cfg.Output.CounterNamespace)
		if err := store.Migrate(ctx); err != nil {
			return nil, noop, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return store, closeDB, nil
	}
	return nil, noop, errors.New("unknown counter store " + cfg.Output.CounterStore)
}

// newSinks builds the optional publish targets listed in SYNTH_PUBLISH_TARGETS.
// Order matters: uploads run first so the notification can carry their URLs.
func newSinks(ctx context.Context, logger *logrus.Logger) ([]export.Sink, error) {
	sinks := make([]export.Sink, 0, 3)
	if config.PublishTargetEnabled("GCS") {
		sinks = append(sinks, export.NewGCSSink(os.Getenv("GCS_PREFIX"), logger))
	}
	if config.PublishTargetEnabled("PUBSUB") {
		sinks = append(sinks, export.NewPubSubSink(logger))
	}
	if config.PublishTargetEnabled("DB_REPORT") {
		db := config.GetDB()
		if db == nil {
			var err error
			if db, err = config.ConnectDatabase(ctx); err != nil {
				return nil, err
			}
		}
		reports := export.NewReportSink(db, logger)
		if err := reports.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, reports)
	}
	return sinks, nil
}
