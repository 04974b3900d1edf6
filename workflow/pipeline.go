package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/generator"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// StageGroups lists the generation stages in dependency order. Tables inside
// one group only read tables of earlier groups and run concurrently.
var StageGroups = [][]models.TableKey{
	{models.TableStores, models.TableProducts, models.TableCustomers},
	{models.TableEmployees, models.TableOrders},
	{models.TablePayrollEntries, models.TablePosTransaction, models.TableWebSessions},
}

var runNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("books_synth/run"))

// Publisher makes a finished dataset visible. It must be all-or-nothing.
type Publisher interface {
	Publish(ctx context.Context, ds *Dataset, summary *RunSummary) error
}

type StageFailure struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

type WarningSummary struct {
	Count    int            `json:"count"`
	ByReason map[string]int `json:"by_reason"`
	Examples []string       `json:"examples"`
}

// RunSummary is the machine-readable outcome of a run. It carries counts and
// a few examples per category, never stack traces.
type RunSummary struct {
	RunId             string                  `json:"run_id"`
	CorrelationId     string                  `json:"correlation_id"`
	Status            models.CheckStatus      `json:"status"`
	RandomSeed        int64                   `json:"random_seed"`
	ConfigFingerprint string                  `json:"config_fingerprint"`
	ReportingCurrency string                  `json:"reporting_currency"`
	RecordCounts      map[string]int          `json:"record_counts"`
	StageFailures     []StageFailure          `json:"stage_failures"`
	Warnings          WarningSummary          `json:"warnings"`
	Report            models.ValidationReport `json:"report"`
	Published         bool                    `json:"published"`
}

// Failed reports whether the run should end with a non-zero exit code.
func (s *RunSummary) Failed(strict bool) bool {
	if len(s.StageFailures) > 0 || s.Status == models.CheckStatusFail {
		return true
	}
	return strict && s.Status == models.CheckStatusWarn
}

type RunResult struct {
	Dataset *Dataset
	Summary *RunSummary
}

type Pipeline struct {
	cfg       *config.GenerationConfig
	store     sequence.CounterStore
	publisher Publisher
	logger    *logrus.Logger
	tracer    trace.Tracer
}

func NewPipeline(cfg *config.GenerationConfig, store sequence.CounterStore, publisher Publisher, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = config.GetLogger()
	}
	if store == nil {
		store = sequence.NewMemoryCounterStore()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("books_synth/workflow"),
	}
}

// RunId derives the run id from the config fingerprint and the counter state
// the run starts from, so reruns of the same inputs share an id.
func RunId(cfg *config.GenerationConfig, seeds sequence.Counters) string {
	var b strings.Builder
	b.WriteString(cfg.Fingerprint())
	for _, table := range seeds.Tables() {
		b.WriteString("|" + table.String() + "=" + strconv.FormatInt(seeds[table], 10))
	}
	return uuid.NewSHA1(runNamespace, []byte(b.String())).String()
}

// Run generates, consolidates, posts and validates one dataset, then hands it
// to the publisher and persists the counters. Only configuration errors and
// cancellation abort the run; a failed table stage is reported in the summary
// and leaves the output unpublished.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	if locker, ok := p.store.(sequence.Locker); ok {
		if err := locker.Lock(ctx); err != nil {
			config.LogError(p.logger, "pipeline.go", "Run", "lock counter store", nil, err)
			return nil, err
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				config.LogError(p.logger, "pipeline.go", "Run", "unlock counter store", nil, err)
			}
		}()
	}

	counters, err := p.store.Load(ctx)
	if err != nil {
		config.LogError(p.logger, "pipeline.go", "Run", "load counters", nil, err)
		return nil, err
	}
	prior, err := sequence.ScanPriorOutput(p.cfg.Output.Dir, models.AllTables)
	if err != nil {
		config.LogError(p.logger, "pipeline.go", "Run", "scan prior output", p.cfg.Output.Dir, err)
		return nil, err
	}
	seeds := counters.Merge(prior)

	ids := p.cfg.Identifiers
	alloc := sequence.NewAllocator(p.cfg.IdentifierYear(), sequence.DefaultSpecs(ids.Scope, ids.Base, ids.Width))
	alloc.SeedAll(seeds)

	runId := RunId(p.cfg, seeds)
	ctx = utils.SetRunIdInContext(ctx, runId)
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = runId
	}
	logger := p.logger.WithFields(logrus.Fields{"run_id": runId, "correlation_id": correlationId})
	logger.Info("run started")

	exchanges, err := p.cfg.CurrencyExchanges()
	if err != nil {
		return nil, err
	}
	rates := models.NewExchangeRateTable(exchanges)
	gen := generator.New(p.cfg, alloc, rates, p.logger)

	tables := &generator.Tables{}
	failures := &stageFailures{}
	for i, group := range StageGroups {
		if err := p.runGroup(ctx, i, group, gen, tables, failures); err != nil {
			return nil, err
		}
		if err := p.keepLock(ctx); err != nil {
			return nil, err
		}
	}

	var consolidated *ConsolidationResult
	err = p.stage(ctx, "consolidate", func(ctx context.Context) error {
		var err error
		consolidated, err = ConsolidateChannels(p.logger, alloc, p.cfg.VatTable(), tables.Orders, tables.OrderLines, tables.PosTransactions, tables.Stores)
		return err
	})
	if err != nil {
		return nil, err
	}

	poster := NewPoster(alloc, rates, p.cfg.ReportingCurrency, p.logger)
	journals := make([]models.Journal, 0)
	err = p.stage(ctx, "post", func(ctx context.Context) error {
		orderJournals, err := poster.PostOrders(ctx, consolidated.Orders)
		if err != nil {
			return err
		}
		payrollJournals, err := poster.PostPayroll(ctx, tables.PayrollEntries)
		if err != nil {
			return err
		}
		journals = append(append(journals, orderJournals...), payrollJournals...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ds := newDataset(runId, tables, consolidated, journals)
	var report models.ValidationReport
	err = p.stage(ctx, "validate", func(ctx context.Context) error {
		report = NewReconciler(p.cfg.Tolerance, rates, p.cfg.ReportingCurrency, p.logger).RunReconciliationChecks(ds)
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := p.newRunSummary(ds, report, failures.list(), correlationId)
	result := &RunResult{Dataset: ds, Summary: summary}
	if len(summary.StageFailures) > 0 {
		logger.WithField("stage_failures", len(summary.StageFailures)).Warn("run has failed stages; output not published")
		return result, nil
	}

	if err := p.keepLock(ctx); err != nil {
		return result, err
	}
	if p.publisher != nil {
		err = p.stage(ctx, "publish", func(ctx context.Context) error {
			summary.Published = true
			if err := p.publisher.Publish(ctx, ds, summary); err != nil {
				summary.Published = false
				return err
			}
			return nil
		})
		if err != nil {
			config.LogError(p.logger, "pipeline.go", "Run", "publish", runId, err)
			return result, err
		}
	}

	if err := p.store.Save(ctx, alloc.Snapshot()); err != nil {
		config.LogError(p.logger, "pipeline.go", "Run", "save counters", runId, err)
		return result, err
	}
	logger.WithFields(logrus.Fields{
		"status":    summary.Status,
		"published": summary.Published,
	}).Info("run completed")
	return result, nil
}

// keepLock extends the counter lock of stores whose lock expires, so a long
// run never publishes without its cross-process fence.
func (p *Pipeline) keepLock(ctx context.Context) error {
	refresher, ok := p.store.(sequence.Refresher)
	if !ok {
		return nil
	}
	if err := refresher.Refresh(ctx); err != nil {
		config.LogError(p.logger, "pipeline.go", "keepLock", "refresh counter lock", nil, err)
		return err
	}
	return nil
}

func (p *Pipeline) serial(ctx context.Context) bool {
	if v, ok := utils.GetSerialStagesFromContext(ctx); ok {
		return v
	}
	return config.SerialStages()
}

func (p *Pipeline) runGroup(ctx context.Context, idx int, group []models.TableKey, gen *generator.Generator, tables *generator.Tables, failures *stageFailures) error {
	return p.stage(ctx, fmt.Sprintf("generate_group_%d", idx+1), func(ctx context.Context) error {
		eg, egCtx := errgroup.WithContext(ctx)
		if p.serial(ctx) {
			eg.SetLimit(1)
		}
		for _, table := range group {
			eg.Go(func() error {
				err := gen.Generate(egCtx, table, p.cfg.Count(table), tables)
				var rie *models.ReferentialIntegrityError
				if errors.As(err, &rie) {
					config.LogError(p.logger, "pipeline.go", "runGroup", "generate "+table.String(), nil, err)
					failures.add(table, err)
					return nil
				}
				return err
			})
		}
		return eg.Wait()
	})
}

// stage runs fn in its own span after checking for cancellation.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runId, _ := utils.GetRunIdFromContext(ctx)
	ctx, span := p.tracer.Start(ctx, "synth."+name, trace.WithAttributes(
		attribute.String("run_id", runId),
		attribute.String("stage", name),
	))
	defer span.End()
	ctx = utils.SetStageInContext(ctx, name)

	started := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.logger.WithFields(logrus.Fields{
		"field":       name,
		"run_id":      runId,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("stage finished")
	return err
}

func (p *Pipeline) newRunSummary(ds *Dataset, report models.ValidationReport, failures []StageFailure, correlationId string) *RunSummary {
	warnings := WarningSummary{
		Count:    len(ds.Warnings),
		ByReason: make(map[string]int),
		Examples: make([]string, 0),
	}
	for _, w := range ds.Warnings {
		warnings.ByReason[w.Reason]++
		warnings.Examples = appendExample(warnings.Examples, w.Error())
	}
	return &RunSummary{
		RunId:             ds.RunId,
		CorrelationId:     correlationId,
		Status:            report.Status,
		RandomSeed:        p.cfg.RandomSeed,
		ConfigFingerprint: p.cfg.Fingerprint(),
		ReportingCurrency: p.cfg.ReportingCurrency,
		RecordCounts:      ds.Counts(),
		StageFailures:     failures,
		Warnings:          warnings,
		Report:            report,
	}
}

type stageFailures struct {
	mu    sync.Mutex
	items []StageFailure
}

func (f *stageFailures) add(table models.TableKey, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, StageFailure{Table: table.String(), Error: err.Error()})
}

// list is sorted by table so the summary does not depend on scheduling.
func (f *stageFailures) list() []StageFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]StageFailure, len(f.items))
	copy(out, f.items)
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}
