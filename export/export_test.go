package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestConfig(t *testing.T, dir string) *config.GenerationConfig {
	t.Helper()
	cfg := config.DefaultGenerationConfig()
	cfg.RecordCounts[models.TableStores.String()] = 4
	cfg.RecordCounts[models.TableProducts.String()] = 20
	cfg.RecordCounts[models.TableCustomers.String()] = 30
	cfg.RecordCounts[models.TableEmployees.String()] = 8
	cfg.RecordCounts[models.TableOrders.String()] = 40
	cfg.RecordCounts[models.TablePosTransaction.String()] = 60
	cfg.RecordCounts[models.TableWebSessions.String()] = 80
	cfg.Output.Dir = dir
	cfg.Output.CounterStore = config.CounterStoreMemory
	require.NoError(t, cfg.Validate())
	return cfg
}

func publishRun(t *testing.T, cfg *config.GenerationConfig, store sequence.CounterStore, sinks ...Sink) *workflow.RunResult {
	t.Helper()
	pub := NewLocalPublisher(cfg.Output.Dir, config.GetLogger(), sinks...)
	result, err := workflow.NewPipeline(cfg, store, pub, config.GetLogger()).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Summary.Published)
	return result
}

type recordingSink struct {
	runs []*PublishedRun
	err  error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, run *PublishedRun) error {
	s.runs = append(s.runs, run)
	return s.err
}

func TestWriteTable(t *testing.T) {
	rows := []models.Record{
		models.Account{AccountCode: "4000", Name: "Sales Revenue, Online", Class: models.AccountClassRevenue},
		models.Account{AccountCode: "1000", Name: "Cash", Class: models.AccountClassAsset},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, models.TableAccounts, rows))

	want := "account_code,name,class\n" +
		"4000,\"Sales Revenue, Online\",revenue\n" +
		"1000,Cash,asset\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable_EmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, models.TablePayrollEntries, nil))
	assert.Equal(t, "payroll_entry_id,employee_id,period,gross_amount,currency,country_code\n", buf.String())
}

func TestColumns_EveryTableHasIdColumnFirst(t *testing.T) {
	for _, table := range models.AllTables {
		cols := Columns(table)
		require.NotEmpty(t, cols, table.String())
		assert.Equal(t, models.IdColumn(table), cols[0], table.String())
	}
}

func TestLocalPublisher_WritesEveryTableAndSummary(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	result := publishRun(t, newTestConfig(t, dir), nil, sink)
	runId := result.Summary.RunId

	for _, table := range models.AllTables {
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(TablePath(table, runId))))
		require.NoError(t, err, table.String())
		lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
		assert.Equal(t, strings.Join(Columns(table), ","), lines[0])
		assert.Equal(t, result.Summary.RecordCounts[table.String()], len(lines)-1, table.String())
	}

	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(SummaryPath(runId, summaryJSONName))))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, stagingDirName, runId))
	assert.True(t, os.IsNotExist(err))

	require.Len(t, sink.runs, 1)
	assert.Len(t, sink.runs[0].Files, len(models.AllTables)+2)
	assert.Equal(t, runId, sink.runs[0].RunId)
}

func TestLocalPublisher_SameSeedByteIdenticalOutput(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	a := publishRun(t, newTestConfig(t, dirA), nil)
	b := publishRun(t, newTestConfig(t, dirB), nil)
	require.Equal(t, a.Summary.RunId, b.Summary.RunId)

	for _, table := range models.AllTables {
		rel := filepath.FromSlash(TablePath(table, a.Summary.RunId))
		rawA, err := os.ReadFile(filepath.Join(dirA, rel))
		require.NoError(t, err)
		rawB, err := os.ReadFile(filepath.Join(dirB, rel))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(rawA, rawB), table.String())
	}
}

func TestLocalPublisher_NextRunResumesFromPublishedFiles(t *testing.T) {
	dir := t.TempDir()
	first := publishRun(t, newTestConfig(t, dir), sequence.NewMemoryCounterStore())
	// a fresh counter store: only the files on disk carry the state
	second := publishRun(t, newTestConfig(t, dir), sequence.NewMemoryCounterStore())

	assert.NotEqual(t, first.Summary.RunId, second.Summary.RunId)
	seen := make(map[string]bool)
	for _, o := range first.Dataset.Orders {
		seen[o.OrderId] = true
	}
	for _, o := range second.Dataset.Orders {
		assert.False(t, seen[o.OrderId], o.OrderId)
	}
	prior, err := sequence.ScanPriorOutput(dir, []models.TableKey{models.TableJournalHeaders})
	require.NoError(t, err)
	assert.Equal(t, int64(len(first.Dataset.Journals)+len(second.Dataset.Journals)), prior[models.TableJournalHeaders])
}

func TestLocalPublisher_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	result := publishRun(t, newTestConfig(t, dir), nil)

	err := NewLocalPublisher(dir, config.GetLogger()).Publish(context.Background(), result.Dataset, result.Summary)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyPublished)
}

func TestLocalPublisher_SinkErrorDoesNotUnpublish(t *testing.T) {
	dir := t.TempDir()
	failing := &recordingSink{err: errors.New("topic not found")}
	after := &recordingSink{}
	result := publishRun(t, newTestConfig(t, dir), nil, failing, after)

	assert.Len(t, failing.runs, 1)
	assert.Len(t, after.runs, 1)
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(TablePath(models.TableOrders, result.Summary.RunId))))
	assert.NoError(t, err)
}

func TestWriteSummaryWorkbook(t *testing.T) {
	summary := &workflow.RunSummary{
		RunId:  "run-1",
		Status: models.CheckStatusWarn,
		RecordCounts: map[string]int{
			"operations.orders": 10,
			"hr.employees":      3,
		},
		Report: models.ValidationReport{
			Status: models.CheckStatusWarn,
			Checks: []models.CheckResult{{
				Check:  models.CheckRevenueVariance,
				Status: models.CheckStatusWarn,
				Value:  decimal.RequireFromString("0.02"),
			}},
		},
	}
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteSummaryWorkbook(path, summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	check, err := f.GetCellValue(sheetChecks, "A2")
	require.NoError(t, err)
	assert.Equal(t, models.CheckRevenueVariance, check)
	status, _ := f.GetCellValue(sheetChecks, "B2")
	assert.Equal(t, "WARN", status)
	overall, _ := f.GetCellValue(sheetChecks, "B4")
	assert.Equal(t, "WARN", overall)
	first, _ := f.GetCellValue(sheetCounts, "A2")
	assert.Equal(t, "hr.employees", first)
	rows, _ := f.GetCellValue(sheetCounts, "B3")
	assert.Equal(t, "10", rows)
}

func TestPubSubSink_PrefersRemoteLocations(t *testing.T) {
	var got config.RunPublishedMessage
	sink := NewPubSubSink(config.GetLogger())
	sink.publish = func(_ context.Context, msg config.RunPublishedMessage) (string, error) {
		got = msg
		return "msg-1", nil
	}
	run := &PublishedRun{
		RunId:     "run-1",
		Dir:       "out",
		Files:     []string{"operations/orders/run-1.csv"},
		Locations: []string{"gs://bucket/operations/orders/run-1.csv"},
		Summary:   &workflow.RunSummary{Status: models.CheckStatusPass, CorrelationId: "corr-1", RecordCounts: map[string]int{"operations.orders": 4}},
	}
	require.NoError(t, sink.Deliver(context.Background(), run))

	assert.Equal(t, "run-1", got.RunId)
	assert.Equal(t, "PASS", got.Status)
	assert.Equal(t, "corr-1", got.CorrelationId)
	assert.Equal(t, run.Locations, got.Files)
	assert.Equal(t, 4, got.RecordCounts["operations.orders"])

	msg := RunMessage(&PublishedRun{RunId: "run-2", Files: []string{"a.csv"}}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"a.csv"}, msg.Files)
	assert.Empty(t, msg.Status)
}

func TestGCSSink_ObjectNames(t *testing.T) {
	assert.Equal(t, "operations/orders/r.csv", NewGCSSink("", nil).ObjectName("operations/orders/r.csv"))
	assert.Equal(t, "synth/eu/operations/orders/r.csv", NewGCSSink("/synth/eu/", nil).ObjectName("operations/orders/r.csv"))
	assert.Equal(t, "text/csv", contentTypeOf("a/b.csv"))
	assert.Equal(t, "application/json", contentTypeOf("summary.json"))
}
