package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"bitbucket.org/mmdatafocus/books_synth/workflow"
	"github.com/sirupsen/logrus"
)

var ErrAlreadyPublished = errors.New("run output already published")

const (
	stagingDirName  = ".staging"
	runsDirName     = "runs"
	summaryJSONName = "summary.json"
	summaryXLSXName = "summary.xlsx"
)

// PublishedRun describes output that is visible under the output directory.
// Files are relative to Dir, with forward slashes.
type PublishedRun struct {
	RunId   string
	Dir     string
	Files   []string
	Summary *workflow.RunSummary
	// Locations is filled by sinks that copy the files elsewhere.
	Locations []string
}

// Sink receives a run after it is published locally. Sinks must tolerate
// being called again for the same run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, run *PublishedRun) error
}

// LocalPublisher writes every table to a staging directory and moves the
// files into place only once all of them are written:
//
//	<dir>/<domain>/<table>/<run_id>.csv
//	<dir>/runs/<run_id>/summary.json
//	<dir>/runs/<run_id>/summary.xlsx
type LocalPublisher struct {
	dir    string
	sinks  []Sink
	logger *logrus.Logger
}

func NewLocalPublisher(dir string, logger *logrus.Logger, sinks ...Sink) *LocalPublisher {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &LocalPublisher{dir: dir, sinks: sinks, logger: logger}
}

// TablePath is the published location of one table of a run, relative to the output dir.
func TablePath(table models.TableKey, runId string) string {
	return filepath.ToSlash(filepath.Join(string(table.Domain), table.Table, runId+".csv"))
}

func SummaryPath(runId string, name string) string {
	return filepath.ToSlash(filepath.Join(runsDirName, runId, name))
}

func (p *LocalPublisher) Publish(ctx context.Context, ds *workflow.Dataset, summary *workflow.RunSummary) error {
	staging := filepath.Join(p.dir, stagingDirName, ds.RunId)
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	files, err := p.stage(ctx, staging, ds, summary)
	if err != nil {
		config.LogError(p.logger, "localPublisher.go", "Publish", "stage", ds.RunId, err)
		return err
	}
	if err := p.commit(staging, files); err != nil {
		config.LogError(p.logger, "localPublisher.go", "Publish", "commit", ds.RunId, err)
		return err
	}
	p.logger.WithFields(logrus.Fields{
		"field":  "Publish",
		"run_id": ds.RunId,
		"dir":    p.dir,
		"files":  len(files),
	}).Info("run published")

	run := &PublishedRun{RunId: ds.RunId, Dir: p.dir, Files: files, Summary: summary}
	for _, sink := range p.sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		// local output stays published; a failed sink is reported, not undone
		if err := sink.Deliver(ctx, run); err != nil {
			config.LogError(p.logger, "localPublisher.go", "Publish", "deliver to "+sink.Name(), ds.RunId, err)
		}
	}
	return nil
}

func (p *LocalPublisher) stage(ctx context.Context, staging string, ds *workflow.Dataset, summary *workflow.RunSummary) ([]string, error) {
	files := make([]string, 0, len(models.AllTables)+2)
	for _, table := range models.AllTables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := TablePath(table, ds.RunId)
		var buf bytes.Buffer
		if err := WriteTable(&buf, table, ds.Records(table)); err != nil {
			return nil, fmt.Errorf("write %s: %w", table, err)
		}
		if err := utils.WriteFileAtomic(filepath.Join(staging, filepath.FromSlash(rel)), buf.Bytes()); err != nil {
			return nil, err
		}
		files = append(files, rel)
	}

	jsonRel := SummaryPath(ds.RunId, summaryJSONName)
	if err := utils.WriteJSONFile(filepath.Join(staging, filepath.FromSlash(jsonRel)), summary); err != nil {
		return nil, err
	}
	xlsxRel := SummaryPath(ds.RunId, summaryXLSXName)
	if err := WriteSummaryWorkbook(filepath.Join(staging, filepath.FromSlash(xlsxRel)), summary); err != nil {
		return nil, fmt.Errorf("write summary workbook: %w", err)
	}
	return append(files, jsonRel, xlsxRel), nil
}

// commit renames staged files into place. Any failure moves the files that
// were already renamed back, so readers see all of a run or none of it.
func (p *LocalPublisher) commit(staging string, files []string) error {
	for _, rel := range files {
		if _, err := os.Stat(filepath.Join(p.dir, filepath.FromSlash(rel))); err == nil {
			return fmt.Errorf("%s: %w", rel, ErrAlreadyPublished)
		}
	}
	moved := make([]string, 0, len(files))
	for _, rel := range files {
		from := filepath.Join(staging, filepath.FromSlash(rel))
		to := filepath.Join(p.dir, filepath.FromSlash(rel))
		err := os.MkdirAll(filepath.Dir(to), 0o755)
		if err == nil {
			err = os.Rename(from, to)
		}
		if err != nil {
			for _, done := range moved {
				if rbErr := os.Rename(filepath.Join(p.dir, filepath.FromSlash(done)), filepath.Join(staging, filepath.FromSlash(done))); rbErr != nil {
					config.LogError(p.logger, "localPublisher.go", "commit", "roll back "+done, nil, rbErr)
				}
			}
			return err
		}
		moved = append(moved, rel)
	}
	return nil
}
