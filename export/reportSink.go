package export

import (
	"context"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportSink stores the reconciliation checks of a run in reconciliation_reports.
// Rows of an earlier delivery of the same run are replaced.
type ReportSink struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewReportSink(db *gorm.DB, logger *logrus.Logger) *ReportSink {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &ReportSink{db: db, logger: logger}
}

func (s *ReportSink) Name() string { return "db_report" }

func (s *ReportSink) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.ReconciliationReport{})
}

func (s *ReportSink) Deliver(ctx context.Context, run *PublishedRun) error {
	if run.Summary == nil {
		return nil
	}
	rows := models.NewReconciliationReports(run.RunId, run.Summary.CorrelationId, run.Summary.Report)
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.RunId).Delete(&models.ReconciliationReport{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"field":  "ReportSink",
		"run_id": run.RunId,
		"rows":   len(rows),
	}).Info("reconciliation report stored")
	return nil
}
