package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CheckRevenueVariance         = "revenue_variance"
	CheckPayrollVariance         = "payroll_variance"
	CheckReferentialCompleteness = "referential_completeness"
	CheckJournalBalance          = "journal_balance"
	CheckChannelConsolidation    = "channel_consolidation"
)

// CheckResult is the outcome of one reconciliation check.
type CheckResult struct {
	Check         string          `json:"check"`
	Status        CheckStatus     `json:"status"`
	Value         decimal.Decimal `json:"value"`
	Tolerance     decimal.Decimal `json:"tolerance"`
	FailThreshold decimal.Decimal `json:"fail_threshold"`
	Expected      decimal.Decimal `json:"expected"`
	Actual        decimal.Decimal `json:"actual"`
	Details       string          `json:"details"`
	Examples      []string        `json:"examples,omitempty"`
}

// ValidationReport is returned by the consistency validator; it never throws.
type ValidationReport struct {
	Status CheckStatus   `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Mismatches lists every check that did not pass.
func (r ValidationReport) Mismatches() []ReconciliationMismatch {
	out := make([]ReconciliationMismatch, 0)
	for _, c := range r.Checks {
		if c.Status == CheckStatusPass {
			continue
		}
		out = append(out, ReconciliationMismatch{
			Check:     c.Check,
			Status:    c.Status,
			Value:     c.Value,
			Tolerance: c.Tolerance,
		})
	}
	return out
}

func (r ValidationReport) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Check == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// ReconciliationReport is the persisted form of one check result.
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	RunId         string    `gorm:"size:64;index;not null" json:"run_id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"` // e.g. revenue_variance
	Status        string    `gorm:"size:8;index;not null" json:"status"`
	Value         string    `gorm:"size:40" json:"value"`
	Tolerance     string    `gorm:"size:40" json:"tolerance"`
	Details       string    `gorm:"type:text" json:"details"` // human-readable mismatch detail
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func NewReconciliationReports(runId string, correlationId string, report ValidationReport) []ReconciliationReport {
	rows := make([]ReconciliationReport, 0, len(report.Checks))
	for _, c := range report.Checks {
		rows = append(rows, ReconciliationReport{
			RunId:         runId,
			CheckType:     c.Check,
			Status:        string(c.Status),
			Value:         c.Value.String(),
			Tolerance:     c.Tolerance.String(),
			Details:       c.Details,
			CorrelationId: correlationId,
		})
	}
	return rows
}
