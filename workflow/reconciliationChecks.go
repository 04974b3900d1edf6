package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxExamples bounds the representative ids listed per check.
const maxExamples = 5

// variancePlaces is the precision variance ratios are reported with.
const variancePlaces = 6

// Reconciler runs the consistency checks over a finished dataset. It never
// fails: every problem is reported as a WARN or FAIL result.
type Reconciler struct {
	tolerance         config.Tolerance
	rates             *models.ExchangeRateTable
	reportingCurrency string
	logger            *logrus.Logger
}

func NewReconciler(tolerance config.Tolerance, rates *models.ExchangeRateTable, reportingCurrency string, logger *logrus.Logger) *Reconciler {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Reconciler{tolerance: tolerance, rates: rates, reportingCurrency: reportingCurrency, logger: logger}
}

// RunReconciliationChecks evaluates every check and the overall status.
func (r *Reconciler) RunReconciliationChecks(ds *Dataset) models.ValidationReport {
	report := models.ValidationReport{Status: models.CheckStatusPass}
	checks := []models.CheckResult{
		r.revenueVariance(ds),
		r.payrollVariance(ds),
		r.referentialCompleteness(ds),
		r.journalBalance(ds),
		r.channelConsolidation(ds),
	}
	for _, c := range checks {
		report.Status = report.Status.Worst(c.Status)
		fields := logrus.Fields{
			"field":  "ReconciliationChecks",
			"run_id": ds.RunId,
			"check":  c.Check,
			"status": c.Status,
			"value":  c.Value.String(),
		}
		if c.Status == models.CheckStatusPass {
			r.logger.WithFields(fields).Info("check passed")
		} else {
			r.logger.WithFields(fields).Warn(c.Details)
		}
	}
	report.Checks = checks
	return report
}

// Classify applies the tolerance bands: value <= pass is PASS, value <= fail
// is WARN, anything above is FAIL.
func Classify(value, pass, fail decimal.Decimal) models.CheckStatus {
	if value.LessThanOrEqual(pass) {
		return models.CheckStatusPass
	}
	if fail.GreaterThan(pass) && value.LessThanOrEqual(fail) {
		return models.CheckStatusWarn
	}
	return models.CheckStatusFail
}

// relativeVariance is |expected - actual| / expected. With nothing expected,
// any actual amount is a full variance.
func relativeVariance(expected, actual decimal.Decimal) decimal.Decimal {
	diff := expected.Sub(actual).Abs()
	if expected.IsZero() {
		if diff.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(1)
	}
	return diff.DivRound(expected.Abs(), variancePlaces)
}

func (r *Reconciler) result(check string, value decimal.Decimal) models.CheckResult {
	pass, fail := r.tolerance.Thresholds(check)
	return models.CheckResult{
		Check:         check,
		Status:        Classify(value, pass, fail),
		Value:         value,
		Tolerance:     pass,
		FailThreshold: fail,
	}
}

func (r *Reconciler) revenueVariance(ds *Dataset) models.CheckResult {
	expected := decimal.Zero
	examples := make([]string, 0)
	for _, o := range ds.Orders {
		if !o.Status.IsPostable() {
			continue
		}
		amount, err := r.rates.Convert(o.Subtotal, o.Currency, r.reportingCurrency, o.OrderDate)
		if err != nil {
			examples = appendExample(examples, o.OrderId)
			continue
		}
		expected = expected.Add(amount)
	}
	actual := decimal.Zero
	for _, j := range ds.Journals {
		for _, l := range j.Lines {
			if class, _ := models.ClassOfAccountCode(l.AccountCode); class == models.AccountClassRevenue {
				actual = actual.Add(l.CreditAmount).Sub(l.DebitAmount)
			}
		}
	}

	res := r.result(models.CheckRevenueVariance, relativeVariance(expected, actual))
	res.Expected, res.Actual = expected, actual
	res.Details = fmt.Sprintf("order subtotals %s vs revenue credits %s (%s)", expected.StringFixed(2), actual.StringFixed(2), r.reportingCurrency)
	res.Examples = examples
	return res
}

func (r *Reconciler) payrollVariance(ds *Dataset) models.CheckResult {
	expected := decimal.Zero
	examples := make([]string, 0)
	for _, e := range ds.PayrollEntries {
		on, err := AccrualDate(e)
		if err != nil {
			examples = appendExample(examples, e.PayrollEntryId)
			continue
		}
		amount, err := r.rates.Convert(e.GrossAmount, e.Currency, r.reportingCurrency, on)
		if err != nil {
			examples = appendExample(examples, e.PayrollEntryId)
			continue
		}
		expected = expected.Add(amount)
	}
	actual := decimal.Zero
	for _, j := range ds.Journals {
		for _, l := range j.Lines {
			if models.IsPayrollExpenseAccount(l.AccountCode) {
				actual = actual.Add(l.DebitAmount)
			}
		}
	}

	res := r.result(models.CheckPayrollVariance, relativeVariance(expected, actual))
	res.Expected, res.Actual = expected, actual
	res.Details = fmt.Sprintf("payroll gross %s vs expense debits %s (%s)", expected.StringFixed(2), actual.StringFixed(2), r.reportingCurrency)
	res.Examples = examples
	return res
}

// referentialCompleteness reports resolved / total foreign keys, 1 meaning
// complete. The tolerance bands apply to the shortfall 1 - value.
func (r *Reconciler) referentialCompleteness(ds *Dataset) models.CheckResult {
	fk := newForeignKeyCounter(ds)
	flagged := ds.FlaggedRecords()

	for _, e := range ds.Employees {
		fk.check(models.TableStores, e.StoreId, e.EmployeeId)
	}
	for _, o := range ds.Orders {
		fk.optional(models.TableCustomers, o.CustomerId, o.OrderId)
		fk.check(models.TableStores, o.StoreId, o.OrderId)
		fk.optional(models.TablePosTransaction, o.SourceTransactionId, o.OrderId)
	}
	for _, l := range ds.OrderLines {
		fk.check(models.TableOrders, l.OrderId, l.OrderLineId)
		fk.optional(models.TableProducts, l.ProductRef, l.OrderLineId)
	}
	for _, t := range ds.PosTransaction {
		if flagged[models.TablePosTransaction][t.TransactionId] {
			continue
		}
		fk.check(models.TableStores, t.StoreId, t.TransactionId)
		fk.check(models.TableEmployees, t.EmployeeId, t.TransactionId)
	}
	for _, p := range ds.PayrollEntries {
		fk.check(models.TableEmployees, p.EmployeeId, p.PayrollEntryId)
	}
	for _, s := range ds.WebSessions {
		fk.optional(models.TableCustomers, s.CustomerId, s.SessionId)
		fk.optional(models.TableOrders, s.OrderRef, s.SessionId)
	}
	for _, j := range ds.Journals {
		source := models.TableOrders
		if j.Header.SourceType != models.JournalSourceOrder {
			source = models.TablePayrollEntries
		}
		fk.check(source, j.Header.SourceId, j.Header.JournalId)
		for _, l := range j.Lines {
			fk.check(models.TableJournalHeaders, l.JournalId, l.LineId)
			fk.check(models.TableAccounts, l.AccountCode, l.LineId)
		}
	}

	total := decimal.NewFromInt(int64(fk.total))
	resolved := decimal.NewFromInt(int64(fk.resolved))
	value := decimal.NewFromInt(1)
	if fk.total > 0 {
		value = resolved.DivRound(total, variancePlaces)
	}
	res := r.result(models.CheckReferentialCompleteness, decimal.NewFromInt(1).Sub(value))
	res.Value = value
	res.Expected, res.Actual = total, resolved
	res.Details = fmt.Sprintf("%d of %d foreign keys resolved", fk.resolved, fk.total)
	res.Examples = fk.examples
	return res
}

func (r *Reconciler) journalBalance(ds *Dataset) models.CheckResult {
	unbalanced := 0
	examples := make([]string, 0)
	for _, j := range ds.Journals {
		if !j.IsBalanced() {
			unbalanced++
			examples = appendExample(examples, j.Header.JournalId)
		}
	}
	value := decimal.NewFromInt(int64(unbalanced))
	res := r.result(models.CheckJournalBalance, value)
	res.Expected = decimal.NewFromInt(int64(len(ds.Journals)))
	res.Actual = res.Expected.Sub(value)
	res.Details = fmt.Sprintf("%d of %d journal headers unbalanced", unbalanced, len(ds.Journals))
	res.Examples = examples
	return res
}

// channelConsolidation checks that in-store orders and accepted POS
// transactions are in bijection through source_transaction_id.
func (r *Reconciler) channelConsolidation(ds *Dataset) models.CheckResult {
	dropped := ds.FlaggedRecords()[models.TablePosTransaction]
	expected := 0
	accepted := make(map[string]bool, len(ds.PosTransaction))
	for _, t := range ds.PosTransaction {
		if dropped[t.TransactionId] {
			continue
		}
		accepted[t.TransactionId] = true
		expected++
	}

	violations := 0
	inStore := 0
	examples := make([]string, 0)
	seen := make(map[string]bool, expected)
	for _, o := range ds.Orders {
		if o.Channel != models.ChannelInStore {
			continue
		}
		inStore++
		if !accepted[o.SourceTransactionId] || seen[o.SourceTransactionId] {
			violations++
			examples = appendExample(examples, o.OrderId)
		}
		seen[o.SourceTransactionId] = true
	}
	for id := range accepted {
		if !seen[id] {
			violations++
		}
	}

	value := decimal.NewFromInt(int64(violations))
	res := r.result(models.CheckChannelConsolidation, value)
	res.Expected = decimal.NewFromInt(int64(expected))
	res.Actual = decimal.NewFromInt(int64(inStore))
	res.Details = fmt.Sprintf("%d in-store orders for %d accepted POS transactions (%d dropped)", inStore, expected, len(dropped))
	res.Examples = examples
	return res
}

type foreignKeyCounter struct {
	ids      map[models.TableKey]map[string]bool
	total    int
	resolved int
	examples []string
}

func newForeignKeyCounter(ds *Dataset) *foreignKeyCounter {
	c := &foreignKeyCounter{ids: make(map[models.TableKey]map[string]bool), examples: make([]string, 0)}
	add := func(table models.TableKey, id string) {
		if c.ids[table] == nil {
			c.ids[table] = make(map[string]bool)
		}
		c.ids[table][id] = true
	}
	for _, s := range ds.Stores {
		add(models.TableStores, s.StoreId)
	}
	for _, p := range ds.Products {
		add(models.TableProducts, p.ProductId)
	}
	for _, cu := range ds.Customers {
		add(models.TableCustomers, cu.CustomerId)
	}
	for _, e := range ds.Employees {
		add(models.TableEmployees, e.EmployeeId)
	}
	for _, o := range ds.Orders {
		add(models.TableOrders, o.OrderId)
	}
	for _, t := range ds.PosTransaction {
		add(models.TablePosTransaction, t.TransactionId)
	}
	for _, p := range ds.PayrollEntries {
		add(models.TablePayrollEntries, p.PayrollEntryId)
	}
	for _, a := range ds.Accounts {
		add(models.TableAccounts, a.AccountCode)
	}
	for _, j := range ds.Journals {
		add(models.TableJournalHeaders, j.Header.JournalId)
	}
	return c
}

func (c *foreignKeyCounter) check(table models.TableKey, id string, owner string) {
	c.total++
	if c.ids[table][id] {
		c.resolved++
		return
	}
	c.examples = appendExample(c.examples, owner+" -> "+table.String()+":"+id)
}

// optional counts a nullable foreign key only when it is set.
func (c *foreignKeyCounter) optional(table models.TableKey, id string, owner string) {
	if id == "" {
		return
	}
	c.check(table, id, owner)
}

func appendExample(examples []string, id string) []string {
	if len(examples) >= maxExamples {
		return examples
	}
	return append(examples, id)
}
