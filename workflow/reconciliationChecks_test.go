package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		value string
		pass  string
		fail  string
		want  models.CheckStatus
	}{
		{"zero at zero tolerance", "0", "0", "0", models.CheckStatusPass},
		{"any value at zero tolerance", "0.000001", "0", "0", models.CheckStatusFail},
		{"inside pass band", "0.004", "0.01", "0.05", models.CheckStatusPass},
		{"on pass boundary", "0.01", "0.01", "0.05", models.CheckStatusPass},
		{"inside warn band", "0.02", "0.01", "0.05", models.CheckStatusWarn},
		{"on fail boundary", "0.05", "0.01", "0.05", models.CheckStatusWarn},
		{"above fail boundary", "0.050001", "0.01", "0.05", models.CheckStatusFail},
		{"no warn band", "0.02", "0.01", "0.01", models.CheckStatusFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(dec(tc.value), dec(tc.pass), dec(tc.fail)))
		})
	}
}

func TestRelativeVariance(t *testing.T) {
	assert.True(t, relativeVariance(dec("100"), dec("98")).Equal(dec("0.02")))
	assert.True(t, relativeVariance(dec("0"), dec("0")).IsZero())
	assert.True(t, relativeVariance(dec("0"), dec("5")).Equal(decimal.NewFromInt(1)))
}

// smallDataset is one online order and one payroll entry, posted.
func smallDataset(t *testing.T) *Dataset {
	t.Helper()
	p := newTestPoster()
	order := models.Order{
		OrderId:     "ORD_EU_2024_000001",
		StoreId:     testStores[0].StoreId,
		Channel:     models.ChannelOnline,
		CountryCode: "NL",
		Subtotal:    dec("100.00"),
		Tax:         dec("21.00"),
		VatRate:     dec("21"),
		Total:       dec("121.00"),
		Currency:    "EUR",
		OrderDate:   time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC),
		Status:      models.OrderStatusCompleted,
	}
	employee := models.Employee{EmployeeId: "EMP_EU_2024_000001", StoreId: testStores[1].StoreId, CountryCode: "NL"}
	entry := models.PayrollEntry{
		PayrollEntryId: "PAY_EU_2024_000001",
		EmployeeId:     employee.EmployeeId,
		Period:         "2024-05",
		GrossAmount:    dec("2500.00"),
		Currency:       "EUR",
		CountryCode:    "NL",
	}
	orderJournals, err := p.PostOrders(context.Background(), []models.Order{order})
	require.NoError(t, err)
	payrollJournals, err := p.PostPayroll(context.Background(), []models.PayrollEntry{entry})
	require.NoError(t, err)

	return &Dataset{
		RunId:          "run-test",
		Stores:         testStores,
		Employees:      []models.Employee{employee},
		Orders:         []models.Order{order},
		PayrollEntries: []models.PayrollEntry{entry},
		Accounts:       models.ChartOfAccounts,
		Journals:       append(orderJournals, payrollJournals...),
	}
}

func newTestReconciler(tolerance config.Tolerance) *Reconciler {
	return NewReconciler(tolerance, models.NewExchangeRateTable(nil), "EUR", config.GetLogger())
}

func TestReconciler_CleanDatasetPassesAtZeroTolerance(t *testing.T) {
	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(smallDataset(t))

	assert.Equal(t, models.CheckStatusPass, report.Status)
	require.Len(t, report.Checks, 5)
	for _, c := range report.Checks {
		assert.Equal(t, models.CheckStatusPass, c.Status, c.Check+": "+c.Details)
		if c.Check != models.CheckReferentialCompleteness {
			assert.True(t, c.Value.IsZero(), c.Check)
		}
	}
	assert.Empty(t, report.Mismatches())

	revenue, ok := report.Check(models.CheckRevenueVariance)
	require.True(t, ok)
	assert.True(t, revenue.Expected.Equal(dec("100.00")))
	payroll, _ := report.Check(models.CheckPayrollVariance)
	assert.True(t, payroll.Actual.Equal(dec("2500.00")))
}

func TestReconciler_ReferentialCompletenessIsResolvedShare(t *testing.T) {
	ds := smallDataset(t)
	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(ds)

	ref, ok := report.Check(models.CheckReferentialCompleteness)
	require.True(t, ok)
	assert.Equal(t, models.CheckStatusPass, ref.Status)
	assert.True(t, ref.Value.Equal(decimal.NewFromInt(1)), ref.Value.String())
	assert.True(t, ref.Actual.Equal(ref.Expected), ref.Details)

	// one dangling key; the shortfall stays inside a 0.5 tolerance
	ds.PayrollEntries[0].EmployeeId = "EMP_EU_2024_999999"
	report = newTestReconciler(config.Tolerance{Referential: 0.5}).RunReconciliationChecks(ds)
	ref, _ = report.Check(models.CheckReferentialCompleteness)
	want := ref.Actual.DivRound(ref.Expected, variancePlaces)
	assert.True(t, ref.Value.Equal(want), ref.Value.String())
	assert.Equal(t, models.CheckStatusPass, ref.Status)
}

func TestReconciler_RevenueVarianceWarnsInsideBand(t *testing.T) {
	ds := smallDataset(t)
	// shave 2.00 off revenue and the settlement line so the journal stays balanced
	j := &ds.Journals[0]
	j.Lines[0].CreditAmount = dec("98.00")
	j.Lines[2].DebitAmount = dec("119.00")
	j.Header.TotalDebit, j.Header.TotalCredit = dec("119.00"), dec("119.00")

	fail := 0.05
	report := newTestReconciler(config.Tolerance{Revenue: 0.01, RevenueFail: &fail}).RunReconciliationChecks(ds)

	revenue, _ := report.Check(models.CheckRevenueVariance)
	assert.Equal(t, models.CheckStatusWarn, revenue.Status)
	assert.True(t, revenue.Value.Equal(dec("0.02")), revenue.Value.String())
	balance, _ := report.Check(models.CheckJournalBalance)
	assert.Equal(t, models.CheckStatusPass, balance.Status)
	assert.Equal(t, models.CheckStatusWarn, report.Status)
	require.Len(t, report.Mismatches(), 1)
	assert.Equal(t, models.CheckRevenueVariance, report.Mismatches()[0].Check)
}

func TestReconciler_CancelledOrdersStayOutOfExpectedRevenue(t *testing.T) {
	ds := smallDataset(t)
	cancelled := ds.Orders[0]
	cancelled.OrderId = "ORD_EU_2024_000002"
	cancelled.Status = models.OrderStatusCancelled
	ds.Orders = append(ds.Orders, cancelled)

	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(ds)

	revenue, _ := report.Check(models.CheckRevenueVariance)
	assert.Equal(t, models.CheckStatusPass, revenue.Status, revenue.Details)
	assert.True(t, revenue.Expected.Equal(dec("100.00")), revenue.Expected.String())
	assert.True(t, revenue.Value.IsZero())
}

func TestReconciler_UnbalancedJournalFails(t *testing.T) {
	ds := smallDataset(t)
	ds.Journals[1].Lines[0].DebitAmount = dec("2500.01")

	report := newTestReconciler(config.Tolerance{Payroll: 1}).RunReconciliationChecks(ds)

	balance, _ := report.Check(models.CheckJournalBalance)
	assert.Equal(t, models.CheckStatusFail, balance.Status)
	assert.True(t, balance.Value.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{ds.Journals[1].Header.JournalId}, balance.Examples)
	assert.Equal(t, models.CheckStatusFail, report.Status)
}

func TestReconciler_UnresolvedForeignKeyIsReported(t *testing.T) {
	ds := smallDataset(t)
	ds.PayrollEntries[0].EmployeeId = "EMP_EU_2024_999999"

	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(ds)

	ref, _ := report.Check(models.CheckReferentialCompleteness)
	assert.Equal(t, models.CheckStatusFail, ref.Status)
	assert.True(t, ref.Value.LessThan(decimal.NewFromInt(1)), ref.Value.String())
	assert.True(t, ref.Value.IsPositive())
	assert.True(t, ref.Actual.Equal(ref.Expected.Sub(decimal.NewFromInt(1))))
	assert.Contains(t, ref.Examples, "PAY_EU_2024_000001 -> hr.employees:EMP_EU_2024_999999")
}

func TestReconciler_FlaggedPosTransactionsAreExcluded(t *testing.T) {
	ds := smallDataset(t)
	ds.PosTransaction = []models.PosTransaction{{
		TransactionId: "TRX_EU_2024_000001",
		StoreId:       "STR_EU_2024_000000",
		EmployeeId:    "EMP_EU_2024_000001",
	}}
	ds.Warnings = []models.DataQualityWarning{{
		Table:    models.TablePosTransaction,
		RecordId: "TRX_EU_2024_000001",
		Reason:   reasonUnknownStore,
	}}

	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(ds)

	assert.Equal(t, models.CheckStatusPass, report.Status)
	consolidation, _ := report.Check(models.CheckChannelConsolidation)
	assert.True(t, consolidation.Expected.IsZero())
}

func TestReconciler_ChannelConsolidationFindsMissingOrder(t *testing.T) {
	ds := smallDataset(t)
	ds.PosTransaction = []models.PosTransaction{
		{TransactionId: "TRX_EU_2024_000001", StoreId: testStores[1].StoreId, EmployeeId: "EMP_EU_2024_000001"},
		{TransactionId: "TRX_EU_2024_000002", StoreId: testStores[1].StoreId, EmployeeId: "EMP_EU_2024_000001"},
	}
	ds.Orders = append(ds.Orders, models.Order{
		OrderId:             "ORD_EU_2024_000002",
		StoreId:             testStores[1].StoreId,
		Channel:             models.ChannelInStore,
		Status:              models.OrderStatusCancelled,
		SourceTransactionId: "TRX_EU_2024_000001",
	})

	report := newTestReconciler(config.Tolerance{}).RunReconciliationChecks(ds)

	consolidation, _ := report.Check(models.CheckChannelConsolidation)
	assert.Equal(t, models.CheckStatusFail, consolidation.Status)
	assert.True(t, consolidation.Value.Equal(decimal.NewFromInt(1)))
	assert.True(t, consolidation.Expected.Equal(decimal.NewFromInt(2)))
	assert.True(t, consolidation.Actual.Equal(decimal.NewFromInt(1)))
}
