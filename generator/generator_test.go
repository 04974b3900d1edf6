package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, mutate func(cfg *config.GenerationConfig)) (*Generator, *config.GenerationConfig) {
	t.Helper()
	cfg := config.DefaultGenerationConfig()
	cfg.RecordCounts[models.TableStores.String()] = 6
	cfg.RecordCounts[models.TableProducts.String()] = 40
	cfg.RecordCounts[models.TableCustomers.String()] = 80
	cfg.RecordCounts[models.TableEmployees.String()] = 18
	cfg.RecordCounts[models.TableOrders.String()] = 120
	cfg.RecordCounts[models.TablePosTransaction.String()] = 200
	cfg.RecordCounts[models.TableWebSessions.String()] = 300
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	alloc := sequence.NewAllocator(cfg.IdentifierYear(), sequence.DefaultSpecs(cfg.Identifiers.Scope, cfg.Identifiers.Base, cfg.Identifiers.Width))
	rates, err := cfg.CurrencyExchanges()
	require.NoError(t, err)
	return New(cfg, alloc, models.NewExchangeRateTable(rates), nil), cfg
}

var stageGroups = [][]models.TableKey{
	{models.TableStores, models.TableProducts, models.TableCustomers},
	{models.TableEmployees, models.TableOrders},
	{models.TablePayrollEntries, models.TablePosTransaction, models.TableWebSessions},
}

func generateAll(t *testing.T, g *Generator, cfg *config.GenerationConfig) *Tables {
	t.Helper()
	out := &Tables{}
	for _, group := range stageGroups {
		for _, table := range group {
			require.NoError(t, g.Generate(context.Background(), table, cfg.Count(table), out), table.String())
		}
	}
	return out
}

func TestLargestRemainder_SumsExactlyToN(t *testing.T) {
	weights := map[string]float64{"NL": 40, "DE": 25, "FR": 15, "BE": 15, "LU": 5}
	for _, n := range []int{0, 1, 3, 7, 99, 335, 1915} {
		counts := LargestRemainder(n, weights)
		sum := 0
		for _, c := range counts {
			sum += c
		}
		if sum != n {
			t.Fatalf("n=%d: realized %d", n, sum)
		}
	}
}

func TestLargestRemainder_TiesBreakByKey(t *testing.T) {
	counts := LargestRemainder(1, map[string]float64{"b": 1, "a": 1, "c": 1})
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 0, counts["b"])
	assert.Equal(t, 0, counts["c"])

	counts = LargestRemainder(10, map[string]float64{"completed": 70, "cancelled": 3, "zero": 0})
	assert.Equal(t, 10, counts["completed"]+counts["cancelled"])
	_, ok := counts["zero"]
	assert.False(t, ok)
}

func TestAllocation_IsSeededShuffle(t *testing.T) {
	weights := map[string]float64{"card": 55, "cash": 35, "mobile": 10}
	a := Allocation(NewTableRand(7, models.TablePosTransaction), 100, weights)
	b := Allocation(NewTableRand(7, models.TablePosTransaction), 100, weights)
	c := Allocation(NewTableRand(8, models.TablePosTransaction), 100, weights)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	counts := map[string]int{}
	for _, v := range a {
		counts[v]++
	}
	assert.Equal(t, map[string]int{"card": 55, "cash": 35, "mobile": 10}, counts)
}

func TestDecimalBetween_StaysInBandAtTwoPlaces(t *testing.T) {
	rng := NewTableRand(1, models.TableProducts)
	min, max := decimal.NewFromInt(15), decimal.NewFromInt(120)
	for i := 0; i < 2000; i++ {
		d := DecimalBetween(rng, min, max)
		if d.LessThan(min) || d.GreaterThan(max) {
			t.Fatalf("%s outside [%s, %s]", d, min, max)
		}
		if !d.Equal(d.Round(2)) {
			t.Fatalf("%s has more than two decimals", d)
		}
	}
}

func TestPhoneNumber_IsE164ForCountry(t *testing.T) {
	rng := NewTableRand(3, models.TableCustomers)
	tests := []struct {
		country string
		prefix  string
	}{
		{"NL", "+316"},
		{"DE", "+49151"},
		{"FR", "+336"},
		{"BE", "+3247"},
		{"LU", "+352621"},
	}
	for _, tt := range tests {
		phone, err := PhoneNumber(rng, tt.country)
		require.NoError(t, err)
		if !strings.HasPrefix(phone, tt.prefix) {
			t.Fatalf("%s: %s does not start with %s", tt.country, phone, tt.prefix)
		}
		require.NoError(t, utils.ValidatePhoneNumber(phone, tt.country), phone)
	}
}

func TestPhoneNumber_EveryPatternYieldsValidNumbers(t *testing.T) {
	rng := NewTableRand(11, models.TableCustomers)
	for country := range phonePatterns {
		for i := 0; i < 20; i++ {
			phone, err := PhoneNumber(rng, country)
			require.NoError(t, err, country)
			require.NoError(t, utils.ValidatePhoneNumber(phone, country), phone)
		}
	}
}

func TestGenerate_RecordsAreValid(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)
	out := generateAll(t, g, cfg)

	assert.Len(t, out.Products, 40)
	assert.Len(t, out.Customers, 80)
	assert.Len(t, out.Orders, 120)
	assert.Len(t, out.PosTransactions, 200)
	assert.Len(t, out.WebSessions, 300)
	assert.Len(t, retailStores(out.Stores), 6)
	assert.Len(t, out.Stores, 6+len(cfg.Weights(config.WeightCountry)))

	expectedVat := map[string]int64{"NL": 21, "DE": 19, "FR": 20, "BE": 21, "LU": 17}
	for _, o := range out.Orders {
		assert.Equal(t, models.ChannelOnline, o.Channel)
		assert.True(t, o.VatRate.Equal(decimal.NewFromInt(expectedVat[o.CountryCode])), "%s vat %s", o.CountryCode, o.VatRate)
		assert.True(t, o.Total.Equal(o.Subtotal.Add(o.Tax)))
		assert.True(t, o.Tax.Equal(utils.CalculateTaxAmount(o.Subtotal, o.VatRate)))
		assert.False(t, o.Subtotal.IsNegative())
		assert.False(t, o.OrderDate.Before(cfg.DateRange.Start))
		assert.False(t, o.OrderDate.After(cfg.DateRange.End.Add(24*time.Hour)))
		_, err := models.ParseOrderStatus(string(o.Status))
		assert.NoError(t, err)
	}

	linesPerOrder := map[string]decimal.Decimal{}
	for _, l := range out.OrderLines {
		linesPerOrder[l.OrderId] = linesPerOrder[l.OrderId].Add(l.LineTotal)
		assert.GreaterOrEqual(t, l.Quantity, 1)
	}
	for _, o := range out.Orders {
		assert.True(t, linesPerOrder[o.OrderId].Equal(o.Subtotal), "order %s lines do not sum to subtotal", o.OrderId)
	}

	for i, p := range out.PosTransactions {
		assert.True(t, p.Total.Equal(p.Subtotal.Add(p.Tax)))
		if i > 0 {
			assert.False(t, p.TransactionDate.Before(out.PosTransactions[i-1].TransactionDate))
		}
		hour := p.TransactionDate.Hour()
		assert.True(t, hour >= cfg.Pos.OpeningHour && hour < cfg.Pos.ClosingHour, "hour %d", hour)
	}

	for _, c := range out.Customers {
		assert.True(t, utils.IsValidEmail(c.Email), c.Email)
		assert.True(t, strings.HasPrefix(c.Phone, "+"))
	}

	conversions := 0
	for _, s := range out.WebSessions {
		if s.ConversionSession {
			conversions++
			assert.NotEmpty(t, s.OrderRef)
		}
	}
	assert.Equal(t, len(out.Orders), conversions)
}

func TestGenerate_PayrollOneEntryPerEmployeeMonth(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)
	out := generateAll(t, g, cfg)

	expected := 0
	for _, e := range out.Employees {
		from := cfg.DateRange.Start
		if e.HireDate.After(from) {
			from = e.HireDate
		}
		expected += len(utils.MonthsBetween(from, cfg.DateRange.End))
	}
	assert.Len(t, out.PayrollEntries, expected)
	for _, p := range out.PayrollEntries {
		assert.True(t, p.GrossAmount.IsPositive())
	}
}

func TestGenerate_PosCashierWasHiredBySaleDate(t *testing.T) {
	g, cfg := newTestGenerator(t, func(cfg *config.GenerationConfig) {
		cfg.DataQuality.OrphanPosTransactions = 3
	})
	out := generateAll(t, g, cfg)

	employees := make(map[string]models.Employee, len(out.Employees))
	for _, e := range out.Employees {
		employees[e.EmployeeId] = e
	}
	for _, p := range out.PosTransactions {
		e, ok := employees[p.EmployeeId]
		require.True(t, ok, p.EmployeeId)
		if utils.TruncateDay(p.TransactionDate).Before(utils.TruncateDay(e.HireDate)) {
			t.Fatalf("%s rung up on %s by %s hired %s", p.TransactionId, utils.FormatDate(p.TransactionDate), e.EmployeeId, utils.FormatDate(e.HireDate))
		}
		assert.False(t, p.TransactionDate.After(cfg.DateRange.End.Add(24*time.Hour)))
	}
}

func TestEmployedOn_FiltersByHireDay(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	staff := []models.Employee{
		{EmployeeId: "EMP_A", HireDate: day(10)},
		{EmployeeId: "EMP_B", HireDate: day(2)},
		{EmployeeId: "EMP_C", HireDate: day(20)},
	}
	onDuty := employedOn(staff, day(10).Add(9*time.Hour))
	require.Len(t, onDuty, 2)
	assert.Equal(t, "EMP_A", onDuty[0].EmployeeId)
	assert.Equal(t, "EMP_B", onDuty[1].EmployeeId)
	assert.Empty(t, employedOn(staff, day(1)))
	assert.Equal(t, "EMP_B", earliestHire(staff).EmployeeId)
}

func TestGenerate_IsDeterministic(t *testing.T) {
	g1, cfg := newTestGenerator(t, nil)
	g2, _ := newTestGenerator(t, nil)
	a := generateAll(t, g1, cfg)
	b := generateAll(t, g2, cfg)

	assert.Equal(t, a.Orders, b.Orders)
	assert.Equal(t, a.PosTransactions, b.PosTransactions)
	assert.Equal(t, a.WebSessions, b.WebSessions)
}

func TestGenerate_EmptyPoolIsReferentialIntegrityError(t *testing.T) {
	g, cfg := newTestGenerator(t, nil)
	out := &Tables{}
	err := g.Generate(context.Background(), models.TableOrders, cfg.Count(models.TableOrders), out)
	require.Error(t, err)

	var rie *models.ReferentialIntegrityError
	require.True(t, errors.As(err, &rie))
	assert.Equal(t, models.TableOrders, rie.Table)
	assert.ErrorIs(t, err, models.ErrEmptyPool)
}

func TestGenerate_OrphanPosTransactionsUseUnknownStore(t *testing.T) {
	g, cfg := newTestGenerator(t, func(cfg *config.GenerationConfig) {
		cfg.DataQuality.OrphanPosTransactions = 4
	})
	out := generateAll(t, g, cfg)

	known := map[string]bool{}
	for _, s := range out.Stores {
		known[s.StoreId] = true
	}
	orphans := 0
	for _, p := range out.PosTransactions {
		if !known[p.StoreId] {
			orphans++
		}
	}
	assert.Equal(t, 4, orphans)
	assert.Len(t, out.PosTransactions, 204)
}
