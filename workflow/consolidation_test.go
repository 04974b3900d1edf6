package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator() *sequence.Allocator {
	return sequence.NewAllocator(2024, sequence.DefaultSpecs("EU", 1, 6))
}

var testStores = []models.Store{
	{StoreId: "STR_EU_2024_000001", CountryCode: "NL", StoreType: models.StoreTypeWebshop, Currency: "EUR"},
	{StoreId: "STR_EU_2024_000002", CountryCode: "NL", StoreType: models.StoreTypeRetail, Currency: "EUR"},
	{StoreId: "STR_EU_2024_000003", CountryCode: "DE", StoreType: models.StoreTypeRetail, Currency: "EUR"},
}

func onlineOrders(t *testing.T, alloc *sequence.Allocator, n int) []models.Order {
	t.Helper()
	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		id, err := alloc.AllocateFor(models.TableOrders)
		require.NoError(t, err)
		orders = append(orders, models.Order{
			OrderId:     id.String(),
			CustomerId:  "CUS_EU_2024_000001",
			StoreId:     testStores[0].StoreId,
			Channel:     models.ChannelOnline,
			Fulfillment: models.FulfillmentDelivery,
			CountryCode: "NL",
			Subtotal:    decimal.NewFromInt(100),
			Tax:         decimal.NewFromInt(21),
			VatRate:     decimal.NewFromInt(21),
			Total:       decimal.NewFromInt(121),
			Currency:    "EUR",
			OrderDate:   day.Add(time.Duration(i) * time.Minute),
			Status:      models.OrderStatusCompleted,
		})
	}
	return orders
}

func posTransactions(n int, storeFor func(i int) string) []models.PosTransaction {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	txns := make([]models.PosTransaction, 0, n)
	for i := 0; i < n; i++ {
		status := models.PaymentStatusCompleted
		if i%50 == 0 {
			status = models.PaymentStatusVoided
		}
		txns = append(txns, models.PosTransaction{
			// ids deliberately out of date order
			TransactionId:   transactionId(n - i),
			StoreId:         storeFor(i),
			EmployeeId:      "EMP_EU_2024_000001",
			ItemCount:       3,
			Subtotal:        decimal.RequireFromString("30.00"),
			Tax:             decimal.RequireFromString("6.30"),
			Total:           decimal.RequireFromString("36.30"),
			Currency:        "EUR",
			PaymentMethod:   models.PaymentMethodCard,
			PaymentStatus:   status,
			TransactionDate: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return txns
}

func transactionId(seq int) string {
	id, _ := newTestAllocator().Format(models.TablePosTransaction, int64(seq))
	return id
}

func TestConsolidateChannels_ContinuesOrderSequence(t *testing.T) {
	alloc := newTestAllocator()
	online := onlineOrders(t, alloc, 335)
	txns := posTransactions(1915, func(i int) string { return testStores[1+i%2].StoreId })

	res, err := ConsolidateChannels(config.GetLogger(), alloc, models.NewVatTable(nil), online, nil, txns, testStores)
	require.NoError(t, err)

	require.Len(t, res.Orders, 2250)
	assert.Equal(t, 0, res.Dropped)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "ORD_EU_2024_000335", res.Orders[334].OrderId)
	assert.Equal(t, "ORD_EU_2024_000336", res.Orders[335].OrderId)
	assert.Equal(t, "ORD_EU_2024_002250", res.Orders[2249].OrderId)

	var prev int64
	seen := map[string]bool{}
	for i, o := range res.Orders {
		seq, ok := sequence.ParseSequence(o.OrderId)
		require.True(t, ok)
		if seq != int64(i+1) || seq <= prev {
			t.Fatalf("order %d has id %s", i, o.OrderId)
		}
		prev = seq
		if o.Channel == models.ChannelInStore {
			assert.False(t, seen[o.SourceTransactionId], "transaction %s consolidated twice", o.SourceTransactionId)
			seen[o.SourceTransactionId] = true
			assert.Equal(t, models.FulfillmentPickup, o.Fulfillment)
			assert.Empty(t, o.CustomerId)
		}
	}
	assert.Len(t, seen, 1915)
	assert.Len(t, res.OrderLines, 1915)
}

func TestConsolidateChannels_MapsTransactionFields(t *testing.T) {
	alloc := newTestAllocator()
	txns := posTransactions(2, func(i int) string { return testStores[2].StoreId })

	res, err := ConsolidateChannels(config.GetLogger(), alloc, models.NewVatTable(nil), nil, nil, txns, testStores)
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)

	voided := res.Orders[0]
	assert.Equal(t, txns[0].TransactionId, voided.SourceTransactionId)
	assert.Equal(t, models.OrderStatusCancelled, voided.Status)
	assert.Equal(t, "DE", voided.CountryCode)
	assert.True(t, voided.VatRate.Equal(decimal.NewFromInt(19)))
	assert.True(t, voided.Total.Equal(txns[0].Total))

	completed := res.Orders[1]
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)
	assert.Equal(t, models.ChannelInStore, completed.Channel)

	line := res.OrderLines[1]
	assert.Equal(t, completed.OrderId, line.OrderId)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.LineTotal.Equal(completed.Subtotal))
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(10)))
}

func TestConsolidateChannels_OrdersByDateThenId(t *testing.T) {
	alloc := newTestAllocator()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txns := []models.PosTransaction{
		{TransactionId: "TRX_EU_2024_000009", StoreId: testStores[1].StoreId, ItemCount: 1, TransactionDate: at.Add(time.Hour)},
		{TransactionId: "TRX_EU_2024_000005", StoreId: testStores[1].StoreId, ItemCount: 1, TransactionDate: at},
		{TransactionId: "TRX_EU_2024_000002", StoreId: testStores[1].StoreId, ItemCount: 1, TransactionDate: at},
	}

	res, err := ConsolidateChannels(config.GetLogger(), alloc, models.NewVatTable(nil), nil, nil, txns, testStores)
	require.NoError(t, err)
	got := []string{res.Orders[0].SourceTransactionId, res.Orders[1].SourceTransactionId, res.Orders[2].SourceTransactionId}
	assert.Equal(t, []string{"TRX_EU_2024_000002", "TRX_EU_2024_000005", "TRX_EU_2024_000009"}, got)
}

func TestConsolidateChannels_DropsUnknownStore(t *testing.T) {
	alloc := newTestAllocator()
	online := onlineOrders(t, alloc, 10)
	txns := posTransactions(20, func(i int) string {
		if i%5 == 0 {
			return "STR_EU_2024_000000"
		}
		return testStores[1].StoreId
	})

	res, err := ConsolidateChannels(config.GetLogger(), alloc, models.NewVatTable(nil), online, nil, txns, testStores)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Dropped)
	assert.Len(t, res.Warnings, 4)
	assert.Len(t, res.Orders, 10+20-4)
	for _, w := range res.Warnings {
		assert.Equal(t, models.TablePosTransaction, w.Table)
		assert.Equal(t, reasonUnknownStore, w.Reason)
	}
}
