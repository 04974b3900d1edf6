package workflow

import (
	"sort"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const reasonUnknownStore = "transaction references unknown store"

// ConsolidationResult is the canonical order ledger: online orders first, then
// one in-store order per accepted POS transaction.
type ConsolidationResult struct {
	Orders     []models.Order
	OrderLines []models.OrderLine
	Warnings   []models.DataQualityWarning
	Dropped    int
}

// ConsolidateChannels maps POS transactions onto the (operations, orders)
// sequence, continuing after the highest online order id. Transactions are
// taken by transaction date, then transaction id. A transaction whose store
// is unknown is dropped with a DataQualityWarning.
func ConsolidateChannels(logger *logrus.Logger, alloc *sequence.Allocator, vat models.VatTable, online []models.Order, onlineLines []models.OrderLine, txns []models.PosTransaction, stores []models.Store) (*ConsolidationResult, error) {
	if logger == nil {
		logger = config.GetLogger()
	}
	storeById := make(map[string]models.Store, len(stores))
	for _, s := range stores {
		storeById[s.StoreId] = s
	}

	ordered := make([]models.PosTransaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].TransactionDate.Equal(ordered[j].TransactionDate) {
			return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
		}
		return ordered[i].TransactionId < ordered[j].TransactionId
	})

	result := &ConsolidationResult{
		Orders:     make([]models.Order, 0, len(online)+len(txns)),
		OrderLines: make([]models.OrderLine, 0, len(onlineLines)+len(txns)),
		Warnings:   make([]models.DataQualityWarning, 0),
	}
	result.Orders = append(result.Orders, online...)
	result.OrderLines = append(result.OrderLines, onlineLines...)

	for _, t := range ordered {
		store, ok := storeById[t.StoreId]
		if !ok {
			w := models.DataQualityWarning{
				Table:    models.TablePosTransaction,
				RecordId: t.TransactionId,
				Reason:   reasonUnknownStore,
			}
			config.LogWarning(logger, "consolidation.go", "ConsolidateChannels", "unknown store", t.StoreId, w)
			result.Warnings = append(result.Warnings, w)
			result.Dropped++
			continue
		}

		orderId, err := alloc.AllocateFor(models.TableOrders)
		if err != nil {
			config.LogError(logger, "consolidation.go", "ConsolidateChannels", "allocate order id", t.TransactionId, err)
			return nil, err
		}
		lineId, err := alloc.AllocateFor(models.TableOrderLines)
		if err != nil {
			config.LogError(logger, "consolidation.go", "ConsolidateChannels", "allocate order line id", t.TransactionId, err)
			return nil, err
		}

		status := models.OrderStatusCompleted
		if t.PaymentStatus == models.PaymentStatusVoided {
			status = models.OrderStatusCancelled
		}
		vatRate, err := vat.Rate(store.CountryCode)
		if err != nil {
			return nil, models.NewConfigurationError("vat_rates."+store.CountryCode, "no VAT rate", err)
		}
		result.Orders = append(result.Orders, models.Order{
			OrderId:             orderId.String(),
			StoreId:             t.StoreId,
			Channel:             models.ChannelInStore,
			Fulfillment:         models.FulfillmentPickup,
			CountryCode:         store.CountryCode,
			Subtotal:            t.Subtotal,
			Tax:                 t.Tax,
			VatRate:             vatRate,
			Total:               t.Total,
			Currency:            t.Currency,
			OrderDate:           t.TransactionDate,
			Status:              status,
			SourceTransactionId: t.TransactionId,
		})
		result.OrderLines = append(result.OrderLines, models.OrderLine{
			OrderLineId: lineId.String(),
			OrderId:     orderId.String(),
			Quantity:    t.ItemCount,
			UnitPrice:   unitPrice(t),
			LineTotal:   t.Subtotal,
		})
	}

	logger.WithFields(logrus.Fields{
		"field":   "ConsolidateChannels",
		"online":  len(online),
		"pos":     len(txns),
		"dropped": result.Dropped,
		"orders":  len(result.Orders),
	}).Info("channels consolidated")
	return result, nil
}

// unitPrice is the average item price of a transaction; line_total stays the
// authoritative amount.
func unitPrice(t models.PosTransaction) decimal.Decimal {
	if t.ItemCount <= 0 {
		return t.Subtotal
	}
	return utils.RoundMoney(t.Subtotal.Div(decimal.NewFromInt(int64(t.ItemCount))))
}
