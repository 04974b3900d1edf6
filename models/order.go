package models

import (
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

// Order is the canonical sales record for every channel ("Operations as Master").
type Order struct {
	OrderId     string
	CustomerId  string
	StoreId     string
	Channel     Channel
	Fulfillment Fulfillment
	CountryCode string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	VatRate     decimal.Decimal
	Total       decimal.Decimal
	Currency    string
	OrderDate   time.Time
	Status      OrderStatus
	// SourceTransactionId links an in-store order back to its POS transaction.
	SourceTransactionId string
}

func (o Order) Columns() []string {
	return []string{"order_id", "customer_id", "store_id", "channel", "fulfillment", "country_code", "subtotal", "tax", "vat_rate", "total", "currency", "order_date", "status", "source_transaction_id"}
}

func (o Order) Values() []string {
	return []string{
		o.OrderId,
		o.CustomerId,
		o.StoreId,
		string(o.Channel),
		string(o.Fulfillment),
		o.CountryCode,
		utils.FormatMoney(o.Subtotal),
		utils.FormatMoney(o.Tax),
		utils.FormatMoney(o.VatRate),
		utils.FormatMoney(o.Total),
		o.Currency,
		utils.FormatTimestamp(o.OrderDate),
		string(o.Status),
		o.SourceTransactionId,
	}
}

type OrderLine struct {
	OrderLineId string
	OrderId     string
	ProductRef  string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

func (l OrderLine) Columns() []string {
	return []string{"order_line_id", "order_id", "product_ref", "quantity", "unit_price", "line_total"}
}

func (l OrderLine) Values() []string {
	return []string{l.OrderLineId, l.OrderId, l.ProductRef, utils.FormatInt(l.Quantity), utils.FormatMoney(l.UnitPrice), utils.FormatMoney(l.LineTotal)}
}
