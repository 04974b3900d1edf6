package models

import (
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

type PosTransaction struct {
	TransactionId   string
	StoreId         string
	EmployeeId      string
	ItemCount       int
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	TransactionDate time.Time
}

func (t PosTransaction) Columns() []string {
	return []string{"transaction_id", "store_id", "employee_id", "item_count", "subtotal", "tax", "total", "currency", "payment_method", "payment_status", "transaction_date"}
}

func (t PosTransaction) Values() []string {
	return []string{
		t.TransactionId,
		t.StoreId,
		t.EmployeeId,
		utils.FormatInt(t.ItemCount),
		utils.FormatMoney(t.Subtotal),
		utils.FormatMoney(t.Tax),
		utils.FormatMoney(t.Total),
		t.Currency,
		string(t.PaymentMethod),
		string(t.PaymentStatus),
		utils.FormatTimestamp(t.TransactionDate),
	}
}
