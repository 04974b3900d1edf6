package models

import (
	"fmt"
	"strings"
)

type Domain string

const (
	DomainOperations Domain = "operations"
	DomainPos        Domain = "pos"
	DomainFinance    Domain = "finance"
	DomainHr         Domain = "hr"
	DomainWebshop    Domain = "webshop"
)

// TableKey names one output table, e.g. operations.orders.
type TableKey struct {
	Domain Domain
	Table  string
}

func (k TableKey) String() string {
	return string(k.Domain) + "." + k.Table
}

func ParseTableKey(s string) (TableKey, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TableKey{}, fmt.Errorf("table key %q must look like domain.table", s)
	}
	return TableKey{Domain: Domain(parts[0]), Table: parts[1]}, nil
}

var (
	TableStores         = TableKey{DomainOperations, "stores"}
	TableProducts       = TableKey{DomainOperations, "products"}
	TableCustomers      = TableKey{DomainOperations, "customers"}
	TableOrders         = TableKey{DomainOperations, "orders"}
	TableOrderLines     = TableKey{DomainOperations, "order_lines"}
	TablePosTransaction = TableKey{DomainPos, "transactions"}
	TableEmployees      = TableKey{DomainHr, "employees"}
	TablePayrollEntries = TableKey{DomainHr, "payroll_entries"}
	TableWebSessions    = TableKey{DomainWebshop, "sessions"}
	TableAccounts       = TableKey{DomainFinance, "accounts"}
	TableJournalHeaders = TableKey{DomainFinance, "journal_headers"}
	TableJournalLines   = TableKey{DomainFinance, "journal_lines"}
)

// AllTables is the publish order of every table the pipeline emits.
var AllTables = []TableKey{
	TableStores,
	TableProducts,
	TableCustomers,
	TableOrders,
	TableOrderLines,
	TablePosTransaction,
	TableEmployees,
	TablePayrollEntries,
	TableWebSessions,
	TableAccounts,
	TableJournalHeaders,
	TableJournalLines,
}

// Record is one output row. Column names are the load contract; Values must
// line up with Columns and be canonical (fixed decimals, UTC dates).
type Record interface {
	Columns() []string
	Values() []string
}

// IdColumn returns the identifier column of a table (always the first column).
func IdColumn(k TableKey) string {
	switch k {
	case TableStores:
		return "store_id"
	case TableProducts:
		return "product_id"
	case TableCustomers:
		return "customer_id"
	case TableOrders:
		return "order_id"
	case TableOrderLines:
		return "order_line_id"
	case TablePosTransaction:
		return "transaction_id"
	case TableEmployees:
		return "employee_id"
	case TablePayrollEntries:
		return "payroll_entry_id"
	case TableWebSessions:
		return "session_id"
	case TableAccounts:
		return "account_code"
	case TableJournalHeaders:
		return "journal_id"
	case TableJournalLines:
		return "line_id"
	}
	return ""
}
