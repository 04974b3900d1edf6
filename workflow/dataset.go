package workflow

import (
	"bitbucket.org/mmdatafocus/books_synth/generator"
	"bitbucket.org/mmdatafocus/books_synth/models"
)

// Dataset is the immutable result of one run: every table in publish order.
// Stages build new slices; nothing here is modified after Run returns it.
type Dataset struct {
	RunId          string
	Stores         []models.Store
	Products       []models.Product
	Customers      []models.Customer
	Employees      []models.Employee
	Orders         []models.Order
	OrderLines     []models.OrderLine
	PosTransaction []models.PosTransaction
	PayrollEntries []models.PayrollEntry
	WebSessions    []models.WebSession
	Accounts       []models.Account
	Journals       []models.Journal
	Warnings       []models.DataQualityWarning
}

func newDataset(runId string, tables *generator.Tables, consolidated *ConsolidationResult, journals []models.Journal) *Dataset {
	ds := &Dataset{
		RunId:          runId,
		Stores:         tables.Stores,
		Products:       tables.Products,
		Customers:      tables.Customers,
		Employees:      tables.Employees,
		Orders:         tables.Orders,
		OrderLines:     tables.OrderLines,
		PosTransaction: tables.PosTransactions,
		PayrollEntries: tables.PayrollEntries,
		WebSessions:    tables.WebSessions,
		Accounts:       models.ChartOfAccounts,
		Journals:       journals,
	}
	if consolidated != nil {
		ds.Orders = consolidated.Orders
		ds.OrderLines = consolidated.OrderLines
		ds.Warnings = consolidated.Warnings
	}
	return ds
}

// FlaggedRecords returns the ids of records carrying a data-quality warning, per table.
func (d *Dataset) FlaggedRecords() map[models.TableKey]map[string]bool {
	out := make(map[models.TableKey]map[string]bool)
	for _, w := range d.Warnings {
		if out[w.Table] == nil {
			out[w.Table] = make(map[string]bool)
		}
		out[w.Table][w.RecordId] = true
	}
	return out
}

// JournalHeaders and JournalLines flatten the posted journals.
func (d *Dataset) JournalHeaders() []models.JournalHeader {
	out := make([]models.JournalHeader, 0, len(d.Journals))
	for _, j := range d.Journals {
		out = append(out, j.Header)
	}
	return out
}

func (d *Dataset) JournalLines() []models.JournalLine {
	out := make([]models.JournalLine, 0, len(d.Journals)*3)
	for _, j := range d.Journals {
		out = append(out, j.Lines...)
	}
	return out
}

// Records returns the rows of one table in emitted order.
func (d *Dataset) Records(table models.TableKey) []models.Record {
	switch table {
	case models.TableStores:
		return toRecords(d.Stores)
	case models.TableProducts:
		return toRecords(d.Products)
	case models.TableCustomers:
		return toRecords(d.Customers)
	case models.TableEmployees:
		return toRecords(d.Employees)
	case models.TableOrders:
		return toRecords(d.Orders)
	case models.TableOrderLines:
		return toRecords(d.OrderLines)
	case models.TablePosTransaction:
		return toRecords(d.PosTransaction)
	case models.TablePayrollEntries:
		return toRecords(d.PayrollEntries)
	case models.TableWebSessions:
		return toRecords(d.WebSessions)
	case models.TableAccounts:
		return toRecords(d.Accounts)
	case models.TableJournalHeaders:
		return toRecords(d.JournalHeaders())
	case models.TableJournalLines:
		return toRecords(d.JournalLines())
	}
	return nil
}

// Counts is the number of rows per table.
func (d *Dataset) Counts() map[string]int {
	out := make(map[string]int, len(models.AllTables))
	for _, table := range models.AllTables {
		out[table.String()] = len(d.Records(table))
	}
	return out
}

func toRecords[T models.Record](rows []T) []models.Record {
	out := make([]models.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
