package export

import (
	"encoding/csv"
	"io"

	"bitbucket.org/mmdatafocus/books_synth/models"
)

// zeroRecords provides the header of tables that emitted no rows.
var zeroRecords = map[models.TableKey]models.Record{
	models.TableStores:         models.Store{},
	models.TableProducts:       models.Product{},
	models.TableCustomers:      models.Customer{},
	models.TableOrders:         models.Order{},
	models.TableOrderLines:     models.OrderLine{},
	models.TablePosTransaction: models.PosTransaction{},
	models.TableEmployees:      models.Employee{},
	models.TablePayrollEntries: models.PayrollEntry{},
	models.TableWebSessions:    models.WebSession{},
	models.TableAccounts:       models.Account{},
	models.TableJournalHeaders: models.JournalHeader{},
	models.TableJournalLines:   models.JournalLine{},
}

// Columns returns the header row of a table.
func Columns(table models.TableKey) []string {
	if r, ok := zeroRecords[table]; ok {
		return r.Columns()
	}
	return nil
}

// WriteTable writes a header row followed by one row per record. Lines end in
// "\n" so equal datasets give byte-identical files on every platform.
func WriteTable(w io.Writer, table models.TableKey, rows []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(table)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
