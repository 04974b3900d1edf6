package models

import (
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

type PayrollEntry struct {
	PayrollEntryId string
	EmployeeId     string
	// Period is the calendar month (YYYY-MM) the salary is earned in.
	Period      string
	GrossAmount decimal.Decimal
	Currency    string
	CountryCode string
}

func (p PayrollEntry) Columns() []string {
	return []string{"payroll_entry_id", "employee_id", "period", "gross_amount", "currency", "country_code"}
}

func (p PayrollEntry) Values() []string {
	return []string{p.PayrollEntryId, p.EmployeeId, p.Period, utils.FormatMoney(p.GrossAmount), p.Currency, p.CountryCode}
}
