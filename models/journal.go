package models

import (
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

type JournalHeader struct {
	JournalId   string
	EntityId    string
	Period      string
	JournalDate time.Time
	SourceType  JournalSourceType
	SourceId    string
	Currency    string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Description string
}

func (h JournalHeader) Columns() []string {
	return []string{"journal_id", "entity_id", "period", "journal_date", "source_type", "source_id", "currency", "total_debit", "total_credit", "description"}
}

func (h JournalHeader) Values() []string {
	return []string{
		h.JournalId,
		h.EntityId,
		h.Period,
		utils.FormatDate(h.JournalDate),
		string(h.SourceType),
		h.SourceId,
		h.Currency,
		utils.FormatMoney(h.TotalDebit),
		utils.FormatMoney(h.TotalCredit),
		h.Description,
	}
}

type JournalLine struct {
	LineId       string
	JournalId    string
	LineNo       int
	AccountCode  string
	DebitAmount  decimal.Decimal
	CreditAmount decimal.Decimal
	// Reference ties lines of different journals together, e.g. the accrual
	// and payment of one payroll entry.
	Reference   string
	Description string
}

func (l JournalLine) Columns() []string {
	return []string{"line_id", "journal_id", "line_no", "account_code", "debit_amount", "credit_amount", "reference", "description"}
}

func (l JournalLine) Values() []string {
	return []string{
		l.LineId,
		l.JournalId,
		utils.FormatInt(l.LineNo),
		l.AccountCode,
		utils.FormatMoney(l.DebitAmount),
		utils.FormatMoney(l.CreditAmount),
		l.Reference,
		l.Description,
	}
}

// Journal is a header together with the lines it owns.
type Journal struct {
	Header JournalHeader
	Lines  []JournalLine
}

// LineTotals sums debits and credits over the lines.
func (j Journal) LineTotals() (decimal.Decimal, decimal.Decimal) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range j.Lines {
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
	}
	return debit, credit
}

// IsBalanced checks double entry to the cent, both on the lines and on the header totals.
func (j Journal) IsBalanced() bool {
	debit, credit := j.LineTotals()
	return debit.Equal(credit) &&
		j.Header.TotalDebit.Equal(debit) &&
		j.Header.TotalCredit.Equal(credit)
}
