package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

type draftLine struct {
	accountCode string
	debit       decimal.Decimal
	credit      decimal.Decimal
	reference   string
	description string
}

// journalBuilder collects the lines of one header. build rounds every line to
// the minor unit and pushes any residual into the last line, so the header
// balances to the cent.
type journalBuilder struct {
	header models.JournalHeader
	lines  []draftLine
}

func newJournalBuilder(header models.JournalHeader) *journalBuilder {
	return &journalBuilder{header: header, lines: make([]draftLine, 0, 3)}
}

func (b *journalBuilder) debit(accountCode string, amount decimal.Decimal, reference string, description string) *journalBuilder {
	b.lines = append(b.lines, draftLine{accountCode: accountCode, debit: amount, credit: decimal.Zero, reference: reference, description: description})
	return b
}

func (b *journalBuilder) credit(accountCode string, amount decimal.Decimal, reference string, description string) *journalBuilder {
	b.lines = append(b.lines, draftLine{accountCode: accountCode, debit: decimal.Zero, credit: amount, reference: reference, description: description})
	return b
}

func (b *journalBuilder) build(alloc *sequence.Allocator) (models.Journal, error) {
	if len(b.lines) < 2 {
		return models.Journal{}, fmt.Errorf("journal for %s %s needs at least two lines", b.header.SourceType, b.header.SourceId)
	}
	lines := make([]draftLine, len(b.lines))
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, l := range b.lines {
		if _, ok := models.GetAccount(l.accountCode); !ok {
			return models.Journal{}, fmt.Errorf("account %s is not in the chart of accounts", l.accountCode)
		}
		l.debit = utils.RoundMoney(l.debit)
		l.credit = utils.RoundMoney(l.credit)
		totalDebit = totalDebit.Add(l.debit)
		totalCredit = totalCredit.Add(l.credit)
		lines[i] = l
	}

	if residual := totalCredit.Sub(totalDebit); !residual.IsZero() {
		last := &lines[len(lines)-1]
		if last.credit.IsZero() {
			last.debit = last.debit.Add(residual)
			totalDebit = totalDebit.Add(residual)
		} else {
			last.credit = last.credit.Sub(residual)
			totalCredit = totalCredit.Sub(residual)
		}
		if last.debit.IsNegative() || last.credit.IsNegative() {
			return models.Journal{}, fmt.Errorf("journal for %s %s cannot absorb residual %s", b.header.SourceType, b.header.SourceId, residual)
		}
	}

	headerId, err := alloc.AllocateFor(models.TableJournalHeaders)
	if err != nil {
		return models.Journal{}, err
	}
	header := b.header
	header.JournalId = headerId.String()
	header.TotalDebit = totalDebit
	header.TotalCredit = totalCredit

	lineIds, err := alloc.AllocateN(models.TableJournalLines, len(lines))
	if err != nil {
		return models.Journal{}, err
	}
	out := models.Journal{Header: header, Lines: make([]models.JournalLine, 0, len(lines))}
	for i, l := range lines {
		out.Lines = append(out.Lines, models.JournalLine{
			LineId:       lineIds[i].String(),
			JournalId:    header.JournalId,
			LineNo:       i + 1,
			AccountCode:  l.accountCode,
			DebitAmount:  l.debit,
			CreditAmount: l.credit,
			Reference:    l.reference,
			Description:  l.description,
		})
	}
	return out, nil
}
