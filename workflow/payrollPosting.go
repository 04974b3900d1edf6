package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
)

// PostPayroll books two journals per entry: the accrual in the entry's period
// (Dr 6000 / Cr 2300) and the payment in the following period (Dr 2300 /
// Cr 1010). Both liability lines reference the payroll entry id.
func (p *Poster) PostPayroll(ctx context.Context, entries []models.PayrollEntry) ([]models.Journal, error) {
	journals := make([]models.Journal, 0, len(entries)*2)
	for i, e := range entries {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		accrual, payment, err := p.postPayrollEntry(e)
		if err != nil {
			config.LogError(p.logger, "payrollPosting.go", "PostPayroll", "postPayrollEntry", e.PayrollEntryId, err)
			return nil, err
		}
		journals = append(journals, accrual, payment)
	}
	return journals, nil
}

// AccrualDate is the last day of the period a payroll entry is earned in.
func AccrualDate(e models.PayrollEntry) (time.Time, error) {
	month, err := time.Parse(utils.PeriodLayout, e.Period)
	if err != nil {
		return time.Time{}, err
	}
	return utils.LastOfMonth(month), nil
}

func (p *Poster) postPayrollEntry(e models.PayrollEntry) (models.Journal, models.Journal, error) {
	accrualDate, err := AccrualDate(e)
	if err != nil {
		return models.Journal{}, models.Journal{}, err
	}
	paymentDate := accrualDate.AddDate(0, 0, 1)
	// one conversion at the accrual date, so the liability clears exactly
	gross, err := p.rates.Convert(e.GrossAmount, e.Currency, p.reportingCurrency, accrualDate)
	if err != nil {
		return models.Journal{}, models.Journal{}, err
	}
	entity := models.EntityIdForCountry(e.CountryCode)

	accrual, err := newJournalBuilder(models.JournalHeader{
		EntityId:    entity,
		Period:      e.Period,
		JournalDate: accrualDate,
		SourceType:  models.JournalSourcePayrollAccrual,
		SourceId:    e.PayrollEntryId,
		Currency:    p.reportingCurrency,
		Description: "Payroll accrual " + e.EmployeeId + " " + e.Period,
	}).
		debit(models.AccountCodeSalariesExpense, gross, e.EmployeeId, "Salaries").
		credit(models.AccountCodeAccruedPayroll, gross, e.PayrollEntryId, "Accrued payroll").
		build(p.alloc)
	if err != nil {
		return models.Journal{}, models.Journal{}, err
	}

	payment, err := newJournalBuilder(models.JournalHeader{
		EntityId:    entity,
		Period:      utils.Period(paymentDate),
		JournalDate: paymentDate,
		SourceType:  models.JournalSourcePayrollPayment,
		SourceId:    e.PayrollEntryId,
		Currency:    p.reportingCurrency,
		Description: "Payroll payment " + e.EmployeeId + " " + e.Period,
	}).
		debit(models.AccountCodeAccruedPayroll, gross, e.PayrollEntryId, "Accrued payroll").
		credit(models.AccountCodeBank, gross, e.PayrollEntryId, "Bank").
		build(p.alloc)
	if err != nil {
		return models.Journal{}, models.Journal{}, err
	}
	return accrual, payment, nil
}
