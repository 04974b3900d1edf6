package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/sirupsen/logrus"
)

// Poster turns orders and payroll into balanced journals in the reporting
// currency. Journal ids are allocated in call order, so callers post orders
// before payroll.
type Poster struct {
	alloc             *sequence.Allocator
	rates             *models.ExchangeRateTable
	reportingCurrency string
	logger            *logrus.Logger
}

func NewPoster(alloc *sequence.Allocator, rates *models.ExchangeRateTable, reportingCurrency string, logger *logrus.Logger) *Poster {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Poster{alloc: alloc, rates: rates, reportingCurrency: reportingCurrency, logger: logger}
}

// PostOrders books one journal per postable order:
//
//	Cr 4000/4010 revenue   subtotal
//	Cr 2200 VAT payable    tax
//	Dr 1100 AR / 1000 cash total
func (p *Poster) PostOrders(ctx context.Context, orders []models.Order) ([]models.Journal, error) {
	journals := make([]models.Journal, 0, len(orders))
	for i, o := range orders {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !o.Status.IsPostable() {
			continue
		}
		j, err := p.postOrder(o)
		if err != nil {
			config.LogError(p.logger, "orderPosting.go", "PostOrders", "postOrder", o.OrderId, err)
			return nil, err
		}
		journals = append(journals, j)
	}
	return journals, nil
}

func (p *Poster) postOrder(o models.Order) (models.Journal, error) {
	subtotal, err := p.rates.Convert(o.Subtotal, o.Currency, p.reportingCurrency, o.OrderDate)
	if err != nil {
		return models.Journal{}, err
	}
	tax, err := p.rates.Convert(o.Tax, o.Currency, p.reportingCurrency, o.OrderDate)
	if err != nil {
		return models.Journal{}, err
	}
	total, err := p.rates.Convert(o.Total, o.Currency, p.reportingCurrency, o.OrderDate)
	if err != nil {
		return models.Journal{}, err
	}

	revenueAccount, settlementAccount := models.AccountCodeOnlineRevenue, models.AccountCodeAccountsReceivable
	if o.Channel == models.ChannelInStore {
		revenueAccount, settlementAccount = models.AccountCodeInStoreRevenue, models.AccountCodeCash
	}

	header := models.JournalHeader{
		EntityId:    models.EntityIdForCountry(o.CountryCode),
		Period:      utils.Period(o.OrderDate),
		JournalDate: utils.TruncateDay(o.OrderDate),
		SourceType:  models.JournalSourceOrder,
		SourceId:    o.OrderId,
		Currency:    p.reportingCurrency,
		Description: "Sales order " + o.OrderId + " (" + string(o.Channel) + ")",
	}
	return newJournalBuilder(header).
		credit(revenueAccount, subtotal, o.OrderId, "Revenue").
		credit(models.AccountCodeVatPayable, tax, o.OrderId, "VAT "+o.VatRate.StringFixed(2)+"%").
		debit(settlementAccount, total, o.OrderId, "Settlement").
		build(p.alloc)
}
