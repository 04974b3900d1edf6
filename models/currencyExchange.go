package models

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

// CurrencyExchange is one rate: 1 unit of FromCurrency = Rate units of ToCurrency,
// effective from EffectiveDate until a later rate for the same pair.
type CurrencyExchange struct {
	FromCurrency  string
	ToCurrency    string
	EffectiveDate time.Time
	Rate          decimal.Decimal
}

func (ce CurrencyExchange) Pair() string {
	return currencyPair(ce.FromCurrency, ce.ToCurrency)
}

func currencyPair(from, to string) string {
	return from + "/" + to
}

// ExchangeRateTable answers rate lookups keyed by (currency pair, effective date).
type ExchangeRateTable struct {
	rates map[string][]CurrencyExchange
}

func NewExchangeRateTable(rates []CurrencyExchange) *ExchangeRateTable {
	t := &ExchangeRateTable{rates: make(map[string][]CurrencyExchange)}
	for _, r := range rates {
		r.EffectiveDate = utils.TruncateDay(r.EffectiveDate)
		t.rates[r.Pair()] = append(t.rates[r.Pair()], r)
	}
	for pair := range t.rates {
		list := t.rates[pair]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].EffectiveDate.Before(list[j].EffectiveDate)
		})
	}
	return t
}

// latest returns the last rate of pair effective on or before day.
func (t *ExchangeRateTable) latest(pair string, day time.Time) (CurrencyExchange, bool) {
	list := t.rates[pair]
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].EffectiveDate.After(day)
	})
	if idx == 0 {
		return CurrencyExchange{}, false
	}
	return list[idx-1], true
}

// Rate selects the latest rate on or before the given date. When only the
// reverse pair is configured its reciprocal is used. A missing rate is a
// ConfigurationError for that pair.
func (t *ExchangeRateTable) Rate(from, to string, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	day := utils.TruncateDay(on)
	if r, ok := t.latest(currencyPair(from, to), day); ok {
		return r.Rate, nil
	}
	if r, ok := t.latest(currencyPair(to, from), day); ok && !r.Rate.IsZero() {
		return decimal.NewFromInt(1).DivRound(r.Rate, 10), nil
	}
	return decimal.Zero, NewConfigurationError(
		"exchange_rates",
		fmt.Sprintf("no rate for %s on or before %s", currencyPair(from, to), utils.FormatDate(day)),
		ErrMissingExchange,
	)
}

// Convert converts amount and rounds the result to the minor unit.
func (t *ExchangeRateTable) Convert(amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, error) {
	rate, err := t.Rate(from, to, on)
	if err != nil {
		return decimal.Zero, err
	}
	return utils.RoundMoney(amount.Mul(rate)), nil
}
