package models

import (
	"github.com/shopspring/decimal"
)

type Country struct {
	Code     string
	Name     string
	Currency string
	// VatRate is the standard rate in percent.
	VatRate decimal.Decimal
	Cities  []string
}

var countries = map[string]Country{
	"NL": {Code: "NL", Name: "Netherlands", Currency: "EUR", VatRate: decimal.NewFromInt(21), Cities: []string{"Amsterdam", "Rotterdam", "Utrecht", "Eindhoven", "The Hague"}},
	"DE": {Code: "DE", Name: "Germany", Currency: "EUR", VatRate: decimal.NewFromInt(19), Cities: []string{"Berlin", "Hamburg", "Munich", "Cologne", "Frankfurt"}},
	"FR": {Code: "FR", Name: "France", Currency: "EUR", VatRate: decimal.NewFromInt(20), Cities: []string{"Paris", "Lyon", "Lille", "Marseille", "Bordeaux"}},
	"BE": {Code: "BE", Name: "Belgium", Currency: "EUR", VatRate: decimal.NewFromInt(21), Cities: []string{"Brussels", "Antwerp", "Ghent", "Liege"}},
	"LU": {Code: "LU", Name: "Luxembourg", Currency: "EUR", VatRate: decimal.NewFromInt(17), Cities: []string{"Luxembourg", "Esch-sur-Alzette"}},
	"AT": {Code: "AT", Name: "Austria", Currency: "EUR", VatRate: decimal.NewFromInt(20), Cities: []string{"Vienna", "Graz", "Salzburg"}},
	"IE": {Code: "IE", Name: "Ireland", Currency: "EUR", VatRate: decimal.NewFromInt(23), Cities: []string{"Dublin", "Cork", "Galway"}},
	"DK": {Code: "DK", Name: "Denmark", Currency: "DKK", VatRate: decimal.NewFromInt(25), Cities: []string{"Copenhagen", "Aarhus", "Odense"}},
	"SE": {Code: "SE", Name: "Sweden", Currency: "SEK", VatRate: decimal.NewFromInt(25), Cities: []string{"Stockholm", "Gothenburg", "Malmo"}},
	"PL": {Code: "PL", Name: "Poland", Currency: "PLN", VatRate: decimal.NewFromInt(23), Cities: []string{"Warsaw", "Krakow", "Gdansk", "Wroclaw"}},
}

func GetCountry(code string) (Country, bool) {
	c, ok := countries[code]
	return c, ok
}

// VatTable maps country code to VAT percent. It starts from the built-in
// standard rates and applies per-run overrides.
type VatTable map[string]decimal.Decimal

func NewVatTable(overrides map[string]decimal.Decimal) VatTable {
	t := make(VatTable, len(countries))
	for code, c := range countries {
		t[code] = c.VatRate
	}
	for code, rate := range overrides {
		t[code] = rate
	}
	return t
}

func (t VatTable) Rate(countryCode string) (decimal.Decimal, error) {
	rate, ok := t[countryCode]
	if !ok {
		return decimal.Zero, ErrUnknownCountry
	}
	return rate, nil
}
