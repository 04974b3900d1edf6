package models

import (
	"time"

	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

type Store struct {
	StoreId     string
	Name        string
	CountryCode string
	City        string
	StoreType   StoreType
	Currency    string
	OpenedOn    time.Time
}

func (s Store) Columns() []string {
	return []string{"store_id", "name", "country_code", "city", "store_type", "currency", "opened_on"}
}

func (s Store) Values() []string {
	return []string{s.StoreId, s.Name, s.CountryCode, s.City, string(s.StoreType), s.Currency, utils.FormatDate(s.OpenedOn)}
}

type Product struct {
	ProductId string
	Sku       string
	Name      string
	Category  ProductCategory
	UnitPrice decimal.Decimal
	Currency  string
}

func (p Product) Columns() []string {
	return []string{"product_id", "sku", "name", "category", "unit_price", "currency"}
}

func (p Product) Values() []string {
	return []string{p.ProductId, p.Sku, p.Name, string(p.Category), utils.FormatMoney(p.UnitPrice), p.Currency}
}

type Customer struct {
	CustomerId   string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	CountryCode  string
	Segment      CustomerSegment
	RegisteredOn time.Time
}

func (c Customer) Columns() []string {
	return []string{"customer_id", "first_name", "last_name", "email", "phone", "country_code", "segment", "registered_on"}
}

func (c Customer) Values() []string {
	return []string{c.CustomerId, c.FirstName, c.LastName, c.Email, c.Phone, c.CountryCode, string(c.Segment), utils.FormatDate(c.RegisteredOn)}
}

type Employee struct {
	EmployeeId   string
	StoreId      string
	FirstName    string
	LastName     string
	Phone        string
	Role         EmployeeRole
	CountryCode  string
	HireDate     time.Time
	AnnualSalary decimal.Decimal
	Currency     string
}

func (e Employee) Columns() []string {
	return []string{"employee_id", "store_id", "first_name", "last_name", "phone", "role", "country_code", "hire_date", "annual_salary", "currency"}
}

func (e Employee) Values() []string {
	return []string{e.EmployeeId, e.StoreId, e.FirstName, e.LastName, e.Phone, string(e.Role), e.CountryCode, utils.FormatDate(e.HireDate), utils.FormatMoney(e.AnnualSalary), e.Currency}
}
