package models

import "strings"

type AccountClass string

const (
	AccountClassAsset     AccountClass = "asset"
	AccountClassLiability AccountClass = "liability"
	AccountClassEquity    AccountClass = "equity"
	AccountClassRevenue   AccountClass = "revenue"
	AccountClassExpense   AccountClass = "expense"
)

// ClassOfAccountCode derives the class from the leading digit of a code.
func ClassOfAccountCode(code string) (AccountClass, bool) {
	if len(code) != 4 {
		return "", false
	}
	switch code[0] {
	case '1':
		return AccountClassAsset, true
	case '2':
		return AccountClassLiability, true
	case '3':
		return AccountClassEquity, true
	case '4':
		return AccountClassRevenue, true
	case '5', '6', '7':
		return AccountClassExpense, true
	}
	return "", false
}

const (
	AccountCodeCash               = "1000"
	AccountCodeBank               = "1010"
	AccountCodeAccountsReceivable = "1100"
	AccountCodeVatPayable         = "2200"
	AccountCodeAccruedPayroll     = "2300"
	AccountCodeRetainedEarnings   = "3000"
	AccountCodeOnlineRevenue      = "4000"
	AccountCodeInStoreRevenue     = "4010"
	AccountCodeSalariesExpense    = "6000"
)

type Account struct {
	AccountCode string
	Name        string
	Class       AccountClass
}

func (a Account) Columns() []string {
	return []string{"account_code", "name", "class"}
}

func (a Account) Values() []string {
	return []string{a.AccountCode, a.Name, string(a.Class)}
}

// ChartOfAccounts is the fixed set of accounts postings may use.
var ChartOfAccounts = []Account{
	{AccountCode: AccountCodeCash, Name: "Cash in Stores", Class: AccountClassAsset},
	{AccountCode: AccountCodeBank, Name: "Bank", Class: AccountClassAsset},
	{AccountCode: AccountCodeAccountsReceivable, Name: "Accounts Receivable", Class: AccountClassAsset},
	{AccountCode: AccountCodeVatPayable, Name: "VAT Payable", Class: AccountClassLiability},
	{AccountCode: AccountCodeAccruedPayroll, Name: "Accrued Payroll", Class: AccountClassLiability},
	{AccountCode: AccountCodeRetainedEarnings, Name: "Retained Earnings", Class: AccountClassEquity},
	{AccountCode: AccountCodeOnlineRevenue, Name: "Sales Revenue - Online", Class: AccountClassRevenue},
	{AccountCode: AccountCodeInStoreRevenue, Name: "Sales Revenue - In-Store", Class: AccountClassRevenue},
	{AccountCode: AccountCodeSalariesExpense, Name: "Salaries and Wages", Class: AccountClassExpense},
}

func GetAccount(code string) (Account, bool) {
	for _, a := range ChartOfAccounts {
		if a.AccountCode == code {
			return a, true
		}
	}
	return Account{}, false
}

// IsPayrollExpenseAccount reports whether postings on code count as payroll expense.
func IsPayrollExpenseAccount(code string) bool {
	return code == AccountCodeSalariesExpense
}

// EntityIdForCountry names the legal entity that books activity in a country.
func EntityIdForCountry(countryCode string) string {
	return "ENT_" + strings.ToUpper(countryCode)
}
