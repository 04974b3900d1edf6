package generator

import (
	"math/rand/v2"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// generateEmployees staffs retail stores round-robin so every store has
// someone to ring up POS transactions once count >= number of stores.
func (g *Generator) generateEmployees(rng *rand.Rand, count int, stores []models.Store) ([]models.Employee, error) {
	if count == 0 {
		return []models.Employee{}, nil
	}
	retail := retailStores(stores)
	if len(retail) == 0 {
		return nil, emptyPool(models.TableEmployees, models.TableStores)
	}

	roles := Allocation(rng, count, g.weights(config.WeightEmployeeRole))
	hireFrom := g.cfg.DateRange.Start.AddDate(-4, 0, 0)

	employees := make([]models.Employee, 0, count)
	for i := 0; i < count; i++ {
		role, err := models.ParseEmployeeRole(roles[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.employee_role", roles[i], err)
		}
		band, ok := g.cfg.SalaryBands[roles[i]]
		if !ok {
			return nil, models.NewConfigurationError("salary_bands."+roles[i], "missing salary band", nil)
		}
		store := retail[i%len(retail)]
		id, _, err := g.nextId(models.TableEmployees)
		if err != nil {
			return nil, err
		}
		first, last := RandomName(rng, store.CountryCode)
		phone, err := PhoneNumber(rng, store.CountryCode)
		if err != nil {
			return nil, err
		}
		min, max := band.Bounds()
		employees = append(employees, models.Employee{
			EmployeeId:   id,
			StoreId:      store.StoreId,
			FirstName:    first,
			LastName:     last,
			Phone:        phone,
			Role:         role,
			CountryCode:  store.CountryCode,
			HireDate:     DateBetween(rng, hireFrom, g.cfg.DateRange.End),
			AnnualSalary: DecimalBetween(rng, min, max),
			Currency:     store.Currency,
		})
	}
	return employees, nil
}

// generatePayroll emits one entry per employee per month, from the hire month
// (or the start of the range) through the month of the range end. Gross is a
// twelfth of the annual salary.
func (g *Generator) generatePayroll(employees []models.Employee) ([]models.PayrollEntry, error) {
	entries := make([]models.PayrollEntry, 0, len(employees)*12)
	for _, e := range employees {
		from := g.cfg.DateRange.Start
		if e.HireDate.After(from) {
			from = e.HireDate
		}
		gross := utils.RoundMoney(e.AnnualSalary.Div(monthsPerYear))
		for _, month := range utils.MonthsBetween(from, g.cfg.DateRange.End) {
			id, _, err := g.nextId(models.TablePayrollEntries)
			if err != nil {
				return nil, err
			}
			entries = append(entries, models.PayrollEntry{
				PayrollEntryId: id,
				EmployeeId:     e.EmployeeId,
				Period:         utils.Period(month),
				GrossAmount:    gross,
				Currency:       e.Currency,
				CountryCode:    e.CountryCode,
			})
		}
	}
	return entries, nil
}
