package generator

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
)

// generatePosTransactions rings up count sales at retail stores, each by an
// employee of that store who was hired by the day of the sale.
// data_quality.orphan_pos_transactions extra rows point at a store id that is
// never allocated.
func (g *Generator) generatePosTransactions(ctx context.Context, rng *rand.Rand, count int, in *Tables) ([]models.PosTransaction, error) {
	orphans := g.cfg.DataQuality.OrphanPosTransactions
	total := count + orphans
	if total == 0 {
		return []models.PosTransaction{}, nil
	}
	retail := retailStores(in.Stores)
	if len(retail) == 0 {
		return nil, emptyPool(models.TablePosTransaction, models.TableStores)
	}
	if len(in.Products) == 0 {
		return nil, emptyPool(models.TablePosTransaction, models.TableProducts)
	}
	staff := make(map[string][]models.Employee)
	for _, e := range in.Employees {
		staff[e.StoreId] = append(staff[e.StoreId], e)
	}
	staffed := make([]models.Store, 0, len(retail))
	for _, s := range retail {
		if len(staff[s.StoreId]) > 0 {
			staffed = append(staffed, s)
		}
	}
	if len(staffed) == 0 {
		return nil, emptyPool(models.TablePosTransaction, models.TableEmployees)
	}

	orphanStoreId, err := g.alloc.Format(models.TableStores, 0)
	if err != nil {
		return nil, err
	}
	methods := Allocation(rng, total, g.weights(config.WeightPaymentMethod))
	statuses := Allocation(rng, total, g.weights(config.WeightPosPaymentStatus))
	opts := g.cfg.Pos

	txns := make([]models.PosTransaction, 0, total)
	for i := 0; i < total; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		method, err := models.ParsePaymentMethod(methods[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.payment_method", methods[i], err)
		}
		status, err := models.ParsePaymentStatus(statuses[i])
		if err != nil {
			return nil, models.NewConfigurationError("distribution_weights.pos_payment_status", statuses[i], err)
		}
		when := TimeBetweenHours(rng, rngDateInRange(rng, g.cfg), opts.OpeningHour, opts.ClosingHour)
		store := pick(rng, staffed)
		onDuty := employedOn(staff[store.StoreId], when)
		if len(onDuty) == 0 {
			// nobody hired yet; the sale moves to a day after the store's first hire
			first := earliestHire(staff[store.StoreId])
			when = TimeBetweenHours(rng, DateBetween(rng, first.HireDate, g.cfg.DateRange.End), opts.OpeningHour, opts.ClosingHour)
			onDuty = employedOn(staff[store.StoreId], when)
		}
		employee := pick(rng, onDuty)
		vatRate, err := g.vat.Rate(store.CountryCode)
		if err != nil {
			return nil, err
		}

		items := IntBetween(rng, opts.ItemsMin, opts.ItemsMax)
		prices := make([]decimal.Decimal, items)
		for n := range prices {
			price, err := g.localPrice(pick(rng, in.Products).UnitPrice, store.Currency, when)
			if err != nil {
				return nil, err
			}
			prices[n] = price
		}
		subtotal := utils.SumMoney(prices...)
		tax := utils.CalculateTaxAmount(subtotal, vatRate)

		storeId := store.StoreId
		if i >= count {
			storeId = orphanStoreId
		}
		txns = append(txns, models.PosTransaction{
			StoreId:         storeId,
			EmployeeId:      employee.EmployeeId,
			ItemCount:       items,
			Subtotal:        subtotal,
			Tax:             tax,
			Total:           subtotal.Add(tax),
			Currency:        store.Currency,
			PaymentMethod:   method,
			PaymentStatus:   status,
			TransactionDate: when,
		})
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].TransactionDate.Before(txns[j].TransactionDate)
	})
	for i := range txns {
		id, _, err := g.nextId(models.TablePosTransaction)
		if err != nil {
			return nil, err
		}
		txns[i].TransactionId = id
	}
	return txns, nil
}

// employedOn returns the staff hired on or before the day of at.
func employedOn(staff []models.Employee, at time.Time) []models.Employee {
	day := utils.TruncateDay(at)
	out := make([]models.Employee, 0, len(staff))
	for _, e := range staff {
		if !utils.TruncateDay(e.HireDate).After(day) {
			out = append(out, e)
		}
	}
	return out
}

func earliestHire(staff []models.Employee) models.Employee {
	first := staff[0]
	for _, e := range staff[1:] {
		if e.HireDate.Before(first.HireDate) {
			first = e
		}
	}
	return first
}
