package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/config"
	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/sequence"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Tables holds the generated records. A table stage writes only its own
// fields and reads the fields of earlier stage groups, which are complete
// and no longer written once the next group starts.
type Tables struct {
	Stores          []models.Store
	Products        []models.Product
	Customers       []models.Customer
	Employees       []models.Employee
	Orders          []models.Order
	OrderLines      []models.OrderLine
	PosTransactions []models.PosTransaction
	PayrollEntries  []models.PayrollEntry
	WebSessions     []models.WebSession
}

// Generator produces the operations, pos, hr and webshop tables.
type Generator struct {
	cfg    *config.GenerationConfig
	alloc  *sequence.Allocator
	vat    models.VatTable
	rates  *models.ExchangeRateTable
	logger *logrus.Logger
}

func New(cfg *config.GenerationConfig, alloc *sequence.Allocator, rates *models.ExchangeRateTable, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Generator{
		cfg:    cfg,
		alloc:  alloc,
		vat:    cfg.VatTable(),
		rates:  rates,
		logger: logger,
	}
}

// Generate builds one table stage. count is the requested size; derived
// tables (order lines, payroll entries) ignore it.
func (g *Generator) Generate(ctx context.Context, table models.TableKey, count int, out *Tables) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if count < 0 {
		return models.NewConfigurationError("record_counts."+table.String(), "must not be negative", nil)
	}
	rng := NewTableRand(g.cfg.RandomSeed, table)

	var err error
	switch table {
	case models.TableStores:
		out.Stores, err = g.generateStores(rng, count)
	case models.TableProducts:
		out.Products, err = g.generateProducts(rng, count)
	case models.TableCustomers:
		out.Customers, err = g.generateCustomers(rng, count)
	case models.TableEmployees:
		out.Employees, err = g.generateEmployees(rng, count, out.Stores)
	case models.TableOrders:
		out.Orders, out.OrderLines, err = g.generateOnlineOrders(ctx, rng, count, out)
	case models.TablePayrollEntries:
		out.PayrollEntries, err = g.generatePayroll(out.Employees)
	case models.TablePosTransaction:
		out.PosTransactions, err = g.generatePosTransactions(ctx, rng, count, out)
	case models.TableWebSessions:
		out.WebSessions, err = g.generateWebSessions(rng, count, out)
	default:
		return models.NewConfigurationError("record_counts."+table.String(), "no generator for table", nil)
	}
	if err != nil {
		return err
	}
	stage, _ := utils.GetStageFromContext(ctx)
	g.logger.WithFields(logrus.Fields{
		"field": "generate",
		"stage": stage,
		"table": table.String(),
		"count": count,
	}).Debug("table generated")
	return nil
}

func (g *Generator) nextId(table models.TableKey) (string, int64, error) {
	id, err := g.alloc.AllocateFor(table)
	if err != nil {
		return "", 0, err
	}
	return id.String(), id.Sequence, nil
}

func (g *Generator) weights(field string) map[string]float64 {
	return g.cfg.Weights(field)
}

// localPrice converts a catalogue price (reporting currency) into the
// currency of the country it is sold in.
func (g *Generator) localPrice(price decimal.Decimal, currency string, on time.Time) (decimal.Decimal, error) {
	return g.rates.Convert(price, g.cfg.ReportingCurrency, currency, on)
}

func countryOf(code string) (models.Country, error) {
	c, ok := models.GetCountry(code)
	if !ok {
		return models.Country{}, fmt.Errorf("%w: %s", models.ErrUnknownCountry, code)
	}
	return c, nil
}

func emptyPool(table, reference models.TableKey) error {
	return &models.ReferentialIntegrityError{Table: table, Reference: reference}
}

func retailStores(stores []models.Store) []models.Store {
	out := make([]models.Store, 0, len(stores))
	for _, s := range stores {
		if s.StoreType == models.StoreTypeRetail {
			out = append(out, s)
		}
	}
	return out
}

func rngDateInRange(rng *rand.Rand, cfg *config.GenerationConfig) time.Time {
	return DateBetween(rng, cfg.DateRange.Start, cfg.DateRange.End)
}
