package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// Recognised distribution_weights fields.
const (
	WeightCountry          = "country"
	WeightOrderStatus      = "order_status"
	WeightPaymentMethod    = "payment_method"
	WeightPosPaymentStatus = "pos_payment_status"
	WeightCustomerSegment  = "customer_segment"
	WeightProductCategory  = "product_category"
	WeightEmployeeRole     = "employee_role"
	WeightDevice           = "device"
	WeightTrafficSource    = "traffic_source"
	WeightSessionLogin     = "session_login"
)

const (
	SessionLoggedIn  = "logged_in"
	SessionAnonymous = "anonymous"
)

const (
	CounterStoreFile   = "file"
	CounterStoreRedis  = "redis"
	CounterStoreDB     = "db"
	CounterStoreMemory = "memory"
)

type DateRange struct {
	Start time.Time `yaml:"start" validate:"required"`
	End   time.Time `yaml:"end" validate:"required"`
}

// Band bounds a sampled amount, inclusive.
type Band struct {
	Min float64 `yaml:"min" validate:"gte=0"`
	Max float64 `yaml:"max" validate:"gtefield=Min"`
}

func (b Band) Bounds() (decimal.Decimal, decimal.Decimal) {
	return decimal.NewFromFloat(b.Min), decimal.NewFromFloat(b.Max)
}

type Tolerance struct {
	Revenue     float64 `yaml:"revenue" validate:"gte=0,lte=1"`
	Payroll     float64 `yaml:"payroll" validate:"gte=0,lte=1"`
	Referential float64 `yaml:"referential" validate:"gte=0,lte=1"`
	// *_fail is the upper bound of the WARN band. Unset means no WARN band.
	RevenueFail     *float64 `yaml:"revenue_fail,omitempty" validate:"omitempty,gte=0,lte=1"`
	PayrollFail     *float64 `yaml:"payroll_fail,omitempty" validate:"omitempty,gte=0,lte=1"`
	ReferentialFail *float64 `yaml:"referential_fail,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Thresholds returns (pass, fail) bounds for a check. A value at or below pass
// is PASS, at or below fail is WARN, anything above is FAIL.
func (t Tolerance) Thresholds(check string) (decimal.Decimal, decimal.Decimal) {
	pick := func(pass float64, fail *float64) (decimal.Decimal, decimal.Decimal) {
		p := decimal.NewFromFloat(pass)
		if fail == nil || *fail < pass {
			return p, p
		}
		return p, decimal.NewFromFloat(*fail)
	}
	switch check {
	case models.CheckRevenueVariance:
		return pick(t.Revenue, t.RevenueFail)
	case models.CheckPayrollVariance:
		return pick(t.Payroll, t.PayrollFail)
	case models.CheckReferentialCompleteness:
		return pick(t.Referential, t.ReferentialFail)
	}
	return decimal.Zero, decimal.Zero
}

type OrderOptions struct {
	LinesMin    int `yaml:"lines_min" validate:"gte=1"`
	LinesMax    int `yaml:"lines_max" validate:"gtefield=LinesMin"`
	QuantityMax int `yaml:"quantity_max" validate:"gte=1"`
}

type PosOptions struct {
	ItemsMin    int `yaml:"items_min" validate:"gte=1"`
	ItemsMax    int `yaml:"items_max" validate:"gtefield=ItemsMin"`
	OpeningHour int `yaml:"opening_hour" validate:"gte=0,lte=23"`
	ClosingHour int `yaml:"closing_hour" validate:"gtfield=OpeningHour,lte=24"`
}

type WebshopOptions struct {
	PageViewsMin int `yaml:"page_views_min" validate:"gte=1"`
	PageViewsMax int `yaml:"page_views_max" validate:"gtefield=PageViewsMin"`
}

type IdentifierOptions struct {
	Scope string `yaml:"scope" validate:"required,alphanum,uppercase"`
	Base  int64  `yaml:"base" validate:"gte=1"`
	Width int    `yaml:"width" validate:"gte=1,lte=12"`
	// Year is stamped into every identifier; 0 means the year of date_range.start.
	Year int `yaml:"year" validate:"gte=0,lte=9999"`
}

type DataQualityOptions struct {
	// OrphanPosTransactions injects POS transactions that reference a store
	// that does not exist, to exercise the data-quality path downstream.
	OrphanPosTransactions int `yaml:"orphan_pos_transactions" validate:"gte=0"`
}

type OutputOptions struct {
	Dir          string `yaml:"dir" validate:"required"`
	CounterStore string `yaml:"counter_store" validate:"oneof=file redis db memory"`
	CounterFile  string `yaml:"counter_file"`
	// CounterNamespace separates counter state of unrelated datasets in redis and db stores.
	CounterNamespace string `yaml:"counter_namespace"`
}

type ExchangeRateInput struct {
	Pair          string    `yaml:"pair" validate:"required"`
	EffectiveDate time.Time `yaml:"effective_date" validate:"required"`
	Rate          string    `yaml:"rate" validate:"required"`
}

// GenerationConfig enumerates every recognised generation option.
// DefaultGenerationConfig documents the defaults.
type GenerationConfig struct {
	RandomSeed          int64                         `yaml:"random_seed"`
	RecordCounts        map[string]int                `yaml:"record_counts" validate:"required"`
	DateRange           DateRange                     `yaml:"date_range"`
	DistributionWeights map[string]map[string]float64 `yaml:"distribution_weights"`
	Tolerance           Tolerance                     `yaml:"tolerance"`
	PriceBands          map[string]Band               `yaml:"price_bands" validate:"dive"`
	SalaryBands         map[string]Band               `yaml:"salary_bands" validate:"dive"`
	Order               OrderOptions                  `yaml:"order"`
	Pos                 PosOptions                    `yaml:"pos"`
	Webshop             WebshopOptions                `yaml:"webshop"`
	ReportingCurrency   string                        `yaml:"reporting_currency" validate:"required,len=3,uppercase"`
	ExchangeRates       []ExchangeRateInput           `yaml:"exchange_rates" validate:"dive"`
	VatRates            map[string]float64            `yaml:"vat_rates"`
	Identifiers         IdentifierOptions             `yaml:"identifiers"`
	DataQuality         DataQualityOptions            `yaml:"data_quality"`
	Output              OutputOptions                 `yaml:"output"`
}

// CountableTables are the tables whose size is driven by record_counts; every
// other table is derived (order lines, payroll entries, journals).
var CountableTables = []models.TableKey{
	models.TableStores,
	models.TableProducts,
	models.TableCustomers,
	models.TableOrders,
	models.TablePosTransaction,
	models.TableEmployees,
	models.TableWebSessions,
}

func DefaultGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		RandomSeed: 42,
		RecordCounts: map[string]int{
			models.TableStores.String():         12,
			models.TableProducts.String():       150,
			models.TableCustomers.String():      500,
			models.TableOrders.String():         335,
			models.TablePosTransaction.String(): 1915,
			models.TableEmployees.String():      60,
			models.TableWebSessions.String():    4000,
		},
		DateRange: DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		DistributionWeights: DefaultDistributionWeights(),
		Tolerance:           Tolerance{},
		PriceBands: map[string]Band{
			string(models.ProductCategoryApparel):     {Min: 15, Max: 120},
			string(models.ProductCategoryFootwear):    {Min: 40, Max: 180},
			string(models.ProductCategoryAccessories): {Min: 5, Max: 60},
			string(models.ProductCategoryHome):        {Min: 10, Max: 250},
		},
		SalaryBands: map[string]Band{
			string(models.EmployeeRoleCashier):        {Min: 24000, Max: 30000},
			string(models.EmployeeRoleSalesAssociate): {Min: 26000, Max: 34000},
			string(models.EmployeeRoleStockAssociate): {Min: 25000, Max: 31000},
			string(models.EmployeeRoleStoreManager):   {Min: 42000, Max: 60000},
		},
		Order:             OrderOptions{LinesMin: 1, LinesMax: 4, QuantityMax: 3},
		Pos:               PosOptions{ItemsMin: 1, ItemsMax: 8, OpeningHour: 9, ClosingHour: 21},
		Webshop:           WebshopOptions{PageViewsMin: 1, PageViewsMax: 25},
		ReportingCurrency: "EUR",
		VatRates:          map[string]float64{},
		Identifiers:       IdentifierOptions{Scope: "EU", Base: 1, Width: 6},
		Output:            OutputOptions{Dir: "out", CounterStore: CounterStoreFile, CounterNamespace: "synth"},
	}
}

func DefaultDistributionWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		WeightCountry:          {"NL": 40, "DE": 25, "FR": 15, "BE": 15, "LU": 5},
		WeightOrderStatus:      {"completed": 70, "delivered": 20, "shipped": 7, "cancelled": 3},
		WeightPaymentMethod:    {"card": 55, "cash": 35, "mobile": 10},
		WeightPosPaymentStatus: {"completed": 98, "voided": 2},
		WeightCustomerSegment:  {"regular": 70, "loyalty": 25, "business": 5},
		WeightProductCategory:  {"apparel": 30, "footwear": 20, "accessories": 25, "home": 25},
		WeightEmployeeRole:     {"cashier": 45, "sales_associate": 30, "stock_associate": 15, "store_manager": 10},
		WeightDevice:           {"mobile": 60, "desktop": 32, "tablet": 8},
		WeightTrafficSource:    {"organic": 35, "paid_search": 25, "social": 15, "email": 10, "direct": 15},
		WeightSessionLogin:     {SessionLoggedIn: 40, SessionAnonymous: 60},
	}
}

// LoadGenerationConfig starts from the defaults, overlays the YAML file at path
// (if any) and the SYNTH_* environment, and validates the result.
func LoadGenerationConfig(path string) (*GenerationConfig, error) {
	cfg := DefaultGenerationConfig()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, models.NewConfigurationError("config", "cannot read "+path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, models.NewConfigurationError("config", "cannot parse "+path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *GenerationConfig) applyEnvOverrides() error {
	if v := strings.TrimSpace(os.Getenv("SYNTH_RANDOM_SEED")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return models.NewConfigurationError("SYNTH_RANDOM_SEED", "must be an integer", err)
		}
		c.RandomSeed = seed
	}
	if v := strings.TrimSpace(os.Getenv("SYNTH_OUTPUT_DIR")); v != "" {
		c.Output.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNTH_COUNTER_STORE")); v != "" {
		c.Output.CounterStore = strings.ToLower(v)
	}
	return nil
}

var (
	validate        = validator.New()
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}/[A-Z]{3}$`)
)

// Validate runs struct tags first, then the semantic rules tags cannot express.
// Every failure is a *models.ConfigurationError.
func (c *GenerationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return models.NewConfigurationError(fe.Namespace(), "failed '"+fe.Tag()+"' rule", err)
		}
		return models.NewConfigurationError("config", "invalid", err)
	}
	if c.DateRange.End.Before(c.DateRange.Start) {
		return models.NewConfigurationError("date_range", "end is before start", nil)
	}
	if err := c.validateRecordCounts(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	for category := range c.PriceBands {
		if _, err := models.ParseProductCategory(category); err != nil {
			return models.NewConfigurationError("price_bands."+category, "unknown product category", err)
		}
	}
	for role := range c.SalaryBands {
		if _, err := models.ParseEmployeeRole(role); err != nil {
			return models.NewConfigurationError("salary_bands."+role, "unknown employee role", err)
		}
	}
	for code, rate := range c.VatRates {
		if _, ok := models.GetCountry(code); !ok {
			return models.NewConfigurationError("vat_rates."+code, "unknown country", models.ErrUnknownCountry)
		}
		if rate < 0 || rate > 100 {
			return models.NewConfigurationError("vat_rates."+code, "rate must be between 0 and 100", nil)
		}
	}
	if _, err := c.CurrencyExchanges(); err != nil {
		return err
	}
	return nil
}

func (c *GenerationConfig) validateRecordCounts() error {
	known := make(map[string]bool, len(CountableTables))
	for _, k := range CountableTables {
		known[k.String()] = true
	}
	for key, n := range c.RecordCounts {
		if !known[key] {
			return models.NewConfigurationError("record_counts."+key, "unknown table", nil)
		}
		if n < 0 {
			return models.NewConfigurationError("record_counts."+key, "must not be negative", nil)
		}
	}
	return nil
}

var weightValueParsers = map[string]func(string) error{
	WeightCountry: func(s string) error {
		if _, ok := models.GetCountry(s); !ok {
			return models.ErrUnknownCountry
		}
		return nil
	},
	WeightOrderStatus:      func(s string) error { _, err := models.ParseOrderStatus(s); return err },
	WeightPaymentMethod:    func(s string) error { _, err := models.ParsePaymentMethod(s); return err },
	WeightPosPaymentStatus: func(s string) error { _, err := models.ParsePaymentStatus(s); return err },
	WeightCustomerSegment:  func(s string) error { _, err := models.ParseCustomerSegment(s); return err },
	WeightProductCategory:  func(s string) error { _, err := models.ParseProductCategory(s); return err },
	WeightEmployeeRole:     func(s string) error { _, err := models.ParseEmployeeRole(s); return err },
	WeightDevice:           func(s string) error { _, err := models.ParseDevice(s); return err },
	WeightTrafficSource:    func(s string) error { _, err := models.ParseTrafficSource(s); return err },
	WeightSessionLogin: func(s string) error {
		if s != SessionLoggedIn && s != SessionAnonymous {
			return errors.New("invalid session login value")
		}
		return nil
	},
}

func (c *GenerationConfig) validateWeights() error {
	for field, weights := range c.DistributionWeights {
		parse, ok := weightValueParsers[field]
		if !ok {
			return models.NewConfigurationError("distribution_weights."+field, "unknown field", nil)
		}
		total := 0.0
		for value, w := range weights {
			if err := parse(value); err != nil {
				return models.NewConfigurationError("distribution_weights."+field+"."+value, "invalid value", err)
			}
			if w < 0 {
				return models.NewConfigurationError("distribution_weights."+field+"."+value, "weight must not be negative", nil)
			}
			total += w
		}
		if total <= 0 {
			return models.NewConfigurationError("distribution_weights."+field, "weights must sum to more than zero", nil)
		}
	}
	return nil
}

// Count returns the configured size of a table (0 when not configured).
func (c *GenerationConfig) Count(table models.TableKey) int {
	return c.RecordCounts[table.String()]
}

// Weights returns the configured weights of a field, falling back to the default.
func (c *GenerationConfig) Weights(field string) map[string]float64 {
	if w, ok := c.DistributionWeights[field]; ok && len(w) > 0 {
		return w
	}
	return DefaultDistributionWeights()[field]
}

// IdentifierYear is the year stamped into identifiers.
func (c *GenerationConfig) IdentifierYear() int {
	if c.Identifiers.Year > 0 {
		return c.Identifiers.Year
	}
	return c.DateRange.Start.UTC().Year()
}

func (c *GenerationConfig) VatTable() models.VatTable {
	overrides := make(map[string]decimal.Decimal, len(c.VatRates))
	for code, rate := range c.VatRates {
		overrides[code] = decimal.NewFromFloat(rate)
	}
	return models.NewVatTable(overrides)
}

// CurrencyExchanges parses the exchange_rates section.
func (c *GenerationConfig) CurrencyExchanges() ([]models.CurrencyExchange, error) {
	out := make([]models.CurrencyExchange, 0, len(c.ExchangeRates))
	for i, r := range c.ExchangeRates {
		field := fmt.Sprintf("exchange_rates[%d]", i)
		pair := strings.ToUpper(strings.TrimSpace(r.Pair))
		if !currencyPattern.MatchString(pair) {
			return nil, models.NewConfigurationError(field+".pair", "must look like DKK/EUR", nil)
		}
		rate, err := utils.ParseDecimal(r.Rate)
		if err != nil {
			return nil, models.NewConfigurationError(field+".rate", "not a decimal", err)
		}
		if !rate.IsPositive() {
			return nil, models.NewConfigurationError(field+".rate", "must be positive", nil)
		}
		out = append(out, models.CurrencyExchange{
			FromCurrency:  pair[:3],
			ToCurrency:    pair[4:],
			EffectiveDate: r.EffectiveDate,
			Rate:          rate,
		})
	}
	return out, nil
}

// Fingerprint hashes the canonical YAML form of the generation inputs. yaml.v3
// sorts map keys, so equal configs always produce equal fingerprints. The
// output section only says where records go, so it is left out.
func (c *GenerationConfig) Fingerprint() string {
	inputs := *c
	inputs.Output = OutputOptions{}
	raw, err := yaml.Marshal(&inputs)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}

// SortedWeightKeys returns the keys of a weight map in a stable order.
func SortedWeightKeys(weights map[string]float64) []string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
