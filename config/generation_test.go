package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultGenerationConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultGenerationConfig().Validate())
}

func TestLoadGenerationConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadGenerationConfig("synthgen.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, 1915, cfg.Count(models.TablePosTransaction))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), cfg.DateRange.End.UTC())
	assert.Equal(t, 2024, cfg.IdentifierYear())
	assert.Equal(t, "synth", cfg.Output.CounterNamespace)
}

func TestLoadGenerationConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
random_seed: 7
record_counts:
  operations.orders: 10
distribution_weights:
  country: {DE: 1}
`)
	cfg, err := LoadGenerationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.RandomSeed)
	assert.Equal(t, 10, cfg.Count(models.TableOrders))
	assert.Equal(t, 500, cfg.Count(models.TableCustomers))
	assert.Equal(t, map[string]float64{"DE": 1}, cfg.Weights(WeightCountry))
	assert.Equal(t, DefaultDistributionWeights()[WeightDevice], cfg.Weights(WeightDevice))
}

func TestLoadGenerationConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SYNTH_RANDOM_SEED", "99")
	t.Setenv("SYNTH_OUTPUT_DIR", "/tmp/synth-out")
	t.Setenv("SYNTH_COUNTER_STORE", "MEMORY")
	cfg, err := LoadGenerationConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.RandomSeed)
	assert.Equal(t, "/tmp/synth-out", cfg.Output.Dir)
	assert.Equal(t, CounterStoreMemory, cfg.Output.CounterStore)

	t.Setenv("SYNTH_RANDOM_SEED", "abc")
	_, err = LoadGenerationConfig("")
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestValidate_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *GenerationConfig)
	}{
		{"unknown table", func(cfg *GenerationConfig) { cfg.RecordCounts["operations.refunds"] = 3 }},
		{"negative count", func(cfg *GenerationConfig) { cfg.RecordCounts[models.TableOrders.String()] = -1 }},
		{"end before start", func(cfg *GenerationConfig) { cfg.DateRange.End = cfg.DateRange.Start.AddDate(0, 0, -1) }},
		{"unknown weight field", func(cfg *GenerationConfig) { cfg.DistributionWeights["colour"] = map[string]float64{"red": 1} }},
		{"unknown country", func(cfg *GenerationConfig) { cfg.DistributionWeights[WeightCountry] = map[string]float64{"XX": 1} }},
		{"zero weights", func(cfg *GenerationConfig) { cfg.DistributionWeights[WeightDevice] = map[string]float64{"mobile": 0} }},
		{"negative weight", func(cfg *GenerationConfig) { cfg.DistributionWeights[WeightDevice] = map[string]float64{"mobile": -1, "tablet": 2} }},
		{"tolerance above one", func(cfg *GenerationConfig) { cfg.Tolerance.Revenue = 1.5 }},
		{"lowercase currency", func(cfg *GenerationConfig) { cfg.ReportingCurrency = "eur" }},
		{"bad exchange pair", func(cfg *GenerationConfig) {
			cfg.ExchangeRates = []ExchangeRateInput{{Pair: "DKK-EUR", EffectiveDate: cfg.DateRange.Start, Rate: "0.13"}}
		}},
		{"non-positive rate", func(cfg *GenerationConfig) {
			cfg.ExchangeRates = []ExchangeRateInput{{Pair: "DKK/EUR", EffectiveDate: cfg.DateRange.Start, Rate: "0"}}
		}},
		{"unknown vat country", func(cfg *GenerationConfig) { cfg.VatRates = map[string]float64{"XX": 10} }},
		{"price band inverted", func(cfg *GenerationConfig) { cfg.PriceBands["apparel"] = Band{Min: 10, Max: 5} }},
		{"unknown counter store", func(cfg *GenerationConfig) { cfg.Output.CounterStore = "etcd" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultGenerationConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err), err.Error())
		})
	}
}

func TestTolerance_Thresholds(t *testing.T) {
	fail := 0.05
	tol := Tolerance{Revenue: 0.01, RevenueFail: &fail, Payroll: 0.02}

	pass, warn := tol.Thresholds(models.CheckRevenueVariance)
	assert.Equal(t, "0.01", pass.String())
	assert.Equal(t, "0.05", warn.String())

	pass, warn = tol.Thresholds(models.CheckPayrollVariance)
	assert.True(t, pass.Equal(warn))

	pass, warn = tol.Thresholds(models.CheckJournalBalance)
	assert.True(t, pass.IsZero())
	assert.True(t, warn.IsZero())
}

func TestFingerprint_StableAndSensitive(t *testing.T) {
	a, b := DefaultGenerationConfig(), DefaultGenerationConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	b.RandomSeed = 43
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_IgnoresOutputSection(t *testing.T) {
	a, b := DefaultGenerationConfig(), DefaultGenerationConfig()
	b.Output = OutputOptions{Dir: "/tmp/elsewhere", CounterStore: CounterStoreRedis, CounterFile: "c.json", CounterNamespace: "other"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, "out", a.Output.Dir)
}

func TestPublishTargetEnabled(t *testing.T) {
	t.Setenv("SYNTH_PUBLISH_TARGETS", " gcs, PubSub ")
	assert.True(t, PublishTargetEnabled("GCS"))
	assert.True(t, PublishTargetEnabled("pubsub"))
	assert.False(t, PublishTargetEnabled("DB_REPORT"))
	assert.False(t, PublishTargetEnabled(""))
}
