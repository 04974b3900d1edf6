package generator

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// NewTableRand returns the RNG of one table stage. It depends only on the run
// seed and the table key, so stage scheduling never changes the output.
func NewTableRand(seed int64, table models.TableKey) *rand.Rand {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(table.String())
	hi := d.Sum64()
	_, _ = d.WriteString("/stream")
	lo := d.Sum64()
	return rand.New(rand.NewPCG(hi, lo))
}

// LargestRemainder splits n into per-key counts proportional to weights. The
// counts always sum to n: every key gets the floor of its quota and the
// leftover units go to the largest fractional remainders, ties broken by key.
func LargestRemainder(n int, weights map[string]float64) map[string]int {
	out := make(map[string]int, len(weights))
	if n <= 0 {
		return out
	}
	keys := make([]string, 0, len(weights))
	total := 0.0
	for k, w := range weights {
		if w <= 0 {
			continue
		}
		keys = append(keys, k)
		total += w
	}
	if total <= 0 {
		return out
	}
	sort.Strings(keys)

	type remainder struct {
		key  string
		frac float64
	}
	rems := make([]remainder, 0, len(keys))
	assigned := 0
	for _, k := range keys {
		quota := float64(n) * weights[k] / total
		whole := int(math.Floor(quota))
		out[k] = whole
		assigned += whole
		rems = append(rems, remainder{key: k, frac: quota - float64(whole)})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for i := 0; assigned < n; i++ {
		out[rems[i%len(rems)].key]++
		assigned++
	}
	return out
}

// Allocation expands LargestRemainder into n category values in a seeded random order.
func Allocation(rng *rand.Rand, n int, weights map[string]float64) []string {
	counts := LargestRemainder(n, weights)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, 0, n)
	for _, k := range keys {
		for i := 0; i < counts[k]; i++ {
			values = append(values, k)
		}
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	return values
}

// Categorical draws one key with probability proportional to its weight.
func Categorical(rng *rand.Rand, weights map[string]float64) string {
	keys := make([]string, 0, len(weights))
	total := 0.0
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
			total += w
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	x := rng.Float64() * total
	for _, k := range keys {
		x -= weights[k]
		if x < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}

// DecimalBetween samples a triangular distribution peaking at the midpoint of
// [min, max] and rounds to the minor unit.
func DecimalBetween(rng *rand.Rand, min, max decimal.Decimal) decimal.Decimal {
	if !max.GreaterThan(min) {
		return utils.RoundMoney(min)
	}
	a, _ := min.Float64()
	b, _ := max.Float64()
	c := (a + b) / 2
	u := rng.Float64()
	var x float64
	if u < (c-a)/(b-a) {
		x = a + math.Sqrt(u*(b-a)*(c-a))
	} else {
		x = b - math.Sqrt((1-u)*(b-a)*(b-c))
	}
	d := utils.RoundMoney(decimal.NewFromFloat(x))
	if d.LessThan(min) {
		return utils.RoundMoney(min)
	}
	if d.GreaterThan(max) {
		return utils.RoundMoney(max)
	}
	return d
}

// IntBetween is uniform over [min, max].
func IntBetween(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.IntN(max-min+1)
}

// DateBetween picks a calendar day in [start, end] uniformly.
func DateBetween(rng *rand.Rand, start, end time.Time) time.Time {
	start, end = utils.TruncateDay(start), utils.TruncateDay(end)
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return start
	}
	return start.AddDate(0, 0, rng.IntN(days+1))
}

// TimeBetweenHours places a timestamp on day between openHour and closeHour.
func TimeBetweenHours(rng *rand.Rand, day time.Time, openHour, closeHour int) time.Time {
	day = utils.TruncateDay(day)
	span := (closeHour - openHour) * 3600
	if span <= 0 {
		return day.Add(time.Duration(openHour) * time.Hour)
	}
	return day.Add(time.Duration(openHour)*time.Hour + time.Duration(rng.IntN(span))*time.Second)
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.IntN(len(pool))]
}
