package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bitbucket.org/mmdatafocus/books_synth/models"
)

// Spec describes how identifiers of one (domain, table) pair are formatted.
type Spec struct {
	Prefix string
	Scope  string
	Width  int
	Base   int64
}

// Identifier is one allocated id. Its formatted value is fixed at allocation.
type Identifier struct {
	Table    models.TableKey
	Sequence int64
	value    string
}

func (id Identifier) String() string {
	return id.value
}

// Prefixes of every table that carries an allocated identifier.
var DefaultPrefixes = map[models.TableKey]string{
	models.TableStores:         "STR",
	models.TableProducts:       "PRD",
	models.TableCustomers:      "CUS",
	models.TableOrders:         "ORD",
	models.TableOrderLines:     "ORL",
	models.TablePosTransaction: "TRX",
	models.TableEmployees:      "EMP",
	models.TablePayrollEntries: "PAY",
	models.TableWebSessions:    "SES",
	models.TableJournalHeaders: "JRN",
	models.TableJournalLines:   "JRL",
}

// DefaultSpecs builds the identifier registry with one scope, base and width for all tables.
func DefaultSpecs(scope string, base int64, width int) map[models.TableKey]Spec {
	specs := make(map[models.TableKey]Spec, len(DefaultPrefixes))
	for table, prefix := range DefaultPrefixes {
		specs[table] = Spec{Prefix: prefix, Scope: scope, Width: width, Base: base}
	}
	return specs
}

// Allocator issues strictly increasing identifiers per (domain, table). It is
// the only mutable state shared between stages; one mutex makes it the single
// writer. On first use of a pair it resumes after the highest sequence known
// from the counter state and from prior output, else it starts at Spec.Base.
type Allocator struct {
	mu     sync.Mutex
	year   int
	specs  map[models.TableKey]Spec
	seeds  map[models.TableKey]int64
	next   map[models.TableKey]int64
	issued map[models.TableKey]int64
}

func NewAllocator(year int, specs map[models.TableKey]Spec) *Allocator {
	return &Allocator{
		year:   year,
		specs:  specs,
		seeds:  make(map[models.TableKey]int64),
		next:   make(map[models.TableKey]int64),
		issued: make(map[models.TableKey]int64),
	}
}

// Seed records the highest sequence already used for a table. Seeds only ever
// raise the starting point and have no effect once the table has allocated.
func (a *Allocator) Seed(table models.TableKey, maxSequence int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, started := a.next[table]; started {
		return
	}
	if maxSequence > a.seeds[table] {
		a.seeds[table] = maxSequence
	}
}

// SeedAll applies Seed for every entry of counters.
func (a *Allocator) SeedAll(counters Counters) {
	for table, max := range counters {
		a.Seed(table, max)
	}
}

// Allocate returns the next identifier of (domain, table).
func (a *Allocator) Allocate(domain models.Domain, table string) (Identifier, error) {
	return a.AllocateFor(models.TableKey{Domain: domain, Table: table})
}

func (a *Allocator) AllocateFor(table models.TableKey) (Identifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocateLocked(table)
}

// AllocateN reserves n consecutive identifiers in one critical section.
func (a *Allocator) AllocateN(table models.TableKey, n int) ([]Identifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]Identifier, 0, n)
	for i := 0; i < n; i++ {
		id, err := a.allocateLocked(table)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *Allocator) allocateLocked(table models.TableKey) (Identifier, error) {
	spec, ok := a.specs[table]
	if !ok {
		return Identifier{}, models.NewConfigurationError("identifiers", table.String(), models.ErrUnknownIdentifier)
	}
	seq, started := a.next[table]
	if !started {
		seq = spec.Base
		if seed, ok := a.seeds[table]; ok && seed+1 > seq {
			seq = seed + 1
		}
	}
	a.next[table] = seq + 1
	a.issued[table]++
	return Identifier{Table: table, Sequence: seq, value: a.format(spec, seq)}, nil
}

// Issued counts identifiers handed out for a table during this run.
func (a *Allocator) Issued(table models.TableKey) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issued[table]
}

// Snapshot returns the counter state to persist: the highest sequence per table.
func (a *Allocator) Snapshot() Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(Counters, len(a.seeds)+len(a.next))
	for table, seed := range a.seeds {
		out[table] = seed
	}
	for table, next := range a.next {
		out[table] = next - 1
	}
	return out
}

// Format renders a sequence the way Allocate would, without allocating.
func (a *Allocator) Format(table models.TableKey, seq int64) (string, error) {
	spec, ok := a.specs[table]
	if !ok {
		return "", models.NewConfigurationError("identifiers", table.String(), models.ErrUnknownIdentifier)
	}
	return a.format(spec, seq), nil
}

func (a *Allocator) format(spec Spec, seq int64) string {
	return fmt.Sprintf("%s_%s_%04d_%0*d", spec.Prefix, spec.Scope, a.year, spec.Width, seq)
}

// Counters is persisted counter state: highest used sequence per table.
type Counters map[models.TableKey]int64

// Tables returns the keys in a stable order.
func (c Counters) Tables() []models.TableKey {
	keys := make([]models.TableKey, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Merge keeps the maximum of both sides per table.
func (c Counters) Merge(other Counters) Counters {
	out := make(Counters, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

// CounterStore loads counter state at run start and persists it once the
// run's output has been published.
type CounterStore interface {
	Load(ctx context.Context) (Counters, error)
	Save(ctx context.Context, counters Counters) error
}

// Locker is implemented by stores that can fence concurrent processes.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Refresher is implemented by lockers whose lock expires and must be kept
// alive while a run is in progress.
type Refresher interface {
	Refresh(ctx context.Context) error
}
