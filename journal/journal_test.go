package journal

import (
	"errors"
	"fmt"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelens/plan"
)

func testPlan(id, pair string) plan.TradePlan {
	return plan.TradePlan{
		ID:                id,
		Timestamp:         1718000000000,
		Pair:              pair,
		Bias:              plan.Bullish,
		Entry:             1.085,
		StopLoss:          1.082,
		TakeProfit:        1.091,
		RiskReward:        2,
		ConfidenceScore:   80,
		MarketStructure:   "HH/HL",
		ConfluenceVerdict: "Strong",
		KeyZones:          []string{"1.0820"},
		Reasoning:         []string{"sweep"},
		Patterns:          []string{},
		NearbyNews:        []plan.NewsEvent{},
		ImageURL:          "data:image/jpeg;base64,AAAA",
	}
}

func newLoadedLedger(t *testing.T) (*Ledger, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	l := NewLedger(kv)
	l.Load()
	return l, kv
}

func persisted(t *testing.T, kv KV) []plan.JournalEntry {
	t.Helper()
	b, err := kv.Get(JournalKey)
	require.NoError(t, err)
	var out []plan.JournalEntry
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

// failingKV fails every write once armed.
type failingKV struct {
	*MemoryKV
	fail bool
}

func (f *failingKV) Set(key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(key, value)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	l := NewLedger(NewMemoryKV())
	got := l.Load()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoad_Unusable(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"corrupt":   `[{"id": "x",`,
		"object":    `{"id": "x"}`,
		"string":    `"true"`,
		"null":      `null`,
		"not json":  `hello`,
		"empty":     ``,
		"wrong row": `[1, 2, 3]`,
	} {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			kv := NewMemoryKV()
			require.NoError(t, kv.Set(JournalKey, []byte(raw)))

			l := NewLedger(kv)
			got := l.Load()
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestLoad_Existing(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	raw := `[{"id":"b","timestamp":2,"pair":"GBPUSD","bias":"BEARISH","status":"WON","notes":"tp hit"},
	         {"id":"a","timestamp":1,"pair":"EURUSD","bias":"BULLISH","status":"PENDING"}]`
	require.NoError(t, kv.Set(JournalKey, []byte(raw)))

	l := NewLedger(kv)
	got := l.Load()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, plan.Won, got[0].Status)
	assert.Equal(t, "tp hit", got[0].Notes)
	assert.Equal(t, plan.Bearish, got[0].Bias)
	assert.Equal(t, "a", got[1].ID)
}

func TestLoad_DropsMalformedRows(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	raw := `[null,
	         {"id":"a","pair":"EURUSD","status":"PENDING"},
	         {"id":"b","pair":"GBPUSD","status":"BOGUS"},
	         {"pair":"USDJPY","status":"WON"},
	         {"id":"c","pair":"AUDUSD"},
	         {"id":"d","pair":"NZDUSD","status":"LOST"}]`
	require.NoError(t, kv.Set(JournalKey, []byte(raw)))

	got := NewLedger(kv).Load()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestAppend_NewestFirstAndPending(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)

	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)
	got, err := l.Append(testPlan("2", "GBPUSD"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
	assert.Equal(t, plan.Pending, got[0].Status)

	assert.Equal(t, got, persisted(t, kv))
}

func TestAppend_EvictsOldest(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	for i := 0; i < MaxEntries; i++ {
		_, err := l.Append(testPlan(fmt.Sprintf("p%03d", i), "EURUSD"))
		require.NoError(t, err)
	}
	require.Equal(t, MaxEntries, l.Len())

	got, err := l.Append(testPlan("new", "XAUUSD"))
	require.NoError(t, err)

	require.Len(t, got, MaxEntries)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "p099", got[1].ID)
	assert.Equal(t, "p001", got[MaxEntries-1].ID)
	for _, e := range got {
		assert.NotEqual(t, "p000", e.ID)
	}
	assert.Len(t, persisted(t, kv), MaxEntries)
}

func TestAppend_DuplicateIDIsKept(t *testing.T) {
	t.Parallel()

	l, _ := newLoadedLedger(t)
	_, err := l.Append(testPlan("same", "EURUSD"))
	require.NoError(t, err)
	got, err := l.Append(testPlan("same", "GBPUSD"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAppend_PersistFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	kv := &failingKV{MemoryKV: NewMemoryKV()}
	l := NewLedger(kv)
	l.Load()
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)
	v := l.Version()

	kv.fail = true
	_, err = l.Append(testPlan("2", "EURUSD"))
	require.Error(t, err)

	entries, version := l.Snapshot()
	assert.Len(t, entries, 1)
	assert.Equal(t, v, version)

	_, err = l.UpdateStatus("1", plan.Won)
	require.Error(t, err)
	e, err := l.Get("1")
	require.NoError(t, err)
	assert.Equal(t, plan.Pending, e.Status)
}

func TestReplaceAll(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)

	entries, version := l.Snapshot()
	entries[0].Status = plan.Lost
	entries = append(entries, plan.NewEntry(testPlan("0", "USDJPY")))

	got, err := l.ReplaceAll(version, entries)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.Equal(t, entries, persisted(t, kv))
	assert.Greater(t, l.Version(), version)
}

func TestReplaceAll_EmptyList(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)

	got, err := l.ReplaceAll(l.Version(), []plan.JournalEntry{})
	require.NoError(t, err)
	assert.Empty(t, got)

	b, err := kv.Get(JournalKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestReplaceAll_StaleVersion(t *testing.T) {
	t.Parallel()

	l, _ := newLoadedLedger(t)

	entries, version := l.Snapshot()
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)

	_, err = l.ReplaceAll(version, entries)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 1, l.Len())
}

func TestUpdateStatusAndNotes(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)
	_, err = l.Append(testPlan("2", "GBPUSD"))
	require.NoError(t, err)

	e, err := l.UpdateStatus("1", plan.Won)
	require.NoError(t, err)
	assert.Equal(t, plan.Won, e.Status)

	// any transition is allowed
	e, err = l.UpdateStatus("1", plan.Pending)
	require.NoError(t, err)
	assert.Equal(t, plan.Pending, e.Status)
	_, err = l.UpdateStatus("1", plan.Lost)
	require.NoError(t, err)

	e, err = l.SetNotes("2", "moved stop to BE")
	require.NoError(t, err)
	assert.Equal(t, "moved stop to BE", e.Notes)

	saved := persisted(t, kv)
	assert.Equal(t, "2", saved[0].ID)
	assert.Equal(t, "moved stop to BE", saved[0].Notes)
	assert.Equal(t, plan.Lost, saved[1].Status)

	_, err = l.UpdateStatus("nope", plan.Won)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.UpdateStatus("1", plan.Status("MAYBE"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = l.SetNotes("nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	for _, id := range []string{"1", "2", "3"} {
		_, err := l.Append(testPlan(id, "EURUSD"))
		require.NoError(t, err)
	}

	require.NoError(t, l.Delete("2"))
	entries, _ := l.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "3", entries[0].ID)
	assert.Equal(t, "1", entries[1].ID)
	assert.Len(t, persisted(t, kv), 2)

	assert.ErrorIs(t, l.Delete("2"), ErrNotFound)
	_, err := l.Get("2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	l, _ := newLoadedLedger(t)
	p := testPlan("1", "EURUSD")
	p.NearbyNews = []plan.NewsEvent{{Event: "CPI", TimeRelative: "in 2h", Impact: plan.ImpactHigh}}
	appended, err := l.Append(p)
	require.NoError(t, err)

	// the caller's plan and every returned list are detached from the ledger
	p.KeyZones[0] = "changed by caller"
	appended[0].Reasoning[0] = "changed via append result"

	entries, _ := l.Snapshot()
	entries[0].Status = plan.Won
	entries[0].KeyZones[0] = "changed via snapshot"
	entries[0].NearbyNews[0].Event = "NFP"

	got, err := l.Get("1")
	require.NoError(t, err)
	got.Patterns = append(got.Patterns, "changed via get")

	e, err := l.Get("1")
	require.NoError(t, err)
	assert.Equal(t, plan.Pending, e.Status)
	assert.Equal(t, []string{"1.0820"}, e.KeyZones)
	assert.Equal(t, []string{"sweep"}, e.Reasoning)
	assert.Empty(t, e.Patterns)
	assert.Equal(t, "CPI", e.NearbyNews[0].Event)
}

func TestReplaceAllDetachesInput(t *testing.T) {
	t.Parallel()

	l, _ := newLoadedLedger(t)
	entries := []plan.JournalEntry{plan.NewEntry(testPlan("1", "EURUSD"))}
	_, err := l.ReplaceAll(l.Version(), entries)
	require.NoError(t, err)

	entries[0].KeyZones[0] = "changed"
	e, err := l.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "1.0820", e.KeyZones[0])
}

func TestUpdateAppliesInOneWrite(t *testing.T) {
	t.Parallel()

	kv := &failingKV{MemoryKV: NewMemoryKV()}
	l := NewLedger(kv)
	l.Load()
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)
	before := l.Version()

	// a failed write leaves neither field changed
	kv.fail = true
	_, err = l.Update("1", func(e *plan.JournalEntry) {
		e.Status = plan.Won
		e.Notes = "tp hit"
	})
	require.Error(t, err)
	e, _ := l.Get("1")
	assert.Equal(t, plan.Pending, e.Status)
	assert.Empty(t, e.Notes)
	assert.Equal(t, before, l.Version())

	kv.fail = false
	e, err = l.Update("1", func(e *plan.JournalEntry) {
		e.Status = plan.Won
		e.Notes = "tp hit"
	})
	require.NoError(t, err)
	assert.Equal(t, plan.Won, e.Status)
	assert.Equal(t, "tp hit", e.Notes)
	assert.Equal(t, before+1, l.Version())

	stored := persisted(t, kv)
	require.Len(t, stored, 1)
	assert.Equal(t, plan.Won, stored[0].Status)
	assert.Equal(t, "tp hit", stored[0].Notes)
}

func TestUpdateRejectsInvalidResult(t *testing.T) {
	t.Parallel()

	l, kv := newLoadedLedger(t)
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)

	_, err = l.Update("1", func(e *plan.JournalEntry) { e.Status = "OPEN" })
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = l.Update("1", func(e *plan.JournalEntry) { e.ID = "2" })
	assert.Error(t, err)
	_, err = l.Update("nope", func(e *plan.JournalEntry) {})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, plan.Pending, persisted(t, kv)[0].Status)
	assert.Equal(t, "1", persisted(t, kv)[0].ID)
}

func TestLoadAfterRestart(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	l := NewLedger(kv)
	l.Load()
	_, err := l.Append(testPlan("1", "EURUSD"))
	require.NoError(t, err)
	_, err = l.UpdateStatus("1", plan.Closed)
	require.NoError(t, err)

	again := NewLedger(kv).Load()
	require.Len(t, again, 1)
	assert.Equal(t, plan.Closed, again[0].Status)
	assert.Equal(t, "EURUSD", again[0].Pair)
}
