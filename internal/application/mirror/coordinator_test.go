package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryanwahyu/vc-analyst/internal/application"
	domain "github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

type memStore struct {
	mu         sync.Mutex
	profiles   map[string]domain.Profile
	reports    map[string]domain.Report
	trace      []string
	profileErr error
	reportErr  error
	block      bool
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string]domain.Profile{}, reports: map[string]domain.Report{}}
}

func (m *memStore) UpsertProfile(ctx context.Context, p domain.Profile) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = append(m.trace, "profile:"+p.OwnerID)
	if m.profileErr != nil {
		return m.profileErr
	}
	m.profiles[p.OwnerID] = p.Over(m.profiles[p.OwnerID])
	return nil
}

func (m *memStore) PutReport(ctx context.Context, r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = append(m.trace, "report:"+r.Key())
	if m.reportErr != nil {
		return m.reportErr
	}
	m.reports[r.Key()] = r
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func committed() *report.Report {
	return &report.Report{
		ID:        "42",
		OwnerID:   "u1",
		Title:     "Meal kits",
		Summary:   "A subscription meal-kit service",
		Result:    report.Payload{"scores": map[string]any{"market": 78.0}},
		CreatedAt: fixedNow.Add(-time.Minute),
	}
}

var ada = report.Owner{ID: "u1", Email: "ada@example.com", DisplayName: "Ada"}

func newCoordinator(t *testing.T, store domain.Store) *Coordinator {
	clock := application.ClockFunc(func() time.Time { return fixedNow })
	return NewCoordinator(store, clock, time.Second, zaptest.NewLogger(t))
}

func TestSyncWritesProfileThenReport(t *testing.T) {
	store := newMemStore()
	out := newCoordinator(t, store).Sync(context.Background(), committed(), ada)

	assert.Equal(t, domain.StatusSynced, out.Status)
	assert.Equal(t, []string{"profile:u1", "report:u1/42"}, store.trace)

	doc := store.reports["u1/42"]
	assert.Equal(t, "Meal kits", doc.Title)
	assert.Equal(t, "A subscription meal-kit service", doc.Summary)
	assert.Equal(t, domain.Source, doc.Source)
	assert.Equal(t, fixedNow, doc.SyncedAt)
	assert.Equal(t, fixedNow.Add(-time.Minute), doc.CreatedAt)
	assert.Equal(t, map[string]any{"scores": map[string]any{"market": 78.0}}, doc.Result)

	assert.Equal(t, domain.Profile{OwnerID: "u1", Email: "ada@example.com", DisplayName: "Ada", LastSyncedAt: fixedNow}, store.profiles["u1"])
}

func TestSyncIsIdempotent(t *testing.T) {
	once := newMemStore()
	newCoordinator(t, once).Sync(context.Background(), committed(), ada)

	twice := newMemStore()
	c := newCoordinator(t, twice)
	c.Sync(context.Background(), committed(), ada)
	c.Sync(context.Background(), committed(), ada)

	assert.Equal(t, once.profiles, twice.profiles)
	assert.Equal(t, once.reports, twice.reports)
	assert.Len(t, twice.reports, 1)
}

func TestSyncKeepsProfileFields(t *testing.T) {
	store := newMemStore()
	store.profiles["u1"] = domain.Profile{OwnerID: "u1", Email: "ada@example.com", DisplayName: "Ada", LastSyncedAt: fixedNow.Add(-24 * time.Hour)}

	out := newCoordinator(t, store).Sync(context.Background(), committed(), report.Owner{ID: "u1"})

	require.Equal(t, domain.StatusSynced, out.Status)
	got := store.profiles["u1"]
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, fixedNow, got.LastSyncedAt)
}

func TestSyncOrderingAcrossReports(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(t, store)
	for i := 1; i <= 3; i++ {
		r := committed()
		r.ID = report.ID(fmt.Sprint(i))
		c.Sync(context.Background(), r, ada)
	}

	firstProfile, firstReport := -1, -1
	for i, entry := range store.trace {
		if entry == "profile:u1" && firstProfile < 0 {
			firstProfile = i
		}
		if firstReport < 0 && len(entry) > 7 && entry[:7] == "report:" {
			firstReport = i
		}
	}
	assert.GreaterOrEqual(t, firstReport, 0)
	assert.Less(t, firstProfile, firstReport)
}

func TestSyncWithoutStoreIsSkipped(t *testing.T) {
	out := newCoordinator(t, nil).Sync(context.Background(), committed(), ada)
	assert.Equal(t, domain.Skipped(domain.ReasonStoreUnavailable), out)
}

func TestSyncUnreachableStoreIsSkipped(t *testing.T) {
	store := newMemStore()
	store.profileErr = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrUnavailable)

	out := newCoordinator(t, store).Sync(context.Background(), committed(), ada)
	assert.Equal(t, domain.StatusSkipped, out.Status)
	assert.Equal(t, domain.ReasonStoreUnavailable, out.Reason)
}

func TestSyncRejectedProfileStopsBeforeReport(t *testing.T) {
	store := newMemStore()
	store.profileErr = errors.New("permission denied")

	out := newCoordinator(t, store).Sync(context.Background(), committed(), ada)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.EqualError(t, out.Err, "permission denied")
	assert.Equal(t, []string{"profile:u1"}, store.trace)
	assert.Empty(t, store.reports)
}

func TestSyncRejectedReport(t *testing.T) {
	store := newMemStore()
	store.reportErr = errors.New("malformed key")

	out := newCoordinator(t, store).Sync(context.Background(), committed(), ada)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Contains(t, store.profiles, "u1")
}

func TestSyncIgnoresCallerCancellation(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newCoordinator(t, store).Sync(ctx, committed(), ada)
	assert.Equal(t, domain.StatusSynced, out.Status)
}

func TestSyncIsBoundedByTimeout(t *testing.T) {
	store := newMemStore()
	store.block = true
	clock := application.ClockFunc(func() time.Time { return fixedNow })
	c := NewCoordinator(store, clock, 20*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	out := c.Sync(context.Background(), committed(), ada)
	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
