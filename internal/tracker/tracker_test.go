package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Alias1177/GoldAnalyst/models"
)

// memStore is an in-memory PredictionStore with the same guarded-write
// semantics as the database layer.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.PredictionRecord
	order   []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.PredictionRecord)}
}

func (m *memStore) InsertPrediction(_ context.Context, rec *models.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	clone.Outcomes = make(map[string]models.Outcome)
	m.records[rec.ID] = &clone
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *memStore) PendingForHorizon(_ context.Context, horizon string) ([]models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PredictionRecord
	for _, id := range m.order {
		rec := m.records[id]
		if _, resolved := rec.Outcomes[horizon]; !resolved {
			out = append(out, snapshot(rec))
		}
	}
	return out, nil
}

func (m *memStore) EvaluatedForHorizon(_ context.Context, horizon string) ([]models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PredictionRecord
	for _, id := range m.order {
		rec := m.records[id]
		if _, resolved := rec.Outcomes[horizon]; resolved {
			out = append(out, snapshot(rec))
		}
	}
	return out, nil
}

func (m *memStore) SetOutcomes(_ context.Context, horizon string, outcomes map[string]models.Outcome) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	applied := 0
	for id, o := range outcomes {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if _, resolved := rec.Outcomes[horizon]; resolved {
			continue
		}
		rec.Outcomes[horizon] = o
		applied++
	}
	return applied, nil
}

func (m *memStore) ListRecent(_ context.Context, limit int) ([]models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PredictionRecord
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, snapshot(m.records[m.order[i]]))
	}
	return out, nil
}

func (m *memStore) outcomeOf(id, horizon string) (models.Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.records[id].Outcomes[horizon]
	return o, ok
}

func snapshot(rec *models.PredictionRecord) models.PredictionRecord {
	clone := *rec
	clone.Outcomes = make(map[string]models.Outcome, len(rec.Outcomes))
	for k, v := range rec.Outcomes {
		clone.Outcomes[k] = v
	}
	return clone
}

var errStoreDown = errors.New("store down")

// failingStore wraps memStore and fails selected operations, for exercising
// persistence failures mid-sweep.
type failingStore struct {
	*memStore
	failPending bool
	failSet     bool
}

func (f *failingStore) PendingForHorizon(ctx context.Context, horizon string) ([]models.PredictionRecord, error) {
	if f.failPending {
		return nil, errStoreDown
	}
	return f.memStore.PendingForHorizon(ctx, horizon)
}

func (f *failingStore) SetOutcomes(ctx context.Context, horizon string, outcomes map[string]models.Outcome) (int, error) {
	if f.failSet {
		return 0, errStoreDown
	}
	return f.memStore.SetOutcomes(ctx, horizon, outcomes)
}

// stubSource serves a fixed quote and counts how often it is asked.
type stubSource struct {
	mu    sync.Mutex
	quote *models.PriceQuote
	err   error
	calls int
}

func (s *stubSource) GetLatest(_ context.Context, symbol string) (*models.PriceQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func (s *stubSource) setPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = &models.PriceQuote{Symbol: "GLD", Price: price}
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var horizon1d = models.HorizonSpec{Name: "1d", Duration: 24 * time.Hour, SuccessThreshold: 0.002}

func seedPrediction(t *testing.T, store *memStore, ts time.Time, action models.Action, confidence float64) string {
	t.Helper()
	rec := &models.PredictionRecord{
		ID:                "pred-" + ts.Format("20060102T150405.000000000"),
		TimestampUTC:      ts,
		EntryPricePrimary: 100.0,
		InputSnapshot:     json.RawMessage(`{}`),
		ModelOutput: models.OracleOutput{
			Recommendation: action,
			Confidence:     confidence,
			FinalAction:    action,
		},
	}
	if err := store.InsertPrediction(context.Background(), rec); err != nil {
		t.Fatalf("InsertPrediction() error = %v", err)
	}
	return rec.ID
}

func newTestSweeper(store models.PredictionStore, source *stubSource, now time.Time) *Sweeper {
	s := NewSweeper(store, source, "GLD")
	s.now = func() time.Time { return now }
	return s
}

func TestSweepIdempotent(t *testing.T) {
	store := newMemStore()
	source := &stubSource{}
	source.setPrice(100.5)

	now := time.Now().UTC()
	seedPrediction(t, store, now.Add(-25*time.Hour), models.ActionBuy, 70)

	sweeper := newTestSweeper(store, source, now)

	first, err := sweeper.Sweep(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("first Sweep() error = %v", err)
	}
	if first.Evaluated != 1 {
		t.Errorf("first Sweep() evaluated = %d, want 1", first.Evaluated)
	}

	second, err := sweeper.Sweep(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("second Sweep() error = %v", err)
	}
	if second.Evaluated != 0 {
		t.Errorf("second Sweep() evaluated = %d, want 0", second.Evaluated)
	}
}

func TestSweepEmptyStoreSkipsPriceFetch(t *testing.T) {
	store := newMemStore()
	source := &stubSource{}
	source.setPrice(100.5)

	sweeper := newTestSweeper(store, source, time.Now().UTC())

	result, err := sweeper.Sweep(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Evaluated != 0 {
		t.Errorf("Sweep() evaluated = %d, want 0", result.Evaluated)
	}
	if source.callCount() != 0 {
		t.Errorf("price source called %d times, want 0", source.callCount())
	}
}

func TestSweepPriceUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		source *stubSource
	}{
		{name: "source returns no quote", source: &stubSource{}},
		{name: "source returns error", source: &stubSource{err: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			now := time.Now().UTC()
			id := seedPrediction(t, store, now.Add(-25*time.Hour), models.ActionBuy, 70)

			sweeper := newTestSweeper(store, tt.source, now)

			_, err := sweeper.Sweep(context.Background(), horizon1d)
			if !errors.Is(err, ErrPriceUnavailable) {
				t.Fatalf("Sweep() error = %v, want ErrPriceUnavailable", err)
			}
			if _, resolved := store.outcomeOf(id, "1d"); resolved {
				t.Error("outcome written despite aborted sweep")
			}
		})
	}
}

func TestSweepStoreFailure(t *testing.T) {
	tests := []struct {
		name        string
		failPending bool
		failSet     bool
	}{
		{name: "pending query fails", failPending: true},
		{name: "outcome commit fails", failSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			source := &stubSource{}
			source.setPrice(100.5)

			now := time.Now().UTC()
			id := seedPrediction(t, store, now.Add(-25*time.Hour), models.ActionBuy, 70)

			failing := &failingStore{memStore: store, failPending: tt.failPending, failSet: tt.failSet}
			sweeper := newTestSweeper(failing, source, now)

			result, err := sweeper.Sweep(context.Background(), horizon1d)
			if !errors.Is(err, errStoreDown) {
				t.Fatalf("Sweep() error = %v, want wrapped errStoreDown", err)
			}
			if result.Evaluated != 0 {
				t.Errorf("Sweep() evaluated = %d on failure, want 0", result.Evaluated)
			}
			if _, resolved := store.outcomeOf(id, "1d"); resolved {
				t.Error("outcome written despite store failure")
			}
		})
	}
}

func TestSweepDueBoundary(t *testing.T) {
	store := newMemStore()
	source := &stubSource{}
	source.setPrice(100.5)

	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedPrediction(t, store, created, models.ActionBuy, 70)

	// Just short of the horizon the record is skipped, left pending.
	early := newTestSweeper(store, source, created.Add(24*time.Hour-time.Minute))
	result, err := early.Sweep(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("early Sweep() error = %v", err)
	}
	if result.Evaluated != 0 {
		t.Errorf("early Sweep() evaluated = %d, want 0", result.Evaluated)
	}

	late := newTestSweeper(store, source, created.Add(24*time.Hour+time.Minute))
	result, err = late.Sweep(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("late Sweep() error = %v", err)
	}
	if result.Evaluated != 1 {
		t.Errorf("late Sweep() evaluated = %d, want 1", result.Evaluated)
	}
}

func TestSweepWriteOnce(t *testing.T) {
	store := newMemStore()
	source := &stubSource{}
	source.setPrice(100.5)

	now := time.Now().UTC()
	id := seedPrediction(t, store, now.Add(-25*time.Hour), models.ActionBuy, 70)

	sweeper := newTestSweeper(store, source, now)
	if _, err := sweeper.Sweep(context.Background(), horizon1d); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	got, _ := store.outcomeOf(id, "1d")
	if got != models.OutcomeSuccess {
		t.Fatalf("outcome = %v, want SUCCESS", got)
	}

	// A later sweep at a crashed price must not flip the stored outcome.
	source.setPrice(50.0)
	if _, err := sweeper.Sweep(context.Background(), horizon1d); err != nil {
		t.Fatalf("second Sweep() error = %v", err)
	}
	got, _ = store.outcomeOf(id, "1d")
	if got != models.OutcomeSuccess {
		t.Errorf("outcome changed to %v after second sweep", got)
	}
}

func TestSweepConcurrent(t *testing.T) {
	store := newMemStore()
	source := &stubSource{}
	source.setPrice(100.5)

	now := time.Now().UTC()
	id := seedPrediction(t, store, now.Add(-25*time.Hour), models.ActionBuy, 70)

	const sweeps = 8
	results := make([]models.SweepResult, sweeps)
	errs := make([]error, sweeps)

	var wg sync.WaitGroup
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sweeper := newTestSweeper(store, source, now)
			results[i], errs[i] = sweeper.Sweep(context.Background(), horizon1d)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < sweeps; i++ {
		if errs[i] != nil {
			t.Fatalf("Sweep() error = %v", errs[i])
		}
		total += results[i].Evaluated
	}
	if total != 1 {
		t.Errorf("total evaluated across concurrent sweeps = %d, want 1", total)
	}
	if got, _ := store.outcomeOf(id, "1d"); got != models.OutcomeSuccess {
		t.Errorf("outcome = %v, want SUCCESS", got)
	}
}

func TestScorerZeroState(t *testing.T) {
	scorer := NewScorer(newMemStore())

	cal, err := scorer.Score(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if cal.AccuracyPct != 0 || cal.BrierScore != 0 || cal.Count != 0 {
		t.Errorf("Score() = %+v, want zeroes", cal)
	}
}

func TestScorerMetrics(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()

	ids := []string{
		seedPrediction(t, store, now.Add(-48*time.Hour), models.ActionBuy, 80),
		seedPrediction(t, store, now.Add(-47*time.Hour), models.ActionBuy, 80),
		seedPrediction(t, store, now.Add(-46*time.Hour), models.ActionSell, 60),
	}
	outcomes := map[string]models.Outcome{
		ids[0]: models.OutcomeSuccess,
		ids[1]: models.OutcomeFailure,
		ids[2]: models.OutcomeSuccess,
	}
	if _, err := store.SetOutcomes(context.Background(), "1d", outcomes); err != nil {
		t.Fatalf("SetOutcomes() error = %v", err)
	}

	cal, err := NewScorer(store).Score(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if cal.Count != 3 {
		t.Errorf("count = %d, want 3", cal.Count)
	}
	if math.Abs(cal.AccuracyPct-66.7) > 1e-9 {
		t.Errorf("accuracy = %v, want 66.7", cal.AccuracyPct)
	}
	// mean((0.8-1)^2, (0.8-0)^2, (0.6-1)^2) = 0.28
	if math.Abs(cal.BrierScore-0.28) > 1e-9 {
		t.Errorf("brier = %v, want 0.28", cal.BrierScore)
	}
}

func TestScorerIgnoresPending(t *testing.T) {
	store := newMemStore()
	now := time.Now().UTC()

	resolved := seedPrediction(t, store, now.Add(-48*time.Hour), models.ActionBuy, 90)
	seedPrediction(t, store, now.Add(-1*time.Hour), models.ActionHold, 55)

	if _, err := store.SetOutcomes(context.Background(), "1d", map[string]models.Outcome{
		resolved: models.OutcomeSuccess,
	}); err != nil {
		t.Fatalf("SetOutcomes() error = %v", err)
	}

	cal, err := NewScorer(store).Score(context.Background(), horizon1d)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if cal.Count != 1 {
		t.Errorf("count = %d, want 1 (pending record must not contribute)", cal.Count)
	}
	if cal.AccuracyPct != 100.0 {
		t.Errorf("accuracy = %v, want 100.0", cal.AccuracyPct)
	}
}

func TestRecorder(t *testing.T) {
	store := newMemStore()
	recorder := NewRecorder(store)

	output := models.OracleOutput{
		Recommendation: models.ActionBuy,
		Confidence:     72,
		FinalAction:    models.ActionBuy,
	}

	id1, err := recorder.Record(context.Background(), 187.12, 2034.5, json.RawMessage(`{"assets":{}}`), output)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	id2, err := recorder.Record(context.Background(), 187.30, 2036.1, json.RawMessage(`{"assets":{}}`), output)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Errorf("ids not unique: %q, %q", id1, id2)
	}

	pending, err := store.PendingForHorizon(context.Background(), "1d")
	if err != nil {
		t.Fatalf("PendingForHorizon() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d records, want 2", len(pending))
	}
	for _, rec := range pending {
		if len(rec.Outcomes) != 0 {
			t.Errorf("new record %s has outcomes %v, want none", rec.ID, rec.Outcomes)
		}
		if rec.TimestampUTC.Location() != time.UTC {
			t.Errorf("timestamp not UTC: %v", rec.TimestampUTC)
		}
	}
}

func TestRecorderRejectsZeroPrice(t *testing.T) {
	recorder := NewRecorder(newMemStore())

	_, err := recorder.Record(context.Background(), 0, 2034.5, nil, models.OracleOutput{FinalAction: models.ActionHold})
	if err == nil {
		t.Fatal("Record() with zero primary price succeeded, want error")
	}
}
