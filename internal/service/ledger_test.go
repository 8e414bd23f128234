package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/models"
	"voltgate/internal/ocpp/protocol"
)

type completion struct {
	stopTime        time.Time
	durationMinutes int64
	energyWh        int64
}

type fakeTransactionStore struct {
	mu           sync.Mutex
	transactions map[int64]*models.Transaction
	sessions     map[int64]*models.Session
	completions  map[int64]completion
	createErr    error
	stopErrOnce  error
	stops        int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{
		transactions: make(map[int64]*models.Transaction),
		sessions:     make(map[int64]*models.Session),
		completions:  make(map[int64]completion),
	}
}

func (f *fakeTransactionStore) CreateWithSession(ctx context.Context, tx *models.Transaction, sess *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.transactions[tx.TransactionID]; exists {
		return errors.New("duplicate transaction id")
	}
	f.transactions[tx.TransactionID] = tx
	f.sessions[tx.TransactionID] = sess
	return nil
}

func (f *fakeTransactionStore) Get(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions[transactionID], nil
}

func (f *fakeTransactionStore) StopWithSession(ctx context.Context, transactionID, meterStop int64, stopTime time.Time, reason string, durationMinutes, energyWh int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErrOnce != nil {
		err := f.stopErrOnce
		f.stopErrOnce = nil
		return false, err
	}
	tx, ok := f.transactions[transactionID]
	if !ok || tx.Status != models.TransactionStatusActive {
		return false, nil
	}
	tx.Status = models.TransactionStatusStopped
	tx.MeterStop = &meterStop
	tx.StopTimestamp = &stopTime
	tx.StopReason = reason
	f.completions[transactionID] = completion{stopTime, durationMinutes, energyWh}
	f.stops++
	return true, nil
}

func (f *fakeTransactionStore) AppendMeterValues(ctx context.Context, transactionID int64, batch []models.MeterValue) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[transactionID]
	if !ok {
		return false, nil
	}
	tx.MeterValues = append(tx.MeterValues, batch...)
	return true, nil
}

type fakeSessionStore struct {
	mu   sync.Mutex
	socs map[int64][]float64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		socs: make(map[int64][]float64),
	}
}

func (f *fakeSessionStore) RecordSoC(ctx context.Context, transactionID int64, soc float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.socs[transactionID] = append(f.socs[transactionID], soc)
	return nil
}

type fakeChargeCache struct {
	mu      sync.Mutex
	saved   map[int64]ActiveCharge
	deleted []int64
	err     error
}

func newFakeChargeCache() *fakeChargeCache {
	return &fakeChargeCache{saved: make(map[int64]ActiveCharge)}
}

func (f *fakeChargeCache) Save(ctx context.Context, charge ActiveCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved[charge.TransactionID] = charge
	return nil
}

func (f *fakeChargeCache) Delete(ctx context.Context, transactionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, transactionID)
	return nil
}

func newTestLedger(txs *fakeTransactionStore, sessions *fakeSessionStore, cache ChargeCache) *Ledger {
	ledger := NewLedger(txs, sessions, cache, zap.NewNop())
	ledger.newTransactionID = func() int64 { return 4242 }
	ledger.newSessionID = func() string { return "sess-4242" }
	return ledger
}

func TestStartChargeCreatesBothProjections(t *testing.T) {
	txs := newFakeTransactionStore()
	sessions := newFakeSessionStore()
	cache := newFakeChargeCache()
	ledger := newTestLedger(txs, sessions, cache)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tx, sess, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1,
		IDTag:       "TAG1",
		MeterStart:  100,
		Timestamp:   start,
	})
	if err != nil {
		t.Fatalf("start charge: %v", err)
	}
	if tx.TransactionID != 4242 {
		t.Fatalf("expected minted id 4242, got %d", tx.TransactionID)
	}
	if sess.SessionID != "sess-4242" || sess.TransactionID != 4242 {
		t.Fatalf("session not linked to transaction: %+v", sess)
	}
	if tx.Status != models.TransactionStatusActive || sess.Status != models.SessionStatusInProgress {
		t.Fatalf("unexpected initial statuses: %s / %s", tx.Status, sess.Status)
	}
	if stored := txs.transactions[4242]; stored == nil || !stored.StartTimestamp.Equal(start) {
		t.Fatalf("transaction not persisted with request timestamp")
	}
	if _, ok := cache.saved[4242]; !ok {
		t.Fatalf("active charge not cached")
	}
}

func TestStartChargeFailsClosedOnStoreError(t *testing.T) {
	txs := newFakeTransactionStore()
	txs.createErr = errors.New("unique violation")
	ledger := newTestLedger(txs, newFakeSessionStore(), nil)

	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1",
	}); err == nil {
		t.Fatalf("expected error when store rejects the pair")
	}
}

func TestStartChargeSurvivesCacheFailure(t *testing.T) {
	cache := newFakeChargeCache()
	cache.err = errors.New("redis down")
	ledger := newTestLedger(newFakeTransactionStore(), newFakeSessionStore(), cache)

	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1",
	}); err != nil {
		t.Fatalf("cache failure must not fail the start: %v", err)
	}
}

func TestStopChargeComputesDurationAndEnergy(t *testing.T) {
	txs := newFakeTransactionStore()
	sessions := newFakeSessionStore()
	cache := newFakeChargeCache()
	ledger := newTestLedger(txs, sessions, cache)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1", MeterStart: 100, Timestamp: start,
	}); err != nil {
		t.Fatalf("start charge: %v", err)
	}

	stop := start.Add(31 * time.Minute)
	found, err := ledger.StopCharge(context.Background(), "CP001", protocol.StopTransactionRequest{
		TransactionID: 4242, MeterStop: 1600, Timestamp: stop, Reason: "Local",
	})
	if err != nil {
		t.Fatalf("stop charge: %v", err)
	}
	if !found {
		t.Fatalf("expected known transaction")
	}

	done, ok := txs.completions[4242]
	if !ok {
		t.Fatalf("session not completed")
	}
	if done.durationMinutes != 31 {
		t.Fatalf("expected 31 minutes, got %d", done.durationMinutes)
	}
	if done.energyWh != 1500 {
		t.Fatalf("expected 1500 Wh, got %d", done.energyWh)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != 4242 {
		t.Fatalf("active charge not evicted: %v", cache.deleted)
	}
}

func TestStopChargeClampsNegativeEnergy(t *testing.T) {
	txs := newFakeTransactionStore()
	ledger := newTestLedger(txs, newFakeSessionStore(), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1", MeterStart: 500, Timestamp: start,
	}); err != nil {
		t.Fatalf("start charge: %v", err)
	}

	if _, err := ledger.StopCharge(context.Background(), "CP001", protocol.StopTransactionRequest{
		TransactionID: 4242, MeterStop: 200, Timestamp: start.Add(time.Minute),
	}); err != nil {
		t.Fatalf("stop charge: %v", err)
	}

	if got := txs.completions[4242].energyWh; got != 0 {
		t.Fatalf("expected clamped energy 0, got %d", got)
	}
}

func TestStopChargeRetryAfterStoreFailureCompletesSession(t *testing.T) {
	txs := newFakeTransactionStore()
	ledger := newTestLedger(txs, newFakeSessionStore(), nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1", MeterStart: 100, Timestamp: start,
	}); err != nil {
		t.Fatalf("start charge: %v", err)
	}

	req := protocol.StopTransactionRequest{TransactionID: 4242, MeterStop: 300, Timestamp: start.Add(time.Minute)}

	txs.stopErrOnce = errors.New("db connection reset")
	if _, err := ledger.StopCharge(context.Background(), "CP001", req); err == nil {
		t.Fatalf("expected error from failing store")
	}
	// The failed stop must leave both projections untouched.
	if got := txs.transactions[4242].Status; got != models.TransactionStatusActive {
		t.Fatalf("failed stop must not change status, got %q", got)
	}
	if _, ok := txs.completions[4242]; ok {
		t.Fatalf("failed stop must not complete the session")
	}

	found, err := ledger.StopCharge(context.Background(), "CP001", req)
	if err != nil {
		t.Fatalf("retried stop: %v", err)
	}
	if !found {
		t.Fatalf("retried stop must find the transaction")
	}
	if got := txs.transactions[4242].Status; got != models.TransactionStatusStopped {
		t.Fatalf("retried stop must stop the transaction, got %q", got)
	}
	if _, ok := txs.completions[4242]; !ok {
		t.Fatalf("retried stop must complete the session")
	}
}

func TestStopChargeUnknownTransaction(t *testing.T) {
	ledger := newTestLedger(newFakeTransactionStore(), newFakeSessionStore(), nil)

	found, err := ledger.StopCharge(context.Background(), "CP001", protocol.StopTransactionRequest{
		TransactionID: 999999,
	})
	if err != nil {
		t.Fatalf("stop charge: %v", err)
	}
	if found {
		t.Fatalf("unknown transaction must report found=false")
	}
}

func TestStopChargeSecondStopReAcksWithoutMutation(t *testing.T) {
	txs := newFakeTransactionStore()
	sessions := newFakeSessionStore()
	ledger := newTestLedger(txs, sessions, nil)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1", MeterStart: 100, Timestamp: start,
	}); err != nil {
		t.Fatalf("start charge: %v", err)
	}

	first := protocol.StopTransactionRequest{TransactionID: 4242, MeterStop: 200, Timestamp: start.Add(time.Minute)}
	if _, err := ledger.StopCharge(context.Background(), "CP001", first); err != nil {
		t.Fatalf("first stop: %v", err)
	}

	second := protocol.StopTransactionRequest{TransactionID: 4242, MeterStop: 9999, Timestamp: start.Add(time.Hour)}
	found, err := ledger.StopCharge(context.Background(), "CP001", second)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if !found {
		t.Fatalf("second stop must still ack as known")
	}
	if txs.stops != 1 {
		t.Fatalf("expected exactly one mutation, got %d", txs.stops)
	}
	if got := *txs.transactions[4242].MeterStop; got != 200 {
		t.Fatalf("second stop must not overwrite meter stop, got %d", got)
	}
}

func TestRecordMeterValuesAppendsAndTracksSoC(t *testing.T) {
	txs := newFakeTransactionStore()
	sessions := newFakeSessionStore()
	ledger := newTestLedger(txs, sessions, nil)

	if _, _, err := ledger.StartCharge(context.Background(), "CP001", protocol.StartTransactionRequest{
		ConnectorID: 1, IDTag: "TAG1", MeterStart: 100,
	}); err != nil {
		t.Fatalf("start charge: %v", err)
	}

	batch := []models.MeterValue{
		{
			Timestamp: time.Now().UTC(),
			SampledValue: []models.SampledValue{
				{Value: "150", Measurand: "Energy.Active.Import.Register", Unit: "Wh"},
				{Value: "42.5", Measurand: protocol.MeasurandSoC, Unit: "Percent"},
			},
		},
		{
			Timestamp: time.Now().UTC(),
			SampledValue: []models.SampledValue{
				{Value: "not-a-number", Measurand: protocol.MeasurandSoC, Unit: "Percent"},
				{Value: "55", Measurand: protocol.MeasurandSoC, Unit: "Percent"},
			},
		},
	}
	if err := ledger.RecordMeterValues(context.Background(), "CP001", protocol.MeterValuesRequest{
		ConnectorID: 1, TransactionID: 4242, MeterValue: batch,
	}); err != nil {
		t.Fatalf("record meter values: %v", err)
	}

	if got := len(txs.transactions[4242].MeterValues); got != 2 {
		t.Fatalf("expected 2 appended entries, got %d", got)
	}
	socs := sessions.socs[4242]
	if len(socs) != 1 || socs[0] != 55 {
		t.Fatalf("expected latest parseable SoC 55, got %v", socs)
	}
}

func TestRecordMeterValuesUnknownTransactionIsNoOp(t *testing.T) {
	sessions := newFakeSessionStore()
	ledger := newTestLedger(newFakeTransactionStore(), sessions, nil)

	err := ledger.RecordMeterValues(context.Background(), "CP001", protocol.MeterValuesRequest{
		ConnectorID:   1,
		TransactionID: 777,
		MeterValue: []models.MeterValue{{
			Timestamp:    time.Now().UTC(),
			SampledValue: []models.SampledValue{{Value: "10", Measurand: protocol.MeasurandSoC}},
		}},
	})
	if err != nil {
		t.Fatalf("unknown transaction must be tolerated: %v", err)
	}
	if len(sessions.socs) != 0 {
		t.Fatalf("no SoC must be recorded for unknown transaction")
	}
}

func TestRecordMeterValuesIgnoresEmptyAndUntargeted(t *testing.T) {
	txs := newFakeTransactionStore()
	ledger := newTestLedger(txs, newFakeSessionStore(), nil)

	if err := ledger.RecordMeterValues(context.Background(), "CP001", protocol.MeterValuesRequest{
		ConnectorID: 1, TransactionID: 0,
	}); err != nil {
		t.Fatalf("untargeted batch: %v", err)
	}
	if err := ledger.RecordMeterValues(context.Background(), "CP001", protocol.MeterValuesRequest{
		ConnectorID: 1, TransactionID: 4242,
	}); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestDurationMinutesRounding(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    int64
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{90 * time.Second, 2},
		{-5 * time.Minute, 0},
	}
	for _, tc := range cases {
		if got := durationMinutes(start, start.Add(tc.elapsed)); got != tc.want {
			t.Fatalf("durationMinutes(%v) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}
