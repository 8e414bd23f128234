package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/models"
)

type fakeLister struct {
	stations []models.Station
	err      error
}

func (f *fakeLister) ListStations(ctx context.Context) ([]models.Station, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stations, nil
}

type fakeObserver struct {
	mu       sync.Mutex
	messages [][]byte
	writeErr error
}

func (f *fakeObserver) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeObserver) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeObserver) Close() error { return nil }

func (f *fakeObserver) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newTestHub(lister StationLister) *ObserverHub {
	return NewObserverHub(lister, time.Second, zap.NewNop(), nil)
}

func TestRegisterPushesImmediateSnapshot(t *testing.T) {
	lister := &fakeLister{stations: []models.Station{{StationID: "CP001", Status: "Available"}}}
	hub := newTestHub(lister)
	observer := &fakeObserver{}

	hub.Register(context.Background(), observer)

	if observer.received() != 1 {
		t.Fatalf("expected immediate snapshot, got %d messages", observer.received())
	}

	var snapshot statusSnapshot
	if err := json.Unmarshal(observer.messages[0], &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Type != "full_status" {
		t.Fatalf("expected full_status, got %q", snapshot.Type)
	}
	if len(snapshot.Stations) != 1 || snapshot.Stations[0].StationID != "CP001" {
		t.Fatalf("unexpected stations: %+v", snapshot.Stations)
	}
}

func TestBroadcastReachesAllObservers(t *testing.T) {
	hub := newTestHub(&fakeLister{})
	first := &fakeObserver{}
	second := &fakeObserver{}
	hub.Register(context.Background(), first)
	hub.Register(context.Background(), second)

	hub.Broadcast(context.Background())

	// register pushes once each; the second register also broadcasts to the first.
	if first.received() < 2 || second.received() < 1 {
		t.Fatalf("broadcast missed observers: first=%d second=%d", first.received(), second.received())
	}
}

func TestBroadcastEmptyStationListStaysArray(t *testing.T) {
	hub := newTestHub(&fakeLister{stations: nil})
	observer := &fakeObserver{}

	hub.Register(context.Background(), observer)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(observer.messages[0], &raw); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if string(raw["stations"]) != "[]" {
		t.Fatalf("empty list must encode as [], got %s", raw["stations"])
	}
}

func TestBroadcastSwallowsStoreFailure(t *testing.T) {
	lister := &fakeLister{}
	hub := newTestHub(lister)
	observer := &fakeObserver{}
	hub.Register(context.Background(), observer)

	lister.err = errors.New("db down")
	hub.Broadcast(context.Background())

	if observer.received() != 1 {
		t.Fatalf("failed broadcast must not push a message, got %d", observer.received())
	}
}

func TestBroadcastToleratesFailingObserver(t *testing.T) {
	hub := newTestHub(&fakeLister{})
	healthy := &fakeObserver{}
	broken := &fakeObserver{writeErr: errors.New("pipe closed")}
	hub.Register(context.Background(), healthy)
	hub.Register(context.Background(), broken)

	hub.Broadcast(context.Background())

	if healthy.received() < 2 {
		t.Fatalf("healthy observer must still receive snapshots, got %d", healthy.received())
	}
}

// overlapObserver flags WriteMessage calls that run concurrently, which the
// underlying gorilla connection forbids.
type overlapObserver struct {
	writing int32
	overlap int32
}

func (o *overlapObserver) SetWriteDeadline(t time.Time) error { return nil }

func (o *overlapObserver) WriteMessage(messageType int, data []byte) error {
	if !atomic.CompareAndSwapInt32(&o.writing, 0, 1) {
		atomic.StoreInt32(&o.overlap, 1)
		return nil
	}
	time.Sleep(time.Millisecond)
	atomic.StoreInt32(&o.writing, 0)
	return nil
}

func (o *overlapObserver) Close() error { return nil }

func TestConcurrentBroadcastsSerializeObserverWrites(t *testing.T) {
	hub := newTestHub(&fakeLister{})
	observer := &overlapObserver{}
	hub.Register(context.Background(), observer)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				hub.Broadcast(context.Background())
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&observer.overlap) != 0 {
		t.Fatalf("observer connection was written concurrently")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := newTestHub(&fakeLister{})
	observer := &fakeObserver{}
	hub.Register(context.Background(), observer)
	hub.Unregister(observer)

	hub.Broadcast(context.Background())

	if observer.received() != 1 {
		t.Fatalf("unregistered observer must not receive broadcasts, got %d", observer.received())
	}
}
