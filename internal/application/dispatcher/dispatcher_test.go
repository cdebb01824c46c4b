package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/invoice-insights/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newTestEvent(t event.Type) *event.Event {
	return event.NewEvent(t, "user-1", "inv-1", map[string]interface{}{"amount": "10.00"})
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Subscribe(event.TypeInvoiceAdded, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeAll("bridge", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "bridge")
		return nil
	})
	d.Subscribe(event.TypeInvoiceAdded, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	if err := d.Dispatch(context.Background(), newTestEvent(event.TypeInvoiceAdded)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "bridge"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestDispatch_OnlyMatchingType(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Subscribe(event.TypeInvoiceUpdated, "updated", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	if err := d.Dispatch(context.Background(), newTestEvent(event.TypeInvoiceAdded)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("handler for a different type should not run")
	}
}

func TestDispatch_StopsOnFirstError(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	boom := errors.New("boom")
	secondCalled := false

	d.Subscribe(event.TypeInvoiceAdded, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.Subscribe(event.TypeInvoiceAdded, "after", func(ctx context.Context, evt *event.Event) error {
		secondCalled = true
		return nil
	})

	err := d.Dispatch(context.Background(), newTestEvent(event.TypeInvoiceAdded))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
	if secondCalled {
		t.Error("handlers after a failure should not run")
	}
	if logger.ErrorCount() != 1 {
		t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
	}
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeInvoiceAdded, "panicking", func(ctx context.Context, evt *event.Event) error {
		panic("bad handler")
	})

	err := d.Dispatch(context.Background(), newTestEvent(event.TypeInvoiceAdded))
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
}

func TestDispatch_RejectsUnknownType(t *testing.T) {
	d := NewDispatcher()
	if err := d.Dispatch(context.Background(), newTestEvent(event.Type("invoice.deleted"))); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestDispatchAsync_SurvivesCancelledContext(t *testing.T) {
	d := NewDispatcher()
	var handled atomic.Int32
	var sawCancel atomic.Bool

	d.SubscribeAll("slow", func(ctx context.Context, evt *event.Event) error {
		time.Sleep(10 * time.Millisecond)
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		handled.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, newTestEvent(event.TypeInvoiceUpdated))
	cancel()

	if err := d.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if handled.Load() != 1 {
		t.Errorf("expected handler to complete before Close returned, got %d", handled.Load())
	}
	if sawCancel.Load() {
		t.Error("async handler should not observe the caller's cancellation")
	}
}

func TestClose(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	if err := d.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}
	if err := d.Dispatch(context.Background(), newTestEvent(event.TypeInvoiceAdded)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Dispatch, got %v", err)
	}

	d.DispatchAsync(context.Background(), newTestEvent(event.TypeInvoiceAdded))
	if logger.ErrorCount() != 1 {
		t.Errorf("expected async dispatch after close to log an error, got %d", logger.ErrorCount())
	}
}

func TestHandlers(t *testing.T) {
	d := NewDispatcher()
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.Subscribe(event.TypeInvoiceAdded, "cache", noop)
	d.SubscribeAll("broker", noop)

	got := d.Handlers(event.TypeInvoiceAdded)
	if len(got) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(got))
	}
	if got[0].Name != "cache" || got[1].Name != "broker" {
		t.Errorf("unexpected handler names: %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].Handler != nil {
		t.Error("handler functions should not be exposed")
	}

	if n := len(d.Handlers(event.TypeInvoiceUploaded)); n != 1 {
		t.Errorf("expected only the wildcard handler, got %d", n)
	}
}
