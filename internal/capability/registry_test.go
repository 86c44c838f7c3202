package capability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func okHandler() Handler {
	return HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
		return &Result{Success: true}, nil
	})
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register("send_message", okHandler())

	h, err := r.Resolve("send_message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h == nil {
		t.Fatal("expected handler, got nil")
	}
}

func TestRegistryResolveMissing(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("book_meeting")
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("send_message", okHandler())
	r.Register("book_meeting", okHandler())
	r.Register("generate_report", okHandler())

	names := r.Names()
	want := []string{"book_meeting", "generate_report", "send_message"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	r.Register("send_message", HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
		return &Result{Success: false, Message: "old"}, nil
	}))
	r.Register("send_message", HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
		return &Result{Success: true, Message: "new"}, nil
	}))

	h, err := r.Resolve("send_message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := h.Execute(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "new" {
		t.Errorf("expected replacement handler, got %q", res.Message)
	}
}

func TestInvokePassesResultThrough(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
		return &Result{Success: true, Message: "done"}, nil
	})

	res, err := Invoke(context.Background(), h, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Message != "done" {
		t.Errorf("res = %+v, want the handler's own result", res)
	}
}

// A handler that never looks at its context cannot hold the caller past
// the deadline: Invoke returns as soon as the context ends.
func TestInvokeCutsOffStuckHandler(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
		time.Sleep(600 * time.Millisecond)
		return &Result{Success: true}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Invoke(ctx, h, nil, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("Invoke returned after %v, want a return near the 20ms deadline", elapsed)
	}
}
