package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoResolves(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })
	v, err := f.Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("Wait = %d, %v", v, err)
	}
}

func TestCompleteOnlyOnce(t *testing.T) {
	f := New[string]()
	f.Complete("first", nil)
	f.Complete("second", errors.New("ignored"))
	v, ok, err := f.Result()
	if !ok || v != "first" || err != nil {
		t.Fatalf("Result = %q, %v, %v", v, err, ok)
	}
}

func TestPendingAndCancel(t *testing.T) {
	f := New[int]()
	if _, ok, _ := f.Result(); ok {
		t.Fatal("new future should be pending")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestRejected(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Rejected[int](boom).Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
