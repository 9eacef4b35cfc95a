package remotesync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGatherCollectsAllResults(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32
	out := Gather(context.Background(),
		Leg{Name: "a", Run: func(ctx context.Context) error { ran.Add(1); return nil }},
		Leg{Name: "b", Run: func(ctx context.Context) error { ran.Add(1); return boom }},
		Leg{Name: "c", Run: func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			ran.Add(1)
			return nil
		}},
	)

	if ran.Load() != 3 {
		t.Fatalf("ran %d legs, want 3", ran.Load())
	}
	if out.Skipped {
		t.Fatal("outcome should not be skipped")
	}
	if out.OK() {
		t.Fatal("outcome with a failed leg reported OK")
	}
	failed := out.Failed()
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("failed legs = %+v, want only b", failed)
	}
	if !errors.Is(out.Err(), boom) {
		t.Fatalf("Err() = %v, want wrapping boom", out.Err())
	}
	for i, name := range []string{"a", "b", "c"} {
		if out.Results[i].Name != name {
			t.Errorf("result %d is %q, want %q", i, out.Results[i].Name, name)
		}
	}
}

func TestGatherRecoversPanics(t *testing.T) {
	out := Gather(context.Background(),
		Leg{Name: "panics", Run: func(ctx context.Context) error { panic("bad payload") }},
		Leg{Name: "fine", Run: func(ctx context.Context) error { return nil }},
	)
	if !errors.Is(out.Results[0].Err, ErrLegPanicked) {
		t.Fatalf("panicking leg err = %v, want ErrLegPanicked", out.Results[0].Err)
	}
	if out.Results[1].Err != nil {
		t.Fatalf("healthy leg err = %v", out.Results[1].Err)
	}
}

func TestOutcomeSkippedIsOK(t *testing.T) {
	out := Outcome{Skipped: true}
	if !out.OK() || out.Err() != nil {
		t.Fatalf("skipped outcome: OK=%v Err=%v", out.OK(), out.Err())
	}
}
