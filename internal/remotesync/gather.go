package remotesync

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var ErrLegPanicked = errors.New("remote leg panicked")

// Leg is one independent remote operation of a logical save.
type Leg struct {
	Name string
	Run  func(ctx context.Context) error
}

// LegResult is how one leg settled.
type LegResult struct {
	Name string
	Err  error
}

// Outcome aggregates the settled legs of one dispatch. Skipped is set when
// the remote was not ready and nothing was attempted.
type Outcome struct {
	Skipped bool
	Results []LegResult
}

// Failed returns the legs that settled with an error.
func (o Outcome) Failed() []LegResult {
	var failed []LegResult
	for _, r := range o.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// OK reports whether no leg failed. A skipped dispatch is OK.
func (o Outcome) OK() bool {
	return len(o.Failed()) == 0
}

// Err joins the failed legs, or returns nil.
func (o Outcome) Err() error {
	var errs []error
	for _, r := range o.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
	}
	return errors.Join(errs...)
}

// Gather runs every leg concurrently and waits for all of them. It never
// short-circuits: a failing or panicking leg is recorded and the others
// still run to completion.
func Gather(ctx context.Context, legs ...Leg) Outcome {
	results := make([]LegResult, len(legs))
	var g errgroup.Group
	for i, leg := range legs {
		g.Go(func() error {
			results[i] = LegResult{Name: leg.Name, Err: runGuarded(ctx, leg)}
			return nil
		})
	}
	_ = g.Wait()
	return Outcome{Results: results}
}

func runGuarded(ctx context.Context, leg Leg) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLegPanicked, r)
		}
	}()
	return leg.Run(ctx)
}
