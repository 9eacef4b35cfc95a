// Package remotesync fans entity writes out to the remote collections,
// aggregates partial failures without touching local state, and keeps the
// offline cache flushed after every settle.
package remotesync

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"alcyxob/flexcoach/internal/cache"
	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/metrics"
	"alcyxob/flexcoach/internal/repository"
)

// Leg names, also used as metric labels.
const (
	LegClientUpsert   = "clients.upsert"
	LegClientDelete   = "clients.delete"
	LegPlanUpsert     = "plans.upsert"
	LegPlanDelete     = "plans.delete"
	LegTemplateUpsert = "templates.upsert"
	LegTemplateDelete = "templates.delete"
	LegRequestCreate  = "requests.create"
	LegRequestStatus  = "requests.status"
	LegRequestDelete  = "requests.delete"
	LegClientFetch    = "clients.fetch"
	LegPlanFetch      = "plans.fetch"
	LegTemplateFetch  = "templates.fetch"
	LegRequestFetch   = "requests.fetch"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultDebounce = time.Second
	flushTimeout    = 5 * time.Second
)

var ErrRemoteNotReady = errors.New("remote store is not ready")

// Readiness is the remote gate and the owner of remote data.
type Readiness interface {
	RemoteReady() bool
	CoachID() string
}

// SnapshotSource yields the full in-memory entity set for cache flushes.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
}

// Options tunes an Orchestrator.
type Options struct {
	Timeout  time.Duration // per dispatch
	Debounce time.Duration // cache flush quiescence window
	Metrics  *metrics.Metrics
}

// Orchestrator coordinates multi-collection writes.
type Orchestrator struct {
	remote   repository.Remote
	ready    Readiness
	offline  *cache.OfflineCache
	metrics  *metrics.Metrics
	timeout  time.Duration
	debounce *Debouncer

	mu     sync.RWMutex
	source SnapshotSource
}

// New creates an orchestrator. offline may be nil to disable cache flushes.
func New(remote repository.Remote, ready Readiness, offline *cache.OfflineCache, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	o := &Orchestrator{
		remote:  remote,
		ready:   ready,
		offline: offline,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
	}
	o.debounce = NewDebouncer(opts.Debounce, o.flush)
	return o
}

// Attach sets where cache flushes read the entity set from.
func (o *Orchestrator) Attach(src SnapshotSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.source = src
}

// Ready reports the readiness gate.
func (o *Orchestrator) Ready() bool {
	return o.ready.RemoteReady()
}

// dispatch runs legs concurrently unless the remote is not ready, logs each
// failed leg and schedules a cache flush whatever the outcome.
func (o *Orchestrator) dispatch(ctx context.Context, legs ...Leg) Outcome {
	defer o.ScheduleFlush()

	if !o.ready.RemoteReady() {
		for _, leg := range legs {
			o.metrics.ObserveSkipped(leg.Name)
		}
		return Outcome{Skipped: true}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	out := Gather(ctx, legs...)
	for _, r := range out.Results {
		o.metrics.ObserveLeg(r.Name, r.Err)
		if r.Err != nil {
			log.Printf("ERROR: remote leg %s failed: %v", r.Name, r.Err)
		}
	}
	return out
}

// SaveClient upserts the client profile and its workout plan document
// together. Both payloads come from the same entity; a failure in one leg
// does not undo the other.
func (o *Orchestrator) SaveClient(ctx context.Context, c domain.Client) Outcome {
	coachID := o.ready.CoachID()
	clientRec := domain.ClientRecordFrom(c, coachID)
	planRec := domain.WorkoutPlanRecordFrom(c, coachID)

	return o.dispatch(ctx,
		Leg{Name: LegClientUpsert, Run: func(ctx context.Context) error {
			return o.remote.Clients.Upsert(ctx, &clientRec)
		}},
		Leg{Name: LegPlanUpsert, Run: func(ctx context.Context) error {
			return o.remote.Plans.Upsert(ctx, &planRec)
		}},
	)
}

// DeleteClient removes the client record and its derived plan document.
// A document that is already gone counts as deleted.
func (o *Orchestrator) DeleteClient(ctx context.Context, clientID string) Outcome {
	planID := domain.PlanIDForClient(clientID)
	return o.dispatch(ctx,
		Leg{Name: LegPlanDelete, Run: func(ctx context.Context) error {
			return ignoreNotFound(o.remote.Plans.Delete(ctx, planID))
		}},
		Leg{Name: LegClientDelete, Run: func(ctx context.Context) error {
			return ignoreNotFound(o.remote.Clients.Delete(ctx, clientID))
		}},
	)
}

// SaveTemplate stores a template under the current coach.
func (o *Orchestrator) SaveTemplate(ctx context.Context, t domain.Template) Outcome {
	tpl := t.Clone()
	tpl.CreatedBy = o.ready.CoachID()
	return o.dispatch(ctx, Leg{Name: LegTemplateUpsert, Run: func(ctx context.Context) error {
		return o.remote.Templates.Upsert(ctx, &tpl)
	}})
}

// DeleteTemplate removes a template owned by the current coach.
func (o *Orchestrator) DeleteTemplate(ctx context.Context, id string) Outcome {
	coachID := o.ready.CoachID()
	return o.dispatch(ctx, Leg{Name: LegTemplateDelete, Run: func(ctx context.Context) error {
		return ignoreNotFound(o.remote.Templates.Delete(ctx, id, coachID))
	}})
}

// CreateRequest inserts a new program request.
func (o *Orchestrator) CreateRequest(ctx context.Context, r domain.ProgramRequest) Outcome {
	req := r.Clone()
	return o.dispatch(ctx, Leg{Name: LegRequestCreate, Run: func(ctx context.Context) error {
		return o.remote.Requests.Create(ctx, &req)
	}})
}

// TransitionRequest moves a pending request to a terminal status.
func (o *Orchestrator) TransitionRequest(ctx context.Context, id string, status domain.RequestStatus, response string) Outcome {
	return o.dispatch(ctx, Leg{Name: LegRequestStatus, Run: func(ctx context.Context) error {
		return o.remote.Requests.UpdateStatus(ctx, id, status, response)
	}})
}

// DeleteRequest removes a request.
func (o *Orchestrator) DeleteRequest(ctx context.Context, id string) Outcome {
	return o.dispatch(ctx, Leg{Name: LegRequestDelete, Run: func(ctx context.Context) error {
		return ignoreNotFound(o.remote.Requests.Delete(ctx, id))
	}})
}

// RemoteState is what a full pull returned. The Has* flags tell which
// collections actually arrived.
type RemoteState struct {
	Clients      []domain.Client
	Templates    []domain.Template
	Requests     []domain.ProgramRequest
	HasTemplates bool
	HasRequests  bool
}

// Fetch pulls all four collections for the current coach concurrently.
// The clients leg is critical: when it fails the whole pull fails. Plans,
// templates and requests degrade independently.
func (o *Orchestrator) Fetch(ctx context.Context) (RemoteState, error) {
	if !o.ready.RemoteReady() {
		return RemoteState{}, ErrRemoteNotReady
	}
	coachID := o.ready.CoachID()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		clients   []domain.ClientRecord
		plans     []domain.WorkoutPlanRecord
		templates []domain.Template
		requests  []domain.ProgramRequest
	)
	out := Gather(ctx,
		Leg{Name: LegClientFetch, Run: func(ctx context.Context) (err error) {
			clients, err = o.remote.Clients.FetchByCoach(ctx, coachID)
			return err
		}},
		Leg{Name: LegPlanFetch, Run: func(ctx context.Context) (err error) {
			plans, err = o.remote.Plans.FetchByCoach(ctx, coachID)
			return err
		}},
		Leg{Name: LegTemplateFetch, Run: func(ctx context.Context) (err error) {
			templates, err = o.remote.Templates.FetchByCoach(ctx, coachID)
			return err
		}},
		Leg{Name: LegRequestFetch, Run: func(ctx context.Context) (err error) {
			requests, err = o.remote.Requests.FetchByCoach(ctx, coachID)
			return err
		}},
	)

	state := RemoteState{}
	for _, r := range out.Results {
		o.metrics.ObserveLeg(r.Name, r.Err)
		if r.Err != nil {
			log.Printf("ERROR: %s for coach %s failed: %v", r.Name, coachID, r.Err)
			if r.Name == LegClientFetch {
				return RemoteState{}, r.Err
			}
			continue
		}
		switch r.Name {
		case LegTemplateFetch:
			state.HasTemplates = true
			state.Templates = templates
		case LegRequestFetch:
			state.HasRequests = true
			state.Requests = requests
		}
	}

	planByClient := make(map[string]*domain.WorkoutPlanRecord, len(plans))
	for i := range plans {
		planByClient[plans[i].ClientID] = &plans[i]
	}
	state.Clients = make([]domain.Client, 0, len(clients))
	for _, rec := range clients {
		state.Clients = append(state.Clients, domain.ClientFromRecords(rec, planByClient[rec.ID]))
	}
	return state, nil
}

// FetchClientRequests lists requests submitted by clientID.
func (o *Orchestrator) FetchClientRequests(ctx context.Context, clientID string) ([]domain.ProgramRequest, error) {
	if !o.ready.RemoteReady() {
		return nil, ErrRemoteNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	reqs, err := o.remote.Requests.FetchByClient(ctx, clientID)
	o.metrics.ObserveLeg(LegRequestFetch, err)
	return reqs, err
}

// ScheduleFlush (re)starts the cache flush quiescence window.
func (o *Orchestrator) ScheduleFlush() {
	if o.offline == nil {
		return
	}
	o.debounce.Trigger()
}

// FlushNow writes a pending snapshot immediately.
func (o *Orchestrator) FlushNow() {
	o.debounce.Flush()
}

// Close writes any pending snapshot and stops scheduling new ones.
func (o *Orchestrator) Close() {
	o.debounce.Stop()
}

func (o *Orchestrator) flush() {
	o.mu.RLock()
	src := o.source
	o.mu.RUnlock()
	if src == nil || o.offline == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	err := o.offline.Save(ctx, src.Snapshot())
	o.metrics.ObserveFlush(err)
	if err != nil {
		log.Printf("ERROR: offline cache flush failed: %v", err)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
