// Package memory is an in-process implementation of the remote collections.
// It backs the demo driver and lets tests force individual operations to
// fail or block.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/repository"
)

// Op names a single repository operation for failure injection.
type Op string

const (
	OpClientFetch    Op = "clients.fetch"
	OpClientUpsert   Op = "clients.upsert"
	OpClientDelete   Op = "clients.delete"
	OpPlanFetch      Op = "plans.fetch"
	OpPlanUpsert     Op = "plans.upsert"
	OpPlanDelete     Op = "plans.delete"
	OpTemplateFetch  Op = "templates.fetch"
	OpTemplateUpsert Op = "templates.upsert"
	OpTemplateDelete Op = "templates.delete"
	OpRequestFetch   Op = "requests.fetch"
	OpRequestCreate  Op = "requests.create"
	OpRequestStatus  Op = "requests.status"
	OpRequestDelete  Op = "requests.delete"
)

// Store holds all four collections.
type Store struct {
	mu        sync.Mutex
	clients   map[string]domain.ClientRecord
	plans     map[string]domain.WorkoutPlanRecord
	templates map[string]domain.Template
	requests  map[string]domain.ProgramRequest
	failures  map[Op]error
	hooks     map[Op]func(ctx context.Context)
	calls     map[Op]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		clients:   map[string]domain.ClientRecord{},
		plans:     map[string]domain.WorkoutPlanRecord{},
		templates: map[string]domain.Template{},
		requests:  map[string]domain.ProgramRequest{},
		failures:  map[Op]error{},
		hooks:     map[Op]func(ctx context.Context){},
		calls:     map[Op]int{},
	}
}

// Remote exposes the store through the repository interfaces.
func (s *Store) Remote() repository.Remote {
	return repository.Remote{
		Clients:   clientRepo{s},
		Plans:     planRepo{s},
		Templates: templateRepo{s},
		Requests:  requestRepo{s},
	}
}

// Fail makes every later call of op return err until Recover is called.
func (s *Store) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Recover clears an injected failure.
func (s *Store) Recover(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// Hook runs fn at the start of every call of op, outside the store lock.
func (s *Store) Hook(op Op, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[op] = fn
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// begin records the call, runs any hook and returns the injected failure.
func (s *Store) begin(ctx context.Context, op Op) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hooks[op]
	s.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

// PutClient seeds a client document.
func (s *Store) PutClient(rec domain.ClientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[rec.ID] = rec
}

// PutPlan seeds a workout plan document.
func (s *Store) PutPlan(rec domain.WorkoutPlanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[rec.ID] = rec
}

// PutRequest seeds a program request.
func (s *Store) PutRequest(req domain.ProgramRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req.Clone()
}

// Client returns the stored client document.
func (s *Store) Client(id string) (domain.ClientRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.clients[id]
	return rec, ok
}

// Plan returns the stored plan document.
func (s *Store) Plan(id string) (domain.WorkoutPlanRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.plans[id]
	return rec, ok
}

// Template returns the stored template.
func (s *Store) Template(id string) (domain.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	return tpl, ok
}

// Request returns the stored request.
func (s *Store) Request(id string) (domain.ProgramRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	return req.Clone(), ok
}

type clientRepo struct{ s *Store }

func (r clientRepo) FetchByCoach(ctx context.Context, coachID string) ([]domain.ClientRecord, error) {
	if err := r.s.begin(ctx, OpClientFetch); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ClientRecord{}
	for _, rec := range r.s.clients {
		if rec.CoachID == coachID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID) })
	return out, nil
}

func (r clientRepo) Upsert(ctx context.Context, rec *domain.ClientRecord) error {
	if err := r.s.begin(ctx, OpClientUpsert); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := r.s.clients[rec.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.s.clients[rec.ID] = *rec
	return nil
}

func (r clientRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.begin(ctx, OpClientDelete); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.clients, id)
	return nil
}

type planRepo struct{ s *Store }

func (r planRepo) FetchByCoach(ctx context.Context, coachID string) ([]domain.WorkoutPlanRecord, error) {
	if err := r.s.begin(ctx, OpPlanFetch); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.WorkoutPlanRecord{}
	for _, rec := range r.s.plans {
		if rec.CoachID == coachID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r planRepo) Upsert(ctx context.Context, rec *domain.WorkoutPlanRecord) error {
	if err := r.s.begin(ctx, OpPlanUpsert); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := r.s.plans[rec.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.s.plans[rec.ID] = *rec
	return nil
}

func (r planRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.begin(ctx, OpPlanDelete); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.plans, id)
	return nil
}

type templateRepo struct{ s *Store }

func (r templateRepo) FetchByCoach(ctx context.Context, coachID string) ([]domain.Template, error) {
	if err := r.s.begin(ctx, OpTemplateFetch); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Template{}
	for _, tpl := range r.s.templates {
		if tpl.CreatedBy == coachID {
			out = append(out, tpl.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r templateRepo) Upsert(ctx context.Context, tpl *domain.Template) error {
	if err := r.s.begin(ctx, OpTemplateUpsert); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.templates[tpl.ID] = tpl.Clone()
	return nil
}

func (r templateRepo) Delete(ctx context.Context, id, coachID string) error {
	if err := r.s.begin(ctx, OpTemplateDelete); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tpl, ok := r.s.templates[id]
	if !ok || tpl.CreatedBy != coachID {
		return repository.ErrNotFound
	}
	delete(r.s.templates, id)
	return nil
}

type requestRepo struct{ s *Store }

func (r requestRepo) fetch(ctx context.Context, match func(domain.ProgramRequest) bool) ([]domain.ProgramRequest, error) {
	if err := r.s.begin(ctx, OpRequestFetch); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ProgramRequest{}
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, req.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r requestRepo) FetchByCoach(ctx context.Context, coachID string) ([]domain.ProgramRequest, error) {
	return r.fetch(ctx, func(req domain.ProgramRequest) bool { return req.CoachID == coachID })
}

func (r requestRepo) FetchByClient(ctx context.Context, clientID string) ([]domain.ProgramRequest, error) {
	return r.fetch(ctx, func(req domain.ProgramRequest) bool { return req.ClientID == clientID })
}

func (r requestRepo) Create(ctx context.Context, req *domain.ProgramRequest) error {
	if err := r.s.begin(ctx, OpRequestCreate); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	r.s.requests[req.ID] = req.Clone()
	return nil
}

func (r requestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, response string) error {
	if err := r.s.begin(ctx, OpRequestStatus); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := req.Transition(status, response, time.Now().UTC()); err != nil {
		return repository.ErrConflict
	}
	r.s.requests[id] = req
	return nil
}

func (r requestRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.begin(ctx, OpRequestDelete); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.requests, id)
	return nil
}
