package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/permission"
	"alcyxob/flexcoach/internal/repository"

	"golang.org/x/sync/singleflight"
)

// --- Error Definitions ---
var (
	ErrRequestNotFound     = errors.New("program request not found")
	ErrRequestNotPending   = errors.New("program request is no longer pending")
	ErrRequestInFlight     = errors.New("program request is already being resolved")
	ErrInvalidProgramType  = errors.New("invalid program type")
	ErrRequestSubmitFailed = errors.New("failed to submit program request")
)

// RequestService drives program requests from submission to resolution.
type RequestService interface {
	// PendingRequests lists requests still awaiting the coach, newest first.
	PendingRequests() []domain.ProgramRequest
	// RequestsForClient lists every request submitted by clientID.
	RequestsForClient(ctx context.Context, clientID string) ([]domain.ProgramRequest, error)
	SubmitRequest(ctx context.Context, clientID string, programType domain.ProgramType) (*domain.ProgramRequest, error)

	// AcceptRequest marks the request accepted and materializes the client
	// captured in it. Concurrent accepts of one request share a single run.
	AcceptRequest(ctx context.Context, requestID, response string) (*domain.Client, error)
	RejectRequest(ctx context.Context, requestID, response string) error
	// DeleteRequest removes a request whatever its status.
	DeleteRequest(ctx context.Context, requestID string) error
}

// requestService implements RequestService on top of the entity store.
type requestService struct {
	store *EntityStore

	accepts singleflight.Group

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRequestService creates a new instance of requestService.
func NewRequestService(store *EntityStore) RequestService {
	return &requestService{
		store:    store,
		inFlight: map[string]struct{}{},
	}
}

func (s *requestService) PendingRequests() []domain.ProgramRequest {
	var pending []domain.ProgramRequest
	for _, r := range s.store.Requests() {
		if r.Status == domain.RequestPending {
			pending = append(pending, r)
		}
	}
	sortNewestFirst(pending)
	return pending
}

func (s *requestService) RequestsForClient(ctx context.Context, clientID string) ([]domain.ProgramRequest, error) {
	if !s.store.perms.HasPermission(permission.ViewProgram, clientID) {
		return nil, ErrPermissionDenied
	}

	if s.store.sync.Ready() {
		reqs, err := s.store.sync.FetchClientRequests(ctx, clientID)
		if err == nil {
			sortNewestFirst(reqs)
			return reqs, nil
		}
		log.Printf("WARN: fetching requests of client %s failed, using local copy: %v", clientID, err)
	}

	var out []domain.ProgramRequest
	for _, r := range s.store.Requests() {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// SubmitRequest records a pending request carrying a snapshot of the
// client's current profile. It is undone locally if the remote insert fails.
func (s *requestService) SubmitRequest(ctx context.Context, clientID string, programType domain.ProgramType) (*domain.ProgramRequest, error) {
	if !s.store.perms.HasPermission(permission.ViewProgram, clientID) {
		return nil, ErrPermissionDenied
	}
	if !programType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProgramType, programType)
	}
	c, ok := s.store.GetClient(clientID)
	if !ok {
		return nil, ErrClientNotFound
	}
	data, err := domain.SnapshotClientData(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSubmitFailed, err)
	}

	coachID := s.store.sess.CoachID()
	if coachID == "" {
		coachID = c.CoachID
	}
	now := time.Now().UTC()
	req := domain.ProgramRequest{
		ID:          domain.NewID(),
		ClientID:    c.ID,
		ClientName:  c.Name,
		CoachID:     coachID,
		ProgramType: programType,
		Status:      domain.RequestPending,
		ClientData:  data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.store.putRequest(req)

	out := s.store.sync.CreateRequest(ctx, req)
	if !out.OK() {
		s.store.removeRequest(req.ID)
		s.store.sync.ScheduleFlush()
		s.store.notifier.Error(fmt.Sprintf("Could not send program request: %v", out.Err()))
		return nil, fmt.Errorf("%w: %v", ErrRequestSubmitFailed, out.Err())
	}
	if !out.Skipped {
		s.store.notifier.Success("Program request sent to your coach")
	}
	return &req, nil
}

func (s *requestService) AcceptRequest(ctx context.Context, requestID, response string) (*domain.Client, error) {
	if !s.store.perms.HasPermission(permission.ManageUsers, "") {
		return nil, ErrPermissionDenied
	}
	v, err, _ := s.accepts.Do(requestID, func() (interface{}, error) {
		return s.accept(ctx, requestID, response)
	})
	if err != nil {
		return nil, err
	}
	c := v.(domain.Client).Clone()
	return &c, nil
}

func (s *requestService) accept(ctx context.Context, requestID, response string) (domain.Client, error) {
	if err := s.begin(requestID); err != nil {
		return domain.Client{}, err
	}
	defer s.end(requestID)

	req, err := s.pending(requestID)
	if err != nil {
		return domain.Client{}, err
	}
	// Derive before anything is written: a snapshot that cannot become a
	// client must leave the request pending.
	c, err := domain.ClientFromRequest(req)
	if err != nil {
		s.store.notifier.Error(fmt.Sprintf("Request from %s carries no usable profile: %v", req.ClientName, err))
		return domain.Client{}, err
	}

	out := s.store.sync.TransitionRequest(ctx, requestID, domain.RequestAccepted, response)
	if !out.OK() {
		s.store.notifier.Error(fmt.Sprintf("Could not accept request from %s: %v", req.ClientName, out.Err()))
		return domain.Client{}, transitionError("accept", requestID, out.Err())
	}

	if err := req.Transition(domain.RequestAccepted, response, time.Now().UTC()); err != nil {
		return domain.Client{}, err
	}
	s.store.putRequest(req)

	c = s.store.materialize(ctx, c)
	s.store.notifier.Success(fmt.Sprintf("Request from %s accepted", displayName(c)))
	return c, nil
}

func (s *requestService) RejectRequest(ctx context.Context, requestID, response string) error {
	if !s.store.perms.HasPermission(permission.ManageUsers, "") {
		return ErrPermissionDenied
	}
	if err := s.begin(requestID); err != nil {
		return err
	}
	defer s.end(requestID)

	req, err := s.pending(requestID)
	if err != nil {
		return err
	}

	out := s.store.sync.TransitionRequest(ctx, requestID, domain.RequestRejected, response)
	if !out.OK() {
		s.store.notifier.Error(fmt.Sprintf("Could not reject request from %s: %v", req.ClientName, out.Err()))
		return transitionError("reject", requestID, out.Err())
	}

	if err := req.Transition(domain.RequestRejected, response, time.Now().UTC()); err != nil {
		return err
	}
	s.store.putRequest(req)
	s.store.notifier.Success(fmt.Sprintf("Request from %s rejected", req.ClientName))
	return nil
}

func (s *requestService) DeleteRequest(ctx context.Context, requestID string) error {
	if !s.store.perms.HasPermission(permission.ManageUsers, "") {
		return ErrPermissionDenied
	}
	s.store.removeRequest(requestID)
	if out := s.store.sync.DeleteRequest(ctx, requestID); !out.OK() {
		s.store.notifier.Error(fmt.Sprintf("Could not delete request on the server: %v", out.Err()))
	}
	return nil
}

// begin marks the request as being resolved. Only one resolution may run
// per request at a time.
func (s *requestService) begin(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[requestID]; busy {
		return ErrRequestInFlight
	}
	s.inFlight[requestID] = struct{}{}
	return nil
}

func (s *requestService) end(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, requestID)
}

func (s *requestService) pending(requestID string) (domain.ProgramRequest, error) {
	req, ok := s.store.request(requestID)
	if !ok {
		return domain.ProgramRequest{}, ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return domain.ProgramRequest{}, fmt.Errorf("%w: status is %s", ErrRequestNotPending, req.Status)
	}
	return req, nil
}

// transitionError reports a failed remote status update. A conflict means
// the stored request was already resolved elsewhere.
func transitionError(verb, requestID string, err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%s request %s: %w: %w", verb, requestID, ErrRequestNotPending, err)
	}
	return fmt.Errorf("%s request %s: %w", verb, requestID, err)
}

func sortNewestFirst(reqs []domain.ProgramRequest) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}
