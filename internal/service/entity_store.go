package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"alcyxob/flexcoach/internal/cache"
	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/metrics"
	"alcyxob/flexcoach/internal/permission"
	"alcyxob/flexcoach/internal/remotesync"
	"alcyxob/flexcoach/internal/session"
)

// --- Error Definitions ---
var (
	ErrPermissionDenied    = errors.New("coach access required")
	ErrClientNotFound      = errors.New("client not found")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrTemplateNameMissing = errors.New("template name is required")
	ErrCancelled           = errors.New("action cancelled")
	ErrOfflineFallback     = errors.New("remote unavailable, serving offline cache")
)

const backgroundSyncTimeout = 30 * time.Second

// StoreDeps are the collaborators an EntityStore is built from.
type StoreDeps struct {
	Session   *session.Session
	Sync      *remotesync.Orchestrator
	Offline   *cache.OfflineCache // optional
	Notifier  Notifier            // defaults to LogNotifier
	Confirmer Confirmer           // defaults to AutoConfirm
	Metrics   *metrics.Metrics
}

// EntityStore is the in-memory, observable view of one coach's data. It
// applies mutations locally first and lets the orchestrator nudge the
// remote store toward that state.
type EntityStore struct {
	sess      *session.Session
	perms     *permission.Engine
	sync      *remotesync.Orchestrator
	offline   *cache.OfflineCache
	notifier  Notifier
	confirmer Confirmer
	metrics   *metrics.Metrics

	mu        sync.RWMutex
	clients   []domain.Client
	templates []domain.Template
	requests  []domain.ProgramRequest

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	bg sync.WaitGroup
}

// NewEntityStore creates an empty store and attaches it to the
// orchestrator as the source of cache flushes.
func NewEntityStore(deps StoreDeps) *EntityStore {
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}
	if deps.Confirmer == nil {
		deps.Confirmer = AutoConfirm
	}
	s := &EntityStore{
		sess:      deps.Session,
		perms:     permission.NewEngine(deps.Session),
		sync:      deps.Sync,
		offline:   deps.Offline,
		notifier:  deps.Notifier,
		confirmer: deps.Confirmer,
		metrics:   deps.Metrics,
		subs:      map[int]func(Event){},
	}
	s.sync.Attach(s)
	return s
}

// Permissions exposes the engine bound to this store's session.
func (s *EntityStore) Permissions() *permission.Engine { return s.perms }

// Session returns the actor state the store decides on.
func (s *EntityStore) Session() *session.Session { return s.sess }

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription.
func (s *EntityStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *EntityStore) publish(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// --- Clients ---

// ListClients returns copies of every loaded client in load order.
func (s *EntityStore) ListClients() []domain.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	return out
}

// GetClient returns a copy of the client with id.
func (s *EntityStore) GetClient(id string) (domain.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.clientIndex(id); i >= 0 {
		return s.clients[i].Clone(), true
	}
	return domain.Client{}, false
}

// clientIndex must be called with mu held.
func (s *EntityStore) clientIndex(id string) int {
	for i := range s.clients {
		if s.clients[i].ID == id {
			return i
		}
	}
	return -1
}

// putClient replaces or appends c and reports whether it was new.
func (s *EntityStore) putClient(c domain.Client) (isNew bool) {
	s.mu.Lock()
	if i := s.clientIndex(c.ID); i >= 0 {
		s.clients[i] = c
	} else {
		s.clients = append(s.clients, c)
		isNew = true
	}
	s.mu.Unlock()
	s.publish(Event{Kind: EventClientSaved, ID: c.ID})
	return isNew
}

func (s *EntityStore) removeClient(id string) bool {
	s.mu.Lock()
	i := s.clientIndex(id)
	if i >= 0 {
		s.clients = append(s.clients[:i], s.clients[i+1:]...)
	}
	s.mu.Unlock()
	if i < 0 {
		return false
	}
	if s.sess.ActiveID() == id {
		s.sess.SetActiveID("")
	}
	s.publish(Event{Kind: EventClientRemoved, ID: id})
	return true
}

func (s *EntityStore) prepare(in domain.Client) domain.Client {
	c := in
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	if coachID := s.sess.CoachID(); coachID != "" {
		c.CoachID = coachID
	}
	return domain.NormalizeClient(c)
}

// SaveClient creates or updates a client. Local state changes before the
// remote write is issued. When the remote write fails, a new client is
// removed again and an error is returned; an existing client keeps the new
// values and the failure is only notified.
func (s *EntityStore) SaveClient(ctx context.Context, input domain.Client) (domain.Client, error) {
	if !s.perms.HasPermission(permission.ManageUsers, input.ID) {
		s.notifier.Error(ErrPermissionDenied.Error())
		return domain.Client{}, ErrPermissionDenied
	}

	c := s.prepare(input)
	isNew := s.putClient(c)

	out := s.sync.SaveClient(ctx, c)
	if out.OK() {
		if !out.Skipped {
			s.notifier.Success(fmt.Sprintf("Saved %s", displayName(c)))
		}
		return c.Clone(), nil
	}

	if isNew {
		s.removeClient(c.ID)
		s.sync.ScheduleFlush()
		if len(out.Failed()) < len(out.Results) {
			// One leg landed; take it back so the next refresh does not
			// resurrect a half-written client.
			s.compensateCreate(c.ID)
		}
		s.notifier.Error(fmt.Sprintf("Could not create %s: %v", displayName(c), out.Err()))
		return domain.Client{}, fmt.Errorf("create client %s: %w", c.ID, out.Err())
	}

	s.notifier.Error(fmt.Sprintf("Saved %s locally, server sync failed: %v", displayName(c), out.Err()))
	return c.Clone(), nil
}

func (s *EntityStore) compensateCreate(id string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
		defer cancel()
		if out := s.sync.DeleteClient(ctx, id); !out.OK() {
			log.Printf("WARN: cleanup of partially created client %s failed: %v", id, out.Err())
		}
	}()
}

// DeleteClient removes a client and its workout plan after confirmation.
// If a remote delete fails the whole store is re-pulled, since one of the
// two deletes may have landed.
func (s *EntityStore) DeleteClient(ctx context.Context, id string) error {
	if !s.perms.HasPermission(permission.ManageUsers, id) {
		s.notifier.Error(ErrPermissionDenied.Error())
		return ErrPermissionDenied
	}
	c, ok := s.GetClient(id)
	if !ok {
		return ErrClientNotFound
	}
	if !s.confirmer.Confirm(ctx, fmt.Sprintf("Delete %s and their program?", displayName(c))) {
		return ErrCancelled
	}

	s.removeClient(id)

	out := s.sync.DeleteClient(ctx, id)
	if out.OK() {
		if !out.Skipped {
			s.notifier.Success(fmt.Sprintf("Deleted %s", displayName(c)))
		}
		return nil
	}

	s.notifier.Error(fmt.Sprintf("Could not delete %s on the server, reloading: %v", displayName(c), out.Err()))
	if err := s.Refresh(ctx); err != nil {
		log.Printf("WARN: refresh after failed delete of %s: %v", id, err)
	}
	return fmt.Errorf("delete client %s: %w", id, out.Err())
}

// UpdateActiveClient replaces the client locally without a permission
// check and resyncs it in the background. It is meant for high-frequency
// in-session edits that must not wait on the network.
func (s *EntityStore) UpdateActiveClient(c domain.Client) domain.Client {
	c = s.prepare(c)
	s.putClient(c)

	s.bg.Add(1)
	go func(id string) {
		defer s.bg.Done()
		// Send whatever is current by the time this runs, so a late write
		// never carries older values than an earlier one.
		latest, ok := s.GetClient(id)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
		defer cancel()
		if out := s.sync.SaveClient(ctx, latest); !out.OK() {
			s.notifier.Error(fmt.Sprintf("Background sync of %s failed: %v", displayName(latest), out.Err()))
		}
	}(c.ID)
	return c.Clone()
}

// materialize installs a client derived outside the normal edit path (an
// accepted request) and persists it. A remote failure is notified but the
// client stays, since the request that produced it is already resolved.
func (s *EntityStore) materialize(ctx context.Context, c domain.Client) domain.Client {
	c = s.prepare(c)
	s.putClient(c)
	if out := s.sync.SaveClient(ctx, c); !out.OK() {
		s.notifier.Error(fmt.Sprintf("%s added locally, server sync failed: %v", displayName(c), out.Err()))
	}
	return c.Clone()
}

// --- Active selection ---

// SetActiveClient selects the client the actor is working on.
func (s *EntityStore) SetActiveClient(id string) error {
	if !s.perms.HasPermission(permission.ViewProgram, id) {
		return ErrPermissionDenied
	}
	if _, ok := s.GetClient(id); !ok {
		return ErrClientNotFound
	}
	s.sess.SetActiveID(id)
	s.publish(Event{Kind: EventActiveChanged, ID: id})
	return nil
}

// ActiveClient returns the selected client, if any.
func (s *EntityStore) ActiveClient() (domain.Client, bool) {
	id := s.sess.ActiveID()
	if id == "" {
		return domain.Client{}, false
	}
	return s.GetClient(id)
}

// ClearActiveClient drops the selection.
func (s *EntityStore) ClearActiveClient() {
	s.sess.SetActiveID("")
	s.publish(Event{Kind: EventActiveChanged})
}

// --- Templates ---

// Templates returns copies of every template, newest first.
func (s *EntityStore) Templates() []domain.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Clone())
	}
	return out
}

func (s *EntityStore) templateByID(id string) (domain.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Template{}, false
}

// SaveTemplate stores week as a new named template.
func (s *EntityStore) SaveTemplate(ctx context.Context, name, description string, week map[int][]domain.WorkoutItem) (domain.Template, error) {
	if !s.perms.HasPermission(permission.EditProgram, "") {
		return domain.Template{}, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Template{}, ErrTemplateNameMissing
	}

	tpl := domain.Template{
		ID:          domain.NewID(),
		Name:        name,
		Description: description,
		Week:        domain.NormalizeWeek(domain.CloneWeek(week)),
		CreatedBy:   s.sess.CoachID(),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.templates = append([]domain.Template{tpl}, s.templates...)
	s.mu.Unlock()
	s.publish(Event{Kind: EventTemplatesChanged, ID: tpl.ID})

	if out := s.sync.SaveTemplate(ctx, tpl); !out.OK() {
		s.notifier.Error(fmt.Sprintf("Template %q saved locally, server sync failed: %v", name, out.Err()))
	} else if !out.Skipped {
		s.notifier.Success(fmt.Sprintf("Template %q saved", name))
	}
	return tpl.Clone(), nil
}

// DeleteTemplate removes a template.
func (s *EntityStore) DeleteTemplate(ctx context.Context, id string) error {
	if !s.perms.HasPermission(permission.EditProgram, "") {
		return ErrPermissionDenied
	}
	s.mu.Lock()
	found := false
	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return ErrTemplateNotFound
	}
	s.publish(Event{Kind: EventTemplatesChanged, ID: id})

	if out := s.sync.DeleteTemplate(ctx, id); !out.OK() {
		s.notifier.Error(fmt.Sprintf("Could not delete template on the server: %v", out.Err()))
	}
	return nil
}

// ApplyTemplate replaces the client's week with a copy of the template's.
func (s *EntityStore) ApplyTemplate(ctx context.Context, clientID, templateID string) (domain.Client, error) {
	if !s.perms.HasPermission(permission.EditProgram, clientID) {
		return domain.Client{}, ErrPermissionDenied
	}
	c, ok := s.GetClient(clientID)
	if !ok {
		return domain.Client{}, ErrClientNotFound
	}
	tpl, ok := s.templateByID(templateID)
	if !ok {
		return domain.Client{}, ErrTemplateNotFound
	}

	c.Plans.Workouts = domain.NormalizeWeek(tpl.Week)
	s.putClient(c)

	if out := s.sync.SaveClient(ctx, c); !out.OK() {
		s.notifier.Error(fmt.Sprintf("Template applied locally, server sync failed: %v", out.Err()))
	} else if !out.Skipped {
		s.notifier.Success(fmt.Sprintf("Template %q applied to %s", tpl.Name, displayName(c)))
	}
	return c.Clone(), nil
}

// --- Requests (state only; the workflow lives in RequestService) ---

// Requests returns copies of every loaded request.
func (s *EntityStore) Requests() []domain.ProgramRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProgramRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r.Clone())
	}
	return out
}

func (s *EntityStore) request(id string) (domain.ProgramRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.ProgramRequest{}, false
}

func (s *EntityStore) putRequest(r domain.ProgramRequest) {
	s.mu.Lock()
	replaced := false
	for i := range s.requests {
		if s.requests[i].ID == r.ID {
			s.requests[i] = r.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.requests = append([]domain.ProgramRequest{r.Clone()}, s.requests...)
	}
	s.mu.Unlock()
	s.publish(Event{Kind: EventRequestsChanged, ID: r.ID})
}

func (s *EntityStore) removeRequest(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.publish(Event{Kind: EventRequestsChanged, ID: id})
	}
	return found
}

// --- Loading ---

// Refresh re-pulls all four collections for the current coach and replaces
// local state. When the remote is not ready the offline cache is loaded
// instead. When the pull fails the offline cache is loaded and the returned
// error wraps ErrOfflineFallback.
func (s *EntityStore) Refresh(ctx context.Context) error {
	if !s.sync.Ready() {
		// Local edits still waiting on the debounce must reach the cache
		// before it is read back.
		s.sync.FlushNow()
		s.LoadFromCache(ctx)
		s.metrics.ObserveRefresh("cache")
		return nil
	}

	state, err := s.sync.Fetch(ctx)
	if err != nil {
		log.Printf("WARN: refresh for coach %s failed, falling back to offline cache: %v", s.sess.CoachID(), err)
		s.notifier.Error("Could not reach the server, showing offline data")
		s.sync.FlushNow()
		s.LoadFromCache(ctx)
		s.metrics.ObserveRefresh("cache")
		return fmt.Errorf("%w: %v", ErrOfflineFallback, err)
	}

	s.mu.Lock()
	s.clients = state.Clients
	if state.HasTemplates {
		s.templates = state.Templates
	}
	if state.HasRequests {
		s.requests = state.Requests
	}
	s.mu.Unlock()

	s.dropStaleSelection()
	s.metrics.ObserveRefresh("remote")
	s.publish(Event{Kind: EventReloaded})
	s.sync.ScheduleFlush()
	return nil
}

// LoadFromCache replaces local state with the offline snapshot and reports
// whether one was found. A snapshot owned by another coach is not installed;
// local state is emptied instead.
func (s *EntityStore) LoadFromCache(ctx context.Context) bool {
	if s.offline == nil {
		return false
	}
	snap, ok := s.offline.Load(ctx)
	if coach := s.sess.CoachID(); ok && coach != "" && snap.CoachID != "" && snap.CoachID != coach {
		log.Printf("WARN: offline snapshot belongs to coach %s, not loading it for coach %s", snap.CoachID, coach)
		snap, ok = domain.Snapshot{}, false
		// Requests survive replace when the snapshot has none.
		s.mu.Lock()
		s.requests = nil
		s.mu.Unlock()
	}
	s.replace(snap)
	return ok
}

// replace installs snap wholesale. Requests are kept when snap has none.
func (s *EntityStore) replace(snap domain.Snapshot) {
	snap = snap.Normalized()
	s.mu.Lock()
	s.clients = snap.Users
	s.templates = snap.Templates
	if len(snap.Requests) > 0 {
		s.requests = snap.Requests
	}
	s.mu.Unlock()
	s.dropStaleSelection()
	s.publish(Event{Kind: EventReloaded})
}

func (s *EntityStore) dropStaleSelection() {
	if id := s.sess.ActiveID(); id != "" {
		if _, ok := s.GetClient(id); !ok {
			s.sess.SetActiveID("")
		}
	}
}

func (s *EntityStore) clear() {
	s.mu.Lock()
	s.clients = nil
	s.templates = nil
	s.requests = nil
	s.mu.Unlock()
	s.sess.SetActiveID("")
	s.publish(Event{Kind: EventCleared})
}

// Snapshot copies the full entity set.
func (s *EntityStore) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{
		CoachID:   s.sess.CoachID(),
		Users:     make([]domain.Client, 0, len(s.clients)),
		Templates: make([]domain.Template, 0, len(s.templates)),
		Requests:  make([]domain.ProgramRequest, 0, len(s.requests)),
		Timestamp: time.Now().UTC(),
	}
	for _, c := range s.clients {
		snap.Users = append(snap.Users, c.Clone())
	}
	for _, t := range s.templates {
		snap.Templates = append(snap.Templates, t.Clone())
	}
	for _, r := range s.requests {
		snap.Requests = append(snap.Requests, r.Clone())
	}
	return snap
}

// --- Session lifecycle ---

// Login installs the verified identity, persists the role and pulls the
// actor's data.
func (s *EntityStore) Login(ctx context.Context, claims *session.Claims) error {
	// Pending edits are written to the cache under the outgoing identity.
	s.bg.Wait()
	s.sync.FlushNow()
	if err := s.sess.Login(claims); err != nil {
		return err
	}
	if s.offline != nil {
		if err := s.offline.SaveSession(ctx, s.sess.Role(), s.sess.AccountID()); err != nil {
			log.Printf("WARN: could not persist session: %v", err)
		}
	}
	return s.Refresh(ctx)
}

// RestoreSession reapplies the persisted role and account id and loads the
// offline snapshot. The session stays unauthenticated.
func (s *EntityStore) RestoreSession(ctx context.Context) {
	if s.offline == nil {
		return
	}
	role, account := s.offline.LoadSession(ctx)
	if err := s.sess.SetRole(role); err != nil {
		log.Printf("WARN: ignoring persisted role %q: %v", role, err)
	}
	s.sess.SetAccountID(account)
	if role == domain.RoleClient && account != "" {
		s.sess.SetActiveID(account)
	}
	if s.LoadFromCache(ctx) {
		log.Printf("INFO: restored offline snapshot (%d clients)", len(s.ListClients()))
	}
}

// Logout drops the identity and all in-memory state. The offline snapshot
// is flushed first and kept.
func (s *EntityStore) Logout(ctx context.Context) {
	s.bg.Wait()
	s.sync.FlushNow()
	s.sess.Logout()
	s.clear()
	if s.offline != nil {
		if err := s.offline.SaveSession(ctx, domain.RoleCoach, ""); err != nil {
			log.Printf("WARN: could not persist session: %v", err)
		}
	}
}

// Wait blocks until every background resync has settled.
func (s *EntityStore) Wait() {
	s.bg.Wait()
}

// Close waits for background work and writes the final cache snapshot.
func (s *EntityStore) Close() {
	s.bg.Wait()
	s.sync.Close()
}

func displayName(c domain.Client) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "client " + c.ID
}
