package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/repository/memory"
	"alcyxob/flexcoach/internal/session"
)

func TestSaveClientCreatesAndSyncs(t *testing.T) {
	h := newHarness(t, true)

	c, err := h.store.SaveClient(context.Background(), domain.Client{Name: "Sara", Weight: 61.5})
	if err != nil {
		t.Fatalf("SaveClient: %v", err)
	}
	if c.ID == "" {
		t.Fatal("no id assigned")
	}
	if len(c.Plans.Workouts) != domain.WeekDays {
		t.Fatalf("workouts not normalized: %v", c.Plans.Workouts)
	}

	rec, ok := h.remote.Client(c.ID)
	if !ok || rec.Weight != "61.5" || rec.CoachID != testCoach {
		t.Fatalf("remote client = %+v, ok=%v", rec, ok)
	}
	if _, ok := h.remote.Plan(domain.PlanIDForClient(c.ID)); !ok {
		t.Fatal("remote plan missing")
	}
}

func TestSaveClientRevertsNewClientOnRemoteFailure(t *testing.T) {
	h := newHarness(t, true)
	h.remote.Fail(memory.OpClientUpsert, errors.New("connection reset"))

	_, err := h.store.SaveClient(context.Background(), domain.Client{Name: "Ghost"})
	if err == nil {
		t.Fatal("expected error for failed create")
	}
	if got := h.store.ListClients(); len(got) != 0 {
		t.Fatalf("reverted client still listed: %+v", got)
	}
	if h.notes.errorCount() == 0 {
		t.Fatal("failure was not notified")
	}

	// The plan leg landed and must be cleaned up.
	h.store.Wait()
	if h.remote.Calls(memory.OpPlanDelete) != 1 {
		t.Fatalf("plan cleanup calls = %d, want 1", h.remote.Calls(memory.OpPlanDelete))
	}
}

func TestSaveClientKeepsUpdateOnRemoteFailure(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara", Weight: 60})

	h.remote.Fail(memory.OpPlanUpsert, errors.New("timeout"))
	c.Weight = 58
	if _, err := h.store.SaveClient(context.Background(), c); err != nil {
		t.Fatalf("update should not fail: %v", err)
	}

	got, ok := h.store.GetClient(c.ID)
	if !ok || got.Weight != 58 {
		t.Fatalf("in-memory client = %+v, ok=%v", got, ok)
	}
	if h.notes.errorCount() == 0 {
		t.Fatal("failure was not notified")
	}
}

func TestClientRoleCannotSaveOrDelete(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Self"})
	h.loginClient(t, c.ID)

	c.Notes = "edited by client"
	if _, err := h.store.SaveClient(context.Background(), c); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("SaveClient err = %v, want ErrPermissionDenied", err)
	}
	if err := h.store.DeleteClient(context.Background(), c.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("DeleteClient err = %v, want ErrPermissionDenied", err)
	}
	got, _ := h.store.GetClient(c.ID)
	if got.Notes != "" {
		t.Fatalf("denied save changed state: %q", got.Notes)
	}
}

func TestDeleteClientRemovesBothDocuments(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})
	if err := h.store.SetActiveClient(c.ID); err != nil {
		t.Fatalf("SetActiveClient: %v", err)
	}

	if err := h.store.DeleteClient(context.Background(), c.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if _, ok := h.store.GetClient(c.ID); ok {
		t.Fatal("client still in memory")
	}
	if _, ok := h.remote.Client(c.ID); ok {
		t.Fatal("remote client still present")
	}
	if _, ok := h.remote.Plan(domain.PlanIDForClient(c.ID)); ok {
		t.Fatal("remote plan still present")
	}
	if _, ok := h.store.ActiveClient(); ok {
		t.Fatal("deleted client still selected")
	}
}

func TestDeleteClientNeedsConfirmation(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})
	h.confirm = false

	if err := h.store.DeleteClient(context.Background(), c.ID); !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if _, ok := h.store.GetClient(c.ID); !ok {
		t.Fatal("cancelled delete removed the client")
	}
}

func TestDeleteClientFailureRefreshes(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})
	h.remote.Fail(memory.OpClientDelete, errors.New("503"))

	if err := h.store.DeleteClient(context.Background(), c.ID); err == nil {
		t.Fatal("expected error")
	}
	// The clients document survived remotely, so the re-pull brings it back.
	if _, ok := h.store.GetClient(c.ID); !ok {
		t.Fatal("refresh did not restore the surviving client")
	}
	if h.remote.Calls(memory.OpClientFetch) == 0 {
		t.Fatal("no refresh after failed delete")
	}
}

func TestUpdateActiveClientSyncsInBackground(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})

	c.Plans.Diet = append(c.Plans.Diet, domain.DietItem{Meal: "Breakfast", Name: "Oats", Amount: 80, Unit: "g"})
	h.store.UpdateActiveClient(c)

	got, _ := h.store.GetClient(c.ID)
	if len(got.Plans.Diet) != 1 {
		t.Fatalf("local replace not applied: %+v", got.Plans.Diet)
	}

	h.store.Wait()
	plan, ok := h.remote.Plan(domain.PlanIDForClient(c.ID))
	if !ok || len(plan.PlanData.Diet) != 1 || plan.PlanData.Diet[0].Name != "Oats" {
		t.Fatalf("remote plan not synced: %+v", plan.PlanData.Diet)
	}
}

func TestRefreshNormalizesRemoteClients(t *testing.T) {
	h := newHarness(t, true)
	// C1 has an empty workout map and no rest-day menu.
	h.remote.PutClient(domain.ClientRecord{
		ID: "C1", CoachID: testCoach, FullName: "C1",
		ProfileData: &domain.Client{Plans: domain.PlanBundle{
			Workouts: map[int][]domain.WorkoutItem{},
			Diet:     []domain.DietItem{{Meal: "Lunch", Name: "Rice", Amount: 150, Unit: "g"}},
		}},
	})

	if err := h.store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	c, ok := h.store.GetClient("C1")
	if !ok {
		t.Fatal("C1 not loaded")
	}
	for day := 1; day <= domain.WeekDays; day++ {
		items, ok := c.Plans.Workouts[day]
		if !ok || items == nil || len(items) != 0 {
			t.Fatalf("day %d = %v (present=%v), want empty sequence", day, items, ok)
		}
	}
	if len(c.Plans.DietRest) != 1 || c.Plans.DietRest[0] != c.Plans.Diet[0] {
		t.Fatalf("dietRest = %+v, want copy of diet", c.Plans.DietRest)
	}
	c.Plans.DietRest[0].Name = "changed"
	if c.Plans.Diet[0].Name != "Rice" {
		t.Fatal("dietRest shares storage with diet")
	}
	if c.Plans.Supps == nil || c.Plans.Prog == nil {
		t.Fatal("plan arrays not defaulted")
	}
}

func TestRefreshFallsBackToOfflineCache(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Cached"})
	h.sync.FlushNow()

	h.remote.Fail(memory.OpClientFetch, errors.New("offline"))
	err := h.store.Refresh(context.Background())
	if !errors.Is(err, ErrOfflineFallback) {
		t.Fatalf("err = %v, want ErrOfflineFallback", err)
	}
	if _, ok := h.store.GetClient(c.ID); !ok {
		t.Fatal("cached client missing after fallback")
	}
}

func TestOfflineFallbackSkipsOtherCoachSnapshot(t *testing.T) {
	h := newHarness(t, true)
	h.seedClient(t, domain.Client{Name: "Coach one client"})
	if _, err := h.store.SaveTemplate(context.Background(), "Base", "", nil); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	h.sync.FlushNow()

	h.remote.Fail(memory.OpClientFetch, errors.New("offline"))
	err := h.store.Login(context.Background(), &session.Claims{UserID: "coach-2", Role: domain.RoleCoach})
	if !errors.Is(err, ErrOfflineFallback) {
		t.Fatalf("err = %v, want ErrOfflineFallback", err)
	}
	if got := h.store.ListClients(); len(got) != 0 {
		t.Fatalf("coach-2 sees coach-1 clients: %+v", got)
	}
	if got := h.store.Templates(); len(got) != 0 {
		t.Fatalf("coach-2 sees coach-1 templates: %+v", got)
	}
}

func TestClientOrderStableAcrossEdits(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	anna := h.seedClient(t, domain.Client{Name: "Anna"})
	h.seedClient(t, domain.Client{Name: "Ben"})

	if err := h.store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := clientIDs(h.store.ListClients())
	rec, _ := h.remote.Client(anna.ID)
	plan, _ := h.remote.Plan(domain.PlanIDForClient(anna.ID))
	if rec.CreatedAt.IsZero() || plan.CreatedAt.IsZero() {
		t.Fatalf("created_at not set: client %v, plan %v", rec.CreatedAt, plan.CreatedAt)
	}

	anna.Name = "Anna K"
	if _, err := h.store.SaveClient(ctx, anna); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}
	edited, _ := h.remote.Client(anna.ID)
	if !edited.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("client created_at moved from %v to %v", rec.CreatedAt, edited.CreatedAt)
	}
	editedPlan, _ := h.remote.Plan(domain.PlanIDForClient(anna.ID))
	if !editedPlan.CreatedAt.Equal(plan.CreatedAt) {
		t.Fatalf("plan created_at moved from %v to %v", plan.CreatedAt, editedPlan.CreatedAt)
	}

	if err := h.store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after := clientIDs(h.store.ListClients())
	if strings.Join(after, ",") != strings.Join(before, ",") {
		t.Fatalf("order changed after edit: %v -> %v", before, after)
	}
}

func clientIDs(list []domain.Client) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestNotReadyRunsCacheOnly(t *testing.T) {
	h := newHarness(t, false)

	c, err := h.store.SaveClient(context.Background(), domain.Client{Name: "Local"})
	if err != nil {
		t.Fatalf("SaveClient: %v", err)
	}
	if h.remote.Calls(memory.OpClientUpsert) != 0 {
		t.Fatal("remote called while not ready")
	}

	h.sync.FlushNow()
	snap, ok := h.offline.Load(context.Background())
	if !ok || len(snap.Users) != 1 || snap.Users[0].ID != c.ID {
		t.Fatalf("cache snapshot = %+v, ok=%v", snap.Users, ok)
	}

	// A refresh while not ready reads the cache back without losing edits.
	if err := h.store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := h.store.GetClient(c.ID); !ok {
		t.Fatal("client lost by cache-only refresh")
	}
}

func TestTemplatesLifecycle(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})
	ctx := context.Background()

	week := map[int][]domain.WorkoutItem{1: {{Name: "Bench press", Sets: "4", Reps: "8-10"}}}
	tpl, err := h.store.SaveTemplate(ctx, "Push day", "", week)
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if len(tpl.Week) != domain.WeekDays {
		t.Fatalf("template week not normalized: %v", tpl.Week)
	}
	if stored, ok := h.remote.Template(tpl.ID); !ok || stored.CreatedBy != testCoach {
		t.Fatalf("remote template = %+v, ok=%v", stored, ok)
	}

	applied, err := h.store.ApplyTemplate(ctx, c.ID, tpl.ID)
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	if len(applied.Plans.Workouts[1]) != 1 || applied.Plans.Workouts[1][0].Name != "Bench press" {
		t.Fatalf("week not applied: %+v", applied.Plans.Workouts)
	}

	// Editing the client's week must not leak into the template.
	applied.Plans.Workouts[1][0].Name = "Incline press"
	h.store.UpdateActiveClient(applied)
	if got := h.store.Templates()[0].Week[1][0].Name; got != "Bench press" {
		t.Fatalf("template mutated through client: %q", got)
	}

	if err := h.store.DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if len(h.store.Templates()) != 0 {
		t.Fatal("template still listed")
	}
	if _, err := h.store.SaveTemplate(ctx, "  ", "", week); !errors.Is(err, ErrTemplateNameMissing) {
		t.Fatalf("blank name err = %v", err)
	}
}

func TestClientRoleCannotEditTemplates(t *testing.T) {
	h := newHarness(t, true)
	h.loginClient(t, "c1")
	if _, err := h.store.SaveTemplate(context.Background(), "Mine", "", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	h := newHarness(t, false)
	var events []Event
	unsubscribe := h.store.Subscribe(func(ev Event) { events = append(events, ev) })

	c := h.seedClient(t, domain.Client{Name: "Sara"})
	if len(events) == 0 || events[0].Kind != EventClientSaved || events[0].ID != c.ID {
		t.Fatalf("events = %+v", events)
	}

	unsubscribe()
	n := len(events)
	h.seedClient(t, domain.Client{Name: "Other"})
	if len(events) != n {
		t.Fatal("event delivered after unsubscribe")
	}
}

func TestLogoutClearsState(t *testing.T) {
	h := newHarness(t, true)
	c := h.seedClient(t, domain.Client{Name: "Sara"})
	_ = h.store.SetActiveClient(c.ID)

	h.store.Logout(context.Background())

	if len(h.store.ListClients()) != 0 {
		t.Fatal("clients survive logout")
	}
	if h.sess.Authenticated() || h.sess.ActiveID() != "" {
		t.Fatal("session survives logout")
	}
	// The last state was flushed before clearing and is still recoverable.
	if snap, ok := h.offline.Load(context.Background()); !ok || len(snap.Users) != 1 {
		t.Fatalf("offline snapshot after logout = %+v", snap.Users)
	}
}

func TestRestoreSessionReappliesRole(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	if err := h.offline.SaveSession(ctx, domain.RoleClient, "c9"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	h.store.RestoreSession(ctx)

	if h.sess.Role() != domain.RoleClient || h.sess.AccountID() != "c9" || h.sess.ActiveID() != "c9" {
		t.Fatalf("session = %s/%s/%s", h.sess.Role(), h.sess.AccountID(), h.sess.ActiveID())
	}
}
