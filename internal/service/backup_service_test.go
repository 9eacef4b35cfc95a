package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/storage"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string][]byte{}} }

func (m *memStorage) PutObject(ctx context.Context, key, contentType string, body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = raw
	return nil
}

func (m *memStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (m *memStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://backups.example/" + key + "?sig=test", nil
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	src := newHarness(t, false)
	ctx := context.Background()
	src.seedClient(t, domain.Client{Name: "Sara", Injuries: []string{"knee"}})
	if _, err := src.store.SaveTemplate(ctx, "Full body", "", nil); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	var buf bytes.Buffer
	if err := NewBackupService(src.store, nil).Backup(ctx, &buf); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	var file map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &file); err != nil {
		t.Fatalf("backup is not JSON: %v", err)
	}
	for _, key := range []string{"users", "templates", "timestamp"} {
		if _, ok := file[key]; !ok {
			t.Errorf("backup missing %q", key)
		}
	}

	dst := newHarness(t, true)
	if err := NewBackupService(dst.store, nil).Restore(ctx, &buf); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	clients := dst.store.ListClients()
	if len(clients) != 1 || clients[0].Name != "Sara" || clients[0].Injuries[0] != "knee" {
		t.Fatalf("restored clients = %+v", clients)
	}
	if len(dst.store.Templates()) != 1 {
		t.Fatal("templates not restored")
	}
	if _, ok := dst.remote.Client(clients[0].ID); !ok {
		t.Fatal("restored client not pushed to the remote store")
	}
}

func TestRestoreRejectsMalformedInput(t *testing.T) {
	h := newHarness(t, false)
	svc := NewBackupService(h.store, nil)
	h.seedClient(t, domain.Client{Name: "Keep me"})

	for name, input := range map[string]string{
		"not json": "{{{",
		"no users": `{"templates": []}`,
		"bad type": `{"users": "nope"}`,
	} {
		err := svc.Restore(context.Background(), strings.NewReader(input))
		if !errors.Is(err, ErrInvalidBackup) {
			t.Errorf("%s: err = %v, want ErrInvalidBackup", name, err)
		}
	}
	if clients := h.store.ListClients(); len(clients) != 1 || clients[0].Name != "Keep me" {
		t.Fatalf("state changed by malformed restore: %+v", clients)
	}
}

func TestRestoreNormalizesLegacyShapes(t *testing.T) {
	h := newHarness(t, false)
	legacy := `{"users":[{"id":"u1","name":"Old","age":"31","plans":{"workouts":{"1":[{"name":"Row","sets":3,"reps":"12"}]}}}]}`

	if err := NewBackupService(h.store, nil).Restore(context.Background(), strings.NewReader(legacy)); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	c, ok := h.store.GetClient("u1")
	if !ok {
		t.Fatal("u1 not restored")
	}
	if c.Age != 31 || len(c.Plans.Workouts) != domain.WeekDays || c.Plans.Workouts[1][0].Sets != "3" {
		t.Fatalf("legacy client not normalized: %+v", c)
	}
}

func TestBackupToStorageAndRestoreFromStorage(t *testing.T) {
	h := newHarness(t, true)
	files := newMemStorage()
	svc := NewBackupService(h.store, files)
	ctx := context.Background()
	h.seedClient(t, domain.Client{Name: "Sara"})

	archive, err := svc.BackupToStorage(ctx)
	if err != nil {
		t.Fatalf("BackupToStorage: %v", err)
	}
	if !strings.HasPrefix(archive.ObjectKey, "backups/"+testCoach+"/flexpro_backup_") || !strings.HasSuffix(archive.ObjectKey, ".json") {
		t.Fatalf("object key = %q", archive.ObjectKey)
	}
	if archive.DownloadURL == "" {
		t.Fatal("no download URL")
	}

	if err := svc.ResetSystem(ctx); err != nil {
		t.Fatalf("ResetSystem: %v", err)
	}
	if len(h.store.ListClients()) != 0 {
		t.Fatal("reset left clients behind")
	}

	if err := svc.RestoreFromStorage(ctx, archive.ObjectKey); err != nil {
		t.Fatalf("RestoreFromStorage: %v", err)
	}
	if clients := h.store.ListClients(); len(clients) != 1 || clients[0].Name != "Sara" {
		t.Fatalf("restored clients = %+v", clients)
	}
	if err := svc.RestoreFromStorage(ctx, "backups/missing.json"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("missing object err = %v", err)
	}
}

func TestBackupStorageDisabled(t *testing.T) {
	h := newHarness(t, true)
	if _, err := NewBackupService(h.store, nil).BackupToStorage(context.Background()); !errors.Is(err, ErrBackupStorageOff) {
		t.Fatalf("err = %v, want ErrBackupStorageOff", err)
	}
}

func TestResetSystemClearsCache(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.seedClient(t, domain.Client{Name: "Sara"})
	h.sync.FlushNow()

	if err := NewBackupService(h.store, nil).ResetSystem(ctx); err != nil {
		t.Fatalf("ResetSystem: %v", err)
	}
	if _, ok := h.offline.Load(ctx); ok {
		t.Fatal("offline snapshot survived reset")
	}
	if len(h.store.ListClients()) != 0 {
		t.Fatal("clients survived reset")
	}
}

func TestClientRoleCannotAdminister(t *testing.T) {
	h := newHarness(t, true)
	h.loginClient(t, "c1")
	svc := NewBackupService(h.store, newMemStorage())
	ctx := context.Background()

	if err := svc.Backup(ctx, io.Discard); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Backup err = %v", err)
	}
	if err := svc.Restore(ctx, strings.NewReader(`{"users":[]}`)); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Restore err = %v", err)
	}
	if err := svc.ResetSystem(ctx); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("ResetSystem err = %v", err)
	}
}
