package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/permission"
	"alcyxob/flexcoach/internal/storage"
)

// --- Error Definitions ---
var (
	ErrInvalidBackup       = errors.New("backup file is malformed")
	ErrBackupStorageOff    = errors.New("backup storage is not configured")
	ErrBackupUploadFailed  = errors.New("failed to upload backup")
	ErrBackupDownloadError = errors.New("failed to generate backup download URL")
)

const (
	backupContentType = "application/json"
	backupPrefix      = "backups"
	maxBackupSize     = 64 << 20
)

// BackupArchive locates an uploaded backup.
type BackupArchive struct {
	ObjectKey   string `json:"objectKey"`
	DownloadURL string `json:"downloadUrl"`
}

// backupFile is the on-disk backup format.
type backupFile struct {
	Users     []domain.Client   `json:"users"`
	Templates []domain.Template `json:"templates"`
	Timestamp time.Time         `json:"timestamp"`
}

// BackupService exports, imports and wipes the coach's data set.
type BackupService interface {
	Backup(ctx context.Context, w io.Writer) error
	BackupToStorage(ctx context.Context) (*BackupArchive, error)

	// Restore replaces clients and templates with the backup read from r.
	// Malformed input leaves state untouched.
	Restore(ctx context.Context, r io.Reader) error
	RestoreFromStorage(ctx context.Context, objectKey string) error

	// ResetSystem wipes local state and the offline cache after confirmation.
	// Remote collections are not touched.
	ResetSystem(ctx context.Context) error
}

// backupService implements BackupService.
type backupService struct {
	store       *EntityStore
	fileStorage storage.FileStorage // nil disables archive uploads
}

// NewBackupService creates a new instance of backupService. fileStorage may
// be nil.
func NewBackupService(store *EntityStore, fileStorage storage.FileStorage) BackupService {
	return &backupService{store: store, fileStorage: fileStorage}
}

func (s *backupService) encode() ([]byte, error) {
	snap := s.store.Snapshot()
	return json.MarshalIndent(backupFile{
		Users:     snap.Users,
		Templates: snap.Templates,
		Timestamp: snap.Timestamp,
	}, "", "  ")
}

func (s *backupService) Backup(ctx context.Context, w io.Writer) error {
	if !s.store.perms.HasPermission(permission.RestoreBackup, "") {
		return ErrPermissionDenied
	}
	payload, err := s.encode()
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	_, err = w.Write(payload)
	return err
}

// BackupToStorage uploads today's backup and returns a temporary download
// link. A second backup on the same day replaces the first.
func (s *backupService) BackupToStorage(ctx context.Context) (*BackupArchive, error) {
	if !s.store.perms.HasPermission(permission.RestoreBackup, "") {
		return nil, ErrPermissionDenied
	}
	if s.fileStorage == nil {
		return nil, ErrBackupStorageOff
	}
	payload, err := s.encode()
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	owner := s.store.sess.CoachID()
	if owner == "" {
		owner = "local"
	}
	objectKey := path.Join(backupPrefix, owner, fmt.Sprintf("flexpro_backup_%s.json", time.Now().UTC().Format("2006-01-02")))

	if err := s.fileStorage.PutObject(ctx, objectKey, backupContentType, bytes.NewReader(payload)); err != nil {
		log.Printf("ERROR: uploading backup %s: %v", objectKey, err)
		return nil, ErrBackupUploadFailed
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		log.Printf("ERROR: presigning backup %s: %v", objectKey, err)
		return nil, ErrBackupDownloadError
	}
	log.Printf("INFO: backup of %d clients written to %s", len(s.store.ListClients()), objectKey)
	return &BackupArchive{ObjectKey: objectKey, DownloadURL: url}, nil
}

func (s *backupService) Restore(ctx context.Context, r io.Reader) error {
	if !s.store.perms.HasPermission(permission.RestoreBackup, "") {
		return ErrPermissionDenied
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBackupSize))
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	var file backupFile
	if err := json.Unmarshal(raw, &file); err != nil {
		log.Printf("WARN: rejecting backup: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if file.Users == nil {
		return fmt.Errorf("%w: no users", ErrInvalidBackup)
	}

	snap := domain.Snapshot{Users: file.Users, Templates: file.Templates, Timestamp: file.Timestamp}.Normalized()
	for i := range snap.Users {
		snap.Users[i] = s.store.prepare(snap.Users[i])
	}
	s.store.replace(snap)
	s.store.sync.ScheduleFlush()

	s.pushRestored(ctx, snap)
	s.store.notifier.Success(fmt.Sprintf("Restored %d clients and %d templates", len(snap.Users), len(snap.Templates)))
	return nil
}

// pushRestored writes the restored entities to the remote store one by
// one. Failures are logged; the restored local state stands.
func (s *backupService) pushRestored(ctx context.Context, snap domain.Snapshot) {
	if !s.store.sync.Ready() {
		return
	}
	failed := 0
	for _, c := range snap.Users {
		if out := s.store.sync.SaveClient(ctx, c); !out.OK() {
			failed++
		}
	}
	for _, t := range snap.Templates {
		if out := s.store.sync.SaveTemplate(ctx, t); !out.OK() {
			failed++
		}
	}
	if failed > 0 {
		s.store.notifier.Error(fmt.Sprintf("Restore applied locally, %d entities failed to sync", failed))
	}
}

func (s *backupService) RestoreFromStorage(ctx context.Context, objectKey string) error {
	if !s.store.perms.HasPermission(permission.RestoreBackup, "") {
		return ErrPermissionDenied
	}
	if s.fileStorage == nil {
		return ErrBackupStorageOff
	}
	body, err := s.fileStorage.GetObject(ctx, objectKey)
	if err != nil {
		return err
	}
	defer body.Close()
	return s.Restore(ctx, body)
}

func (s *backupService) ResetSystem(ctx context.Context) error {
	if !s.store.perms.HasPermission(permission.ResetSystem, "") {
		return ErrPermissionDenied
	}
	if !s.store.confirmer.Confirm(ctx, "Erase all local data? This cannot be undone.") {
		return ErrCancelled
	}

	s.store.Wait()
	s.store.sync.FlushNow()
	s.store.clear()
	if s.store.offline != nil {
		if err := s.store.offline.Clear(ctx); err != nil {
			log.Printf("ERROR: clearing offline cache: %v", err)
			return fmt.Errorf("clear offline cache: %w", err)
		}
	}
	s.store.notifier.Success("All local data erased")
	return nil
}
