package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"guesthouse/internal/config"

	"github.com/rs/zerolog"
)

// Snapshotter is implemented by stores that can copy themselves while serving.
type Snapshotter interface {
	Backend() string
	Snapshot(ctx context.Context, dest string) error
}

// BackupService periodically snapshots the document store and prunes old snapshots.
type BackupService struct {
	store  Snapshotter
	cfg    config.BackupConfig
	now    func() time.Time
	logger *zerolog.Logger
}

func NewBackupService(store Store, cfg config.BackupConfig, logger *zerolog.Logger) (*BackupService, error) {
	snap, ok := store.(Snapshotter)
	if !ok {
		return nil, fmt.Errorf("%s backend does not support backups", store.Backend())
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "backup").Logger()
	}
	return &BackupService{store: snap, cfg: cfg, now: time.Now, logger: &log}, nil
}

// Run backs up immediately, then on every interval until ctx is done.
func (s *BackupService) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return nil
	}

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("path", s.cfg.Path).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot and returns its path. The sqlite backend
// produces a single file, the file backend a directory of collection files.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := "backup_" + s.now().Format("20060102_150405")
	if s.store.Backend() == "sqlite" {
		name += ".db"
	}
	dest := filepath.Join(s.cfg.Path, name)

	if err := s.store.Snapshot(ctx, dest); err != nil {
		return "", err
	}
	s.logger.Info().Str("path", dest).Str("backend", s.store.Backend()).Msg("Backup completed successfully")
	return dest, nil
}

func (s *BackupService) CleanupOldBackups() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("entry", entry.Name()).Msg("Deleting old backup")
			if err := os.RemoveAll(filepath.Join(s.cfg.Path, entry.Name())); err != nil {
				s.logger.Warn().Err(err).Str("entry", entry.Name()).Msg("Failed to delete old backup")
			}
		}
	}
}

// Snapshot uses VACUUM INTO, which is consistent while the store keeps serving.
func (s *SQLiteStore) Snapshot(ctx context.Context, dest string) error {
	quoted := strings.ReplaceAll(dest, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// Snapshot copies every collection file into dest, holding each file's lock
// for the duration of its copy.
func (s *FileStore) Snapshot(ctx context.Context, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, src := range matches {
		if err := s.copyLocked(ctx, src, filepath.Join(dest, filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) copyLocked(ctx context.Context, src, dst string) error {
	if err := s.lock.Acquire(ctx, src); err != nil {
		return fmt.Errorf("lock %s: %w", filepath.Base(src), err)
	}
	defer s.lock.Release(src)

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return destination.Close()
}
