package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/version"
)

const (
	archivePrefix    = "stratalpha-backup-"
	archiveTimestamp = "2006-01-02-150405"
	minBackupsToKeep = 3
)

// BackupService archives the output directories and ships them to an
// object store.
type BackupService struct {
	store  ObjectStore
	prefix string
	dirs   map[string]string // archive subdirectory -> source path
	log    zerolog.Logger
}

// BackupMetadata describes the contents of one backup archive.
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata describes a single file in a backup archive.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo summarizes a stored backup.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewBackupService creates a backup service. dirs maps the name each
// directory gets inside the archive to its path on disk; missing
// directories are skipped.
func NewBackupService(store ObjectStore, keyPrefix string, dirs map[string]string, log zerolog.Logger) *BackupService {
	return &BackupService{
		store:  store,
		prefix: keyPrefix,
		dirs:   dirs,
		log:    log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup archives every configured directory into a single
// tar.gz, records per-file checksums in an embedded metadata file, and
// uploads the archive.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp("", "stratalpha-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	timestamp := time.Now().UTC()
	archiveName := archivePrefix + timestamp.Format(archiveTimestamp) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)

	metadata, err := s.createArchive(archivePath, timestamp)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if len(metadata.Files) == 0 {
		s.log.Warn().Msg("Nothing to back up")
		return nil
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	info, err := archiveFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	key := s.objectKey(archiveName)
	if err := s.store.Upload(ctx, key, archiveFile); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int("files", len(metadata.Files)).
		Int64("size_bytes", info.Size()).
		Msg("Backup completed")

	return nil
}

// ListBackups returns the stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.objectKey(archivePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, ".tar.gz") {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ".tar.gz")
		timestamp, err := time.Parse(archiveTimestamp, timestampStr)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}

		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period while
// always keeping the newest three. retentionDays of zero keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	if len(backups) <= minBackupsToKeep || retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0

	for i, backup := range backups {
		if i < minBackupsToKeep || !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return nil
}

func (s *BackupService) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// createArchive writes the tar.gz and returns the metadata that was
// embedded as backup-metadata.json inside it.
func (s *BackupService) createArchive(archivePath string, timestamp time.Time) (BackupMetadata, error) {
	metadata := BackupMetadata{
		Timestamp: timestamp,
		Version:   version.Version,
	}

	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return metadata, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	names := make([]string, 0, len(s.dirs))
	for name := range s.dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sourceDir := s.dirs[name]
		if _, err := os.Stat(sourceDir); os.IsNotExist(err) {
			s.log.Debug().Str("dir", sourceDir).Msg("Skipping missing backup source")
			continue
		}

		err := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(sourceDir, p)
			if err != nil {
				return err
			}
			nameInArchive := path.Join(name, filepath.ToSlash(rel))

			fileMeta, err := s.addFileToArchive(tarWriter, p, nameInArchive)
			if err != nil {
				return fmt.Errorf("failed to add %s to archive: %w", nameInArchive, err)
			}
			metadata.Files = append(metadata.Files, fileMeta)
			return nil
		})
		if err != nil {
			return metadata, err
		}
	}

	if len(metadata.Files) == 0 {
		return metadata, nil
	}

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return metadata, fmt.Errorf("failed to encode metadata: %w", err)
	}
	header := &tar.Header{
		Name:    "backup-metadata.json",
		Size:    int64(len(encoded)),
		Mode:    0o644,
		ModTime: timestamp,
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return metadata, err
	}
	if _, err := tarWriter.Write(encoded); err != nil {
		return metadata, err
	}

	return metadata, nil
}

func (s *BackupService) addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) (FileMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return FileMetadata{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return FileMetadata{}, err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return FileMetadata{}, err
	}

	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tarWriter, hash), file); err != nil {
		return FileMetadata{}, err
	}

	return FileMetadata{
		Name:      nameInArchive,
		SizeBytes: info.Size(),
		Checksum:  fmt.Sprintf("sha256:%x", hash.Sum(nil)),
	}, nil
}
