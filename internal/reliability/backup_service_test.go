package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func writeFixtureTree(t *testing.T) (artifactsDir, reportsDir string) {
	t.Helper()
	dir := t.TempDir()
	artifactsDir = filepath.Join(dir, "artifacts")
	reportsDir = filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(artifactsDir, 0o755))
	require.NoError(t, os.MkdirAll(reportsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifactsDir, "comps_table.csv"), []byte("ticker,pe\nNVDA,25\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(reportsDir, "NVDA_memo.md"), []byte("# NVDA Strategic Memo\n"), 0o644))
	return artifactsDir, reportsDir
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUploadBackup(t *testing.T) {
	artifactsDir, reportsDir := writeFixtureTree(t)
	store := newMemoryStore()
	svc := NewBackupService(store, "stratalpha", map[string]string{
		"artifacts": artifactsDir,
		"reports":   reportsDir,
	}, zerolog.Nop())

	require.NoError(t, svc.CreateAndUploadBackup(context.Background()))
	require.Len(t, store.objects, 1)

	var key string
	for k := range store.objects {
		key = k
	}
	assert.True(t, strings.HasPrefix(key, "stratalpha/stratalpha-backup-"))
	assert.True(t, strings.HasSuffix(key, ".tar.gz"))

	files := readArchive(t, store.objects[key])
	assert.Equal(t, []byte("ticker,pe\nNVDA,25\n"), files["artifacts/comps_table.csv"])
	assert.Equal(t, []byte("# NVDA Strategic Memo\n"), files["reports/NVDA_memo.md"])

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Files, 2)
	for _, f := range metadata.Files {
		assert.True(t, strings.HasPrefix(f.Checksum, "sha256:"))
		assert.Greater(t, f.SizeBytes, int64(0))
	}
}

func TestCreateAndUploadBackupSkipsEmptyTree(t *testing.T) {
	store := newMemoryStore()
	svc := NewBackupService(store, "", map[string]string{
		"artifacts": filepath.Join(t.TempDir(), "does-not-exist"),
	}, zerolog.Nop())

	require.NoError(t, svc.CreateAndUploadBackup(context.Background()))
	assert.Empty(t, store.objects)
}

func TestListBackupsSortsNewestFirst(t *testing.T) {
	store := newMemoryStore()
	store.objects["stratalpha-backup-2026-01-01-020000.tar.gz"] = []byte("a")
	store.objects["stratalpha-backup-2026-03-01-020000.tar.gz"] = []byte("bb")
	store.objects["stratalpha-backup-not-a-timestamp.tar.gz"] = []byte("x")

	svc := NewBackupService(store, "", nil, zerolog.Nop())
	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)

	require.Len(t, backups, 2)
	assert.Equal(t, "stratalpha-backup-2026-03-01-020000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Now().UTC()
	for _, age := range []int{1, 2, 3, 400, 500} {
		ts := now.AddDate(0, 0, -age).Format(archiveTimestamp)
		store.objects[archivePrefix+ts+".tar.gz"] = []byte("x")
	}

	svc := NewBackupService(store, "", nil, zerolog.Nop())
	require.NoError(t, svc.RotateOldBackups(context.Background(), 30))

	assert.Len(t, store.deleted, 2)
	assert.Len(t, store.objects, 3)
}

func TestRotateKeepsMinimum(t *testing.T) {
	store := newMemoryStore()
	ts := time.Now().AddDate(0, 0, -400).Format(archiveTimestamp)
	store.objects[archivePrefix+ts+".tar.gz"] = []byte("x")

	svc := NewBackupService(store, "", nil, zerolog.Nop())
	require.NoError(t, svc.RotateOldBackups(context.Background(), 30))
	assert.Empty(t, store.deleted)
}
