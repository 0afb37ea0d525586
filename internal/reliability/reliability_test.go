package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/events"
	testingpkg "github.com/aristath/playground/internal/testing"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type capturePublisher struct {
	events []events.EventData
}

func (p *capturePublisher) Publish(_ context.Context, _ string, data events.EventData) error {
	p.events = append(p.events, data)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = body
	}
	return files
}

func TestBackupService_CreateAndUpload(t *testing.T) {
	db := testingpkg.NewTestDB(t, database.NameLedger)
	_, err := db.Conn().Exec(`INSERT INTO transactions (uuid, date, action, symbol, price, quantity, fee, status, created_at)
		VALUES ('t1', '2024-01-02 00:00:00', 'BUY', 'AAPL', 150, 10, 5.1, 'SUCCESS', 0)`)
	require.NoError(t, err)

	store := newMemoryStore()
	pub := &capturePublisher{}
	svc := NewBackupService(store, []*database.DB{db}, t.TempDir(), pub, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	info, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "playground-backup-2024-03-01-123000.tar.gz", info.Key)
	assert.True(t, strings.HasPrefix(info.Checksum, "sha256:"))

	files := readArchive(t, store.objects[info.Key])
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, metadataFile)

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &meta))
	require.Len(t, meta.Databases, 1)
	assert.Equal(t, "ledger", meta.Databases[0].Name)
	assert.Equal(t, int64(len(files["ledger.db"])), meta.Databases[0].SizeBytes)

	require.Len(t, pub.events, 1)
	done, ok := pub.events[0].(*events.BackupCompletedData)
	require.True(t, ok)
	assert.Equal(t, info.Key, done.Key)
}

func TestBackupService_RotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	for _, day := range []int{1, 2, 3, 4, 25, 30} {
		key := backupPrefix + time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC).Format(backupTimestamp) + backupSuffix
		store.objects[key] = []byte("x")
	}
	store.objects["unrelated.txt"] = []byte("x")

	svc := NewBackupService(store, nil, t.TempDir(), nil, zerolog.Nop())
	svc.now = func() time.Time { return now }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 6)
	assert.Equal(t, 30, backups[0].Timestamp.Day())
	assert.Equal(t, int64(24), backups[0].AgeHours)

	deleted, err := svc.RotateOldBackups(context.Background(), 7)
	require.NoError(t, err)
	// the newest three are kept whatever their age
	assert.Equal(t, 3, deleted)
	assert.Len(t, store.objects, 4)
	assert.Contains(t, store.objects, "unrelated.txt")

	deleted, err = svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

type fakeDatabase struct {
	name        string
	healthErr   error
	checkpoints int
}

func (f *fakeDatabase) Name() string                      { return f.name }
func (f *fakeDatabase) HealthCheck(context.Context) error { return f.healthErr }
func (f *fakeDatabase) WALCheckpoint(string) error {
	f.checkpoints++
	return errors.New("busy")
}

func TestMaintenanceJob(t *testing.T) {
	healthy := &fakeDatabase{name: "ledger"}
	job := NewMaintenanceJob([]Database{healthy}, t.TempDir(), zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 20e9}, nil }

	assert.Equal(t, "daily_maintenance", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, healthy.checkpoints)

	job.usage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 1e8}, nil }
	assert.Error(t, job.Run())

	broken := &fakeDatabase{name: "agents", healthErr: errors.New("malformed")}
	job = NewMaintenanceJob([]Database{broken}, t.TempDir(), zerolog.Nop())
	assert.ErrorContains(t, job.Run(), "agents")
}

func TestMaintenanceJob_RealDatabase(t *testing.T) {
	db := testingpkg.NewTestDB(t, database.NameLedger)
	job := NewMaintenanceJob([]Database{db}, t.TempDir(), zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 20e9}, nil }
	assert.NoError(t, job.Run())
}
