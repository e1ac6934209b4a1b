package upload

import (
	"bytes"
	"compress/gzip"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/scope-visualizer/backend/internal/storage"
	"github.com/scope-visualizer/backend/internal/testutil"
)

func waitForJob(t *testing.T, m *Manager, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.GetJob(id)
		if !ok {
			t.Fatalf("job %s not found", id)
		}
		if job.Status == StatusComplete || job.Status == StatusError {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for upload job")
	return nil
}

func newTestManager(t *testing.T) (*Manager, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return NewManager(store), store
}

func saveChunks(t *testing.T, store *storage.LocalStore, uploadID string, data []byte, n int) {
	t.Helper()
	chunkSize := (len(data) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(data) {
			hi = len(data)
		}
		if err := store.SaveChunk(uploadID, i, bytes.NewReader(data[lo:hi])); err != nil {
			t.Fatalf("Failed to save chunk %d: %v", i, err)
		}
	}
}

func TestManager_PlainUpload(t *testing.T) {
	m, store := newTestManager(t)

	capture := testutil.SimpleSVBFile("Upload", []uint32{0, 10_000_000}, []float64{1, 2}).Encode()
	saveChunks(t, store, "up-1", capture, 3)

	job := m.StartJob("up-1", "capture.svb", 3, int64(len(capture)), int64(len(capture)), "binary")
	done := waitForJob(t, m, job.ID)

	if done.Status != StatusComplete {
		t.Fatalf("job status = %s, error = %s", done.Status, done.Error)
	}
	if done.Progress != 100 {
		t.Errorf("Progress = %v, want 100", done.Progress)
	}
	if done.FileInfo == nil || done.FileInfo.Size != int64(len(capture)) {
		t.Errorf("unexpected file info: %+v", done.FileInfo)
	}
}

func TestManager_GzipUpload(t *testing.T) {
	m, store := newTestManager(t)

	capture := testutil.SimpleSVBFile("Gzipped", []uint32{0, 10_000_000}, []float64{1, 2}).Encode()

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write(capture)
	gz.Close()

	saveChunks(t, store, "up-gz", compressed.Bytes(), 2)

	job := m.StartJob("up-gz", "capture.svb.gz", 2, int64(len(capture)), int64(compressed.Len()), "gzip")
	done := waitForJob(t, m, job.ID)

	if done.Status != StatusComplete {
		t.Fatalf("job status = %s, error = %s", done.Status, done.Error)
	}

	// Stored file must hold the decompressed capture.
	path, err := store.GetFilePath(done.FileInfo.ID)
	if err != nil {
		t.Fatalf("GetFilePath failed: %v", err)
	}
	stored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stored file: %v", err)
	}
	if !bytes.Equal(stored, capture) {
		t.Error("stored file doesn't match the original capture")
	}
	if done.FileInfo.Size != int64(len(capture)) {
		t.Errorf("decompressed size = %d, want %d", done.FileInfo.Size, len(capture))
	}
}

func TestManager_RejectsGarbage(t *testing.T) {
	m, store := newTestManager(t)

	// Declared header size far beyond the file length.
	garbage := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f, 1, 2, 3}
	saveChunks(t, store, "up-bad", garbage, 1)

	job := m.StartJob("up-bad", "bad.svb", 1, int64(len(garbage)), int64(len(garbage)), "binary")
	done := waitForJob(t, m, job.ID)

	if done.Status != StatusError {
		t.Fatalf("expected error status, got %s", done.Status)
	}
	if !strings.Contains(done.Error, "not a valid capture") {
		t.Errorf("unexpected error message: %s", done.Error)
	}
}

func TestManager_CleanupOldJobs(t *testing.T) {
	m, store := newTestManager(t)

	capture := testutil.SimpleSVBFile("Cleanup", []uint32{0}, []float64{1}).Encode()
	saveChunks(t, store, "up-c", capture, 1)

	job := m.StartJob("up-c", "capture.svb", 1, int64(len(capture)), int64(len(capture)), "binary")
	waitForJob(t, m, job.ID)

	m.CleanupOldJobs(time.Hour)
	if _, ok := m.GetJob(job.ID); !ok {
		t.Error("fresh job should survive cleanup")
	}

	time.Sleep(5 * time.Millisecond)
	m.CleanupOldJobs(time.Nanosecond)
	if _, ok := m.GetJob(job.ID); ok {
		t.Error("finished job should be cleaned up")
	}
}
