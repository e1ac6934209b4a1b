package session

import (
	"context"
	"testing"
	"time"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/testutil"
)

func waitForSession(t *testing.T, m *Manager, id string) *models.DecodeSession {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		s, ok := m.GetSession(id)
		if !ok {
			t.Fatalf("session %s not found", id)
		}
		switch s.Status {
		case models.SessionStatusComplete:
			return s
		case models.SessionStatusError:
			t.Fatalf("session error: %s", s.Error)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for decode")
	return nil
}

func TestManager_DecodeLifecycle(t *testing.T) {
	f := testutil.SimpleSVBFile("Lifecycle", []uint32{0, 10_000_000, 20_000_000}, []float64{1.5, 2.5, 3.5})
	path := testutil.WriteSVBFile(t, f)

	m := NewManagerWithTempDir(t.TempDir())

	sess, err := m.StartSession("file-1", path)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	s := waitForSession(t, m, sess.ID)
	if s.FileName != "Lifecycle" {
		t.Errorf("FileName = %q, want %q", s.FileName, "Lifecycle")
	}
	if s.ChannelCount != 1 {
		t.Errorf("ChannelCount = %d, want 1", s.ChannelCount)
	}
	if s.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", s.SampleCount)
	}
	if s.Progress != 100 {
		t.Errorf("Progress = %v, want 100", s.Progress)
	}

	channels, ok := m.GetChannels(sess.ID)
	if !ok {
		t.Fatal("GetChannels failed")
	}
	if len(channels) != 1 || channels[0].Name != "Main.fActualPosition" {
		t.Fatalf("unexpected channels: %+v", channels)
	}
	if channels[0].DataType != "REAL64" {
		t.Errorf("DataType = %q, want REAL64", channels[0].DataType)
	}
	if channels[0].DurationS != 2 {
		t.Errorf("DurationS = %v, want 2", channels[0].DurationS)
	}

	ds, ok := m.GetStore(sess.ID)
	if !ok {
		t.Fatal("GetStore failed")
	}
	batch, err := ds.QueryWindow(context.Background(), "Main.fActualPosition", 0, 10, 100)
	if err != nil {
		t.Fatalf("QueryWindow failed: %v", err)
	}
	if batch.Total != 3 {
		t.Errorf("stored samples = %d, want 3", batch.Total)
	}

	if !m.DeleteSession(sess.ID) {
		t.Error("DeleteSession returned false")
	}
	if _, ok := m.GetSession(sess.ID); ok {
		t.Error("session still present after delete")
	}
}

func TestManager_DecodeError(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())

	sess, err := m.StartSession("file-1", "does_not_exist.svb")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, _ := m.GetSession(sess.ID)
		if s.Status == models.SessionStatusError {
			if s.Error == "" {
				t.Error("error status without message")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never reached error status")
}

func TestManager_Cleanup(t *testing.T) {
	f := testutil.SimpleSVBFile("Cleanup", []uint32{0, 10_000_000}, []float64{1, 2})
	path := testutil.WriteSVBFile(t, f)

	m := NewManagerWithTempDir(t.TempDir())
	sess, err := m.StartSession("file-1", path)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	waitForSession(t, m, sess.ID)

	// Fresh sessions survive cleanup.
	m.CleanupOldSessions(time.Minute)
	if m.Len() != 1 {
		t.Fatalf("Len = %d after cleanup, want 1", m.Len())
	}

	// Zero max age evicts everything idle.
	time.Sleep(5 * time.Millisecond)
	m.CleanupOldSessions(time.Nanosecond)
	if m.Len() != 0 {
		t.Errorf("Len = %d after aggressive cleanup, want 0", m.Len())
	}
}

func TestManager_TouchSession(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	if m.TouchSession("nope") {
		t.Error("TouchSession on unknown id should return false")
	}
}
