// Package session manages decode sessions: one open SVB capture plus its
// DuckDB sample store per session.
package session

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scope-visualizer/backend/internal/models"
	"github.com/scope-visualizer/backend/internal/store"
	"github.com/scope-visualizer/backend/internal/svb"
)

// MaxSessions limits concurrent sessions to bound open mappings and DuckDB files.
const MaxSessions = 10

// SessionMaxAge is how long to keep completed sessions before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively used.
const SessionKeepAliveWindow = 5 * time.Minute

// Manager handles active decode sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	tempDir  string
}

// SessionState holds the session metadata, the open capture and its store.
//
// File owns the data mapping every channel view borrows; it stays open for
// the whole session lifetime and is only closed on eviction.
type SessionState struct {
	Session      *models.DecodeSession
	File         *svb.File
	Store        *store.DuckStore
	LastAccessed time.Time
}

// NewManager creates a session manager. The temp directory for per-session
// DuckDB files comes from DUCKDB_TEMP_DIR, defaulting to ./data/temp.
func NewManager() *Manager {
	tempDir := os.Getenv("DUCKDB_TEMP_DIR")
	if tempDir == "" {
		tempDir = "./data/temp"
	}
	os.MkdirAll(tempDir, 0755)
	return NewManagerWithTempDir(tempDir)
}

// NewManagerWithTempDir creates a session manager with a specific temp directory.
func NewManagerWithTempDir(tempDir string) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		tempDir:  tempDir,
	}
}

// StartSession begins decoding a capture file in the background.
func (m *Manager) StartSession(fileID, filePath string) (*models.DecodeSession, error) {
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()

	session := models.NewDecodeSession(sessionID, fileID)
	session.Status = models.SessionStatusDecoding

	m.mu.Lock()
	m.sessions[sessionID] = &SessionState{
		Session:      session,
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.runDecode(sessionID, filePath)

	return session, nil
}

func (m *Manager) runDecode(sessionID, filePath string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Decode %s] PANIC recovered: %v\n", sessionID[:8], r)
			m.updateSessionError(sessionID, fmt.Sprintf("decode panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Decode %s] Opening %s\n", sessionID[:8], filePath)

	// Decoding the header region is all-or-nothing: Open either yields a
	// complete channel table or fails for the whole file.
	f, err := svb.Open(filePath)
	if err != nil {
		fmt.Printf("[Decode %s] ERROR: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("decode failed: %v", err))
		return
	}

	names := f.Channels()
	fmt.Printf("[Decode %s] Capture %q: %d channels\n", sessionID[:8], f.Name, len(names))
	if len(f.Duplicates) > 0 {
		fmt.Printf("[Decode %s] WARNING: duplicate channel names (kept last): %v\n",
			sessionID[:8], f.Duplicates)
	}

	m.updateProgress(sessionID, 10)

	ds, err := store.NewDuckStore(m.tempDir, sessionID)
	if err != nil {
		f.Close()
		fmt.Printf("[Decode %s] ERROR: failed to create store: %v\n", sessionID[:8], err)
		m.updateSessionError(sessionID, fmt.Sprintf("failed to create storage: %v", err))
		return
	}

	var totalSamples int64
	for i, name := range names {
		ch, err := f.Channel(name)
		if err != nil {
			continue
		}
		if err := ds.LoadChannel(name, ch.Time(), ch.Values()); err != nil {
			f.Close()
			ds.Close()
			fmt.Printf("[Decode %s] ERROR: loading %q: %v\n", sessionID[:8], name, err)
			m.updateSessionError(sessionID, fmt.Sprintf("storing channel %q: %v", name, err))
			return
		}
		totalSamples += int64(ch.Len())
		m.updateProgress(sessionID, 10+80*float64(i+1)/float64(len(names)))
	}

	if err := ds.Finalize(); err != nil {
		f.Close()
		ds.Close()
		m.updateSessionError(sessionID, fmt.Sprintf("finalizing storage: %v", err))
		return
	}

	elapsed := time.Since(start).Milliseconds()
	fmt.Printf("[Decode %s] Complete: %d channels, %d samples in %dms\n",
		sessionID[:8], len(names), totalSamples, elapsed)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		// Session evicted while decoding.
		f.Close()
		ds.Close()
		return
	}

	state.File = f
	state.Store = ds
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.FileName = f.Name
	state.Session.ChannelCount = len(names)
	state.Session.SampleCount = totalSamples
	state.Session.ProcessingTimeMs = elapsed
	state.Session.StartTime = f.StartTime.UnixMilli()
	state.Session.EndTime = f.EndTime.UnixMilli()
	state.Session.DuplicateChannels = f.Duplicates
}

func (m *Manager) updateProgress(sessionID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = progress
	}
}

func (m *Manager) updateSessionError(sessionID, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Status = models.SessionStatusError
		state.Session.Error = msg
	}
}

// GetSession returns the session metadata.
func (m *Manager) GetSession(id string) (*models.DecodeSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// TouchSession refreshes the keep-alive timer.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetFile returns the open capture of a completed session.
func (m *Manager) GetFile(id string) (*svb.File, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok || state.File == nil {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.File, true
}

// GetStore returns the sample store of a completed session.
func (m *Manager) GetStore(id string) (*store.DuckStore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok || state.Store == nil {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Store, true
}

// GetChannels returns the API view of all channel headers in file order.
func (m *Manager) GetChannels(id string) ([]models.ChannelInfo, bool) {
	f, ok := m.GetFile(id)
	if !ok {
		return nil, false
	}

	names := f.Channels()
	infos := make([]models.ChannelInfo, 0, len(names))
	for _, name := range names {
		ch, err := f.Channel(name)
		if err != nil {
			continue
		}
		h := ch.Header
		info := models.ChannelInfo{
			Name:          h.Name,
			NetID:         h.NetID,
			Port:          h.Port,
			SamplePeriodS: h.SamplePeriod().Seconds(),
			SymbolBased:   h.SymbolBased,
			SymbolName:    h.SymbolName,
			Comment:       h.Comment,
			DataType:      string(h.DataType),
			SampleCount:   int64(h.SampleCount),
			Offset:        h.Offset,
			Scale:         h.Scale,
		}
		if axis := ch.Time(); len(axis) > 0 {
			info.DurationS = axis[len(axis)-1] - axis[0]
		}
		infos = append(infos, info)
	}
	return infos, true
}

// GetChannel returns one decoded channel of a completed session.
func (m *Manager) GetChannel(id, name string) (*svb.Channel, error) {
	f, ok := m.GetFile(id)
	if !ok {
		return nil, fmt.Errorf("session not found or not complete: %s", id)
	}
	return f.Channel(name)
}

// DeleteSession evicts one session and releases its capture and store.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.closeStateLocked(id, state)
	return true
}

func (m *Manager) closeStateLocked(id string, state *SessionState) {
	if state.File != nil {
		state.File.Close()
	}
	if state.Store != nil {
		state.Store.Close()
	}
	delete(m.sessions, id)
}

// CleanupOldSessions evicts sessions not touched within maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, state := range m.sessions {
		if now.Sub(state.LastAccessed) > maxAge {
			fmt.Printf("[Session %s] Evicting (idle %v)\n", id[:8], now.Sub(state.LastAccessed).Round(time.Second))
			m.closeStateLocked(id, state)
		}
	}
}

// cleanupOldSessionsIfNeeded makes room when the session table is full,
// evicting the least recently used completed session first.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusDecoding {
			continue
		}
		if oldestID == "" || state.LastAccessed.Before(oldest) {
			oldestID = id
			oldest = state.LastAccessed
		}
	}
	if oldestID != "" {
		fmt.Printf("[Session %s] Evicting to make room\n", oldestID[:8])
		m.closeStateLocked(oldestID, m.sessions[oldestID])
	}
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
