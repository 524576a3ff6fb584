package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// ChunkSize is the fixed piece size callers split files into. Only the last
// chunk of a session may be shorter.
const ChunkSize = 512 * 1024

var (
	ErrSessionNotFound = errors.New("upload session not found")
	ErrSessionClosed   = errors.New("upload session is no longer accepting chunks")
	ErrChunkIndex      = errors.New("chunk index out of range")
	ErrChunkSize       = errors.New("chunk has wrong size")
	ErrDuplicateChunk  = errors.New("chunk already received")
	ErrIncomplete      = errors.New("not all chunks received")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrBadName         = errors.New("invalid file name")
)

type sessionState int

const (
	stateCollecting sessionState = iota
	stateFinalizing
	stateComplete
	stateAborted
)

type session struct {
	token       string
	storedName  string
	partPath    string
	file        *os.File
	totalChunks int
	totalSize   int64
	received    map[int]struct{}
	state       sessionState
	lastTouched time.Time
}

// Manager reassembles chunked uploads on local disk. Each upload runs
// through Collecting -> Finalizing -> Complete, or is Aborted (explicitly or
// by the janitor when abandoned).
type Manager struct {
	Dir    string
	TTL    time.Duration
	Logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(dir string, ttl time.Duration, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		Dir:      dir,
		TTL:      ttl,
		Logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

// Begin opens a new upload session and returns its token. The stored name
// keeps only the extension of the caller-chosen filename.
func (m *Manager) Begin(filename string, totalChunks int, totalSize int64) (string, error) {
	if totalChunks < 1 || totalSize < 1 {
		return "", fmt.Errorf("%w: totalChunks and totalSize must be positive", ErrChunkIndex)
	}
	min := int64(totalChunks-1)*ChunkSize + 1
	max := int64(totalChunks) * ChunkSize
	if totalSize < min || totalSize > max {
		return "", fmt.Errorf("%w: %d bytes does not fit %d chunks", ErrChunkSize, totalSize, totalChunks)
	}

	token := uuid.NewString()
	storedName := token + sanitizeExt(filename)
	partPath := filepath.Join(m.Dir, storedName+".part")

	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create part file: %w", err)
	}

	m.mu.Lock()
	m.sessions[token] = &session{
		token:       token,
		storedName:  storedName,
		partPath:    partPath,
		file:        f,
		totalChunks: totalChunks,
		totalSize:   totalSize,
		received:    make(map[int]struct{}, totalChunks),
		state:       stateCollecting,
		lastTouched: time.Now(),
	}
	m.mu.Unlock()
	return token, nil
}

// PutChunk writes one piece at its offset. A failed chunk fails only that
// chunk; the session stays open for a retry of the same index.
func (m *Manager) PutChunk(token string, index int, data []byte) error {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.state != stateCollecting {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	if index < 0 || index >= s.totalChunks {
		m.mu.Unlock()
		return ErrChunkIndex
	}
	if _, dup := s.received[index]; dup {
		m.mu.Unlock()
		return ErrDuplicateChunk
	}
	if int64(len(data)) != s.chunkLen(index) {
		m.mu.Unlock()
		return fmt.Errorf("%w: chunk %d must be %d bytes, got %d", ErrChunkSize, index, s.chunkLen(index), len(data))
	}
	s.lastTouched = time.Now()
	m.mu.Unlock()

	if _, err := s.file.WriteAt(data, int64(index)*ChunkSize); err != nil {
		return fmt.Errorf("write chunk %d: %w", index, err)
	}

	m.mu.Lock()
	s.received[index] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (s *session) chunkLen(index int) int64 {
	if index == s.totalChunks-1 {
		return s.totalSize - int64(s.totalChunks-1)*ChunkSize
	}
	return ChunkSize
}

// Finalize verifies the session is complete, optionally checks the SHA-256
// of the assembled file, and publishes it under its stored name.
func (m *Manager) Finalize(token, sha256hex string) (string, error) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return "", ErrSessionNotFound
	}
	if s.state != stateCollecting {
		m.mu.Unlock()
		return "", ErrSessionClosed
	}
	if len(s.received) != s.totalChunks {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %d of %d chunks", ErrIncomplete, len(s.received), s.totalChunks)
	}
	s.state = stateFinalizing
	s.lastTouched = time.Now()
	m.mu.Unlock()

	if err := s.file.Close(); err != nil {
		m.abortSession(s)
		return "", fmt.Errorf("close part file: %w", err)
	}

	if sha256hex != "" {
		sum, err := fileSHA256(s.partPath)
		if err != nil {
			m.abortSession(s)
			return "", err
		}
		if !strings.EqualFold(sum, sha256hex) {
			m.abortSession(s)
			return "", ErrChecksum
		}
	}

	finalPath := filepath.Join(m.Dir, s.storedName)
	if err := os.Rename(s.partPath, finalPath); err != nil {
		m.abortSession(s)
		return "", fmt.Errorf("publish upload: %w", err)
	}

	m.mu.Lock()
	s.state = stateComplete
	delete(m.sessions, token)
	m.mu.Unlock()
	return s.storedName, nil
}

// Abort drops the session and removes its partial file.
func (m *Manager) Abort(token string) error {
	m.mu.Lock()
	s, ok := m.sessions[token]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.abortSession(s)
	return nil
}

func (m *Manager) abortSession(s *session) {
	m.mu.Lock()
	s.state = stateAborted
	delete(m.sessions, s.token)
	m.mu.Unlock()

	_ = s.file.Close()
	if err := os.Remove(s.partPath); err != nil && !errors.Is(err, os.ErrNotExist) && m.Logger != nil {
		m.Logger.Warn("failed to remove partial upload", "path", s.partPath, "err", err)
	}
}

// Sweep aborts sessions idle past the TTL and removes their partial files.
// Returns the number of sessions collected.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var stale []*session
	for _, s := range m.sessions {
		if now.Sub(s.lastTouched) > m.TTL {
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.abortSession(s)
		if m.Logger != nil {
			m.Logger.Info("swept abandoned upload", "token", s.token)
		}
	}
	return len(stale)
}

// RunJanitor sweeps abandoned sessions until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context) {
	interval := m.TTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Open returns a reader for a stored file. Partial files are never served.
func (m *Manager) Open(name string) (*os.File, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || strings.HasSuffix(clean, ".part") {
		return nil, ErrBadName
	}
	f, err := os.Open(filepath.Join(m.Dir, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBadName
		}
		return nil, err
	}
	return f, nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
