package upload

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), 30*time.Minute, nil)
	require.NoError(t, err)
	return m
}

func randomPayload(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.New(rand.NewSource(7)).Read(data)
	require.NoError(t, err)
	return data
}

func TestChunkedUploadReassemblesExactBytes(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, 2*ChunkSize+ChunkSize/2)

	token, err := m.Begin("photo.jpg", 3, int64(len(payload)))
	require.NoError(t, err)

	// Out-of-order delivery must not matter.
	for _, i := range []int{2, 0, 1} {
		start := i * ChunkSize
		end := start + ChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		require.NoError(t, m.PutChunk(token, i, payload[start:end]))
	}

	name, err := m.Finalize(token, "")
	require.NoError(t, err)
	assert.True(t, filepath.Ext(name) == ".jpg")

	f, err := m.Open(name)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))
}

func TestBeginRejectsSizeChunkMismatch(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Begin("a.bin", 2, ChunkSize)
	assert.Error(t, err)

	_, err = m.Begin("a.bin", 1, ChunkSize+1)
	assert.Error(t, err)

	_, err = m.Begin("a.bin", 0, 100)
	assert.Error(t, err)
}

func TestPutChunkValidation(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, ChunkSize+100)
	token, err := m.Begin("a.bin", 2, int64(len(payload)))
	require.NoError(t, err)

	assert.ErrorIs(t, m.PutChunk("no-such-token", 0, payload[:ChunkSize]), ErrSessionNotFound)
	assert.ErrorIs(t, m.PutChunk(token, 2, payload[:ChunkSize]), ErrChunkIndex)
	assert.ErrorIs(t, m.PutChunk(token, -1, payload[:ChunkSize]), ErrChunkIndex)
	assert.ErrorIs(t, m.PutChunk(token, 0, payload[:10]), ErrChunkSize)
	assert.ErrorIs(t, m.PutChunk(token, 1, payload[ChunkSize:ChunkSize+10]), ErrChunkSize)

	require.NoError(t, m.PutChunk(token, 0, payload[:ChunkSize]))
	assert.ErrorIs(t, m.PutChunk(token, 0, payload[:ChunkSize]), ErrDuplicateChunk)
}

func TestFinalizeRequiresAllChunks(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, 2*ChunkSize)
	token, err := m.Begin("a.bin", 2, int64(len(payload)))
	require.NoError(t, err)

	require.NoError(t, m.PutChunk(token, 0, payload[:ChunkSize]))
	_, err = m.Finalize(token, "")
	assert.ErrorIs(t, err, ErrIncomplete)

	// The session survives a premature finalize attempt.
	require.NoError(t, m.PutChunk(token, 1, payload[ChunkSize:]))
	_, err = m.Finalize(token, "")
	require.NoError(t, err)
}

func TestFinalizeChecksum(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, ChunkSize)
	token, err := m.Begin("a.bin", 1, int64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, m.PutChunk(token, 0, payload))

	_, err = m.Finalize(token, "deadbeef")
	assert.ErrorIs(t, err, ErrChecksum)

	// A checksum failure aborts the session and removes the partial file.
	assert.ErrorIs(t, m.Abort(token), ErrSessionNotFound)

	token2, err := m.Begin("b.bin", 1, int64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, m.PutChunk(token2, 0, payload))
	sum := sha256.Sum256(payload)
	name, err := m.Finalize(token2, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestAbortRemovesPartialFile(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, ChunkSize)
	token, err := m.Begin("a.bin", 1, int64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, m.PutChunk(token, 0, payload))

	require.NoError(t, m.Abort(token))
	assert.ErrorIs(t, m.PutChunk(token, 0, payload), ErrSessionNotFound)

	entries, err := os.ReadDir(m.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSweepCollectsAbandonedSessions(t *testing.T) {
	m := newTestManager(t)
	payload := randomPayload(t, ChunkSize)
	_, err := m.Begin("a.bin", 1, int64(len(payload)))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Sweep(time.Now()))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(m.TTL+time.Minute)))

	entries, err := os.ReadDir(m.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenRejectsTraversalAndPartials(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Open("../secrets")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = m.Open("sub/child")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = m.Open("something.part")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = m.Open("missing.bin")
	assert.ErrorIs(t, err, ErrBadName)
}
