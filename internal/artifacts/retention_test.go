package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates a file with the given age
func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

func TestCleanupStale_Retention(t *testing.T) {
	store := newTestStore(t)
	dir := store.Dir(NamespaceAudioTemp)

	old := filepath.Join(dir, "input_20250101_000000_old00000.wav")
	fresh := filepath.Join(dir, "input_20250301_000000_new00000.wav")
	nestedOld := filepath.Join(dir, "nested", "leftover.part")

	touch(t, old, 8*24*time.Hour)
	touch(t, fresh, 6*24*time.Hour)
	touch(t, nestedOld, 30*24*time.Hour)

	removed, err := store.CleanupStale(NamespaceAudioTemp, DefaultMaxAge)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"audio/temp/input_20250101_000000_old00000.wav",
		"audio/temp/nested/leftover.part",
	}, removed)
	assert.NoFileExists(t, old)
	assert.NoFileExists(t, nestedOld)
	assert.FileExists(t, fresh)
}

func TestCleanupStale_Idempotent(t *testing.T) {
	store := newTestStore(t)

	touch(t, filepath.Join(store.Dir(NamespaceTranscriptTemp), "a.part"), 10*24*time.Hour)
	touch(t, filepath.Join(store.Dir(NamespaceTranscriptTemp), "b.part"), 9*24*time.Hour)

	first, err := store.CleanupStale(NamespaceTranscriptTemp, DefaultMaxAge)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := store.CleanupStale(NamespaceTranscriptTemp, DefaultMaxAge)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestCleanupStale_UsesClockPerFile(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(NamespaceAudioTemp), "input.wav")
	touch(t, path, time.Hour)

	// A clock two days ahead makes the file stale for a one-day limit
	store.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	removed, err := store.CleanupStale(NamespaceAudioTemp, 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
}

func TestCleanupStale_ProtectedNamespaces(t *testing.T) {
	store := newTestStore(t)

	committed := filepath.Join(store.Dir(NamespaceAudioUser), "user_20200101_000000_aaaaaaaa.wav")
	touch(t, committed, 365*24*time.Hour)

	for _, ns := range []Namespace{
		NamespaceAudioUser,
		NamespaceAudioAssistant,
		NamespaceTranscriptUser,
		NamespaceTranscriptAssistant,
	} {
		_, err := store.CleanupStale(ns, time.Second)
		assert.ErrorIs(t, err, ErrProtectedNamespace, ns)
	}

	assert.FileExists(t, committed)
}

func TestCleanupTemp(t *testing.T) {
	store := newTestStore(t)

	touch(t, filepath.Join(store.Dir(NamespaceAudioTemp), "a.wav"), 8*24*time.Hour)
	touch(t, filepath.Join(store.Dir(NamespaceTranscriptTemp), "b.part"), 8*24*time.Hour)
	touch(t, filepath.Join(store.Dir(NamespaceTranscriptTemp), "c.part"), time.Minute)

	removed, err := store.CleanupTemp(0)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
}
