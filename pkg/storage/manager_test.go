package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/errors"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "alice_1700000000.mp4", Filename("alice", 1700000000, "mp4"))
}

func TestLimitsFloor(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, 200000, l.Floor("mp4"))
	assert.Equal(t, 15000, l.Floor("jpg"))
}

func TestSizeFloorMonotonicity(t *testing.T) {
	l := Limits{ImageMinBytes: 15000, VideoMinBytes: 200000}

	for _, ext := range []string{"jpg", "mp4"} {
		floor := l.Floor(ext)
		for _, size := range []int{0, 1, floor / 2, floor - 1} {
			assert.Error(t, l.Validate(ext, size), "%s size %d", ext, size)
		}
		for _, size := range []int{floor, floor + 1, floor * 4} {
			assert.NoError(t, l.Validate(ext, size), "%s size %d", ext, size)
		}
	}
}

func TestValidateErrorCarriesSize(t *testing.T) {
	err := DefaultLimits().Validate("mp4", 180000)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, 180000, typed.Code)
}

// 180,000 bytes clears the image floor but not the video floor.
func TestSaveImageVersusVideoAtSameSize(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, DefaultLimits())
	require.NoError(t, err)
	mgr.SetClock(fixedClock(1700000000))

	payload := bytes.Repeat([]byte{0xAB}, 180000)

	art, err := mgr.Save("alice", "https://cdn/x.jpg", "jpg", payload)
	require.NoError(t, err)
	assert.Equal(t, "alice_1700000000.jpg", art.Filename)
	assert.Equal(t, 180000, art.Size)

	written, err := os.ReadFile(filepath.Join(dir, art.Filename))
	require.NoError(t, err)
	assert.Equal(t, payload, written)

	_, err = mgr.Save("alice", "https://cdn/x.mp4", "mp4", payload)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	_, statErr := os.Stat(filepath.Join(dir, "alice_1700000000.mp4"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Equal(t, 1, mgr.SavedCount())
}

func TestSaveNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, Limits{ImageMinBytes: 1, VideoMinBytes: 1})
	require.NoError(t, err)
	mgr.SetClock(fixedClock(42))

	first, err := mgr.Save("bob", "u1", "jpg", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "bob_42.jpg", first.Filename)

	second, err := mgr.Save("bob", "u2", "jpg", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "bob_42_1.jpg", second.Filename)

	third, err := mgr.Save("bob", "u3", "jpg", []byte("third"))
	require.NoError(t, err)
	assert.Equal(t, "bob_42_2.jpg", third.Filename)

	for path, want := range map[string]string{first.Path: "first", second.Path: "second", third.Path: "third"} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))

		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temporary file is cleaned up")
	}
	assert.Equal(t, 3, mgr.SavedCount())
}

func TestSaveKeepsFileFromEarlierRun(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, Limits{ImageMinBytes: 1, VideoMinBytes: 1})
	require.NoError(t, err)
	mgr.SetClock(fixedClock(7))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carol_7.mp4"), []byte("old"), 0644))

	art, err := mgr.Save("carol", "u", "mp4", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, "carol_7_1.mp4", art.Filename)

	old, err := os.ReadFile(filepath.Join(dir, "carol_7.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestSaveSeparatesAccounts(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, Limits{ImageMinBytes: 1, VideoMinBytes: 1})
	require.NoError(t, err)
	mgr.SetClock(fixedClock(42))

	a, err := mgr.Save("alice", "u", "jpg", []byte("a"))
	require.NoError(t, err)
	b, err := mgr.Save("bob", "u", "jpg", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	mgr, err := NewManager(dir, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, dir, mgr.OutputDir())
	assert.DirExists(t, dir)
}
