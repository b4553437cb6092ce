package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/extractor"
	"igstories/pkg/logger"
	"igstories/pkg/storage"
)

func artifact(dir, name, ext string, at time.Time) storage.Artifact {
	return storage.Artifact{
		Account:  "natgeo",
		Filename: name,
		Path:     filepath.Join(dir, name),
		URL:      "https://scontent.cdninstagram.com/" + name,
		Ext:      ext,
		Size:     20_000,
		SavedAt:  at,
	}
}

func TestFromArtifact(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	e := FromArtifact(artifact("", "natgeo_1.mp4", "mp4", at), extractor.SourceNetwork)
	assert.Equal(t, "video", e.Kind)
	assert.Equal(t, "network", e.Source)
	assert.Equal(t, at, e.SavedAt)

	e = FromArtifact(artifact("", "natgeo_2.jpg", "jpg", at), extractor.SourceImage)
	assert.Equal(t, "image", e.Kind)
	assert.Equal(t, "dom_image", e.Source)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	m, err := Load(t.TempDir(), "natgeo")
	require.NoError(t, err)
	assert.Equal(t, "natgeo", m.Account)
	assert.Empty(t, m.Entries)
}

func TestWriterAppendsOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.NewTestLogger())
	base := time.Unix(1_700_000_000, 0)

	second := artifact(dir, "natgeo_2.jpg", "jpg", base.Add(time.Second))
	first := artifact(dir, "natgeo_1.mp4", "mp4", base)
	w.ArtifactSaved("natgeo", second, extractor.SourceImage)
	w.ArtifactSaved("natgeo", first, extractor.SourceNetwork)
	w.ArtifactSaved("natgeo", first, extractor.SourceNetwork)

	require.True(t, ManifestExists(dir, "natgeo"))
	m, err := Load(dir, "NatGeo")
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "natgeo_1.mp4", m.Entries[0].Filename, "entries are ordered by save time")
	assert.Equal(t, int64(40_000), m.TotalBytes())
	assert.False(t, m.UpdatedAt.IsZero())
}

func TestCleanOrphanedEntries(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.NewTestLogger())
	base := time.Unix(1_700_000_000, 0)

	for i, name := range []string{"natgeo_1.jpg", "natgeo_2.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		w.ArtifactSaved("natgeo", artifact(dir, name, "jpg", base.Add(time.Duration(i)*time.Second)), extractor.SourceImage)
	}
	require.NoError(t, os.Remove(filepath.Join(dir, "natgeo_1.jpg")))

	removed, err := CleanOrphanedEntries(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	m, err := Load(dir, "natgeo")
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "natgeo_2.jpg", m.Entries[0].Filename)

	removed, err = CleanOrphanedEntries(dir)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCorruptManifestIsReplaced(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(ManifestPath(dir, "natgeo"), []byte("{not json"), 0644))

	_, err := Load(dir, "natgeo")
	assert.Error(t, err)

	w := NewWriter(dir, logger.NewTestLogger())
	w.ArtifactSaved("natgeo", artifact(dir, "natgeo_1.jpg", "jpg", time.Now()), extractor.SourceImage)

	m, err := Load(dir, "natgeo")
	require.NoError(t, err)
	assert.Len(t, m.Entries, 1)
}
