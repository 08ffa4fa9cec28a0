package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/processor"
)

func writeWav(t *testing.T, path string, samples []float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, processor.WriteWav(f, samples, 8000))
	require.NoError(t, f.Close())
}

func TestFolder(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "street", "b.wav"), []float64{0.5, -0.5})
	writeWav(t, filepath.Join(root, "park", "a.wav"), []float64{0.25})
	writeWav(t, filepath.Join(root, "c.wav"), []float64{0})
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o600))

	d, err := Folder(ctx, root, FolderOptions{Extension: ".wav"})
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	assert.ElementsMatch(t, []string{KeyData, KeyExample, KeyFilename, KeyFilepath, KeySubDB}, d.Keys())

	examples, err := d.Key(KeyExample)
	require.NoError(t, err)
	subdbs, err := d.Key(KeySubDB)
	require.NoError(t, err)
	for i, want := range []struct{ example, subdb string }{
		{"c", "main"},
		{"park/a", "park"},
		{"street/b", "street"},
	} {
		v, err := abstract.Get(ctx, examples, i)
		require.NoError(t, err)
		assert.Equal(t, want.example, v)
		v, err = abstract.Get(ctx, subdbs, i)
		require.NoError(t, err)
		assert.Equal(t, want.subdb, v)
	}

	v, _, err := d.Get(ctx, 1, abstract.Args{Key: KeyData})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "park", "a.wav"), v)
}

func TestFolder_ReaderAndStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "a.wav"), []float64{0.5, 0.5, 0.5})
	writeWav(t, filepath.Join(root, "b.wav"), []float64{-0.5})

	store := t.TempDir()
	d, err := Folder(ctx, root, FolderOptions{
		Extension: ".wav",
		Reader:    processor.NewChain(processor.WavReader{}),
		SavePath:  store,
		Workers:   2,
	})
	require.NoError(t, err)
	assert.True(t, FeatureStore{Dir: store}.Exists("a"))

	v, info, err := d.Get(ctx, 0, abstract.Args{Key: KeyData})
	require.NoError(t, err)
	samples, ok := v.([]float64)
	require.True(t, ok)
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.5, samples[0], 1e-3)
	assert.Equal(t, 8000, info[processor.InfoFs])
	assert.Equal(t, 3, info[processor.InfoSamples])
}

func TestFolder_Missing(t *testing.T) {
	_, err := Folder(context.Background(), filepath.Join(t.TempDir(), "none"), FolderOptions{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
