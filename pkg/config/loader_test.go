package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_DatasetWithVars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dirs", "local.yml"), "data: /mnt/data\nfeat: /mnt/feat\n")
	writeFile(t, filepath.Join(dir, "db", "audio", "DCASE.yaml"), `
name: DCASE2020Task1A
paths:
  data: ${data}/audio
  meta: ${data}
  feat: ${feat}
select:
  name: subsample_by_str
  parameters:
    key: scene
    keep: [park, bus]
split:
  key: audio
  size: 1
  unit: seconds
test_only: true
xval:
  folds: 4
  method: group
  group_key: group
`)

	dirs, err := LoadDirs(filepath.Join(dir, "dirs"), "local")
	require.NoError(t, err)

	var ds Dataset
	require.NoError(t, Load(filepath.Join(dir, "db"), "DCASE", LoadOptions{Walk: true, Vars: dirs}, &ds))

	want := Dataset{
		Name:     "DCASE2020Task1A",
		Paths:    Paths{Data: "/mnt/data/audio", Meta: "/mnt/data", Feat: "/mnt/feat"},
		Select:   &Selector{Name: "subsample_by_str", Params: map[string]any{"key": "scene", "keep": []any{"park", "bus"}}},
		Split:    &Split{Key: "audio", Size: 1, Unit: "seconds"},
		TestOnly: true,
		XVal:     &XVal{Folds: 4, Method: "group", GroupKey: "group"},
	}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DABSTRACT_TEST_ROOT", "/srv")
	writeFile(t, filepath.Join(dir, "flow.yaml"), "dataset: ${DABSTRACT_TEST_ROOT}/x\nworkers: 2\n")

	f := DefaultFlow()
	require.NoError(t, Load(dir, "flow", LoadOptions{}, &f))
	assert.Equal(t, "/srv/x", f.Dataset)
	assert.Equal(t, 2, f.Workers)
	assert.Equal(t, "data", f.Key)
}

func TestLoad_Strict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chain.yaml"), "chain:\n  - name: log1p\n    bogus: 1\n")
	var c Chain
	assert.ErrorIs(t, Load(dir, "chain", LoadOptions{}, &c), ErrParse)

	writeFile(t, filepath.Join(dir, "two.yaml"), "chain: []\n---\nchain: []\n")
	assert.ErrorIs(t, Load(dir, "two", LoadOptions{}, &c), ErrParse)

	writeFile(t, filepath.Join(dir, "empty.yaml"), "")
	assert.NoError(t, Load(dir, "empty", LoadOptions{}, &c))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "deep.yaml"), "{}")

	_, err := Find(dir, "deep", false)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := Find(dir, "deep", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b", "deep.yaml"), p)
}
