// Package dbs holds the builders of known datasets. Importing it
// registers them with the dataset package.
package dbs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/config"
	"github.com/yonas-y/dabstract/pkg/data"
	"github.com/yonas-y/dabstract/pkg/dataprep"
	"github.com/yonas-y/dabstract/pkg/dataset"
	"github.com/yonas-y/dabstract/pkg/processor"
)

func init() {
	dataset.Register(NameDCASE2020Task1A, DCASE2020Task1A{Workers: runtime.NumCPU()})
}

// NameDCASE2020Task1A is the registered name of DCASE2020Task1A.
const NameDCASE2020Task1A = "DCASE2020Task1A"

// DCASE2020Task1A is the TAU Urban Acoustic Scenes 2020 Mobile
// development set: a folder of wav files and a tab separated meta.csv.
type DCASE2020Task1A struct {
	// Workers decode the raw audio cache.
	Workers int
}

// Prepare checks that the audio folder exists.
func (DCASE2020Task1A) Prepare(_ context.Context, paths config.Paths) error {
	st, err := os.Stat(paths.Data)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s is not a directory, download the development set first", dataset.ErrMissingData, paths.Data)
	}
	return nil
}

// SetData adds the keys audio, identifier, source, scene, scene_id and
// group.
func (b DCASE2020Task1A) SetData(ctx context.Context, ds *dataset.Dataset, paths config.Paths) error {
	audio, err := data.Folder(ctx, paths.Data, data.FolderOptions{
		Extension: ".wav",
		Reader:    processor.NewChain(processor.WavReader{}),
		SavePath:  filepath.Join(paths.Feat, NameDCASE2020Task1A, "audio", "raw"),
		Workers:   b.Workers,
	})
	if err != nil {
		return err
	}
	if err := ds.Add(ctx, "audio", audio); err != nil {
		return err
	}

	meta, err := data.LoadCSV(ctx, filepath.Join(paths.Meta, "meta.csv"), data.CSVOptions{Comma: '\t'})
	if err != nil {
		return err
	}
	columns := map[string][]string{}
	for _, k := range []string{"filename", "identifier", "source_label", "scene_label"} {
		if columns[k], err = stringColumn(ctx, meta, k); err != nil {
			return fmt.Errorf("meta.csv: %w", err)
		}
	}
	examples, err := audio.Key(data.KeyExample)
	if err != nil {
		return err
	}
	rows, err := alignRows(ctx, columns["filename"], examples)
	if err != nil {
		return err
	}

	identifier := reorder(columns["identifier"], rows)
	scene := reorder(columns["scene_label"], rows)
	sceneID, _ := dataprep.SortedLabelEncode(scene)
	group, _ := dataprep.SortedLabelEncode(identifier)
	return ds.AddDict(ctx, map[string]abstract.Sequence{
		"identifier": abstract.FromSlice(identifier),
		"source":     abstract.FromSlice(reorder(columns["source_label"], rows)),
		"scene":      abstract.FromSlice(scene),
		"scene_id":   abstract.FromSlice(sceneID),
		"group":      abstract.FromSlice(group),
	}, abstract.Lazy(false))
}

// alignRows returns the meta row of every audio example. Meta file names
// are relative to the dataset root, with or without extension.
func alignRows(ctx context.Context, filenames []string, examples abstract.Sequence) ([]int, error) {
	pos := make(map[string]int, len(filenames))
	for i, f := range filenames {
		pos[f] = i
	}
	rows := make([]int, examples.Len())
	for i := range rows {
		v, err := abstract.Get(ctx, examples, i)
		if err != nil {
			return nil, err
		}
		name := "audio/" + fmt.Sprint(v)
		r, ok := pos[name]
		if !ok {
			name += ".wav"
			r, ok = pos[name]
		}
		if !ok {
			return nil, fmt.Errorf("meta.csv: %w: no row for %s", dataset.ErrMissingData, name)
		}
		rows[i] = r
	}
	return rows, nil
}

func stringColumn(ctx context.Context, d *abstract.DictSeq, key string) ([]string, error) {
	seq, err := d.Key(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, seq.Len())
	for i := range out {
		v, err := abstract.Get(ctx, seq, i)
		if err != nil {
			return nil, err
		}
		out[i] = fmt.Sprint(v)
	}
	return out, nil
}

func reorder(values []string, rows []int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}
