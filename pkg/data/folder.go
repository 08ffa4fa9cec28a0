package data

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
)

// Keys of the DictSeq returned by Folder.
const (
	KeyFilepath = "filepath"
	KeyExample  = "example"
	KeyFilename = "filename"
	KeySubDB    = "subdb"
	KeyData     = "data"
)

// FolderOptions controls Folder.
type FolderOptions struct {
	// Extension keeps files with this extension only, e.g. ".wav".
	Extension string
	// Reader maps a file path to its content. Without a reader the data
	// key holds the paths.
	Reader abstract.Mapper
	// SavePath caches the reader output in a FeatureStore rooted here.
	SavePath string
	Workers  int
	Verbose  bool
}

// Folder indexes every file under root. Examples are the paths relative
// to root without extension, with forward slashes, in sorted order. The
// data key is the only active key.
func Folder(ctx context.Context, root string, opts FolderOptions) (*abstract.DictSeq, error) {
	logger := xlog.WithComponentFromContext(ctx, "folder")
	var files []string
	err := filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		if opts.Extension != "" && !strings.EqualFold(filepath.Ext(p), opts.Extension) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("folder %s: %w", root, err)
	}
	slices.Sort(files)

	n := len(files)
	examples := make([]string, n)
	filenames := make([]string, n)
	subdbs := make([]string, n)
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		examples[i] = strings.TrimSuffix(rel, path.Ext(rel))
		filenames[i] = path.Base(rel)
		if dir, _, ok := strings.Cut(rel, "/"); ok {
			subdbs[i] = dir
		} else {
			subdbs[i] = "main"
		}
	}
	logger.Debug().Str(xlog.FieldPath, root).Int(xlog.FieldTotal, n).Msg("folder indexed")

	d := abstract.NewDictSeq(filepath.Base(root))
	paths := abstract.FromSlice(files)
	err = d.AddDict(ctx, map[string]abstract.Sequence{
		KeyFilepath: paths,
		KeyExample:  abstract.FromSlice(examples),
		KeyFilename: abstract.FromSlice(filenames),
		KeySubDB:    abstract.FromSlice(subdbs),
	})
	if err != nil {
		return nil, err
	}

	var content abstract.Sequence = paths
	if opts.Reader != nil {
		if content, err = abstract.NewMap(paths, opts.Reader); err != nil {
			return nil, err
		}
		if opts.SavePath != "" {
			store := FeatureStore{Dir: opts.SavePath}
			err := store.Prepare(ctx, examples, content, PrepareOptions{Workers: opts.Workers, Verbose: opts.Verbose})
			if err != nil {
				return nil, fmt.Errorf("folder %s: %w", root, err)
			}
			content = store.Sequence(examples)
		}
	}
	if err := d.Add(ctx, KeyData, content); err != nil {
		return nil, err
	}
	if err := d.SetActiveKeys(KeyData); err != nil {
		return nil, err
	}
	return d, nil
}
