// Package data provides the sources a dataset is built from: CSV tables,
// folders of files, the on-disk feature store and parquet exports.
package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
)

var (
	ErrEmpty        = errors.New("data: no rows")
	ErrInvalidName  = errors.New("data: invalid column name")
	ErrUnsupported  = errors.New("data: unsupported column type")
	ErrColumnLength = errors.New("data: ragged row")
)

// CSVOptions controls LoadCSV.
type CSVOptions struct {
	// Comma is the field delimiter, ',' when zero.
	Comma rune
	// Eager marks the columns as materialized keys of the DictSeq.
	Eager bool
}

// LoadCSV reads a CSV file with a header row into a DictSeq with one key
// per column. Columns whose every non-empty cell parses as a number hold
// float64, the others hold string.
func LoadCSV(ctx context.Context, path string, opts CSVOptions) (*abstract.DictSeq, error) {
	// #nosec G304 -- paths come from the dataset definition
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cols := make([][]string, len(header))
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%s line %d: %d fields, header has %d: %w", path, line, len(rec), len(header), ErrColumnLength)
		}
		for j, v := range rec {
			cols[j] = append(cols[j], v)
		}
	}

	d := abstract.NewDictSeq(path)
	for j, name := range header {
		if err := d.Add(ctx, name, column(cols[j]), abstract.Lazy(!opts.Eager)); err != nil {
			return nil, fmt.Errorf("%s column %q: %w", path, name, err)
		}
	}
	l := xlog.WithComponent("data")
	l.Debug().Str(xlog.FieldPath, path).Int(xlog.FieldTotal, d.Len()).Msg("csv loaded")
	return d, nil
}

// column returns the cells as float64 values when all parse, as strings
// otherwise. Empty cells of a numeric column are NaN.
func column(cells []string) *abstract.Values {
	nums := make([]float64, len(cells))
	numeric := false
	for i, c := range cells {
		if strings.TrimSpace(c) == "" {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return abstract.FromSlice(cells)
		}
		nums[i] = v
		numeric = true
	}
	if !numeric {
		return abstract.FromSlice(cells)
	}
	return abstract.FromSlice(nums)
}

// Row is one record of a streamed CSV file, keyed by the header.
type Row struct {
	Line   int
	Fields map[string]string
}

// StreamCSV streams the rows of a CSV file with a header row. Malformed
// rows are skipped and logged. Both channels are closed when the file is
// read or ctx is done; a read failure is sent on the error channel.
func StreamCSV(ctx context.Context, path string, comma rune) (<-chan Row, <-chan error) {
	out := make(chan Row)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)

		// #nosec G304 -- paths come from the caller
		f, err := os.Open(path)
		if err != nil {
			errc <- err
			return
		}
		defer f.Close()

		r := csv.NewReader(bufio.NewReader(f))
		if comma != 0 {
			r.Comma = comma
		}
		r.FieldsPerRecord = -1
		header, err := r.Read()
		if err != nil {
			errc <- fmt.Errorf("%s: header: %w", path, err)
			return
		}
		header = append([]string(nil), header...)
		logger := xlog.WithComponent("data")

		for line := 2; ; line++ {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				logger.Warn().Err(err).Int("line", line).Msg("skipping malformed record")
				continue
			}
			if len(rec) != len(header) {
				logger.Warn().Int("line", line).Int("fields", len(rec)).Msg("skipping record with wrong field count")
				continue
			}
			row := Row{Line: line, Fields: make(map[string]string, len(header))}
			for j, h := range header {
				row.Fields[h] = rec[j]
			}
			select {
			case out <- row:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}
