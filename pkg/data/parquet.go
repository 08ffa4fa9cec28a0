package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
)

const parquetParallel = 4

var columnName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// parquetColumn is one exported key.
type parquetColumn struct {
	name   string
	kind   string // BOOLEAN, INT64, DOUBLE, BYTE_ARRAY or LIST
	values []any
}

// WriteParquet exports the keys of d to a parquet file. Keys holding
// bool, int, float64, string or []float64 items become columns; other
// keys are skipped with a warning.
func WriteParquet(ctx context.Context, path string, d *abstract.DictSeq) error {
	logger := xlog.WithComponentFromContext(ctx, "parquet")
	var cols []parquetColumn
	for _, key := range d.Keys() {
		seq, err := d.Key(key)
		if err != nil {
			return err
		}
		values := make([]any, seq.Len())
		for i := range values {
			if values[i], err = abstract.Get(ctx, seq, i); err != nil {
				return fmt.Errorf("parquet %q item %d: %w", key, i, err)
			}
		}
		kind, ok := columnKind(values)
		if !ok {
			logger.Warn().Str(xlog.FieldKey, key).Msg("skipping key with unsupported item type")
			continue
		}
		if !columnName.MatchString(key) {
			return fmt.Errorf("parquet %q: %w", key, ErrInvalidName)
		}
		cols = append(cols, parquetColumn{name: key, kind: kind, values: values})
	}
	if len(cols) == 0 {
		return fmt.Errorf("parquet %s: %w", path, ErrUnsupported)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("parquet %s: %w", path, err)
	}
	pw, err := writer.NewJSONWriter(parquetSchema(cols), fw, parquetParallel)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range d.Len() {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.name] = jsonCell(c.values[i])
		}
		b, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet row %d: %w", i, err)
		}
		if err := pw.Write(string(b)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		return err
	}
	logger.Debug().Str(xlog.FieldPath, path).Int(xlog.FieldTotal, d.Len()).Int("columns", len(cols)).Msg("parquet written")
	return nil
}

// jsonCell maps NaN and infinite scalars to null, which the optional
// columns store as a missing cell. List columns are repeated and cannot
// hold missing elements.
func jsonCell(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil
		}
	}
	return v
}

// columnKind returns the parquet type shared by all values.
func columnKind(values []any) (string, bool) {
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case bool:
			k = "BOOLEAN"
		case int, int32, int64:
			k = "INT64"
		case float32, float64:
			k = "DOUBLE"
		case string:
			k = "BYTE_ARRAY"
		case []float64:
			k = "LIST"
		default:
			return "", false
		}
		switch {
		case kind == "":
			kind = k
		case kind == "INT64" && k == "DOUBLE":
			kind = k
		case kind == "DOUBLE" && k == "INT64":
		case kind != k:
			return "", false
		}
	}
	return kind, kind != ""
}

func parquetSchema(cols []parquetColumn) string {
	fields := make([]map[string]string, 0, len(cols))
	for _, c := range cols {
		var tag string
		switch c.kind {
		case "LIST":
			tag = fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=REPEATED", c.name)
		case "BYTE_ARRAY":
			tag = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.name)
		default:
			tag = fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", c.name, c.kind)
		}
		fields = append(fields, map[string]string{"Tag": tag})
	}
	b, _ := json.Marshal(map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	return string(b)
}

// ReadParquet loads a file written by WriteParquet into a DictSeq named
// after the file.
func ReadParquet(ctx context.Context, path string) (*abstract.DictSeq, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, parquetParallel)
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows, err := pr.ReadByNumber(int(pr.GetNumRows()))
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	decoded := make([]map[string]any, len(rows))
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&decoded[i]); err != nil {
			return nil, fmt.Errorf("parquet %s row %d: %w", path, i, err)
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d := abstract.NewDictSeq(name)
	elems := pr.SchemaHandler.SchemaElements
	for i := 1; i < len(elems); i++ {
		info := pr.SchemaHandler.Infos[i]
		col, err := readColumn(decoded, elems[i], info.ExName, info.InName)
		if err != nil {
			return nil, fmt.Errorf("parquet %s column %q: %w", path, info.ExName, err)
		}
		if err := d.Add(ctx, info.ExName, col); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// readColumn converts the decoded cells of one column. Missing doubles
// read as NaN, other missing cells as zero values.
func readColumn(rows []map[string]any, elem *parquet.SchemaElement, names ...string) (abstract.Sequence, error) {
	cell := func(row map[string]any) any {
		for _, n := range names {
			if v, ok := row[n]; ok {
				return v
			}
		}
		return nil
	}
	if elem.RepetitionType != nil && *elem.RepetitionType == parquet.FieldRepetitionType_REPEATED {
		out := make([][]float64, len(rows))
		for i, row := range rows {
			list, _ := cell(row).([]any)
			out[i] = make([]float64, len(list))
			for j, v := range list {
				f, err := toFloat(v)
				if err != nil {
					return nil, err
				}
				out[i][j] = f
			}
		}
		return abstract.FromSlice(out), nil
	}
	if elem.Type == nil {
		return nil, ErrUnsupported
	}
	switch *elem.Type {
	case parquet.Type_BOOLEAN:
		out := make([]bool, len(rows))
		for i, row := range rows {
			out[i], _ = cell(row).(bool)
		}
		return abstract.FromSlice(out), nil
	case parquet.Type_INT64, parquet.Type_INT32:
		out := make([]int, len(rows))
		for i, row := range rows {
			if n, ok := cell(row).(json.Number); ok {
				v, err := n.Int64()
				if err != nil {
					return nil, err
				}
				out[i] = int(v)
			}
		}
		return abstract.FromSlice(out), nil
	case parquet.Type_DOUBLE, parquet.Type_FLOAT:
		out := make([]float64, len(rows))
		for i, row := range rows {
			v := cell(row)
			if v == nil {
				out[i] = math.NaN()
				continue
			}
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return abstract.FromSlice(out), nil
	case parquet.Type_BYTE_ARRAY:
		out := make([]string, len(rows))
		for i, row := range rows {
			out[i], _ = cell(row).(string)
		}
		return abstract.FromSlice(out), nil
	}
	return nil, ErrUnsupported
}

func toFloat(v any) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%v: %w", v, ErrUnsupported)
	}
	return n.Float64()
}
