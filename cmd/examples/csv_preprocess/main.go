package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/abstract"
	"github.com/yonas-y/dabstract/pkg/config"
	"github.com/yonas-y/dabstract/pkg/data"
	"github.com/yonas-y/dabstract/pkg/dataprep"
	"github.com/yonas-y/dabstract/pkg/processor"
)

//
// ---------------------- CLI FLAGS DOCUMENTATION ----------------------
//
// --input     : Path to input CSV file. Default = Employee.csv
// --output    : Parquet file receiving the processed table. Default = ./processed_<input>.parquet
// --missing-thresh: Drop columns with > threshold fraction missing values. Default=0.2
// --dedupe    : Drop duplicate rows
// --encode    : Encoding of text columns: "none", "label", "onehot", "freq"
// --chain     : Processing chain config (under --configs) applied to the numeric features.
//               Empty = impute with the mean, then standardize
// --configs   : Directory searched for the chain config
// --preview   : Number of rows to preview in console
// --hist      : Numeric column to draw a histogram of (empty = none)
// --hist-out  : PNG file for the histogram
//
// Example:
//   go run ./cmd/examples/csv_preprocess --input Employee.csv --encode onehot --hist Age
//
// ---------------------------------------------------------------------
//

const featuresKey = "features"

func main() {
	inputPath := flag.String("input", "Employee.csv", "Path to input CSV file")
	outputPath := flag.String("output", "", "Parquet output path")
	missingThresh := flag.Float64("missing-thresh", 0.2, "Threshold for dropping columns with too many missing values")
	dedupe := flag.Bool("dedupe", false, "Drop duplicate rows")
	encodeMethod := flag.String("encode", dataprep.MethodLabel, "Encoding: none, label, onehot, freq")
	chainName := flag.String("chain", "", "Processing chain config name")
	configs := flag.String("configs", "configs", "Directory holding chain configs")
	previewRows := flag.Int("preview", 5, "Number of rows to preview in console")
	histCol := flag.String("hist", "", "Column to plot a histogram of")
	histOut := flag.String("hist-out", "histogram.png", "Histogram output file")
	flag.Parse()

	xlog.Configure(xlog.Config{Service: "csv_preprocess"})
	logger := xlog.WithComponent("preprocess")
	ctx := context.Background()

	table, err := data.LoadCSV(ctx, *inputPath, data.CSVOptions{})
	if err != nil {
		logger.Fatal().Err(err).Msg("loading csv")
	}
	logger.Info().Int(xlog.FieldTotal, table.Len()).Strs("columns", table.Keys()).Msg("loaded")

	dropped, err := dataprep.DropSparse(ctx, table, *missingThresh)
	if err != nil {
		logger.Fatal().Err(err).Msg("dropping sparse columns")
	}
	if len(dropped) > 0 {
		logger.Info().Strs("columns", dropped).Float64("threshold", *missingThresh).Msg("dropped sparse columns")
	}
	if *dedupe {
		before := table.Len()
		if err := table.AddSelect(ctx, dataprep.UniqueRows()); err != nil {
			logger.Fatal().Err(err).Msg("dropping duplicates")
		}
		logger.Info().Int("dropped", before-table.Len()).Msg("dropped duplicate rows")
	}

	numeric, err := encodeText(ctx, table, *encodeMethod)
	if err != nil {
		logger.Fatal().Err(err).Msg("encoding")
	}

	if *histCol != "" {
		if err := histogram(ctx, table, *histCol, *histOut); err != nil {
			logger.Fatal().Err(err).Msg("histogram")
		}
		logger.Info().Str(xlog.FieldPath, *histOut).Msg("histogram saved")
	}

	chain, err := loadChain(*configs, *chainName)
	if err != nil {
		logger.Fatal().Err(err).Msg("chain")
	}
	if err := addFeatures(ctx, table, numeric, chain); err != nil {
		logger.Fatal().Err(err).Msg("features")
	}

	preview(ctx, table, *previewRows)

	if *outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(*inputPath), filepath.Ext(*inputPath))
		*outputPath = filepath.Join(".", "processed_"+base+".parquet")
	}
	if err := data.WriteParquet(ctx, *outputPath, table); err != nil {
		logger.Fatal().Err(err).Msg("writing parquet")
	}
	logger.Info().Str(xlog.FieldPath, *outputPath).Msg("processed data saved")
}

// encodeText replaces every text column by its encoding and returns the
// numeric columns, encoded ones included.
func encodeText(ctx context.Context, table *abstract.DictSeq, method string) ([]string, error) {
	var numeric []string
	for _, key := range table.Keys() {
		seq, err := table.Key(key)
		if err != nil {
			return nil, err
		}
		if seq.Len() == 0 {
			continue
		}
		first, err := abstract.Get(ctx, seq, 0)
		if err != nil {
			return nil, err
		}
		if _, ok := first.(string); !ok {
			numeric = append(numeric, key)
			continue
		}
		if method == "" || method == "none" {
			continue
		}
		text := make([]string, seq.Len())
		for i := range text {
			v, err := abstract.Get(ctx, seq, i)
			if err != nil {
				return nil, err
			}
			text[i] = v.(string)
		}
		encoded, err := dataprep.Encode(method, text)
		if err != nil {
			return nil, err
		}
		if len(encoded) > 0 && len(encoded[0]) == 1 {
			col := make([]float64, len(encoded))
			for i, row := range encoded {
				col[i] = row[0]
			}
			err = table.SetKey(ctx, key, abstract.FromSlice(col))
			numeric = append(numeric, key)
		} else {
			// one-hot rows stay a list column
			err = table.SetKey(ctx, key, abstract.FromSlice(encoded))
		}
		if err != nil {
			return nil, err
		}
	}
	return numeric, nil
}

func loadChain(dir, name string) (*processor.Chain, error) {
	if name == "" {
		return processor.NewChain(
			&processor.Imputer{Strategy: processor.ImputeMean},
			&processor.StandardScaler{},
		), nil
	}
	var cfg config.Chain
	if err := config.Load(dir, name, config.LoadOptions{Walk: true}, &cfg); err != nil {
		return nil, err
	}
	return processor.ChainFromConfig(cfg)
}

// addFeatures stacks the numeric columns into one row per example, fits
// chain on the rows and stores the processed rows under featuresKey.
func addFeatures(ctx context.Context, table *abstract.DictSeq, numeric []string, chain *processor.Chain) error {
	if len(numeric) == 0 {
		return fmt.Errorf("no numeric columns")
	}
	cols, err := table.Unpack(numeric...)
	if err != nil {
		return err
	}
	rows, err := abstract.NewMap(cols, abstract.MapFunc(func(v any) (any, error) {
		items, ok := v.([]any)
		if !ok {
			items = []any{v}
		}
		row := make([]float64, len(items))
		for j, it := range items {
			row[j], _ = it.(float64)
		}
		return row, nil
	}))
	if err != nil {
		return err
	}
	if err := table.Add(ctx, featuresKey, rows, abstract.Lazy(false)); err != nil {
		return err
	}
	feats, err := table.Key(featuresKey)
	if err != nil {
		return err
	}
	if err := chain.Fit(ctx, feats); err != nil {
		return err
	}
	return table.AddMap(ctx, featuresKey, chain)
}

func histogram(ctx context.Context, table *abstract.DictSeq, key, out string) error {
	seq, err := table.Key(key)
	if err != nil {
		return err
	}
	var vals plotter.Values
	for i := range seq.Len() {
		v, err := abstract.Get(ctx, seq, i)
		if err != nil {
			return err
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("column %q holds %T, not numbers", key, v)
		}
		if !math.IsNaN(f) {
			vals = append(vals, f)
		}
	}

	p := plot.New()
	p.Title.Text = "Distribution of " + key
	p.X.Label.Text = key
	p.Y.Label.Text = "Count"
	h, err := plotter.NewHist(vals, 20)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	p.Add(h)
	return p.Save(4*vg.Inch, 4*vg.Inch, out)
}

// preview prints the first n records.
func preview(ctx context.Context, table *abstract.DictSeq, n int) {
	keys := table.Keys()
	for _, k := range keys {
		fmt.Printf("%-15s", k)
	}
	fmt.Println()
	for i := range min(n, table.Len()) {
		v, _, err := table.Get(ctx, i, abstract.Args{})
		if err != nil {
			fmt.Println(err)
			return
		}
		rec, _ := v.(abstract.Record)
		for _, k := range keys {
			switch t := rec[k].(type) {
			case float64:
				fmt.Printf("%-15.6f", t)
			case []float64:
				fmt.Printf("%-15s", fmt.Sprintf("%.3v", t))
			default:
				fmt.Printf("%-15v", t)
			}
		}
		fmt.Println()
	}
}
