package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	xlog "github.com/yonas-y/dabstract/internal/log"
	"github.com/yonas-y/dabstract/pkg/config"
	"github.com/yonas-y/dabstract/pkg/dataset"
	_ "github.com/yonas-y/dabstract/pkg/dataset/dbs"
	"github.com/yonas-y/dabstract/pkg/processor"
)

//
// ---------------------- CLI FLAGS DOCUMENTATION ----------------------
//
// --configs    : Root of the config tree (dirs/, db/, dp/ and flow/ below it)
// --flow       : Optional flow file under <configs>/flow overriding the defaults
// --dataset    : Dataset config under <configs>/db
// --key        : Dataset key the features are computed from
// --features   : Processing chain under <configs>/dp
// --new-key    : Key receiving the features
// --dir-conf   : Directory config under <configs>/dirs
// --overwrite  : Recompute features that are already stored
// --workers    : Number of examples processed at once
// --log-level  : debug, info, warn or error
//
// Example:
//   go run ./cmd/examples/feature_extraction --configs cmd/examples/feature_extraction/configs --flow EXAMPLE
//
// ---------------------------------------------------------------------
//

func main() {
	flow := config.DefaultFlow()
	configs := flag.String("configs", "configs", "Root of the config tree")
	flowName := flag.String("flow", "", "Flow file under <configs>/flow")
	flag.StringVar(&flow.Dataset, "dataset", flow.Dataset, "Dataset config name")
	flag.StringVar(&flow.Key, "key", flow.Key, "Key to compute features from")
	flag.StringVar(&flow.Features, "features", flow.Features, "Processing chain config name")
	flag.StringVar(&flow.NewKey, "new-key", flow.NewKey, "Key receiving the features")
	flag.StringVar(&flow.Dirs, "dir-conf", flow.Dirs, "Directory config name")
	flag.BoolVar(&flow.Overwrite, "overwrite", flow.Overwrite, "Recompute stored features")
	flag.IntVar(&flow.Workers, "workers", flow.Workers, "Examples processed at once")
	level := flag.String("log-level", "", "Log level (defaults to $LOG_LEVEL or info)")
	flag.Parse()

	xlog.Configure(xlog.Config{Level: *level, Service: "feature_extraction"})
	logger := xlog.WithComponent("flow")

	if *flowName != "" {
		if err := config.Load(filepath.Join(*configs, "flow"), *flowName, config.LoadOptions{Walk: true}, &flow); err != nil {
			logger.Fatal().Err(err).Msg("loading flow")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, *configs, flow); err != nil {
		logger.Error().Err(err).Msg("feature extraction failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configs string, flow config.Flow) error {
	logger := xlog.WithComponent("flow")

	dirs, err := config.LoadDirs(filepath.Join(configs, "dirs"), flow.Dirs)
	if err != nil {
		return err
	}
	var dbCfg config.Dataset
	err = config.Load(filepath.Join(configs, "db"), flow.Dataset, config.LoadOptions{Walk: true, Vars: dirs}, &dbCfg)
	if err != nil {
		return err
	}
	ds, err := dataset.FromConfig(ctx, dbCfg)
	if err != nil {
		return err
	}

	var chainCfg config.Chain
	err = config.Load(filepath.Join(configs, "dp"), flow.Features, config.LoadOptions{Walk: true, Vars: dirs}, &chainCfg)
	if err != nil {
		return err
	}
	chain, err := processor.ChainFromConfig(chainCfg)
	if err != nil {
		return err
	}
	logger.Info().Str(xlog.FieldDataset, ds.Name()).Str(xlog.FieldFeature, flow.Features).Stringer("chain", chain).Msg("starting")

	source, err := ds.Key(flow.Key)
	if err != nil {
		return err
	}
	if err := chain.Fit(ctx, source); err != nil {
		return err
	}
	err = ds.PrepareFeat(ctx, flow.Key, flow.Features, chain, dataset.FeatOptions{
		Overwrite: flow.Overwrite,
		NewKey:    flow.NewKey,
		Workers:   flow.Workers,
		Verbose:   flow.Verbose,
	})
	if err != nil {
		return err
	}
	logger.Info().Int(xlog.FieldTotal, ds.Len()).Strs("keys", ds.Keys()).Msg("done")
	return nil
}
