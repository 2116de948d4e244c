package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/catalog"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/comm"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/config"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/evaluation"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/paths"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/scorer"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/store"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

var (
	flagConf    = flag.String("conf", "config.yaml", "app config file path")
	flagDataset = flag.String("dataset", "", "catalog name of the dataset to evaluate")
	flagKind    = flag.String("kind", "instance", "evaluation kind: instance, semseg or video")
	flagPred    = flag.String("pred", "", "directory of dumped predictions")
	flagMongo   = flag.Bool("mongo", false, "persist the finished round to MongoDB")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadCfgFromYAML(*flagConf)
	if err != nil {
		log.WithError(err).Error("read config file failed")
		return
	}
	config.InitLog(cfg.LogLevel)

	if *flagDataset == "" || *flagPred == "" {
		log.Error("-dataset and -pred are both required")
		return
	}

	for _, ds := range cfg.Datasets {
		catalog.Register(catalog.Metadata{
			Name:         ds.Name,
			GTDir:        ds.GTDir,
			ThingClasses: ds.ThingClasses,
		})
	}

	ctx := context.Background()

	communicator, err := buildCommunicator(ctx, cfg.Comm)
	if err != nil {
		log.WithError(err).Fatal("build communicator failed")
	}

	metrics, err := runRound(ctx, cfg, communicator)
	if err != nil {
		log.WithError(err).Fatal("evaluation failed")
	}
	if metrics == nil {
		log.Infof("rank %d done, rank 0 reports the metrics", communicator.Rank())
		return
	}

	logMetrics(metrics)

	if *flagMongo {
		st, err := store.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			log.WithError(err).Fatal("connect to mongodb failed")
		}
		round := store.NewRound(*flagDataset, *flagKind, communicator.WorldSize(), metrics)
		if err := st.Insert(ctx, round); err != nil {
			log.WithError(err).Fatal("persist evaluation round failed")
		}
		log.Infof("stored evaluation round %s", round.RunID)
		if err := st.Close(ctx); err != nil {
			log.WithError(err).Error("close mongodb client failed")
		}
	}
}

func buildCommunicator(ctx context.Context, cc config.CommConf) (comm.Communicator, error) {
	if cc.WorldSize <= 1 {
		return comm.NewLocal(), nil
	}
	if cc.CoordinatorAddr == "" {
		return nil, fmt.Errorf("coordinatorAddr is required for world size %d", cc.WorldSize)
	}

	if cc.Rank == 0 {
		srv := comm.NewRendezvousServer(cc.WorldSize)
		addr := cc.ListenAddr
		if addr == "" {
			addr = ":17021"
		}
		go func() {
			if err := srv.Run(addr); err != nil {
				log.WithError(err).Error("rendezvous server stopped")
			}
		}()
	}

	c, err := comm.NewHTTP(cc.CoordinatorAddr, cc.Rank, cc.WorldSize)
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := c.WaitReady(waitCtx); err != nil {
		return nil, fmt.Errorf("rendezvous at %s not reachable: %w", cc.CoordinatorAddr, err)
	}
	return c, nil
}

func runRound(ctx context.Context, cfg *config.Conf, communicator comm.Communicator) (types.Metrics, error) {
	sc := scorer.NewCommandScorer(cfg.Scorer.Binary, cfg.Scorer.Args...)
	params := evaluation.Params{
		Communicator: communicator,
		Resolver:     buildResolver(cfg.OSS),
		RoadScene:    cfg.Eval.RoadScene,
		InfStart:     cfg.Eval.InfStart,
		SkipInterval: cfg.Eval.SkipInterval,
		SpanWindow:   cfg.Eval.SpanWindow,
	}

	var (
		ev  evaluation.Evaluator
		err error
	)
	switch *flagKind {
	case "instance":
		ev, err = evaluation.NewInstanceEvaluator(*flagDataset, sc, params)
	case "semseg":
		ev, err = evaluation.NewSemSegEvaluator(*flagDataset, sc, params)
	case "video":
		ev, err = evaluation.NewViperSemSegEvaluator(*flagDataset, sc, params)
	default:
		return nil, fmt.Errorf("unknown evaluation kind %q", *flagKind)
	}
	if err != nil {
		return nil, err
	}

	preds, err := loadPredictions(ctx, *flagKind, *flagPred)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %d predictions from %s", len(preds), *flagPred)

	if err := ev.Reset(ctx); err != nil {
		return nil, err
	}
	if err := ev.Process(ctx, preds); err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx)
}

func buildResolver(oss paths.AwsConfig) paths.Resolver {
	if oss.Endpoint == "" {
		return paths.Auto{}
	}
	cacheDir := filepath.Join(os.TempDir(), "cityscapes-eval-cache")
	return paths.Auto{S3: paths.NewS3(&oss, cacheDir)}
}

func logMetrics(metrics types.Metrics) {
	tasks := make([]string, 0, len(metrics))
	for task := range metrics {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	for _, task := range tasks {
		names := make([]string, 0, len(metrics[task]))
		for name := range metrics[task] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			log.Infof("%s/%s: %.3f", task, name, metrics[task][name])
		}
	}
}
