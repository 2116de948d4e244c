// Package config loads the evaluation runner configuration from YAML and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/paths"
)

// Environment overrides for the comm block. Distributed launchers export the
// process placement, so these win over the YAML values.
const (
	EnvRank            = "RANK"
	EnvWorldSize       = "WORLD_SIZE"
	EnvCoordinatorAddr = "COORDINATOR_ADDR"
)

type Conf struct {
	LogLevel string          `json:"logLevel" yaml:"logLevel"`
	Datasets []DatasetConf   `json:"datasets" yaml:"datasets"`
	Eval     EvalConf        `json:"eval" yaml:"eval"`
	Scorer   ScorerConf      `json:"scorer" yaml:"scorer"`
	Comm     CommConf        `json:"comm" yaml:"comm"`
	OSS      paths.AwsConfig `json:"oss" yaml:"oss"`
	Mongo    MongoConf       `json:"mongo" yaml:"mongo"`
}

// DatasetConf is one catalog entry.
type DatasetConf struct {
	Name         string   `json:"name" yaml:"name"`
	GTDir        string   `json:"gtDir" yaml:"gtDir"`
	ThingClasses []string `json:"thingClasses" yaml:"thingClasses"`
}

// EvalConf carries the temporal-evaluation knobs.
type EvalConf struct {
	RoadScene    string `json:"roadScene" yaml:"roadScene"`
	InfStart     int    `json:"infStart" yaml:"infStart"`
	SkipInterval int    `json:"skipInterval" yaml:"skipInterval"`
	SpanWindow   int    `json:"spanWindow" yaml:"spanWindow"`
}

// ScorerConf names the external scoring executable and its fixed arguments.
type ScorerConf struct {
	Binary string   `json:"binary" yaml:"binary"`
	Args   []string `json:"args" yaml:"args"`
}

type CommConf struct {
	Rank            int    `json:"rank" yaml:"rank"`
	WorldSize       int    `json:"worldSize" yaml:"worldSize"`
	CoordinatorAddr string `json:"coordinatorAddr" yaml:"coordinatorAddr"`
	ListenAddr      string `json:"listenAddr" yaml:"listenAddr"`
}

type MongoConf struct {
	URI      string `json:"uri" yaml:"uri"`
	Database string `json:"database" yaml:"database"`
}

func LoadCfgFromYAML(path string) (*Conf, error) {
	yamlStr, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Conf
	if err := yaml.Unmarshal(yamlStr, &cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Comm.WorldSize <= 0 {
		cfg.Comm.WorldSize = 1
	}
	return &cfg, nil
}

func applyEnv(cfg *Conf) error {
	if v := os.Getenv(EnvRank); v != "" {
		rank, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvRank, v, err)
		}
		cfg.Comm.Rank = rank
	}
	if v := os.Getenv(EnvWorldSize); v != "" {
		world, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvWorldSize, v, err)
		}
		cfg.Comm.WorldSize = world
	}
	if v := os.Getenv(EnvCoordinatorAddr); v != "" {
		cfg.Comm.CoordinatorAddr = v
	}
	return nil
}

func InitLog(level string) {
	if level == "debug" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
