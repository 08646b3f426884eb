package common

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/util"
)

// Storage drivers.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Hop count policies for transit sightings.
const (
	HopPolicyNone       = "none"
	HopPolicyPopulation = "population"
)

// Config - The config.
type Config struct {
	HTTPEndpoint string         `yaml:"http_endpoint"`
	Storage      StorageConfig  `yaml:"storage"`
	InfluxDB     InfluxDBConfig `yaml:"influxdb"`
	Redis        RedisConfig    `yaml:"redis"`
	Topology     TopologyConfig `yaml:"topology"`
	Import       ImportConfig   `yaml:"import"`
	Collect      CollectConfig  `yaml:"collect"`
}

// StorageConfig - Where devices, ports, VLANs and sightings are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// InfluxDBConfig - Optional import history sink. Disabled if URL is empty.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// RedisConfig - Optional shared VLAN analysis lock. Disabled if address is empty.
type RedisConfig struct {
	Address        string `yaml:"address"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// TopologyConfig - Topology analysis settings.
type TopologyConfig struct {
	HopPolicy string `yaml:"hop_policy"`
}

// ImportConfig - Bulk import settings.
type ImportConfig struct {
	Workers int    `yaml:"workers"`
	DataDir string `yaml:"data_dir"`
}

// CollectConfig - One-shot SSH dump retrieval settings.
type CollectConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TargetsPath     string `yaml:"targets_path"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	// SaveDumps writes every retrieved dump into the import data directory.
	SaveDumps bool `yaml:"save_dumps"`
}

// DefaultConfig - Config used when no file is given, and the base a file is merged into.
func DefaultConfig() Config {
	return Config{
		HTTPEndpoint: ":8080",
		Storage: StorageConfig{
			Driver: StorageDriverMemory,
		},
		InfluxDB: InfluxDBConfig{
			Bucket: "l2scheme",
		},
		Redis: RedisConfig{
			LockTTLSeconds: 60,
		},
		Topology: TopologyConfig{
			HopPolicy: HopPolicyNone,
		},
		Import: ImportConfig{
			Workers: 4,
			DataDir: "data",
		},
		Collect: CollectConfig{
			CredentialsPath: "credentials.yaml",
			TargetsPath:     "targets.yaml",
			TimeoutSeconds:  10,
		},
	}
}

// Validate - Check the config for values that cannot work.
func (config *Config) Validate() error {
	switch config.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if config.Storage.DSN == "" {
			return fmt.Errorf("%w: postgres storage requires a dsn", util.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", util.ErrInvalidConfig, config.Storage.Driver)
	}
	switch config.Topology.HopPolicy {
	case HopPolicyNone, HopPolicyPopulation:
	default:
		return fmt.Errorf("%w: unknown hop policy %q", util.ErrInvalidConfig, config.Topology.HopPolicy)
	}
	if config.Import.Workers <= 0 {
		return fmt.Errorf("%w: non-positive import worker count", util.ErrInvalidConfig)
	}
	if config.Collect.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: non-positive collect timeout", util.ErrInvalidConfig)
	}
	if config.Redis.Address != "" && config.Redis.LockTTLSeconds <= 0 {
		return fmt.Errorf("%w: non-positive redis lock ttl", util.ErrInvalidConfig)
	}
	return nil
}

// LoadConfig - Load configuration file into the global config. Defaults are kept if the path is empty.
func LoadConfig(path string) bool {
	if path == "" {
		// Allow no config
		return true
	}

	log.WithFields(log.Fields{
		"config_path": path,
	}).Info("Loading config")

	config := DefaultConfig()
	if err := util.ParseYAMLFile(&config, path); err != nil {
		log.WithError(err).Error("Failed to load config")
		return false
	}
	if err := config.Validate(); err != nil {
		log.WithError(err).Error("Invalid config")
		return false
	}

	GlobalConfig = config
	return true
}
