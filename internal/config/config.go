package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/rs/zerolog/log"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/scheduler"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "VFOG_"

// Config holds all configuration settings for the simulator.
type Config struct {
	System     SystemConfig     `json:"system" envPrefix:"SYSTEM_"`
	Simulation SimulationConfig `json:"simulation" envPrefix:"SIM_"`
	Failure    FailureConfig    `json:"failure" envPrefix:"FAILURE_"`
	Trust      TrustConfig      `json:"trust" envPrefix:"TRUST_"`
	DMITS      DMITSConfig      `json:"dmits" envPrefix:"DMITS_"`
	WorkerPool WorkerPoolConfig `json:"workerPool" envPrefix:"POOL_"`
	EventBus   EventBusConfig   `json:"eventBus" envPrefix:"EVENTBUS_"`
	Store      StoreConfig      `json:"store" envPrefix:"STORE_"`
}

// SystemConfig holds general system settings.
type SystemConfig struct {
	LogLevel       string `json:"logLevel" env:"LOG_LEVEL"`             // trace, debug, info, warn, error
	Pretty         bool   `json:"pretty" env:"PRETTY"`                  // Human-readable console logs
	MetricsEnabled bool   `json:"metricsEnabled" env:"METRICS_ENABLED"` // Report counters at exit
	StatsInterval  int    `json:"statsInterval" env:"STATS_INTERVAL"`   // Seconds between stats logs, 0 disables
}

// SimulationConfig controls the experiment.
type SimulationConfig struct {
	Trials         int    `json:"trials" env:"TRIALS"`
	Tasks          int    `json:"tasks" env:"TASKS"` // Size of the reference workload
	Seed           uint64 `json:"seed" env:"SEED"`
	MaxRetries     int    `json:"maxRetries" env:"MAX_RETRIES"`
	Dataset        string `json:"dataset" env:"DATASET"`   // CSV trace; empty uses the generated sample
	Workload       string `json:"workload" env:"WORKLOAD"` // JSON task file; empty uses the reference graph
	Parallel       bool   `json:"parallel" env:"PARALLEL"` // Dispatch trials to the worker pool
	Baseline       bool   `json:"baseline" env:"BASELINE"` // Also run the mobility-only policy
	KeepAttemptLog bool   `json:"keepAttemptLog" env:"KEEP_ATTEMPT_LOG"`
	SampleVehicles int    `json:"sampleVehicles" env:"SAMPLE_VEHICLES"`
	SampleRecords  int    `json:"sampleRecords" env:"SAMPLE_RECORDS"`
}

// FailureConfig parameterises the logistic failure curve.
type FailureConfig struct {
	Slope    float64 `json:"slope" env:"SLOPE"`
	Midpoint float64 `json:"midpoint" env:"MIDPOINT"`
}

// TrustConfig holds the adaptive policy's reliability weights and trust steps.
type TrustConfig struct {
	TrustWeight    float64 `json:"trustWeight" env:"WEIGHT"`
	MobilityWeight float64 `json:"mobilityWeight" env:"MOBILITY_WEIGHT"`
	Increment      float64 `json:"increment" env:"INCREMENT"`
	Decrement      float64 `json:"decrement" env:"DECREMENT"`
}

// DMITSConfig holds the static utility weights.
type DMITSConfig struct {
	Mobility        float64 `json:"mobility" env:"MOBILITY"`
	SocialTrust     float64 `json:"socialTrust" env:"SOCIAL_TRUST"`
	Centrality      float64 `json:"centrality" env:"CENTRALITY"`
	DependencyBonus float64 `json:"dependencyBonus" env:"DEPENDENCY_BONUS"`
}

// WorkerPoolConfig holds settings for the worker pool.
type WorkerPoolConfig struct {
	InitialWorkers int     `json:"initialWorkers" env:"INITIAL_WORKERS"` // Initial number of workers
	MinWorkers     int     `json:"minWorkers" env:"MIN_WORKERS"`         // Minimum number of workers
	MaxWorkers     int     `json:"maxWorkers" env:"MAX_WORKERS"`         // Maximum number of workers
	QueueSize      int     `json:"queueSize" env:"QUEUE_SIZE"`           // Size of the job queue
	CPUThreshold   float64 `json:"cpuThreshold" env:"CPU_THRESHOLD"`     // CPU usage threshold for scaling
	MemThreshold   float64 `json:"memThreshold" env:"MEM_THRESHOLD"`     // Memory usage threshold for scaling
}

// EventBusConfig holds settings for the event bus.
type EventBusConfig struct {
	DefaultBufferSize int `json:"defaultBufferSize" env:"BUFFER_SIZE"` // Default buffer size for subscribers
}

// StoreConfig locates the result database. An empty path disables persistence.
type StoreConfig struct {
	Path string `json:"path" env:"PATH"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	weights := scheduler.DefaultDMITSWeights()
	params := scheduler.DefaultProposedParams()
	failure := engine.DefaultFailureModel()

	return &Config{
		System: SystemConfig{
			LogLevel: "info",
			Pretty:   true,
		},
		Simulation: SimulationConfig{
			Trials:         10,
			Tasks:          8,
			Seed:           42,
			MaxRetries:     2,
			KeepAttemptLog: false,
			SampleVehicles: 5,
			SampleRecords:  100,
		},
		Failure: FailureConfig{
			Slope:    failure.Slope,
			Midpoint: failure.Midpoint,
		},
		Trust: TrustConfig{
			TrustWeight:    params.TrustWeight,
			MobilityWeight: params.MobilityWeight,
			Increment:      params.TrustIncrement,
			Decrement:      params.TrustDecrement,
		},
		DMITS: DMITSConfig{
			Mobility:        weights.Mobility,
			SocialTrust:     weights.SocialTrust,
			Centrality:      weights.Centrality,
			DependencyBonus: weights.DependencyBonus,
		},
		WorkerPool: WorkerPoolConfig{
			InitialWorkers: runtime.NumCPU(),
			MinWorkers:     1,
			MaxWorkers:     runtime.NumCPU() * 4,
			QueueSize:      100,
			CPUThreshold:   0.8,
			MemThreshold:   0.9,
		},
		EventBus: EventBusConfig{
			DefaultBufferSize: 64,
		},
	}
}

// Load builds the effective configuration: defaults, then the JSON file (if
// present), then VFOG_* environment variables.
func Load(filePath string) (*Config, error) {
	cfg, err := LoadFromFile(filePath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file over the defaults. A
// missing file yields the defaults.
func LoadFromFile(filePath string) (*Config, error) {
	config := DefaultConfig()
	if filePath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", filePath).Msg("config file not found, using defaults")
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := json.Unmarshal(data, config, json.RejectUnknownMembers(true)); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	log.Debug().Str("path", filePath).Msg("loaded configuration")
	return config, nil
}

// ApplyEnv overlays VFOG_* environment variables. Unset variables keep the current value.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as indented JSON.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.MarshalWrite(&buf, c, jsontext.WithIndent("  ")); err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(filePath string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	log.Debug().Str("path", filePath).Msg("saved configuration")
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	// Simulation
	check(c.Simulation.Trials >= 1, "trials must be at least 1")
	check(c.Simulation.Tasks >= 1, "tasks must be at least 1")
	check(c.Simulation.MaxRetries >= 0, "maxRetries cannot be negative")
	check(c.Simulation.SampleVehicles >= 1, "sampleVehicles must be at least 1")
	check(c.Simulation.SampleRecords >= 1, "sampleRecords must be at least 1")

	// Failure model
	check(c.Failure.Slope > 0, "failure slope must be positive, got %v", c.Failure.Slope)
	check(c.Failure.Midpoint >= 0 && c.Failure.Midpoint <= 1, "failure midpoint must be in [0,1], got %v", c.Failure.Midpoint)

	// Scoring weights
	check(c.Trust.TrustWeight >= 0 && c.Trust.MobilityWeight >= 0, "reliability weights cannot be negative")
	check(c.Trust.Increment >= 0 && c.Trust.Increment <= 1, "trust increment must be in [0,1]")
	check(c.Trust.Decrement >= 0 && c.Trust.Decrement <= 1, "trust decrement must be in [0,1]")
	check(c.DMITS.Mobility >= 0 && c.DMITS.SocialTrust >= 0 && c.DMITS.Centrality >= 0 && c.DMITS.DependencyBonus >= 0,
		"DMITS weights cannot be negative")

	// Worker pool
	check(c.WorkerPool.MinWorkers >= 1, "minWorkers must be at least 1")
	check(c.WorkerPool.MaxWorkers >= c.WorkerPool.MinWorkers, "maxWorkers must be greater than or equal to minWorkers")
	check(c.WorkerPool.InitialWorkers >= c.WorkerPool.MinWorkers && c.WorkerPool.InitialWorkers <= c.WorkerPool.MaxWorkers,
		"initialWorkers must be between minWorkers and maxWorkers")
	check(c.WorkerPool.QueueSize >= 1, "queueSize must be at least 1")

	// Event bus
	check(c.EventBus.DefaultBufferSize >= 1, "defaultBufferSize must be at least 1")

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// FailureModel returns the configured failure curve.
func (c *Config) FailureModel() engine.FailureModel {
	return engine.FailureModel{Slope: c.Failure.Slope, Midpoint: c.Failure.Midpoint}
}

// ProposedParams returns the adaptive policy parameters.
func (c *Config) ProposedParams() scheduler.ProposedParams {
	return scheduler.ProposedParams{
		TrustWeight:    c.Trust.TrustWeight,
		MobilityWeight: c.Trust.MobilityWeight,
		TrustIncrement: c.Trust.Increment,
		TrustDecrement: c.Trust.Decrement,
	}
}

// DMITSWeights returns the static utility weights.
func (c *Config) DMITSWeights() scheduler.DMITSWeights {
	return scheduler.DMITSWeights{
		Mobility:        c.DMITS.Mobility,
		SocialTrust:     c.DMITS.SocialTrust,
		Centrality:      c.DMITS.Centrality,
		DependencyBonus: c.DMITS.DependencyBonus,
	}
}
