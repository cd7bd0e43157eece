package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/scheduler"
)

// Config holds all configuration for amaru
type Config struct {
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Cachets    CachetConfig     `yaml:"cachets"`
	Store      StoreConfig      `yaml:"store"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// EvaluationConfig holds the evaluation pipeline settings
type EvaluationConfig struct {
	// Problems with at most this many repeats run their tests concurrently.
	ParallelRepeatsThreshold int `yaml:"parallel_repeats_threshold" validate:"gte=0"`
	// 0 means GOMAXPROCS
	MaxParallelTests int           `yaml:"max_parallel_tests" validate:"gte=0"`
	TransientRetries int           `yaml:"transient_retries" validate:"gte=0"`
	TransientJitter  time.Duration `yaml:"transient_jitter" validate:"gte=0"`
	// Timeout of one test when the problem does not set one.
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"gt=0"`
	CollectTraces  bool          `yaml:"collect_traces"`
	ProfileDir     string        `yaml:"profile_dir"`
	// Cache enables the fitness cache on top of the configured store.
	Cache bool `yaml:"cache"`
}

// SchedulerConfig holds the genetic algorithm and strategy settings
type SchedulerConfig struct {
	Strategy             string  `yaml:"strategy" validate:"oneof=sequential-complexity parallel-complexity repeating"`
	PopulationSize       int     `yaml:"population_size" validate:"gte=1"`
	Elites               int     `yaml:"elites" validate:"gte=0,ltefield=PopulationSize"`
	MaxGenerations       int     `yaml:"max_generations" validate:"gte=1"`
	MutationProbability  float64 `yaml:"mutation_probability" validate:"gte=0,lte=1"`
	CrossoverProbability float64 `yaml:"crossover_probability" validate:"gte=0,lte=1"`
	StagnationLimit      int     `yaml:"stagnation_limit" validate:"gte=0"`
	TournamentSize       int     `yaml:"tournament_size" validate:"gte=1"`
	ConcurrentGroups     bool    `yaml:"concurrent_groups"`
	// 0 draws a random seed per run
	Seed uint64 `yaml:"seed"`

	scheduler.StrategyConfig `yaml:",inline"`
}

// GA returns the engine parameters.
func (s SchedulerConfig) GA() scheduler.GAConfig {
	return scheduler.GAConfig{
		PopulationSize:       s.PopulationSize,
		Elites:               s.Elites,
		MaxGenerations:       s.MaxGenerations,
		MutationProbability:  s.MutationProbability,
		CrossoverProbability: s.CrossoverProbability,
		StagnationLimit:      s.StagnationLimit,
	}
}

// Settings returns everything a scheduler is assembled from.
func (s SchedulerConfig) Settings() scheduler.Settings {
	return scheduler.Settings{
		Strategy:         s.Strategy,
		StrategyConfig:   s.StrategyConfig,
		GA:               s.GA(),
		TournamentSize:   s.TournamentSize,
		ConcurrentGroups: s.ConcurrentGroups,
		Seed:             s.Seed,
	}
}

// CachetConfig holds the quality dimensions and their weights
type CachetConfig struct {
	// Enabled lists the cachets scoring candidates, by name.
	Enabled []string           `yaml:"enabled" validate:"min=1,dive,required"`
	Weights map[string]float64 `yaml:"weights"`
	// CurrentSystem names the system the evaluation runs on; self-adjusting
	// cachets rescale against the language's primary system.
	CurrentSystem string `yaml:"current_system"`
	// LanguageFile is the YAML language description; required by the
	// complexity and approximated cachets.
	LanguageFile string `yaml:"language_file"`
}

// StoreConfig selects the analytics store
type StoreConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=none memory badger postgres"`
	BadgerPath string `yaml:"badger_path"`
}

// ExecutorConfig holds the remote executor client settings
type ExecutorConfig struct {
	URL            string        `yaml:"url" validate:"required,url"`
	RequestSlack   time.Duration `yaml:"request_slack" validate:"gte=0"`
	MaxFailures    int           `yaml:"max_failures" validate:"gte=1"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" validate:"gte=0"`
}

// DatabaseConfig holds the PostgreSQL connection
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// ServerConfig holds the status server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port" validate:"gte=1,lte=65535"`
	CORSOrigins []string `yaml:"cors_origins"`
	// APIToken protects /api/v1 when set.
	APIToken string `yaml:"api_token"`
}

// LogConfig holds the logger configuration
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".amaru")

	return &Config{
		Evaluation: EvaluationConfig{
			ParallelRepeatsThreshold: 10,
			TransientRetries:         20,
			TransientJitter:          time.Second,
			DefaultTimeout:           10 * time.Second,
			Cache:                    true,
		},
		Scheduler: SchedulerConfig{
			Strategy:             scheduler.StrategySequential,
			PopulationSize:       50,
			Elites:               2,
			MaxGenerations:       20,
			MutationProbability:  0.3,
			CrossoverProbability: 0.8,
			TournamentSize:       2,
			StrategyConfig:       scheduler.DefaultStrategyConfig(),
		},
		Cachets: CachetConfig{
			Enabled: []string{"accuracy", "performance"},
			Weights: map[string]float64{"accuracy": 1, "performance": 1},
		},
		Store: StoreConfig{
			Backend:    "badger",
			BadgerPath: filepath.Join(dataDir, "fitness"),
		},
		Executor: ExecutorConfig{
			URL:            "http://localhost:7070",
			RequestSlack:   5 * time.Second,
			MaxFailures:    5,
			BreakerTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func envUint(key string, target *uint64) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseUint(v, 10, 64); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envDuration accepts Go durations ("1m30s") or plain milliseconds
func envDuration(key string, target *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*target = d
		return
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		*target = time.Duration(ms) * time.Millisecond
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load reads the config file named by AMARU_CONFIG or found in the home
// directory, applies environment overrides and validates the result.
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile is Load with an explicit config file. A missing file is not an
// error; the defaults apply.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, domain.NewDomainError(domain.ErrInvalidConfig, fmt.Sprintf("parse %s: %v", path, err))
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	// Evaluation
	envInt("AMARU_PARALLEL_REPEATS_THRESHOLD", &cfg.Evaluation.ParallelRepeatsThreshold)
	envInt("AMARU_MAX_PARALLEL_TESTS", &cfg.Evaluation.MaxParallelTests)
	envInt("AMARU_TRANSIENT_RETRIES", &cfg.Evaluation.TransientRetries)
	envDuration("AMARU_TRANSIENT_JITTER", &cfg.Evaluation.TransientJitter)
	envDuration("AMARU_DEFAULT_TIMEOUT", &cfg.Evaluation.DefaultTimeout)
	envBool("AMARU_COLLECT_TRACES", &cfg.Evaluation.CollectTraces)
	envString("AMARU_PROFILE_DIR", &cfg.Evaluation.ProfileDir)
	envBool("AMARU_CACHE", &cfg.Evaluation.Cache)

	// Scheduler
	envString("AMARU_STRATEGY", &cfg.Scheduler.Strategy)
	envInt("AMARU_POPULATION_SIZE", &cfg.Scheduler.PopulationSize)
	envInt("AMARU_ELITES", &cfg.Scheduler.Elites)
	envInt("AMARU_MAX_GENERATIONS", &cfg.Scheduler.MaxGenerations)
	envFloat("AMARU_MUTATION_PROBABILITY", &cfg.Scheduler.MutationProbability)
	envFloat("AMARU_CROSSOVER_PROBABILITY", &cfg.Scheduler.CrossoverProbability)
	envInt("AMARU_STAGNATION_LIMIT", &cfg.Scheduler.StagnationLimit)
	envBool("AMARU_CONCURRENT_GROUPS", &cfg.Scheduler.ConcurrentGroups)
	envUint("AMARU_SEED", &cfg.Scheduler.Seed)
	envInt("AMARU_SEQUENCES", &cfg.Scheduler.Sequences)
	envInt("AMARU_GENERATIONAL_ELITES", &cfg.Scheduler.GenerationalElites)
	envInt("AMARU_STARTING_GROUPS", &cfg.Scheduler.StartingGroups)
	envInt("AMARU_COMBINATION_RATE", &cfg.Scheduler.CombinationRate)
	envBool("AMARU_GROUP_SIMILAR", &cfg.Scheduler.GroupSimilar)

	// Cachets
	envStringSlice("AMARU_CACHETS", &cfg.Cachets.Enabled)
	envString("AMARU_CURRENT_SYSTEM", &cfg.Cachets.CurrentSystem)
	envString("AMARU_LANGUAGE_FILE", &cfg.Cachets.LanguageFile)

	// Store and database
	envString("AMARU_STORE", &cfg.Store.Backend)
	envString("AMARU_BADGER_PATH", &cfg.Store.BadgerPath)
	envString("AMARU_POSTGRES_URL", &cfg.Database.URL)

	// Executor
	envString("AMARU_EXECUTOR_URL", &cfg.Executor.URL)
	envDuration("AMARU_EXECUTOR_REQUEST_SLACK", &cfg.Executor.RequestSlack)
	envInt("AMARU_EXECUTOR_MAX_FAILURES", &cfg.Executor.MaxFailures)
	envDuration("AMARU_EXECUTOR_BREAKER_TIMEOUT", &cfg.Executor.BreakerTimeout)

	// Server
	envString("AMARU_SERVER_HOST", &cfg.Server.Host)
	envInt("AMARU_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("AMARU_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	envString("AMARU_API_TOKEN", &cfg.Server.APIToken)

	// Log
	envString("AMARU_LOG_LEVEL", &cfg.Log.Level)
	envBool("AMARU_LOG_DEVELOPMENT", &cfg.Log.Development)
}

var validate = validator.New()

// knownCachets are the cachet names Validate accepts.
var knownCachets = map[string]bool{
	"accuracy":                 true,
	"complexity":               true,
	"performance":              true,
	"approximated-performance": true,
	"self-adjusting-approximated-performance": true,
	"self-adjusting-performance":              true,
}

// needsLanguage are the cachets that read the language description.
var needsLanguage = map[string]bool{
	"complexity":                              true,
	"approximated-performance":                true,
	"self-adjusting-approximated-performance": true,
	"self-adjusting-performance":              true,
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.NewDomainError(domain.ErrInvalidConfig, err.Error())
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), validationRule(fe)))
		}
	}

	for _, name := range c.Cachets.Enabled {
		if !knownCachets[name] {
			errs = append(errs, fmt.Sprintf("unknown cachet %q", name))
		}
		if needsLanguage[name] && c.Cachets.LanguageFile == "" {
			errs = append(errs, fmt.Sprintf("cachet %s requires cachets.language_file", name))
		}
	}

	if c.Store.Backend == "postgres" && c.Database.URL == "" {
		errs = append(errs, "store backend postgres requires database.url")
	}
	if c.Store.Backend == "badger" && c.Store.BadgerPath == "" {
		errs = append(errs, "store backend badger requires store.badger_path")
	}

	if len(errs) > 0 {
		return domain.NewDomainError(domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func validationRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("AMARU_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "amaru.yaml"
	}

	// Check ~/.config/amaru/config.yaml first
	configPath := filepath.Join(homeDir, ".config", "amaru", "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	return filepath.Join(homeDir, ".amaru", "config.yaml")
}
