package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BrowserConfig controls how browser sessions are launched. When
// Displays is non-empty each session slot is pinned to one of the
// listed X displays (headed deployments behind Xvfb); otherwise the
// launcher inherits the process environment.
type BrowserConfig struct {
	Headless   bool     `yaml:"headless"`
	ControlURL string   `yaml:"controlURL"`
	Displays   []string `yaml:"displays"`
}

// RecorderConfig carries the process-wide defaults for diagnostic
// capture. Each toggle can be overridden per job in the submit request.
type RecorderConfig struct {
	Network   bool   `yaml:"network"`
	Trace     bool   `yaml:"trace"`
	Video     bool   `yaml:"video"`
	OutputDir string `yaml:"outputDir"`
}

type PoolConfig struct {
	MaxSessions      int `yaml:"maxSessions"`
	AcquireTimeoutMs int `yaml:"acquireTimeoutMs"`
}

type GateConfig struct {
	WaitSeconds    int `yaml:"waitSeconds"`
	PollIntervalMs int `yaml:"pollIntervalMs"`
}

// MdacConfig describes the target form: the entry URL, indicator
// selectors inspected by the gate waiter, per-step execution policy,
// and the site defaults the registration flow falls back to.
type MdacConfig struct {
	BaseURL          string `yaml:"baseURL"`
	StepTimeoutMs    int    `yaml:"stepTimeoutMs"`
	StepRetries      int    `yaml:"stepRetries"`
	SuccessSelector  string `yaml:"successSelector"`
	RejectSelector   string `yaml:"rejectSelector"`
	PinSelector      string `yaml:"pinSelector"`
	DefaultEmbark    string `yaml:"defaultEmbark"`
	DefaultStateCode string `yaml:"defaultStateCode"`
	DefaultPostcode  string `yaml:"defaultPostcode"`
	DownloadDir      string `yaml:"downloadDir"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

type WorkerConfig struct {
	MaxConcurrentJobs    int `yaml:"maxConcurrentJobs"`
	PollIntervalMs       int `yaml:"pollIntervalMs"`
	SyncJobWaitTimeoutMs int `yaml:"syncJobWaitTimeoutMs"`
}

// JobTTLConfig controls per-job-type retention in days.
type JobTTLConfig struct {
	DefaultDays  int `yaml:"defaultDays"`
	RegisterDays int `yaml:"registerDays"`
	RetrieveDays int `yaml:"retrieveDays"`
}

// RetentionConfig controls TTL-like deletion of old jobs so that the
// database does not grow without bound over time.
type RetentionConfig struct {
	Enabled                bool         `yaml:"enabled"`
	CleanupIntervalMinutes int          `yaml:"cleanupIntervalMinutes"`
	Jobs                   JobTTLConfig `yaml:"jobs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Pool      PoolConfig      `yaml:"pool"`
	Gate      GateConfig      `yaml:"gate"`
	Mdac      MdacConfig      `yaml:"mdac"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Worker    WorkerConfig    `yaml:"worker"`
	Retention RetentionConfig `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
