package config

import "fmt"

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Storage  StorageConfig  `yaml:"storage"`
	STT      STTConfig      `yaml:"stt"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Audio    AudioConfig    `yaml:"audio"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type PathsConfig struct {
	Work  string `yaml:"work"`
	Inbox string `yaml:"inbox"`
}

type StorageConfig struct {
	Backend          string  `yaml:"backend"` // "fs" or "s3"
	Root             string  `yaml:"root"`    // fs backend root directory
	Bucket           string  `yaml:"bucket"`
	Prefix           string  `yaml:"prefix"`
	Region           string  `yaml:"region"`
	Endpoint         string  `yaml:"endpoint"`
	AccessKey        string  `yaml:"access_key"`
	SecretKey        string  `yaml:"secret_key"`
	MaxRetries       int     `yaml:"max_retries"`
	SecondsPerMB     float64 `yaml:"seconds_per_mb"`
	MinTimeoutSecond int     `yaml:"min_timeout_seconds"`
}

type STTConfig struct {
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	Model            string  `yaml:"model"`
	Language         string  `yaml:"language"`
	Prompt           string  `yaml:"prompt"`
	SecondsPerMinute float64 `yaml:"seconds_per_minute"` // timeout budget per audio minute
	MinTimeoutSecond int     `yaml:"min_timeout_seconds"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
}

type AudioConfig struct {
	SplitThresholdMinutes int    `yaml:"split_threshold_minutes"`
	ChunkMinutes          int    `yaml:"chunk_minutes"`
	MaxUploadMB           int    `yaml:"max_upload_mb"`
	CompressBitrate       string `yaml:"compress_bitrate"`
}

type PipelineConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	JobStore      string `yaml:"job_store"` // "object" or "sqlite"
	SQLitePath    string `yaml:"sqlite_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) Validate() error {
	if c.Paths.Work == "" {
		return fmt.Errorf("paths.work is required")
	}
	if c.STT.BaseURL == "" {
		return fmt.Errorf("stt.base_url is required")
	}
	if c.STT.Model == "" {
		return fmt.Errorf("stt.model is required")
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "fs"
	case "fs", "s3":
	default:
		return fmt.Errorf("storage.backend must be \"fs\" or \"s3\", got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the s3 backend")
	}
	if c.Storage.Backend == "fs" && c.Storage.Root == "" {
		c.Storage.Root = "data/store"
	}
	if c.Storage.MaxRetries == 0 {
		c.Storage.MaxRetries = 3
	}
	if c.Storage.SecondsPerMB == 0 {
		c.Storage.SecondsPerMB = 2
	}
	if c.Storage.MinTimeoutSecond == 0 {
		c.Storage.MinTimeoutSecond = 30
	}

	if c.STT.Language == "" {
		c.STT.Language = "en"
	}
	if c.STT.SecondsPerMinute == 0 {
		c.STT.SecondsPerMinute = 30
	}
	if c.STT.MinTimeoutSecond == 0 {
		c.STT.MinTimeoutSecond = 120
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}

	if c.Audio.SplitThresholdMinutes == 0 {
		c.Audio.SplitThresholdMinutes = 15
	}
	if c.Audio.ChunkMinutes == 0 {
		c.Audio.ChunkMinutes = 10
	}
	if c.Audio.MaxUploadMB == 0 {
		c.Audio.MaxUploadMB = 25
	}
	if c.Audio.CompressBitrate == "" {
		c.Audio.CompressBitrate = "64k"
	}

	if c.Pipeline.MaxConcurrent == 0 {
		c.Pipeline.MaxConcurrent = 2
	}
	switch c.Pipeline.JobStore {
	case "":
		c.Pipeline.JobStore = "object"
	case "object", "sqlite":
	default:
		return fmt.Errorf("pipeline.job_store must be \"object\" or \"sqlite\", got %q", c.Pipeline.JobStore)
	}
	if c.Pipeline.JobStore == "sqlite" && c.Pipeline.SQLitePath == "" {
		c.Pipeline.SQLitePath = "data/jobs.sqlite"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
