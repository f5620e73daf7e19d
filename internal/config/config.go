package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind          string `yaml:"bind"`
	Port          int    `yaml:"port"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	ShutdownGrace int    `yaml:"shutdown_grace_ms"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Store       StoreConfig     `yaml:"store"`
	JobStore    JobStoreConfig  `yaml:"job_store"`
	Extract     ExtractConfig   `yaml:"extract"`
	TTS         TTSConfig       `yaml:"tts"`
	Convert     ConvertConfig   `yaml:"convert"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type StoreConfig struct {
	Root           string `yaml:"root"`
	KeepOnShutdown bool   `yaml:"keep_on_shutdown"`
}

type JobStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxJobs       int    `yaml:"max_jobs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type ExtractConfig struct {
	PDFCommand string `yaml:"pdf_command"`
}

type TTSConfig struct {
	Mode           string `yaml:"mode"` // mock, exec
	Command        string `yaml:"command"`
	Voice          string `yaml:"voice"`
	Format         string `yaml:"format"`
	SynthTimeoutMS int    `yaml:"synth_timeout_ms"`
}

type ConvertConfig struct {
	WordBudget int `yaml:"word_budget"`
	Workers    int `yaml:"workers"`
	MaxJobs    int `yaml:"max_jobs"`
}

func Default() Config {
	return Config{
		ServiceName: "lehakshiv",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:          "0.0.0.0",
			Port:          7777,
			MaxUploadMB:   64,
			ShutdownGrace: 10000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Store: StoreConfig{
			Root:           "",
			KeepOnShutdown: false,
		},
		JobStore: JobStoreConfig{
			Path:          "./data/lehakshiv-jobs.db",
			RetentionDays: 30,
			MaxJobs:       10000,
		},
		Extract: ExtractConfig{
			PDFCommand: "pdftotext -layout %s -",
		},
		TTS: TTSConfig{
			Mode:           "mock",
			Voice:          "en-US",
			Format:         "mp3",
			SynthTimeoutMS: 120000,
		},
		Convert: ConvertConfig{
			WordBudget: 4096,
			Workers:    1,
			MaxJobs:    4,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "LEHAKSHIV_SERVICE_NAME")
	overrideString(&cfg.Environment, "LEHAKSHIV_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LEHAKSHIV_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LEHAKSHIV_HTTP_PORT")
	overrideInt(&cfg.HTTP.MaxUploadMB, "LEHAKSHIV_HTTP_MAX_UPLOAD_MB")
	overrideInt(&cfg.HTTP.ShutdownGrace, "LEHAKSHIV_HTTP_SHUTDOWN_GRACE_MS")
	overrideString(&cfg.Telemetry.LogLevel, "LEHAKSHIV_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LEHAKSHIV_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LEHAKSHIV_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LEHAKSHIV_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "LEHAKSHIV_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LEHAKSHIV_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LEHAKSHIV_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LEHAKSHIV_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LEHAKSHIV_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LEHAKSHIV_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LEHAKSHIV_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LEHAKSHIV_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LEHAKSHIV_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LEHAKSHIV_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Store.Root, "LEHAKSHIV_STORE_ROOT")
	overrideBool(&cfg.Store.KeepOnShutdown, "LEHAKSHIV_STORE_KEEP_ON_SHUTDOWN")
	overrideString(&cfg.JobStore.Path, "LEHAKSHIV_JOB_STORE_PATH")
	overrideInt(&cfg.JobStore.RetentionDays, "LEHAKSHIV_JOB_STORE_RETENTION_DAYS")
	overrideInt(&cfg.JobStore.MaxJobs, "LEHAKSHIV_JOB_STORE_MAX_JOBS")
	overrideBool(&cfg.JobStore.VacuumOnStart, "LEHAKSHIV_JOB_STORE_VACUUM_ON_START")
	overrideString(&cfg.Extract.PDFCommand, "LEHAKSHIV_EXTRACT_PDF_COMMAND")
	overrideString(&cfg.TTS.Mode, "LEHAKSHIV_TTS_MODE")
	overrideString(&cfg.TTS.Command, "LEHAKSHIV_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "LEHAKSHIV_TTS_VOICE")
	overrideString(&cfg.TTS.Format, "LEHAKSHIV_TTS_FORMAT")
	overrideInt(&cfg.TTS.SynthTimeoutMS, "LEHAKSHIV_TTS_SYNTH_TIMEOUT_MS")
	overrideInt(&cfg.Convert.WordBudget, "LEHAKSHIV_CONVERT_WORD_BUDGET")
	overrideInt(&cfg.Convert.Workers, "LEHAKSHIV_CONVERT_WORKERS")
	overrideInt(&cfg.Convert.MaxJobs, "LEHAKSHIV_CONVERT_MAX_JOBS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		return errors.New("http.max_upload_mb must be positive")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.JobStore.Path == "" {
		return errors.New("job_store.path must not be empty")
	}
	if cfg.JobStore.RetentionDays < 0 {
		return errors.New("job_store.retention_days must be >= 0")
	}
	if cfg.Extract.PDFCommand == "" {
		return errors.New("extract.pdf_command must not be empty")
	}
	switch cfg.TTS.Mode {
	case "mock", "exec":
	default:
		return errors.New("tts.mode must be one of mock|exec")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.Format == "" {
		return errors.New("tts.format must not be empty")
	}
	if cfg.TTS.SynthTimeoutMS <= 0 {
		return errors.New("tts.synth_timeout_ms must be positive")
	}
	if cfg.Convert.WordBudget <= 0 {
		return errors.New("convert.word_budget must be positive")
	}
	if cfg.Convert.Workers <= 0 {
		return errors.New("convert.workers must be >= 1")
	}
	if cfg.Convert.MaxJobs <= 0 {
		return errors.New("convert.max_jobs must be >= 1")
	}
	return nil
}
