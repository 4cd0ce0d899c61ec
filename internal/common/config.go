package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "paperia"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PAPERIA"
)

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Server       ServerConfig       `mapstructure:"server"`
	Upload       UploadConfig       `mapstructure:"upload"`
	OCR          OCRConfig          `mapstructure:"ocr"`
	Corrector    CorrectorConfig    `mapstructure:"corrector"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Detection    DetectionConfig    `mapstructure:"detection"`
	Organization OrganizationConfig `mapstructure:"organization"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	GinMode         string        `mapstructure:"gin_mode"`
}

// UploadConfig controls where uploads and intermediate images are written.
type UploadConfig struct {
	Dir             string `mapstructure:"dir"`
	PreprocessedDir string `mapstructure:"preprocessed_dir"`
	CleanedDir      string `mapstructure:"cleaned_dir"`
	AllowPDF        bool   `mapstructure:"allow_pdf"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string `mapstructure:"engine"` // tesseract-cli | gosseract | azure
	Tesseract        string `mapstructure:"tesseract"`
	Pdftotext        string `mapstructure:"pdftotext"`
	Languages        string `mapstructure:"languages"`
	TessdataDir      string `mapstructure:"tessdata_dir"`
	PSM              int    `mapstructure:"psm"`
	OEM              int    `mapstructure:"oem"`
	ArtifactCacheDir string `mapstructure:"artifact_cache_dir"`
	AzureEndpoint    string `mapstructure:"azure_endpoint"`
	AzureKey         string `mapstructure:"azure_key"`
}

// CorrectorConfig points at the spelling dictionaries. Empty paths use the
// built-in word lists.
type CorrectorConfig struct {
	EnglishDictionary    string `mapstructure:"english_dictionary"`
	IndonesianDictionary string `mapstructure:"indonesian_dictionary"`
	MaxEditDistance      int    `mapstructure:"max_edit_distance"`
}

// LLMConfig holds chat-completion configuration
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PaymentConfig holds the payment gateway credentials.
type PaymentConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DetectionConfig points at the object-detection inference service.
type DetectionConfig struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinConfidence float64       `mapstructure:"min_confidence"`
}

// OrganizationConfig names the tenant business records are written for when
// a request does not carry one.
type OrganizationConfig struct {
	Name string `mapstructure:"name"`
}

// Loader reads configuration from an optional yaml file, .env and the
// environment, in increasing order of precedence.
type Loader struct {
	v        *viper.Viper
	envFiles []string
}

func NewLoader(envFiles ...string) *Loader {
	return &Loader{v: viper.New(), envFiles: envFiles}
}

// Viper exposes the underlying instance so CLI flags can be bound to keys.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads and validates configuration. configFile may be empty to search
// the default locations.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if err := godotenv.Load(l.envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading env file: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("/etc/paperia")
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Unprefixed names used by deployments and the docker-compose file.
	legacy := map[string]string{
		"database.dsn":       "DB_URL",
		"server.http_addr":   "HTTP_ADDR",
		"server.grpc_addr":   "GRPC_ADDR",
		"llm.api_key":        "OPENAI_API_KEY",
		"llm.model":          "OPENAI_MODEL",
		"payment.secret_key": "XENDIT_SECRET_KEY",
		"ocr.tessdata_dir":   "TESSDATA_PREFIX",
		"ocr.azure_endpoint": "AZURE_VISION_ENDPOINT",
		"ocr.azure_key":      "AZURE_VISION_KEY",
		"detection.url":      "DETECTOR_URL",
	}
	for key, env := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		_ = l.v.BindEnv(key, prefixed, env)
	}
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("database.dsn", d.Database.DSN)
	l.v.SetDefault("database.max_conns", d.Database.MaxConns)
	l.v.SetDefault("database.min_conns", d.Database.MinConns)
	l.v.SetDefault("database.max_conn_lifetime", d.Database.MaxConnLifetime)
	l.v.SetDefault("database.max_conn_idle_time", d.Database.MaxConnIdleTime)
	l.v.SetDefault("database.dial_timeout", d.Database.DialTimeout)
	l.v.SetDefault("database.statement_timeout", d.Database.StatementTimeout)
	l.v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	l.v.SetDefault("server.http_addr", d.Server.HTTPAddr)
	l.v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	l.v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.gin_mode", d.Server.GinMode)

	l.v.SetDefault("upload.dir", d.Upload.Dir)
	l.v.SetDefault("upload.preprocessed_dir", d.Upload.PreprocessedDir)
	l.v.SetDefault("upload.cleaned_dir", d.Upload.CleanedDir)
	l.v.SetDefault("upload.allow_pdf", d.Upload.AllowPDF)

	l.v.SetDefault("ocr.engine", d.OCR.Engine)
	l.v.SetDefault("ocr.tesseract", d.OCR.Tesseract)
	l.v.SetDefault("ocr.pdftotext", d.OCR.Pdftotext)
	l.v.SetDefault("ocr.languages", d.OCR.Languages)
	l.v.SetDefault("ocr.tessdata_dir", d.OCR.TessdataDir)
	l.v.SetDefault("ocr.psm", d.OCR.PSM)
	l.v.SetDefault("ocr.oem", d.OCR.OEM)
	l.v.SetDefault("ocr.artifact_cache_dir", d.OCR.ArtifactCacheDir)
	l.v.SetDefault("ocr.azure_endpoint", d.OCR.AzureEndpoint)
	l.v.SetDefault("ocr.azure_key", d.OCR.AzureKey)

	l.v.SetDefault("corrector.english_dictionary", d.Corrector.EnglishDictionary)
	l.v.SetDefault("corrector.indonesian_dictionary", d.Corrector.IndonesianDictionary)
	l.v.SetDefault("corrector.max_edit_distance", d.Corrector.MaxEditDistance)

	l.v.SetDefault("llm.base_url", d.LLM.BaseURL)
	l.v.SetDefault("llm.model", d.LLM.Model)
	l.v.SetDefault("llm.api_key", d.LLM.APIKey)
	l.v.SetDefault("llm.temperature", d.LLM.Temperature)
	l.v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	l.v.SetDefault("llm.timeout", d.LLM.Timeout)

	l.v.SetDefault("payment.base_url", d.Payment.BaseURL)
	l.v.SetDefault("payment.secret_key", d.Payment.SecretKey)
	l.v.SetDefault("payment.timeout", d.Payment.Timeout)

	l.v.SetDefault("detection.url", d.Detection.URL)
	l.v.SetDefault("detection.timeout", d.Detection.Timeout)
	l.v.SetDefault("detection.min_confidence", d.Detection.MinConfidence)

	l.v.SetDefault("organization.name", d.Organization.Name)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			AutoMigrate:     true,
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			GRPCAddr:        ":8080",
			MaxUploadBytes:  20 << 20,
			ShutdownTimeout: 15 * time.Second,
			GinMode:         "release",
		},
		Upload: UploadConfig{
			Dir:             "uploads",
			PreprocessedDir: "preprocessed_uploads",
			CleanedDir:      "cleaned_uploads",
		},
		OCR: OCRConfig{
			Engine:           "tesseract-cli",
			Tesseract:        "tesseract",
			Pdftotext:        "pdftotext",
			Languages:        "eng+ind",
			ArtifactCacheDir: "./tmp",
		},
		Corrector: CorrectorConfig{
			MaxEditDistance: 2,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   150,
			Timeout:     45 * time.Second,
		},
		Payment: PaymentConfig{
			BaseURL: "https://api.xendit.co",
			Timeout: 30 * time.Second,
		},
		Detection: DetectionConfig{
			Timeout:       30 * time.Second,
			MinConfidence: 0.25,
		},
		Organization: OrganizationConfig{
			Name: "Default Organization",
		},
	}
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "server.http_addr is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "tesseract-cli", "gosseract":
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError("CONFIG_ERROR", "azure ocr engine needs AZURE_VISION_ENDPOINT and AZURE_VISION_KEY", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ocr engine %q", c.OCR.Engine), ErrInvalidInput)
	}
	if c.Corrector.MaxEditDistance < 0 || c.Corrector.MaxEditDistance > 3 {
		return NewAppError("CONFIG_ERROR", "corrector.max_edit_distance must be between 0 and 3", ErrInvalidInput)
	}
	if c.Upload.Dir == "" || c.Upload.PreprocessedDir == "" || c.Upload.CleanedDir == "" {
		return NewAppError("CONFIG_ERROR", "upload directories must not be empty", ErrInvalidInput)
	}
	return nil
}
