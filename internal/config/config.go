package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration.
// Values come from the YAML file and may be overridden by environment variables.
type Config struct {
	Server struct {
		Port           int      `yaml:"port" env:"PORT" env-default:"3000"`
		Host           string   `yaml:"host" env:"HOST" env-default:"0.0.0.0"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
	} `yaml:"server"`

	// Tiers lists the transcript sources in the order they are tried
	Tiers []string `yaml:"tiers" env:"TRANSCRIPT_TIERS" env-separator:"," env-default:"innertube,watchpage,speech"`

	Captions struct {
		Languages    []string      `yaml:"languages" env:"CAPTION_LANGUAGES" env-separator:"," env-default:"en"`
		RetryCount   int           `yaml:"retry_count" env:"CAPTION_RETRY_COUNT" env-default:"2"`
		RetryBackoff time.Duration `yaml:"retry_backoff" env:"CAPTION_RETRY_BACKOFF" env-default:"1s"`
		RatePerSec   float64       `yaml:"rate_per_sec" env:"YOUTUBE_RATE_PER_SEC" env-default:"5"`
		HTTPTimeout  time.Duration `yaml:"http_timeout" env:"YOUTUBE_HTTP_TIMEOUT" env-default:"15s"`
		BrowserWait  time.Duration `yaml:"browser_wait" env:"CAPTION_BROWSER_WAIT" env-default:"2s"`
	} `yaml:"captions"`

	Speech struct {
		Backend         string        `yaml:"backend" env:"SPEECH_BACKEND" env-default:"groq"`
		GroqAPIKey      string        `yaml:"-" env:"GROQ_API_KEY"`
		GroqBaseURL     string        `yaml:"groq_base_url" env:"GROQ_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
		GroqModel       string        `yaml:"groq_model" env:"GROQ_WHISPER_MODEL" env-default:"whisper-large-v3-turbo"`
		AltLanguage     string        `yaml:"alt_language" env:"SPEECH_ALT_LANGUAGE" env-default:"hi"`
		MaxUploadMB     int           `yaml:"max_upload_mb" env:"SPEECH_MAX_UPLOAD_MB" env-default:"25"`
		Workers         int           `yaml:"workers" env:"SPEECH_WORKERS" env-default:"2"`
		YtDlpPath       string        `yaml:"ytdlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
		CookiesPath     string        `yaml:"cookies_path" env:"YOUTUBE_COOKIES_PATH"`
		DownloadTimeout time.Duration `yaml:"download_timeout" env:"AUDIO_DOWNLOAD_TIMEOUT" env-default:"3m"`
	} `yaml:"speech"`

	Whisper struct {
		Model   string `yaml:"model" env:"WHISPER_MODEL" env-default:"base"`
		Python  string `yaml:"python" env:"WHISPER_PYTHON" env-default:"python3"`
		Threads int    `yaml:"threads" env:"WHISPER_THREADS" env-default:"4"`
	} `yaml:"whisper"`

	Storage struct {
		AudioCacheDir string `yaml:"audio_cache_dir" env:"AUDIO_CACHE_DIR" env-default:"temp/audio"`
	} `yaml:"storage"`

	Cleanup struct {
		Interval  time.Duration `yaml:"interval" env:"CLEANUP_INTERVAL" env-default:"30m"`
		MaxAge    time.Duration `yaml:"max_age" env:"CLEANUP_MAX_AGE" env-default:"6h"`
		MaxSizeMB int64         `yaml:"max_size_mb" env:"CLEANUP_MAX_SIZE_MB" env-default:"2048"`
	} `yaml:"cleanup"`

	Limits struct {
		RequestTimeout    time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"5m"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL" env-default:"15s"`
		MinChars          int           `yaml:"min_chars" env:"MIN_TRANSCRIPT_CHARS" env-default:"100"`
		MinWords          int           `yaml:"min_words" env:"MIN_TRANSCRIPT_WORDS" env-default:"15"`
		MaxBodyKB         int           `yaml:"max_body_kb" env:"MAX_BODY_KB" env-default:"4096"`
	} `yaml:"limits"`

	LLM struct {
		APIKey       string  `yaml:"-" env:"OPENROUTER_API_KEY"`
		BaseURL      string  `yaml:"base_url" env:"OPENROUTER_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
		DefaultModel string  `yaml:"default_model" env:"DEFAULT_MODEL" env-default:"google/gemini-2.5-flash-lite"`
		Temperature  float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.7"`
		SiteURL      string  `yaml:"site_url" env:"SITE_URL" env-default:"https://yugpt.app"`
		SiteName     string  `yaml:"site_name" env:"SITE_NAME" env-default:"YuGPT"`
	} `yaml:"llm"`

	Settings struct {
		Driver           string `yaml:"driver" env:"SETTINGS_DRIVER" env-default:"memory"`
		Database         string `yaml:"database" env:"SETTINGS_DATABASE" env-default:"file::memory:?cache=shared"`
		DefaultMaxTokens int    `yaml:"default_max_tokens" env:"DEFAULT_MAX_TOKENS" env-default:"4000"`
		AdminPassword    string `yaml:"-" env:"ADMIN_PASSWORD"`
	} `yaml:"settings"`

	YouTube struct {
		APIKey          string `yaml:"-" env:"YOUTUBE_API_KEY"`
		CredentialsFile string `yaml:"credentials_file" env:"YOUTUBE_CREDENTIALS_FILE"`
		TokenFile       string `yaml:"token_file" env:"YOUTUBE_TOKEN_FILE"`
	} `yaml:"youtube"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		JSON  bool   `yaml:"json" env:"LOG_JSON" env-default:"false"`
	} `yaml:"log"`
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file is not an error: configuration then comes from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &cfg, nil
}

// MustLoad is Load that panics on failure
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	return cfg
}
