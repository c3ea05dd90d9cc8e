package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MEETSYNC"

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	Secret          string        `mapstructure:"secret"`
	DebugInvariants bool          `mapstructure:"debug_invariants"`

	TLS           TLSConfig           `mapstructure:"tls"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Extraction    ExtractionConfig    `mapstructure:"extraction"`
	Finalize      FinalizeConfig      `mapstructure:"finalize"`
	Audio         AudioConfig         `mapstructure:"audio"`
	ICE           ICEConfig           `mapstructure:"ice"`
	Log           LogConfig           `mapstructure:"log"`
}

type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// Enabled reports whether both certificate files exist on disk.
func (t TLSConfig) Enabled() bool {
	if t.CertFile == "" || t.KeyFile == "" {
		return false
	}
	for _, p := range []string{t.CertFile, t.KeyFile} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type TranscriptionConfig struct {
	Provider     string        `mapstructure:"provider"` // assemblyai | echo
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ExtractionConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
}

type FinalizeConfig struct {
	Workers int `mapstructure:"workers"`
}

type AudioConfig struct {
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type ICEConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5001)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("debug_invariants", false)

	v.SetDefault("tls.cert_file", "cert.pem")
	v.SetDefault("tls.key_file", "key.pem")
	v.SetDefault("database.path", "meetsync.db")

	v.SetDefault("transcription.provider", "assemblyai")
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.base_url", "https://api.assemblyai.com")
	v.SetDefault("transcription.poll_interval", "1s")

	v.SetDefault("extraction.base_url", "https://api.cerebras.ai/v1")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.model", "qwen-3-coder-480b")
	v.SetDefault("extraction.max_tokens", 40000)
	v.SetDefault("extraction.temperature", 0.7)
	v.SetDefault("extraction.top_p", 0.8)

	v.SetDefault("finalize.workers", 4)
	v.SetDefault("audio.rate_limit", 30)
	v.SetDefault("audio.rate_interval", "10s")

	v.SetDefault("ice.urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ice.username", "")
	v.SetDefault("ice.credential", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Flags registers the command line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.Int("port", 5001, "listen port")
	fs.String("mode", "release", "gin mode (release|debug)")
	fs.String("config-env", "", "config environment, selects config/config.<env>.yaml")
}

// Load reads config/config.<env>.yaml, then MEETSYNC_* env vars, then flags.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env := os.Getenv("CONFIG_ENV")
	if flags != nil {
		for _, name := range []string{"port", "mode"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}
