package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Twitch struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Port          string
	PostgresURI   string
	RedisURI      string
	PublicBaseURL string
	SecretKey     string
	CookieName    string
	WebhookSecret string
	OpsToken      string

	AllowedRedirectDomains []string

	OwnerMonthlyLimit   int
	GlobalMonthlyLimit  int
	DefaultGraceSeconds int

	SampleInterval    time.Duration
	SampleConcurrency int
	StaleAfter        time.Duration
	SweepSlack        time.Duration
	PlatformTimeout   time.Duration

	Platform      string
	Twitch        Twitch
	YoutubeAPIKey string

	PostAPIURL         string
	PostAPIToken       string
	FallbackWebhookURL string

	R2 R2

	LogLevel string
	LogFile  string
}

const (
	minSampleInterval = 5 * time.Minute
	maxSampleInterval = 15 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("POSTGRES_URI", "")
	v.SetDefault("REDIS_URI", "localhost:6379")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("COOKIE_NAME", "liveflow_session")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("OPS_TOKEN", "")
	v.SetDefault("ALLOWED_REDIRECT_DOMAINS", "twitch.tv,youtube.com,youtu.be,kick.com")
	v.SetDefault("OWNER_MONTHLY_LIMIT", 12)
	v.SetDefault("GLOBAL_MONTHLY_LIMIT", 400)
	v.SetDefault("DEFAULT_GRACE_SECONDS", 90)
	v.SetDefault("SAMPLE_INTERVAL", "10m")
	v.SetDefault("SAMPLE_CONCURRENCY", 10)
	v.SetDefault("STALE_AFTER", "0")
	v.SetDefault("SWEEP_SLACK", "30s")
	v.SetDefault("PLATFORM_TIMEOUT", "5s")
	v.SetDefault("PLATFORM", "twitch")
	v.SetDefault("TWITCH_CLIENT_ID", "")
	v.SetDefault("TWITCH_CLIENT_SECRET", "")
	v.SetDefault("YOUTUBE_API_KEY", "")
	v.SetDefault("POST_API_URL", "")
	v.SetDefault("POST_API_TOKEN", "")
	v.SetDefault("FALLBACK_WEBHOOK_URL", "")
	v.SetDefault("R2_ACCOUNT_ID", "")
	v.SetDefault("R2_ACCESS_KEY", "")
	v.SetDefault("R2_SECRET_KEY", "")
	v.SetDefault("R2_BUCKET_NAME", "")
	v.SetDefault("R2_PUBLIC_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
}

// LoadConfig reads .env, then an optional config.yaml, then the environment.
// Environment variables win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                   v.GetString("PORT"),
		PostgresURI:            v.GetString("POSTGRES_URI"),
		RedisURI:               v.GetString("REDIS_URI"),
		PublicBaseURL:          strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		SecretKey:              v.GetString("SECRET_KEY"),
		CookieName:             v.GetString("COOKIE_NAME"),
		WebhookSecret:          v.GetString("WEBHOOK_SECRET"),
		OpsToken:               v.GetString("OPS_TOKEN"),
		AllowedRedirectDomains: splitList(v.GetString("ALLOWED_REDIRECT_DOMAINS")),
		OwnerMonthlyLimit:      v.GetInt("OWNER_MONTHLY_LIMIT"),
		GlobalMonthlyLimit:     v.GetInt("GLOBAL_MONTHLY_LIMIT"),
		DefaultGraceSeconds:    v.GetInt("DEFAULT_GRACE_SECONDS"),
		SampleInterval:         v.GetDuration("SAMPLE_INTERVAL"),
		SampleConcurrency:      v.GetInt("SAMPLE_CONCURRENCY"),
		StaleAfter:             v.GetDuration("STALE_AFTER"),
		SweepSlack:             v.GetDuration("SWEEP_SLACK"),
		PlatformTimeout:        v.GetDuration("PLATFORM_TIMEOUT"),
		Platform:               strings.ToLower(v.GetString("PLATFORM")),
		Twitch: Twitch{
			ClientID:     v.GetString("TWITCH_CLIENT_ID"),
			ClientSecret: v.GetString("TWITCH_CLIENT_SECRET"),
		},
		YoutubeAPIKey:      v.GetString("YOUTUBE_API_KEY"),
		PostAPIURL:         v.GetString("POST_API_URL"),
		PostAPIToken:       v.GetString("POST_API_TOKEN"),
		FallbackWebhookURL: v.GetString("FALLBACK_WEBHOOK_URL"),
		R2: R2{
			AccountID:  v.GetString("R2_ACCOUNT_ID"),
			AccessKey:  v.GetString("R2_ACCESS_KEY"),
			SecretKey:  v.GetString("R2_SECRET_KEY"),
			BucketName: v.GetString("R2_BUCKET_NAME"),
			PublicURL:  strings.TrimRight(v.GetString("R2_PUBLIC_URL"), "/"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.SampleInterval < minSampleInterval {
		c.SampleInterval = minSampleInterval
	}
	if c.SampleInterval > maxSampleInterval {
		c.SampleInterval = maxSampleInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 3 * c.SampleInterval
	}
	if c.SampleConcurrency <= 0 {
		c.SampleConcurrency = 10
	}
	if c.PlatformTimeout <= 0 {
		c.PlatformTimeout = 5 * time.Second
	}
	if c.OwnerMonthlyLimit <= 0 {
		c.OwnerMonthlyLimit = 12
	}
	if c.GlobalMonthlyLimit <= 0 {
		c.GlobalMonthlyLimit = 400
	}
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.Platform != "twitch" && c.Platform != "youtube" {
		return errors.New("PLATFORM must be twitch or youtube")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
