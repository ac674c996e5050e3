package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the answering service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Fanout    FanoutConfig    `mapstructure:"fanout"`
	Fusion    FusionConfig    `mapstructure:"fusion"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Learned   LearnedConfig   `mapstructure:"learned"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SourcesConfig groups per-provider settings. Endpoints are configurable so
// tests can point adapters at local servers.
type SourcesConfig struct {
	Wolfram    WolframConfig    `mapstructure:"wolfram"`
	Google     GoogleConfig     `mapstructure:"google"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
	Wikipedia  WikipediaConfig  `mapstructure:"wikipedia"`
	Arxiv      ArxivConfig      `mapstructure:"arxiv"`
	DBpedia    DBpediaConfig    `mapstructure:"dbpedia"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
}

// WolframConfig contains Wolfram Alpha short-answer settings
type WolframConfig struct {
	AppID          string        `mapstructure:"app_id"`
	ResultEndpoint string        `mapstructure:"result_endpoint"`
	SpokenEndpoint string        `mapstructure:"spoken_endpoint"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// GoogleConfig contains Google Custom Search settings
type GoogleConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	CX           string        `mapstructure:"cx"`
	Endpoint     string        `mapstructure:"endpoint"`
	MaxResults   int           `mapstructure:"max_results"`
	FetchTopLink bool          `mapstructure:"fetch_top_link"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DuckDuckGoConfig contains instant-answer API settings
type DuckDuckGoConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WikipediaConfig contains the two-phase encyclopedia lookup settings
type WikipediaConfig struct {
	SearchEndpoint  string        `mapstructure:"search_endpoint"`
	SummaryEndpoint string        `mapstructure:"summary_endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ArxivConfig contains academic index settings
type ArxivConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DBpediaConfig contains structured-facts store settings
type DBpediaConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// YouTubeConfig contains video search and transcript settings
type YouTubeConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	SearchEndpoint     string        `mapstructure:"search_endpoint"`
	TranscriptEndpoint string        `mapstructure:"transcript_endpoint"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// FanoutConfig tunes the parallel fan-out scheduler
type FanoutConfig struct {
	MaxConcurrent      int           `mapstructure:"max_concurrent"`
	PerSourceTimeout   time.Duration `mapstructure:"per_source_timeout"`
	OverallTimeout     time.Duration `mapstructure:"overall_timeout"`
	EarlyStopThreshold int           `mapstructure:"early_stop_threshold"`
	SubstantialLength  int           `mapstructure:"substantial_length"`
}

// FusionConfig tunes the response fusion engine
type FusionConfig struct {
	MaxSentences       int     `mapstructure:"max_sentences"`
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
}

// PolicyConfig tunes source selection and query building
type PolicyConfig struct {
	MaxSources int `mapstructure:"max_sources"`
	MaxQueries int `mapstructure:"max_queries"`
}

// CacheConfig bounds the in-process answer cache
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// LearnedConfig tunes the learned answer pattern store
type LearnedConfig struct {
	MaxEntries          int     `mapstructure:"max_entries"`
	MinQuality          float64 `mapstructure:"min_quality"`
	ReuseQuality        float64 `mapstructure:"reuse_quality"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkerConfig contains the stats maintenance worker settings
type WorkerConfig struct {
	Cron  string  `mapstructure:"cron"`
	Decay float64 `mapstructure:"decay"`
}

// Addr returns the Redis host:port address.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", r.Host, port)
}

// DSN assembles a Postgres connection string, preferring the explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (set storage.postgres.url or host/dbname)")
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// LoadConfig loads configuration from file and environment variables. An
// empty path falls back to oraculo.yaml in ./config or the working
// directory; a missing file is fine, defaults and env still apply.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("oraculo")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ORACULO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")

	viper.SetDefault("server.listen", ":8080")

	// Per-source timeouts follow the providers' observed latencies; arxiv
	// and youtube are the slow ones.
	viper.SetDefault("sources.wolfram.result_endpoint", "https://api.wolframalpha.com/v1/result")
	viper.SetDefault("sources.wolfram.spoken_endpoint", "https://api.wolframalpha.com/v1/spoken")
	viper.SetDefault("sources.wolfram.timeout", "5s")
	viper.SetDefault("sources.google.endpoint", "https://www.googleapis.com/customsearch/v1")
	viper.SetDefault("sources.google.max_results", 3)
	viper.SetDefault("sources.google.fetch_top_link", false)
	viper.SetDefault("sources.google.timeout", "5s")
	viper.SetDefault("sources.duckduckgo.endpoint", "https://api.duckduckgo.com/")
	viper.SetDefault("sources.duckduckgo.timeout", "7s")
	viper.SetDefault("sources.wikipedia.search_endpoint", "https://en.wikipedia.org/w/api.php")
	viper.SetDefault("sources.wikipedia.summary_endpoint", "https://en.wikipedia.org/api/rest_v1/page/summary")
	viper.SetDefault("sources.wikipedia.timeout", "7s")
	viper.SetDefault("sources.arxiv.endpoint", "https://export.arxiv.org/api/query")
	viper.SetDefault("sources.arxiv.timeout", "10s")
	viper.SetDefault("sources.dbpedia.endpoint", "https://dbpedia.org/data")
	viper.SetDefault("sources.dbpedia.timeout", "5s")
	viper.SetDefault("sources.youtube.search_endpoint", "https://www.googleapis.com/youtube/v3/search")
	viper.SetDefault("sources.youtube.transcript_endpoint", "https://video.google.com/timedtext")
	viper.SetDefault("sources.youtube.timeout", "10s")

	viper.SetDefault("fanout.max_concurrent", 4)
	viper.SetDefault("fanout.per_source_timeout", "10s")
	viper.SetDefault("fanout.overall_timeout", "20s")
	viper.SetDefault("fanout.early_stop_threshold", 2)
	viper.SetDefault("fanout.substantial_length", 100)

	viper.SetDefault("fusion.max_sentences", 6)
	viper.SetDefault("fusion.duplicate_threshold", 0.7)

	viper.SetDefault("policy.max_sources", 4)
	viper.SetDefault("policy.max_queries", 5)

	viper.SetDefault("cache.max_entries", 100)
	viper.SetDefault("cache.ttl", "1h")

	viper.SetDefault("learned.max_entries", 1000)
	viper.SetDefault("learned.min_quality", 0.7)
	viper.SetDefault("learned.reuse_quality", 0.9)
	viper.SetDefault("learned.similarity_threshold", 0.85)

	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.postgres.timeout", "5s")

	viper.SetDefault("telemetry.enabled", true)

	viper.SetDefault("worker.cron", "0 * * * *")
	viper.SetDefault("worker.decay", 0.95)
}

// overrideFromEnv pulls credentials from their conventional env var names so
// secrets never have to live in the config file.
func overrideFromEnv() {
	if v := os.Getenv("WOLFRAM_APP_ID"); v != "" {
		viper.Set("sources.wolfram.app_id", v)
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		viper.Set("sources.google.api_key", v)
	}
	if v := os.Getenv("GOOGLE_CX"); v != "" {
		viper.Set("sources.google.cx", v)
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		viper.Set("sources.youtube.api_key", v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		viper.Set("storage.redis.host", v)
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			viper.Set("storage.redis.port", p)
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		viper.Set("storage.redis.password", v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		viper.Set("storage.postgres.url", v)
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		viper.Set("storage.postgres.host", v)
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			viper.Set("storage.postgres.port", p)
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		viper.Set("storage.postgres.user", v)
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		viper.Set("storage.postgres.password", v)
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		viper.Set("storage.postgres.dbname", v)
	}
	if v := os.Getenv("ORACULO_JWT_SECRET"); v != "" {
		viper.Set("server.jwt_secret", v)
	}
}

func validateConfig(config *Config) error {
	if config.Fanout.OverallTimeout <= 0 {
		return fmt.Errorf("fanout.overall_timeout must be positive")
	}
	if config.Fanout.PerSourceTimeout <= 0 {
		return fmt.Errorf("fanout.per_source_timeout must be positive")
	}
	if config.Fanout.MaxConcurrent < 1 {
		return fmt.Errorf("fanout.max_concurrent must be at least 1")
	}
	if config.Fanout.EarlyStopThreshold < 1 {
		return fmt.Errorf("fanout.early_stop_threshold must be at least 1")
	}
	if t := config.Fusion.DuplicateThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("fusion.duplicate_threshold must be in (0, 1]")
	}
	if config.Fusion.MaxSentences < 1 {
		return fmt.Errorf("fusion.max_sentences must be at least 1")
	}
	if config.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1")
	}
	return nil
}
