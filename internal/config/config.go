package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port      string `mapstructure:"port"`
		Env       string `mapstructure:"env"`
		PublicURL string `mapstructure:"public_url"`
	} `mapstructure:"app"`
	Content struct {
		APIBase      string        `mapstructure:"api_base"`
		LocalAPIBase string        `mapstructure:"local_api_base"`
		Snapshot     string        `mapstructure:"snapshot"`
		Timeout      time.Duration `mapstructure:"timeout"`

		// WatchSnapshot reloads silently when a local snapshot file changes.
		WatchSnapshot bool `mapstructure:"watch_snapshot"`
	} `mapstructure:"content"`
	HTTP struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"http"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers      []string `mapstructure:"brokers"`
		ContentTopic string   `mapstructure:"content_topic"`
		GroupID      string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

// Endpoints resolves the API base for this config. The result is computed
// once at startup and handed to whoever needs it.
func (c Config) Endpoints() Endpoints {
	return ResolveEndpoints(c.Content.APIBase, c.App.PublicURL, c.Content.LocalAPIBase)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.public_url", "")
	v.SetDefault("content.api_base", "")
	v.SetDefault("content.local_api_base", "http://127.0.0.1:8000")
	v.SetDefault("content.snapshot", "./public/published-content.json")
	v.SetDefault("content.timeout", 10*time.Second)
	v.SetDefault("content.watch_snapshot", true)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("redis.ttl", 7*24*time.Hour)
	v.SetDefault("kafka.content_topic", "content.events")
	v.SetDefault("kafka.group_id", "portal-content-loader")
}

// LoadConfig reads .env, then config.yaml from the given paths (the working
// directory when none are given), then the environment.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	setDefaults(v)

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read env only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.public_url", "APP_PUBLIC_URL")
	v.BindEnv("content.api_base", "CONTENT_API_BASE")
	v.BindEnv("content.local_api_base", "CONTENT_LOCAL_API_BASE")
	v.BindEnv("content.snapshot", "CONTENT_SNAPSHOT")
	v.BindEnv("content.timeout", "CONTENT_TIMEOUT")
	v.BindEnv("content.watch_snapshot", "CONTENT_WATCH_SNAPSHOT")
	v.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.ttl", "REDIS_TTL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.content_topic", "KAFKA_CONTENT_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("tracing.otlp_endpoint", "OTLP_ENDPOINT")

	err = v.Unmarshal(&cfg)
	return
}
