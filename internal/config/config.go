package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"chat-push/internal/logger"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config содержит конфигурацию сервиса рассылки push-уведомлений.
type Config struct {
	Log      logger.Config  `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Queue    QueueConfig    `yaml:"queue"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Site     SiteConfig     `yaml:"site"`
	Auth     AuthConfig     `yaml:"auth"`
}

type HTTPConfig struct {
	Port               string   `yaml:"port" env:"HTTP_PORT" env-default:"8088"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

type RabbitMQConfig struct {
	URI string `yaml:"uri" env:"RABBITMQ_URI" env-required:"true"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"` // Пусто - дедупликация заданий отключена
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_URL" env-required:"true"`
	MaxConns        int32         `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DATABASE_MIN_CONNS" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DATABASE_CONNECT_TIMEOUT" env-default:"5s"`
	RunMigrations   bool          `yaml:"run_migrations" env:"DATABASE_RUN_MIGRATIONS" env-default:"true"`
}

type QueueConfig struct {
	Name               string        `yaml:"name" env:"PUSH_QUEUE_NAME" env-default:"push_dispatch_jobs"`
	DeadLetterExchange string        `yaml:"dead_letter_exchange" env:"PUSH_DLX" env-default:"push_dispatch_dlx"`
	Concurrency        int           `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"10"`
	ProcessingDelay    time.Duration `yaml:"processing_delay" env:"PUSH_PROCESSING_DELAY" env-default:"2s"` // Время на "оседание" вложений
	JobTimeout         time.Duration `yaml:"job_timeout" env:"PUSH_JOB_TIMEOUT" env-default:"60s"`
	DedupTTL           time.Duration `yaml:"dedup_ttl" env:"PUSH_DEDUP_TTL" env-default:"24h"`
}

type FirebaseConfig struct {
	EnvFile          string        `yaml:"env_file" env:"FIREBASE_ENV_FILE" env-default:".firebase.env"`
	SiteConfigFile   string        `yaml:"site_config_file" env:"FIREBASE_SITE_CONFIG" env-default:"site_config.yml"`
	DryRun           bool          `yaml:"dry_run" env:"FIREBASE_DRY_RUN" env-default:"false"`
	BatchSize        int           `yaml:"batch_size" env:"FIREBASE_BATCH_SIZE" env-default:"500"`
	MulticastTimeout time.Duration `yaml:"multicast_timeout" env:"FIREBASE_MULTICAST_TIMEOUT" env-default:"10s"`
	SendTimeout      time.Duration `yaml:"send_timeout" env:"FIREBASE_SEND_TIMEOUT" env-default:"5s"`
	IconPath         string        `yaml:"icon_path" env:"FIREBASE_ICON_PATH" env-default:"/assets/raven/raven-logo.png"`
}

type SiteConfig struct {
	BaseURL  string `yaml:"base_url" env:"SITE_BASE_URL" env-default:"http://localhost:8000"`
	SiteName string `yaml:"site_name" env:"SITE_NAME" env-default:"localhost"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret" env:"JWT_SECRET"`
	InterServiceSecret string `yaml:"inter_service_secret" env:"INTER_SERVICE_SECRET"`
}

// CredentialSources возвращает источники учетных данных Firebase в порядке приоритета.
func (c FirebaseConfig) CredentialSources() CredentialSources {
	return CredentialSources{
		SiteConfigPath: c.SiteConfigFile,
		EnvFilePath:    c.EnvFile,
		UseProcessEnv:  true,
	}
}

// NormalizedBaseURL возвращает базовый URL сайта без завершающего слеша.
func (s SiteConfig) NormalizedBaseURL() string {
	return strings.TrimRight(s.BaseURL, "/")
}

// LoadConfig читает конфигурацию из configPath, при ошибке - только из переменных окружения.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yml"
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v. Попытка чтения из переменных окружения.", configPath, err)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Конфигурация успешно загружена. Push Queue: %s, workers: %d", cfg.Queue.Name, cfg.Queue.Concurrency)
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue.concurrency must be positive, got %d", c.Queue.Concurrency)
	}
	if c.Firebase.BatchSize <= 0 || c.Firebase.BatchSize > 500 {
		return fmt.Errorf("firebase.batch_size must be in 1..500, got %d", c.Firebase.BatchSize)
	}
	if c.Firebase.MulticastTimeout <= 0 || c.Firebase.SendTimeout <= 0 {
		return fmt.Errorf("firebase timeouts must be positive")
	}
	if c.Queue.JobTimeout > 0 && c.Firebase.MulticastTimeout+c.Firebase.SendTimeout > c.Queue.JobTimeout {
		return fmt.Errorf("queue.job_timeout (%s) must cover firebase.multicast_timeout + firebase.send_timeout (%s)",
			c.Queue.JobTimeout, c.Firebase.MulticastTimeout+c.Firebase.SendTimeout)
	}
	return nil
}
