package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTUserSecret string `env:"JWT_USER_SECRET" envDefault:"insecure-dev-secret"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"VTU Wallet"`

	MobileNigBaseURL   string `env:"MOBILENIG_BASE_URL"   envDefault:"https://enterprise.mobilenig.com/api"`
	MobileNigPublicKey string `env:"MOBILENIG_PUBLIC_KEY"`
	MobileNigSecretKey string `env:"MOBILENIG_SECRET_KEY"`

	EBillsBaseURL  string `env:"EBILLS_BASE_URL" envDefault:"https://ebills.africa/wp-json"`
	EBillsUsername string `env:"EBILLS_USERNAME"`
	EBillsPassword string `env:"EBILLS_PASSWORD"`

	VTpassBaseURL   string `env:"VTPASS_BASE_URL"   envDefault:"https://vtpass.com/api"`
	VTpassAPIKey    string `env:"VTPASS_API_KEY"`
	VTpassPublicKey string `env:"VTPASS_PUBLIC_KEY"`
	VTpassSecretKey string `env:"VTPASS_SECRET_KEY"`

	// BrowserAutomationURL адрес сайдкара браузерной автоматизации. Пустое
	// значение отключает браузерный провайдер.
	BrowserAutomationURL string `env:"BROWSER_AUTOMATION_URL"`
}

func LoadConfig() (*Config, error) {
	// .env опционален, в проде переменные приходят из окружения
	_ = godotenv.Load()

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	merged := *envConfig
	merged.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	merged.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	merged.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	return &merged
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
