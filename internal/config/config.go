package config

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		Timezone           string   `mapstructure:"timezone"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	WhatsApp struct {
		Provider             string `mapstructure:"provider"` // cloud, aisensy, interakt, or empty to disable
		APIKey               string `mapstructure:"api_key"`
		PhoneNumberID        string `mapstructure:"phone_number_id"`
		BaseURL              string `mapstructure:"base_url"`
		Language             string `mapstructure:"language"`
		RetryMaxAttempts     int    `mapstructure:"retry_max_attempts"`
		RetryIntervalMinutes int    `mapstructure:"retry_interval_minutes"`
	} `mapstructure:"whatsapp"`

	RabbitMQ struct {
		URL      string `mapstructure:"url"`
		Exchange string `mapstructure:"exchange"`
	} `mapstructure:"rabbitmq"`

	Storage struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"storage"`

	Razorpay struct {
		KeyID     string `mapstructure:"key_id"`
		KeySecret string `mapstructure:"key_secret"`
		Currency  string `mapstructure:"currency"`
	} `mapstructure:"razorpay"`

	// Admin seeds the first account when the users table is empty
	Admin struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"admin"`

	Business struct {
		Nombre        string `mapstructure:"nombre"`
		VerifyBaseURL string `mapstructure:"verify_base_url"`
	} `mapstructure:"business"`
}

// StorageEnabled reports whether an S3-compatible bucket is configured
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != "" && c.Storage.AccessKey != "" && c.Storage.SecretKey != ""
}

// DSN builds the pgx connection string
func (c *Config) DSN() string {
	u := &strings.Builder{}
	u.WriteString("postgres://")
	u.WriteString(c.Database.User)
	if c.Database.Password != "" {
		u.WriteString(":" + c.Database.Password)
	}
	u.WriteString("@" + c.Database.Host + ":" + strconv.Itoa(c.Database.Port) + "/" + c.Database.Name)
	if c.Database.SSLMode != "" {
		u.WriteString("?sslmode=" + c.Database.SSLMode)
	}
	return u.String()
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timezone", "America/Mexico_City")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "eventos-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "eventos_db")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("whatsapp.language", "es_MX")
	v.SetDefault("whatsapp.retry_max_attempts", 3)
	v.SetDefault("whatsapp.retry_interval_minutes", 5)
	v.SetDefault("rabbitmq.exchange", "eventos")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("razorpay.currency", "MXN")
	v.SetDefault("business.nombre", "Eventos")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Redis.Port = n
		}
	}

	overrideString(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	overrideString(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	overrideString(&cfg.WhatsApp.Provider, "WHATSAPP_PROVIDER")
	overrideString(&cfg.WhatsApp.APIKey, "WHATSAPP_API_KEY")
	overrideString(&cfg.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	overrideString(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	overrideString(&cfg.Admin.Email, "ADMIN_EMAIL")
	overrideString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	overrideString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	overrideString(&cfg.Storage.Bucket, "S3_BUCKET")
	overrideString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	overrideString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" && cfg.StorageEnabled() {
			log.Printf("[Config] JWT_SECRET not set, fetching from storage backup...")
			cfg.JWT.Secret = fetchJWTSecretFromStorage(&cfg)
		}
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not found in environment or storage backup")
		}
	}

	return &cfg
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// fetchJWTSecretFromStorage reads config/jwt_secret.txt from the configured bucket
func fetchJWTSecretFromStorage(c *Config) string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.Storage.AccessKey,
			c.Storage.SecretKey,
			"",
		)),
		awsconfig.WithRegion(c.Storage.Region),
	)
	if err != nil {
		log.Printf("[Config] Failed to configure storage client: %v", err)
		return ""
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Storage.Endpoint)
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.Storage.Bucket),
		Key:    aws.String("config/jwt_secret.txt"),
	})
	if err != nil {
		log.Printf("[Config] Failed to fetch JWT secret from storage: %v", err)
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.Printf("[Config] Failed to read JWT secret: %v", err)
		return ""
	}
	return strings.TrimSpace(string(secret))
}
