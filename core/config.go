package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	serverConfig struct {
		Host                      string
		Addr                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	aiConfig struct {
		APIKey         string
		BaseURL        string
		Model          string
		RequestTimeout time.Duration
	}

	paystackConfig struct {
		BaseURL       string
		SecretKey     string
		PublicKey     string
		WebhookSecret string
	}

	uploadConfig struct {
		Dir       string
		MaxSizeMB int64
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string

		AppName          string
		SecretKey        []byte
		FrontendBaseURL  string
		DefaultFromEmail mail.Address

		SendgridApiKey string
		RollbarToken   string

		PasswordResetTimeoutDelta time.Duration

		// generation endpoints rate limit, per user
		GenerationRateLimit  int
		GenerationRateWindow time.Duration

		Server   serverConfig
		Database databaseConfig
		Redis    redisConfig
		AI       aiConfig
		Paystack paystackConfig
		Upload   uploadConfig
	}
)

func (c databaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "BrainyPal")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "o0p$-q2x)dnb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm3emy")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@brainypal.app")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("generationRateLimit", 100)
	v.SetDefault("generationRateWindow", time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "brainypal")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.baseUrl", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.requestTimeout", 2*time.Minute)

	v.SetDefault("paystack.baseUrl", "https://api.paystack.co")
	v.SetDefault("paystack.secretKey", "")
	v.SetDefault("paystack.publicKey", "")
	v.SetDefault("paystack.webhookSecret", "")

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.maxSizeMb", 16)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", strings.ToLower(env))
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              v.GetString("env"),
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        []byte(v.GetString("secretKey")),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		GenerationRateLimit:       v.GetInt("generationRateLimit"),
		GenerationRateWindow:      v.GetDuration("generationRateWindow"),

		Server: serverConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		AI: aiConfig{
			APIKey:         v.GetString("ai.apiKey"),
			BaseURL:        v.GetString("ai.baseUrl"),
			Model:          v.GetString("ai.model"),
			RequestTimeout: v.GetDuration("ai.requestTimeout"),
		},
		Paystack: paystackConfig{
			BaseURL:       v.GetString("paystack.baseUrl"),
			SecretKey:     v.GetString("paystack.secretKey"),
			PublicKey:     v.GetString("paystack.publicKey"),
			WebhookSecret: v.GetString("paystack.webhookSecret"),
		},
		Upload: uploadConfig{
			Dir:       v.GetString("upload.dir"),
			MaxSizeMB: v.GetInt64("upload.maxSizeMb"),
		},
	}
}
