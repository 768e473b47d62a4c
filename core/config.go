package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration

		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr      string
		Password  string
		DB        int
		RosterTTL time.Duration
	}

	RosterConfig struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}

	SchedulingConfig struct {
		LessonDuration time.Duration
	}

	LedgerConfig struct {
		CallTimeout time.Duration
	}

	Config struct {
		Env       string // DEV (local; default), TEST, QA, PROD
		Build     string
		Debug     bool
		TestMode  bool
		AppName   string
		SecretKey string
		WorkDir   string

		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Roster     RosterConfig
		Scheduling SchedulingConfig
		Ledger     LedgerConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("secretKey", "n2l$+x7u)0#c9qj@vq8s=ke3&y_4r!w*hdz5f^b1tpo6m(ga")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Ratiba")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 5*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverJWTExpirationDelta", 8*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "ratiba")
	v.SetDefault("databaseUser", "ratiba")
	v.SetDefault("databasePassword", "ratiba")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisRosterTTL", 10*time.Minute)

	v.SetDefault("rosterBaseURL", "http://localhost:8100")
	v.SetDefault("rosterAPIKey", "")
	v.SetDefault("rosterTimeout", 3*time.Second)

	v.SetDefault("lessonDuration", 90*time.Minute)
	v.SetDefault("ledgerCallTimeout", 5*time.Second)
}

// NewConfig loads the app configuration from the environment.
// A `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:       env,
		Build:     v.GetString("build"),
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		AppName:   v.GetString("appName"),
		SecretKey: v.GetString("secretKey"),
		WorkDir:   wd,

		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			DebugHost:       v.GetString("serverDebugHost"),
			ReadTimeout:     v.GetDuration("serverReadTimeout"),
			WriteTimeout:    v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),

			JWTExpirationDelta: v.GetDuration("serverJWTExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redisAddr"),
			Password:  v.GetString("redisPassword"),
			DB:        v.GetInt("redisDB"),
			RosterTTL: v.GetDuration("redisRosterTTL"),
		},
		Roster: RosterConfig{
			BaseURL: v.GetString("rosterBaseURL"),
			APIKey:  v.GetString("rosterAPIKey"),
			Timeout: v.GetDuration("rosterTimeout"),
		},
		Scheduling: SchedulingConfig{
			LessonDuration: v.GetDuration("lessonDuration"),
		},
		Ledger: LedgerConfig{
			CallTimeout: v.GetDuration("ledgerCallTimeout"),
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s [%s] env=%s debug=%t", c.AppName, c.Build, c.Env, c.Debug)
}
