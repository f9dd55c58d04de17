package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string
		Build    string

		SecretKey          string
		JWTExpirationDelta time.Duration

		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Teacher  TeacherConfig
		Grading  GradingConfig
		Backup   BackupConfig
		Redis    RedisConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host string
		Port int
	}

	// TeacherConfig holds the instructor account credentials. There is a
	// single teacher actor; students authenticate against the credential store.
	TeacherConfig struct {
		Email    string
		Password string
	}

	// GradingConfig holds the passing thresholds. PassingThreshold applies to
	// a student's whole-course point total (sum over all exams);
	// ExamPassingScore applies to a single exam on a 0-100 scale.
	GradingConfig struct {
		PassingThreshold float64
		ExamPassingScore float64
	}

	BackupConfig struct {
		Dir string // local sink directory
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	DatabaseConfig struct {
		Engine     string
		User       string
		Password   string
		Host       string
		Port       int
		Name       string
		DisableTLS bool
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the configuration from the environment; an optional
// config/.env.<env> file is loaded first if it exists.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Gradebook")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x#2v)y^bq0e&$7m!t(98_hz@4c+5dwnj6k3u1gsfrlpoia*q")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("teacherEmail", "teacher@localhost")
	v.SetDefault("teacherPassword", "")
	v.SetDefault("passingThreshold", 250)
	v.SetDefault("examPassingScore", 60)
	v.SetDefault("backupDir", "backups")
	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbUser", "")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "gradebook")
	v.SetDefault("dbDisableTLS", true)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		DefaultFromEmail:   mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:     v.GetString("sendgridApiKey"),
		RollbarToken:       v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host: v.GetString("serverHost"),
			Port: v.GetInt("serverPort"),
		},
		Teacher: TeacherConfig{
			Email:    v.GetString("teacherEmail"),
			Password: v.GetString("teacherPassword"),
		},
		Grading: GradingConfig{
			PassingThreshold: v.GetFloat64("passingThreshold"),
			ExamPassingScore: v.GetFloat64("examPassingScore"),
		},
		Backup: BackupConfig{
			Dir: v.GetString("backupDir"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("dbEngine"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			Host:       v.GetString("dbHost"),
			Port:       v.GetInt("dbPort"),
			Name:       v.GetString("dbName"),
			DisableTLS: v.GetBool("dbDisableTLS"),
		},
	}
	return conf, nil
}
