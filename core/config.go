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

type (
	ServerConf struct {
		Host               string
		Port               string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConf struct {
		Engine     string
		Name       string
		User       string
		Password   string
		Host       string
		Port       string
		DisableTLS bool
	}

	RedisConf struct {
		Addr       string
		Password   string
		DB         int
		SessionTTL time.Duration
	}

	MailConf struct {
		SendgridApiKey string
		Host           string
		Port           int
		Username       string
		Password       string
		QueueSize      int
	}

	BucketConf struct {
		Endpoint   string
		AccessKey  string
		SecretKey  string
		Name       string
		BaseFolder string
		UseSSL     bool
	}

	// OTPConf carries the Access Gate throttling hooks. Both default to zero
	// (disabled) to reproduce the original permissive behavior.
	OTPConf struct {
		PasscodeTTL time.Duration
		MaxAttempts int
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string

		AppName            string
		SecretKey          string
		FrontendBaseURL    string
		DefaultFromEmail   mail.Address
		OperatorEmail      string // alert fallback when a category has no responsible email
		StudentEmailSuffix string // institutional domain required by the access gate
		KeywordsFile       string // optional hot-reloadable classifier keyword sets

		Server   ServerConf
		Database DatabaseConf
		Redis    RedisConf
		Mail     MailConf
		Bucket   BucketConf
		OTP      OTPConf

		RollbarToken string
	}
)

func (c ServerConf) Address() string   { return c.Host + ":" + c.Port }
func (c DatabaseConf) Address() string { return c.Host + ":" + c.Port }

var Conf *Config

func init() {
	Conf = loadConfig()
}

func loadConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Buzon EMI")
	v.SetDefault("secretKey", "wz0q-ins3cure-l0cal-only-k3y-c4mbiame!")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "noreply@emi.edu.bo")
	v.SetDefault("operatorEmail", "admin@emi.edu.bo")
	v.SetDefault("studentEmailSuffix", "est.emi.edu.bo")
	v.SetDefault("keywordsFile", "")

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("shutdownTimeout", 20*time.Second)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "buzon")
	v.SetDefault("databaseUser", "buzon")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("sessionTTL", 12*time.Hour)

	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("emailHost", "")
	v.SetDefault("emailPort", 587)
	v.SetDefault("emailHostUser", "")
	v.SetDefault("emailHostPassword", "")
	v.SetDefault("mailQueueSize", 64)

	v.SetDefault("bucketEndpoint", "")
	v.SetDefault("bucketAccessKey", "")
	v.SetDefault("bucketSecretKey", "")
	v.SetDefault("bucketName", "buzon-evidencias")
	v.SetDefault("bucketBaseFolder", "evidencias")
	v.SetDefault("bucketUseSSL", true)

	v.SetDefault("passcodeTTL", time.Duration(0))
	v.SetDefault("passcodeMaxAttempts", 0)

	v.SetDefault("rollbarToken", "")
	v.SetDefault("build", "dev")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	appName := v.GetString("appName")
	return &Config{
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		Env:      env,
		Build:    v.GetString("build"),

		AppName:            appName,
		SecretKey:          v.GetString("secretKey"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		DefaultFromEmail:   mail.Address{Name: appName, Address: v.GetString("defaultFromEmail")},
		OperatorEmail:      v.GetString("operatorEmail"),
		StudentEmailSuffix: v.GetString("studentEmailSuffix"),
		KeywordsFile:       v.GetString("keywordsFile"),

		Server: ServerConf{
			Host:               v.GetString("serverHost"),
			Port:               v.GetString("serverPort"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConf{
			Engine:     v.GetString("databaseEngine"),
			Name:       v.GetString("databaseName"),
			User:       v.GetString("databaseUser"),
			Password:   v.GetString("databasePassword"),
			Host:       v.GetString("databaseHost"),
			Port:       v.GetString("databasePort"),
			DisableTLS: v.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConf{
			Addr:       v.GetString("redisAddr"),
			Password:   v.GetString("redisPassword"),
			DB:         v.GetInt("redisDB"),
			SessionTTL: v.GetDuration("sessionTTL"),
		},
		Mail: MailConf{
			SendgridApiKey: v.GetString("sendgridApiKey"),
			Host:           v.GetString("emailHost"),
			Port:           v.GetInt("emailPort"),
			Username:       v.GetString("emailHostUser"),
			Password:       v.GetString("emailHostPassword"),
			QueueSize:      v.GetInt("mailQueueSize"),
		},
		Bucket: BucketConf{
			Endpoint:   v.GetString("bucketEndpoint"),
			AccessKey:  v.GetString("bucketAccessKey"),
			SecretKey:  v.GetString("bucketSecretKey"),
			Name:       v.GetString("bucketName"),
			BaseFolder: v.GetString("bucketBaseFolder"),
			UseSSL:     v.GetBool("bucketUseSSL"),
		},
		OTP: OTPConf{
			PasscodeTTL: v.GetDuration("passcodeTTL"),
			MaxAttempts: v.GetInt("passcodeMaxAttempts"),
		},

		RollbarToken: v.GetString("rollbarToken"),
	}
}
