package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret        string
	JWTExpiry        time.Duration
	MaxLoginFailures int
	LoginFailureTTL  time.Duration
}

// DefaultUser seeds the admin account when the users collection is first
// created. Its username doubles as the admin claim checked on protected
// routes.
type DefaultUser struct {
	Username   string
	Password   string
	Email      string
	Visibility string
	Pronouns   string
	FullName   string
}

type DefaultCollective struct {
	Name string
}

type AppConfig struct {
	Environment       string
	HTTP              HTTPConfig
	TLS               TLSConfig
	Mongo             MongoConfig
	Redis             RedisConfig
	Security          SecurityConfig
	DefaultUser       DefaultUser
	DefaultCollective DefaultCollective
	AllowCORSOrigins  []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SUDOHUMANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Every key needs a default, even an empty one: viper only resolves env vars
// for keys it already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "localhost")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.certfile", "")
	v.SetDefault("tls.keyfile", "")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "sudohumans")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.jwtexpiry", "30m")
	v.SetDefault("security.maxloginfailures", 10)
	v.SetDefault("security.loginfailurettl", "15m")

	v.SetDefault("defaultuser.username", "admin")
	v.SetDefault("defaultuser.password", "changeme")
	v.SetDefault("defaultuser.email", "")
	v.SetDefault("defaultuser.visibility", "accounts")
	v.SetDefault("defaultuser.pronouns", "They/Them")
	v.SetDefault("defaultuser.fullname", "Sudo Humans Admin")

	v.SetDefault("defaultcollective.name", "Sudo Room")

	v.SetDefault("allowcorsorigins", "")
}
