package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
}

type DBConfig struct {
	Source     string `mapstructure:"source"`
	SchemaPath string `mapstructure:"schema_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	SecretKey    string   `mapstructure:"secret_key" validate:"required"`
	PreviousKeys []string `mapstructure:"previous_keys" validate:"dive,required"`
	TTLMinutes   int      `mapstructure:"ttl_minutes" validate:"min=1"`
	CookieName   string   `mapstructure:"cookie_name" validate:"required"`
	Identifier   string   `mapstructure:"identifier" validate:"required"`
	// Backend selects the session store: postgres, redis or memory.
	Backend       string        `mapstructure:"backend" validate:"oneof=postgres redis memory"`
	MaxAge        time.Duration `mapstructure:"max_age" validate:"gt=0"`
	Secure        bool          `mapstructure:"secure"`
	SameSite      string        `mapstructure:"same_site" validate:"oneof=lax strict none"`
	Domain        string        `mapstructure:"domain"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SwaggerURL     string   `mapstructure:"swagger_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Keys returns the signing keys, current key first.
func (c SessionConfig) Keys() []string {
	return append([]string{c.SecretKey}, c.PreviousKeys...)
}

func (c SessionConfig) SameSiteMode() http.SameSite {
	switch c.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.source", "")
	v.SetDefault("db.schema_path", "./db/init.sql")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.secret_key", "")
	v.SetDefault("session.previous_keys", []string{})
	v.SetDefault("session.ttl_minutes", 5)
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.identifier", "general_verifier")
	v.SetDefault("session.backend", "postgres")
	v.SetDefault("session.max_age", 14*24*time.Hour)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.same_site", "lax")
	v.SetDefault("session.domain", "")
	v.SetDefault("session.store_timeout", 2*time.Second)
	v.SetDefault("session.sweep_interval", time.Duration(0))

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.swagger_url", "http://localhost:8080/swagger/doc.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func Load() (*Config, error) {
	return LoadFrom("./configs", "/configs")
}

// LoadFrom reads settings.yml from the first path that has one, then lets
// environment variables override it (session.secret_key -> SESSION_SECRET_KEY).
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validateErr validator.ValidationErrors
		if !errors.As(err, &validateErr) {
			return err
		}
		fields := make([]string, 0, len(validateErr))
		for _, fe := range validateErr {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
	}

	if c.Session.Backend == "postgres" && c.DB.Source == "" {
		return errors.New("invalid configuration: db.source is required for the postgres session backend")
	}
	return nil
}
