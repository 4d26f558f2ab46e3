package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr      string
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionSecret string
	GinMode       string
	LogLevel      string
	LogFormat     string
	UploadDir     string
	OpenAIAPIKey  string
}

var defaults = map[string]string{
	"http_addr":      ":8080",
	"db_driver":      "mysql",
	"db_host":        "localhost",
	"db_port":        "3306",
	"db_user":        "taskuser",
	"db_password":    "taskpassword",
	"db_name":        "taskflow",
	"redis_host":     "localhost",
	"redis_port":     "6379",
	"redis_password": "",
	"session_secret": "default-secret-key-change-me",
	"gin_mode":       "debug",
	"log_level":      "info",
	"log_format":     "json",
	"upload_dir":     "uploads",
	"openai_api_key": "",
}

// Load reads an optional .env file, then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPAddr:      v.GetString("http_addr"),
		DBDriver:      strings.ToLower(v.GetString("db_driver")),
		DBHost:        v.GetString("db_host"),
		DBPort:        v.GetString("db_port"),
		DBUser:        v.GetString("db_user"),
		DBPassword:    v.GetString("db_password"),
		DBName:        v.GetString("db_name"),
		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetString("redis_port"),
		RedisPassword: v.GetString("redis_password"),
		SessionSecret: v.GetString("session_secret"),
		GinMode:       v.GetString("gin_mode"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
		UploadDir:     v.GetString("upload_dir"),
		OpenAIAPIKey:  v.GetString("openai_api_key"),
	}
}

// RedisAddr returns host:port for the redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
