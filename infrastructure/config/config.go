package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries everything the server binary needs. Values come from
// the yaml file named by CONFIG_PATH, overridable by environment
// variables; with no file present env vars and defaults apply.
type Config struct {
	Env           string   `yaml:"env" env:"APP_ENV" env-default:"local"`
	SQLitePath    string   `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"preferio.db"`
	AttachmentDir string   `yaml:"attachment_dir" env:"ATTACHMENT_DIR" env-default:"attachments"`
	CORSOrigins   []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"http://localhost:3000,http://localhost:5173"`
	HTTPServer    `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"APP_ADDR" env-default:":8000"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// MustLoad reads the config or exits.
func MustLoad() *Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			log.Fatalf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from env: %s", err)
	}
	return &cfg
}
