package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the console's runtime configuration.
// The remote Smart Pocket API is selected by a single base URL.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default), TEST, QA, PROD
	AppName  string
	Build    string

	APIBaseURL     string
	RequestTimeout time.Duration
	StateDir       string

	RollbarToken string
}

// LoadConfig reads configuration from the environment (optionally seeded from
// a config/.env.<env> file) into a Config.
func LoadConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Smart Pocket")
	conf.SetDefault("apiBaseUrl", "http://localhost:8800")
	conf.SetDefault("requestTimeout", 15*time.Second)
	conf.SetDefault("stateDir", defaultStateDir())
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("build", "dev")

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:          conf.GetBool("debug"),
		TestMode:       conf.GetBool("testMode"),
		Env:            env,
		AppName:        conf.GetString("appName"),
		Build:          conf.GetString("build"),
		APIBaseURL:     strings.TrimRight(conf.GetString("apiBaseUrl"), "/"),
		RequestTimeout: conf.GetDuration("requestTimeout"),
		StateDir:       conf.GetString("stateDir"),
		RollbarToken:   conf.GetString("rollbarToken"),
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartpocket"
	}
	return filepath.Join(home, ".smartpocket")
}
