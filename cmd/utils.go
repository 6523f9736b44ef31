package cmd

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"translation-backend/internal/core"
)

// StoreConfig is the result store surface shared by the api server and the
// worker. Both must agree on TTLs or records written by one side would be
// reclaimed on a different schedule than the other expects.
type StoreConfig struct {
	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	ResultTTL   time.Duration `env:"RESULT_TTL" envDefault:"1h"`
	TerminalTTL time.Duration `env:"TERMINAL_TTL" envDefault:"5m"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`
}

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// LoadLanguageTable returns the built-in language table, or the one parsed
// from path when a languages file is configured.
func LoadLanguageTable(path string) map[string]core.Language {
	if path == "" {
		return core.DefaultLanguages()
	}

	languages, err := core.LoadLanguages(path)
	if err != nil {
		log.Fatalf("error loading languages file '%s': %v", path, err)
	}
	return languages
}
