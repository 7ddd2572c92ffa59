package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds process-level settings resolved from the environment.
type AppConfig struct {
	DBPath       string
	LogDir       string
	DecayHourUTC int
}

// LoadApp resolves app settings from .env files and environment variables.
// The binary's directory takes priority so deployed installs keep their data
// next to the executable; cwd is the development fallback.
func LoadApp() *AppConfig {
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		if err := godotenv.Load(filepath.Join(exeDir, ".env")); err == nil {
			log.Debug().Str("path", filepath.Join(exeDir, ".env")).Msg("loaded .env from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env in working directory, using environment")
	}

	dbPath := os.Getenv("PANTRY_DB_PATH")
	if dbPath == "" {
		if wd, err := os.Getwd(); err == nil {
			dbPath = filepath.Join(wd, "pantry.db")
		} else if exeDir != "" {
			dbPath = filepath.Join(exeDir, "pantry.db")
		} else {
			dbPath = "pantry.db"
		}
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if exeDir != "" {
			logDir = filepath.Join(exeDir, "logs")
		} else {
			logDir = "logs"
		}
	}

	decayHour := 0
	if v := os.Getenv("DECAY_HOUR_UTC"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			decayHour = h
		}
	}

	return &AppConfig{
		DBPath:       dbPath,
		LogDir:       logDir,
		DecayHourUTC: decayHour,
	}
}
