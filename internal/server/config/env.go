package config

import (
	"errors"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// parseEnv loads dotenv (when the file exists) and overlays every field whose
// `env` variable is set. Variables already present in the environment win over
// the file. Unset variables leave the current value untouched.
func parseEnv(config *Config, dotenv string) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			panic(err)
		}
	}

	if err := envdecode.Decode(config); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}
}
