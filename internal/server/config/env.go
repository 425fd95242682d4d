package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// local .env file first if one exists. Unset variables leave the current
// values untouched.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.EndpointAddrHTTP = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("ADMIN_KEY"); ok {
		config.AdminKey = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("SIGNUP_HOME_DEFAULT"); ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.SignupHomeDefault = parsed
		}
	}
}
