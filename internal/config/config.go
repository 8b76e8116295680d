package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Port string

	SubjectsFile  string
	LandmarksFile string
	GDPFile       string
	OutputDir     string

	// Radius slider bounds and default, in meters.
	MaxRadius     float64
	DefaultRadius float64
	UseIndex      bool

	DefaultCountries []string
	SessionSecret    string
}

// Default returns a Config populated from the environment, falling back to
// sensible defaults.
func Default() Config {
	return Config{
		Port: getEnv("PORT", "9595"),

		SubjectsFile:  getEnv("SUBJECTS_FILE", "data/fincaraiz_final.csv"),
		LandmarksFile: getEnv("LANDMARKS_FILE", "data/bogota_filtered_pois.csv"),
		GDPFile:       getEnv("GDP_FILE", "data/gdp_data.csv"),
		OutputDir:     getEnv("OUTPUT_DIR", "output"),

		MaxRadius:     getEnvFloat("MAX_RADIUS", 3000),
		DefaultRadius: getEnvFloat("DEFAULT_RADIUS", 500),
		UseIndex:      getEnvBool("USE_INDEX", true),

		DefaultCountries: getEnvList("DEFAULT_COUNTRIES", []string{"DEU", "FRA", "GBR", "BRA", "MEX", "JPN"}),
		SessionSecret:    getEnv("SESSION_SECRET", "nearby-listings-session-key"),
	}
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
