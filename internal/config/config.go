package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr       string
	DataDir    string
	CORSOrigin string
	// Redis - optional; session pointer falls back to the badger store
	RedisURL string
	// Meilisearch - optional; search falls back to a document scan
	MeiliURL       string
	MeiliMasterKey string
	// OMDb metadata provider - empty key disables remote lookups
	OMDBBaseURL       string
	OMDBAPIKey        string
	OMDBSearchResults int
}

func Load() Config {
	return Config{
		Addr:              getenv("API_ADDR", ":8790"),
		DataDir:           getenv("WATCHQUEST_DATA_DIR", "./data/db"),
		CORSOrigin:        getenv("WATCHQUEST_CORS_ORIGIN", "*"),
		RedisURL:          getenv("REDIS_URL", ""),
		MeiliURL:          getenv("MEILI_URL", ""),
		MeiliMasterKey:    getenv("MEILI_MASTER_KEY", ""),
		OMDBBaseURL:       getenv("OMDB_BASE_URL", "https://www.omdbapi.com/"),
		OMDBAPIKey:        getenv("OMDB_API_KEY", ""),
		OMDBSearchResults: getenvInt("OMDB_SEARCH_RESULTS", 5),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
