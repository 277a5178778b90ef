package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	LogLevel  string

	CommercialBaseURL      string
	CommercialLogin        string
	CommercialPassword     string
	CommercialFolderID     string
	CommercialOrgID        string
	CommercialStoreID      string
	CommercialRateLimitRPS int
	CommercialTimeoutMs    int
	CommercialPageSize     int

	RegulatoryAuthURL  string
	RegulatoryBaseURL  string
	RegulatoryLogin    string
	RegulatoryPassword string
	RegulatoryTimeout  int

	SheetsClientID     string
	SheetsClientSecret string
	SheetsRedirectURI  string
	SheetsRefreshToken string

	CorrespondenceSpreadsheetID string
	CorrespondenceSheet         string
	CorrespondenceRange         string
	RejectionsRange             string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		CommercialBaseURL:      getEnv("COMMERCIAL_API_BASE_URL", "https://online.moysklad.ru/api/remap/1.2"),
		CommercialLogin:        getEnv("COMMERCIAL_LOGIN", ""),
		CommercialPassword:     getEnv("COMMERCIAL_PASSWORD", ""),
		CommercialFolderID:     getEnv("COMMERCIAL_FOLDER_ID", ""),
		CommercialOrgID:        getEnv("COMMERCIAL_ORG_ID", ""),
		CommercialStoreID:      getEnv("COMMERCIAL_STORE_ID", ""),
		CommercialRateLimitRPS: getEnvInt("COMMERCIAL_RATE_LIMIT_RPS", 5),
		CommercialTimeoutMs:    getEnvInt("COMMERCIAL_TIMEOUT_MS", 30000),
		CommercialPageSize:     getEnvInt("COMMERCIAL_PAGE_SIZE", 1000),

		RegulatoryAuthURL:  getEnv("REGULATORY_AUTH_URL", "https://auth.kontur.ru/api/authentication/password/auth-by-password"),
		RegulatoryBaseURL:  getEnv("REGULATORY_API_BASE_URL", ""),
		RegulatoryLogin:    getEnv("REGULATORY_LOGIN", ""),
		RegulatoryPassword: getEnv("REGULATORY_PASSWORD", ""),
		RegulatoryTimeout:  getEnvInt("REGULATORY_TIMEOUT_MS", 30000),

		SheetsClientID:     getEnv("SHEETS_CLIENT_ID", ""),
		SheetsClientSecret: getEnv("SHEETS_CLIENT_SECRET", ""),
		SheetsRedirectURI:  getEnv("SHEETS_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		SheetsRefreshToken: getEnv("SHEETS_REFRESH_TOKEN", ""),

		CorrespondenceSpreadsheetID: getEnv("CORRESPONDENCE_SPREADSHEET_ID", ""),
		CorrespondenceSheet:         getEnv("CORRESPONDENCE_SHEET", "Соответствия"),
		CorrespondenceRange:         getEnv("CORRESPONDENCE_RANGE", "A2:B1000"),
		RejectionsRange:             getEnv("REJECTIONS_RANGE", "D2:E1000"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
