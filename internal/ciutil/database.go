package ciutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Connection defaults of the PostgreSQL service container used in CI.
const (
	StandardCIUser     = "postgres"
	StandardCIPassword = "postgres"
	StandardCIPort     = "5432"
	StandardCIDatabase = "teamtask_test"
	StandardCIOptions  = "sslmode=disable"
)

// GetTestDatabaseURL returns the integration test database URL, or "" when
// none is configured. Under CI the URL is rewritten to the service
// container's credentials and defaults.
func GetTestDatabaseURL(logger *slog.Logger) string {
	dbURL := GetEnvWithFallbacks([]string{EnvTestDBURL, EnvDatabaseURL, EnvAppDBURL}, "", logger)
	if dbURL == "" || !IsCI() {
		return dbURL
	}

	standardized, err := StandardizeDatabaseURL(dbURL)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to standardize database URL", "error", err, "url", MaskDatabaseURL(dbURL))
		}
		return dbURL
	}
	if standardized != dbURL && logger != nil {
		logger.Info("standardized database URL for CI",
			"original", MaskDatabaseURL(dbURL),
			"standardized", MaskDatabaseURL(standardized))
	}
	return standardized
}

// StandardizeDatabaseURL applies the CI credentials to a postgres URL and
// fills in a missing port, database name and options. Other schemes are
// returned unchanged.
func StandardizeDatabaseURL(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return dbURL, nil
	}

	u.User = url.UserPassword(StandardCIUser, StandardCIPassword)

	host := u.Hostname()
	if u.Port() == "" && (host == "" || host == "localhost" || host == "127.0.0.1") {
		if host == "" {
			host = "localhost"
		}
		u.Host = host + ":" + StandardCIPort
	}
	if strings.TrimPrefix(u.Path, "/") == "" {
		u.Path = "/" + StandardCIDatabase
	}
	if u.RawQuery == "" {
		u.RawQuery = StandardCIOptions
	}
	return u.String(), nil
}

// MaskDatabaseURL hides the password of a connection URL for logging.
// Values that do not parse are masked entirely.
func MaskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.Scheme == "" {
		return "****"
	}
	return u.Redacted()
}
