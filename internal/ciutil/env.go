package ciutil

import (
	"log/slog"
	"os"
)

// CI detection variables.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"
)

// Database URL variables, in order of preference.
const (
	EnvTestDBURL   = "TEAMTASK_TEST_DB_URL"
	EnvDatabaseURL = "DATABASE_URL"
	EnvAppDBURL    = "TASKHUB_DATABASE_URL"
)

// IsCI reports whether the process runs under a known CI provider.
func IsCI() bool {
	for _, name := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// GetEnvWithFallbacks returns the first non-empty variable of names, or
// defaultValue. Using anything but the first name is logged at warn.
func GetEnvWithFallbacks(names []string, defaultValue string, logger *slog.Logger) string {
	for i, name := range names {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if i > 0 && logger != nil {
			logger.Warn("using fallback environment variable",
				"used_var", name,
				"preferred_var", names[0])
		}
		return val
	}
	return defaultValue
}
