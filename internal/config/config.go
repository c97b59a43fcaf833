package config

import "os"

type Config struct {
	Port          string
	ScenarioFile  string
	ExportEnabled bool
	ExportFile    string
	Debug         bool
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.ScenarioFile = os.Getenv("SCENARIO_FILE")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "true") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./opinionated-results.txt")
	c.Debug = getenv("DEBUG", "false") == "true"
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
