// Package config provides configuration loading for simple-signup.
//
// It centralizes environment variable helpers with type conversion and the
// shared config sections (database, email, rate limiting) so each service
// entry point loads configuration the same way:
//
//	dbConfig := config.NewDatabaseConfigFromEnv()
//	emailConfig := config.NewEmailConfigFromEnv()
//	rlConfig := config.NewRateLimitConfigFromEnv()
//
// Use MustGetEnv for configuration the service cannot run without, and
// GetEnvOrDefault for everything else.
package config
