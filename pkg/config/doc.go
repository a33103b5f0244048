// Package config loads environment-driven configuration structs.
//
// Configuration is declared as plain structs with `env` tags and parsed with
// caarlos0/env. A .env file, when present, is loaded once per process via
// godotenv so local development does not require exporting variables.
//
//	type ServerConfig struct {
//		Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
//
// Parsed values are memoized per type, so every subsystem can load its own
// config independently without duplicate environment reads.
package config
