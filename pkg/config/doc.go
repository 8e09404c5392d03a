// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		LeaseTTL time.Duration `env:"LIFECYCLE_LEASE_TTL" envDefault:"30s"`
//		URL      string        `env:"REDIS_URL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// A .env file is honoured for local development. Results are cached per
// type, so the environment is parsed once no matter how many components ask
// for the same struct.
package config
