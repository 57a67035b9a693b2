// Package config loads engine configuration from environment variables
// into tagged structs, with optional .env file support.
//
// Example:
//
//	type EngineConfig struct {
//		StoreDriver string `env:"GATEKIT_STORE_DRIVER" envDefault:"memory"`
//	}
//
//	var cfg EngineConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
package config
