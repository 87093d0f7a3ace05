// Package config holds the client-wide configuration of resclient and a file
// loader built on viper and godotenv.
//
// Config carries what every client built from it shares: the loop-guard
// bound, the gateway factory, default gateway configs, global middleware and
// the context store that middleware factories read from.
//
//	cfg := config.Default()
//	cfg.Context.Set(map[string]any{"tenant": "acme"})
//	cfg.Middleware = append(cfg.Middleware, builtin.EncodeJSON())
//
// Load reads a YAML or JSON file into any struct, binding RESCLIENT_*
// environment variables and an optional .env file on top:
//
//	var fc FileConfig
//	err := config.Load("resclient.yml", &fc, config.WithEnvFile(".env"))
package config
