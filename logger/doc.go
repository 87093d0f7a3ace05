// Package logger provides structured logging for resclient using zerolog.
//
// It supports JSON and console output, level configuration from config files
// or the environment, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("gateway")
//	log.Debug("request sent", logger.Fields(logger.FieldURL, url))
package logger
