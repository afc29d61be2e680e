// Package logger provides the structured logging interface used across the
// scrape orchestrator.
//
// It wraps zerolog with a small interface so components can take a Logger
// as a dependency and tests can swap in NewNopLogger or NewTestLogger.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	log := logger.GetLogger().WithField("component", "poller")
//	log.InfoWithFields("Started scrape runs", map[string]interface{}{
//	    "total": 4,
//	})
//
// When Logging.File is set, console output is mirrored as JSON lines into
// that file.
package logger
