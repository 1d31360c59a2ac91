// Package logging provides structured logging configuration for embedmongo.
//
// This package wraps log/slog so every phase (start, import, scripts, stop)
// and every component logs the same way.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("mongod started", "port", 27017)
//
// # Integration
//
// Components accept a *slog.Logger. A nil logger is replaced with
// logging.Nop(); use Component to tag records with the component name.
package logging
