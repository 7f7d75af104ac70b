// Package logging builds the structured slog loggers used by Vigil.
//
// # Overview
//
// New returns a *slog.Logger whose handler chain:
//   - writes JSON or text records to the primary writer
//   - adds request, user, session and trace identifiers from the context
//   - masks emails, phone numbers, card numbers and credentials
//   - copies records at CRITICAL or EMERGENCY safety level to a separate
//     security writer
//
// # Safety Levels
//
// Engine log entries carry a "safety_level" attribute. LevelFor maps the
// five safety levels onto slog levels:
//
//	safe, caution -> INFO
//	warning       -> WARN
//	critical      -> ERROR
//	emergency     -> EMERGENCY (ERROR+4)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:          "info",
//	    Format:         "json",
//	    RedactPII:      true,
//	    SecurityWriter: securityFile,
//	})
//	slog.SetDefault(logger.Slog())
//	defer logger.Close()
package logging
