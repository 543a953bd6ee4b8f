// Package logging provides structured logging for skillgate.
//
// The package wraps Go's log/slog to emit JSON lines that record every
// transition attempt, exit-validation run, and recovery warning. Logs are
// written to {dir}/skillgate.log, or stderr when no directory is configured.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithSession(state.SessionID).WithStep("02-structure").
//	    Info("transition blocked", "reason", reason)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"transition blocked","session_id":"...","step":"02-structure","reason":"..."}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] to capture it.
package logging
