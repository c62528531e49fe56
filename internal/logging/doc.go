// Package logging provides structured logging for ad unit lifecycles.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// correlation attributes, so a single load → show → dismiss cycle can be
// followed across the goroutines that touch it.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/adunit", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	unitLog := logger.WithUnit(unit.ID()).WithComponent("controller")
//	unitLog.WithCycle(cycleID).Debug("transition", "from", "loading", "to", "ready")
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"transition","unit_id":"...","component":"controller","cycle_id":"...","from":"loading","to":"ready"}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on entries.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: ""        # empty writes to stderr
package logging
