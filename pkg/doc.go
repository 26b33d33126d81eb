// Package pkg provides shared utilities for the softportal emulators.
//
// This package contains common functionality used by the device model,
// both portal families and the operational tooling, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for transfer, storage and registry failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with emulator-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentBase, "figure loaded", "slot", "player_one")
//
// # Errors
//
// Common failures are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrFigureNotFound) {
//	    // Number is not in the catalog
//	}
package pkg
