// Package preflight provides the one-time readiness checks that run before
// quadsync reconciles anything in --once or --watch mode.
//
// Any failed check is fatal: Err turns the results into a
// *config.ConfigurationError and the process exits without running a pass.
// Checks never run mid-loop; a source root that disappears later only
// produces warnings from the scanner.
package preflight
