// Package constants centralizes defaults shared across the CLI, the API
// server and the inspector.
//
// Timeouts, redirect limits, the default scheme and file permissions live
// here so cmd/ and internal/ reference one value instead of scattering
// literals.
package constants
