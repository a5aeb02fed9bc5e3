// Package gentest turns shell commands into repeatable reference tests.
package gentest

// Version is the gentest release version.
const Version = "0.3.0"
