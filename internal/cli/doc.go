// Package cli implements the lmparser command tree. Every command prints a text summary or, with
// --format json, a {"status", "data", "error"} envelope, and exits 1 on failure or 2 on bad input.
package cli
