// Package ledger records chop runs in a SQLite database so a chopped container can be traced
// back to its input, seed and retained dose.
package ledger
