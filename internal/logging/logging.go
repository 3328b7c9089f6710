// Package logging centralizes the zap logger setup shared by the pool,
// store, and transaction packages, grounded on sushant-115-gojodb's use of
// go.uber.org/zap for its write-engine components.
package logging

import "go.uber.org/zap"

var nop = zap.NewNop()

// Nop returns a logger that discards everything. Internal packages fall
// back to this when constructed without an explicit logger, so callers who
// don't care about observability pay nothing for it.
func Nop() *zap.Logger { return nop }

// New builds a production zap logger (JSON encoding, info level) for
// embedders that want BerryDB's lifecycle events on stderr without wiring
// their own zap.Logger.
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}
