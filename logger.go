package ec2dns

import (
	"io"
	"log/slog"
)

// Log can be replaced by a host integration to direct the engine's
// diagnostic output. It defaults to a handler that discards everything, so
// the engine produces no output until a host wires up a real logger.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))
