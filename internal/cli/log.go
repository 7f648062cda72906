package cli

import (
	"io"
	"log/slog"

	"ridx"
)

// newSlog builds a text slog logger; slog.Logger satisfies ridx.Logger
// directly.
func newSlog(w io.Writer) ridx.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
