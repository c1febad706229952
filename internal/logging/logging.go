package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New builds the process logger. Terminal sessions get colored output,
// everything else gets plain key=value text.
func New(level string) *slog.Logger {
	return slog.New(newHandler(os.Stderr, parseLevel(level)))
}

func newHandler(w io.Writer, lvl slog.Level) slog.Handler {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return tint.NewHandler(w, &tint.Options{Level: lvl})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
