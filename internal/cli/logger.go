package cli

import (
	"io"
	"log/slog"

	"github.com/ashwinibhardwaj/sqlassist/internal/config"
	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
)

// NewLogger creates the application logger. Logs go to w (normally stderr) so they
// never mix with answers or JSON-RPC traffic on stdout.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(level, cfg.Format, w), nil
}
