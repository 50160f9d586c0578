package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// Logger holds CLI flags for log output
type Logger struct {
	level  string
	format string
	output string
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("MCP_SLACK_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("MCP_SLACK_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output (stderr, stdout, or a file path)",
			Category:    "Logging",
			Value:       "stderr",
			Sources:     cli.EnvVars("MCP_SLACK_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure installs the default logger and returns a function closing its output
func (x *Logger) Configure() (func(), error) {
	level, err := parseLogLevel(x.level)
	if err != nil {
		return nil, err
	}

	var format logging.Format
	switch strings.ToLower(x.format) {
	case "console", "":
		format = logging.FormatConsole
	case "json":
		format = logging.FormatJSON
	default:
		return nil, goerr.Wrap(ErrInvalidLogFormat, "unsupported log format", goerr.V(ValueKey, x.format))
	}

	var w io.Writer
	closer := func() {}
	switch x.output {
	case "stderr", "-", "":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(x.output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = func() { _ = f.Close() }
	}

	logging.SetDefault(logging.New(w, level, format))
	return closer, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, goerr.Wrap(ErrInvalidLogLevel, "unsupported log level", goerr.V(ValueKey, s))
	}
}
