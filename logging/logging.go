/*
logging.go - Global zerolog setup

PURPOSE:
  Points the global zerolog logger at two sinks: a console writer on stderr
  and a size-rotated file under the configured log directory.

USAGE:
  if err := logging.Init(logging.Options{Verbose: true, Dir: "logs"}); err != nil {
      return err
  }
  log.Info().Msg("ready")

SEE ALSO:
  - config/config.go: Where Dir and Verbose come from
  - cmd/server/commands/root.go: Calls Init before every command
*/
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the active log file inside Options.Dir.
const FileName = "compliance-engine.log"

// Options controls Init.
type Options struct {
	Verbose bool
	// Dir holds the rotating log file. Empty disables the file sink.
	Dir string
	// Console overrides stderr. Tests use a buffer.
	Console io.Writer
}

// Init replaces log.Logger. It returns an error when the log directory
// cannot be created or written.
func Init(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	noColor := true
	if console == nil {
		console = os.Stderr
		noColor = !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", opts.Dir, err)
		}
		marker := filepath.Join(opts.Dir, ".write-test")
		if err := os.WriteFile(marker, []byte("test"), 0o644); err != nil {
			return fmt.Errorf("log directory %q is not writable: %w", opts.Dir, err)
		}
		_ = os.Remove(marker)

		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    16, // megabytes
			MaxBackups: 32,
			MaxAge:     365, // days
			Compress:   true,
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
	return nil
}
