package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	logFileName = "yaa.log"
	maxLogSize  = 10 * 1024 * 1024 // 10 MiB
)

// setupLogging returns the root logger; without debug everything is discarded
// The terminal owns stdout and stderr, logs only ever go to a file
func setupLogging(debug bool, dir, level string) (*os.File, zerolog.Logger, error) {
	if !debug {
		stdlog.SetOutput(io.Discard)
		return nil, zerolog.Nop(), nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, zerolog.Nop(), eris.Wrapf(err, "log level %q", level)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, zerolog.Nop(), eris.Wrapf(err, "create %s", dir)
	}

	logPath := filepath.Join(dir, logFileName)
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxLogSize {
		rotated := filepath.Join(dir, fmt.Sprintf("yaa_%s.log", time.Now().Format("20060102_150405")))
		if err := os.Rename(logPath, rotated); err != nil {
			return nil, zerolog.Nop(), eris.Wrap(err, "rotate log")
		}
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, zerolog.Nop(), eris.Wrapf(err, "open %s", logPath)
	}

	logger := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	stdlog.SetFlags(0)
	stdlog.SetOutput(logger)
	return f, logger, nil
}
