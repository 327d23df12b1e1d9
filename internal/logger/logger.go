package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Init initializes the default logger and returns it.
func Init(debug, noColor bool) *log.Logger {
	return InitWriter(os.Stderr, debug, noColor)
}

// InitWriter is Init with the log output sent to w.
func InitWriter(w io.Writer, debug, noColor bool) *log.Logger {
	log.SetDefault(log.NewWithOptions(w,
		log.Options{
			ReportCaller:    debug,
			ReportTimestamp: false,
			TimeFormat:      time.RFC3339,
			Prefix:          "MINIJVM",
		}))

	log.SetLevel(log.WarnLevel)
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	log.SetColorProfile(termenv.ANSI256)
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
	return log.Default()
}
