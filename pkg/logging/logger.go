package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdobak/go-xerrors"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/afero"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Logger wraps slog so validators and submodules receive an injected
// logging capability instead of reaching for a process-wide sink.
type Logger struct {
	logger *slog.Logger
}

func DefaultLogger() *Logger {
	return NewLogger(slog.LevelDebug, nil)
}

// NewLogger creates a logger that writes JSON records to the provided
// log file and, in debug mode, mirrors text records to stdout. A nil
// file discards the JSON stream.
func NewLogger(level slog.Level, logFile afero.File) *Logger {

	var logger *slog.Logger

	var logfileWriter io.Writer = logFile
	if logFile == nil {
		logfileWriter = io.Discard
	}

	logfileHandler := slog.NewJSONHandler(logfileWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	if level == slog.LevelDebug {

		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr,
		})

		logger = slog.New(
			slogmulti.Fanout(logfileHandler, textHandler),
		)

	} else {

		logger = slog.New(logfileHandler)
	}

	return &Logger{
		logger: logger,
	}
}

// NewLoggerWithHandler creates a logger backed by the provided handler.
// Used by tests to capture and assert on emitted records.
func NewLoggerWithHandler(handler slog.Handler) *Logger {
	return &Logger{
		logger: slog.New(handler),
	}
}

// NewFileLogger opens (or creates) a log file under logDir on the
// provided filesystem and returns a logger writing to it.
func NewFileLogger(level slog.Level, fs afero.Fs, logDir, name string) (*Logger, error) {
	if err := fs.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	f, err := fs.OpenFile(
		filepath.Join(logDir, fmt.Sprintf("%s.log", name)),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewLogger(level, f), nil
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Debugf(message string, args ...any) {
	l.logger.Debug(fmt.Sprintf(message, args...))
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Infof(message string, args ...any) {
	l.logger.Info(fmt.Sprintf(message, args...))
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

func (l *Logger) Warnf(message string, args ...any) {
	l.logger.Warn(fmt.Sprintf(message, args...))
}

func (l *Logger) Error(err error, args ...any) {
	if l == nil || l.logger == nil {
		// Error occurred before the logger was
		// initialized
		slog.Error(err.Error(), args...)
		return
	}
	xerr := xerrors.New(err)
	l.logger.Error(err.Error(), slog.Any("error", xerr))
}

func (l *Logger) Errorf(message string, args ...any) {
	l.logger.Error(fmt.Sprintf(message, args...))
}

func (l *Logger) Fatal(message string, args ...any) {
	l.logger.Error(message, args...)
	os.Exit(-1)
}

func (l *Logger) Fatalf(message string, args ...any) {
	l.Fatal(fmt.Sprintf(message, args...))
}

func (l *Logger) FatalError(err error) {
	l.Error(err)
	os.Exit(-1)
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = formatError(err)
		}
	}
	return a
}

// formatError flattens an xerrors stack trace into the record so the
// JSON log remains a single line per event.
func formatError(err error) slog.Value {
	groupValues := []slog.Attr{
		slog.String("msg", err.Error()),
	}
	trace := xerrors.StackTrace(err)
	if len(trace) > 0 {
		frames := trace.Frames()
		values := make([]string, 0, len(frames))
		for _, frame := range frames {
			values = append(values, fmt.Sprintf(
				"%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		groupValues = append(groupValues, slog.Any("trace", values))
	}
	return slog.GroupValue(groupValues...)
}
