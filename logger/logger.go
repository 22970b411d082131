// Package logger - logrus setup shared by the command and the pipeline.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RunIDKey is the field that ties every entry of one invocation together.
const RunIDKey = "run_id"

// Fields is an alias so callers need not import logrus for simple logging.
type Fields = logrus.Fields

// Options configures New.
type Options struct {
	// Level is a logrus level name; empty means info.
	Level string
	// File, when set, receives a rotated copy of every entry.
	File string
	// Output replaces stderr as the console sink.
	Output io.Writer
	// NoColors disables ANSI colours on the console.
	NoColors bool
	// ReportCaller adds file:line and function to each entry.
	ReportCaller bool
}

// New builds a logger writing nested-format entries to the console and,
// optionally, to a size-rotated file.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(opts.Level); err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	console := opts.Output
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{console}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))
	log.SetReportCaller(opts.ReportCaller)

	return log, nil
}

// WithRunID tags every entry of log with a fresh run identifier.
func WithRunID(log logrus.FieldLogger) (*logrus.Entry, string) {
	id := uuid.NewString()
	return log.WithField(RunIDKey, id), id
}
