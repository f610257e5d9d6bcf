package logging

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// maxPayloadPreview caps how much of a protocol line ends up in a log entry.
const maxPayloadPreview = 512

// Options selects the log destination and format.
type Options struct {
	// Level is a zap level name; unknown values fall back to info.
	Level string
	// Format is "json" or "console".
	Format string
	// File enables rotated file output. Stderr is used otherwise, stdout is
	// reserved for the renderer protocol.
	File string
}

// New builds a zap logger for the given options.
func New(opts Options) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(opts.Level)))); err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "text":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", opts.Format)
	}

	var sink zapcore.WriteSyncer
	if opts.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	return zap.New(zapcore.NewCore(encoder, sink, level)), nil
}

// DescribePayload renders a protocol line for diagnostics. Non UTF-8 payloads
// are shown as base64.
func DescribePayload(body []byte) string {
	if utf8.Valid(body) {
		return fmt.Sprintf("(utf-8, %d bytes): %s", len(body), truncate(string(body), maxPayloadPreview))
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	return fmt.Sprintf("(base64, %d bytes): %s", len(body), truncate(encoded, maxPayloadPreview))
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}
