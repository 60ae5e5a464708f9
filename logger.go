package jwtgate

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/entragate/go-jwt-gate/core"
)

// NewLogrusLogger returns a core.Logger backed by logrus. Key-value args
// become logrus fields.
func NewLogrusLogger(l logrus.FieldLogger) core.Logger {
	return &logrusLoggerAdapter{l}
}

type logrusLoggerAdapter struct{ l logrus.FieldLogger }

func (a *logrusLoggerAdapter) Debug(msg string, args ...any) { a.l.WithFields(fields(args)).Debug(msg) }
func (a *logrusLoggerAdapter) Info(msg string, args ...any)  { a.l.WithFields(fields(args)).Info(msg) }
func (a *logrusLoggerAdapter) Warn(msg string, args ...any)  { a.l.WithFields(fields(args)).Warn(msg) }
func (a *logrusLoggerAdapter) Error(msg string, args ...any) { a.l.WithFields(fields(args)).Error(msg) }

// fields turns slog-style alternating key-value args into logrus fields.
// A dangling value is kept under "!BADKEY", as slog does.
func fields(args []any) logrus.Fields {
	out := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			out["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		out[key] = args[i+1]
	}
	return out
}

// NewZapLogger returns a core.Logger backed by a zap SugaredLogger.
func NewZapLogger(l *zap.SugaredLogger) core.Logger {
	return &zapLoggerAdapter{l}
}

type zapLoggerAdapter struct{ l *zap.SugaredLogger }

func (z *zapLoggerAdapter) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z *zapLoggerAdapter) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z *zapLoggerAdapter) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z *zapLoggerAdapter) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }

// NewZerologLogger returns a core.Logger backed by zerolog.
func NewZerologLogger(l zerolog.Logger) core.Logger {
	return &zerologLoggerAdapter{l}
}

type zerologLoggerAdapter struct{ l zerolog.Logger }

func (z *zerologLoggerAdapter) Debug(msg string, args ...any) {
	z.l.Debug().Fields(args).Msg(msg)
}
func (z *zerologLoggerAdapter) Info(msg string, args ...any) {
	z.l.Info().Fields(args).Msg(msg)
}
func (z *zerologLoggerAdapter) Warn(msg string, args ...any) {
	z.l.Warn().Fields(args).Msg(msg)
}
func (z *zerologLoggerAdapter) Error(msg string, args ...any) {
	z.l.Error().Fields(args).Msg(msg)
}
