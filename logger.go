package wsconn

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger is the leveled, field-scoped logger used by connections and
// transports. Every component derives its own child with WithField.
type Logger interface {
	WithField(key string, value any) Logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger adapts zl to Logger. Fields added with WithField become
// zerolog context fields.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return zerologLogger{zl: zl}
}

// NopLogger discards everything.
func NopLogger() Logger {
	return zerologLogger{zl: zerolog.Nop()}
}

func (l zerologLogger) WithField(key string, value any) Logger {
	return zerologLogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l zerologLogger) Debug(args ...any) { l.zl.Debug().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }

func (l zerologLogger) Debugln(args ...any) { l.zl.Debug().Msg(sprintln(args...)) }

func (l zerologLogger) Info(args ...any) { l.zl.Info().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Infof(format string, args ...any) { l.zl.Info().Msgf(format, args...) }

func (l zerologLogger) Infoln(args ...any) { l.zl.Info().Msg(sprintln(args...)) }

func (l zerologLogger) Warn(args ...any) { l.zl.Warn().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Warnf(format string, args ...any) { l.zl.Warn().Msgf(format, args...) }

func (l zerologLogger) Warnln(args ...any) { l.zl.Warn().Msg(sprintln(args...)) }

func (l zerologLogger) Error(args ...any) { l.zl.Error().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

func (l zerologLogger) Errorln(args ...any) { l.zl.Error().Msg(sprintln(args...)) }

// sprintln is fmt.Sprintln without the trailing newline, which zerolog adds itself.
func sprintln(args ...any) string {
	s := fmt.Sprintln(args...)
	return s[:len(s)-1]
}
