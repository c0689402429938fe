package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger - структурированный логгер с парами ключ/значение
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	Fatal(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New создает логгер с указанным уровнем (debug, info, warn, error).
// В development окружении вывод человекочитаемый, иначе JSON.
func New(level string) Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("ENVIRONMENT"), "development") || os.Getenv("ENVIRONMENT") == "" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, level)
}

func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

// Nop возвращает логгер, который ничего не пишет
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, keyvals ...interface{}) {
	l.write(l.zl.Debug(), msg, keyvals)
}

func (l *zeroLogger) Info(msg string, keyvals ...interface{}) {
	l.write(l.zl.Info(), msg, keyvals)
}

func (l *zeroLogger) Warn(msg string, keyvals ...interface{}) {
	l.write(l.zl.Warn(), msg, keyvals)
}

func (l *zeroLogger) Error(msg string, keyvals ...interface{}) {
	l.write(l.zl.Error(), msg, keyvals)
}

func (l *zeroLogger) Fatal(msg string, keyvals ...interface{}) {
	l.write(l.zl.Fatal(), msg, keyvals)
}

func (l *zeroLogger) With(keyvals ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		ctx = ctx.Interface(key, val)
	}
	return &zeroLogger{zl: ctx.Logger()}
}

func (l *zeroLogger) write(ev *zerolog.Event, msg string, keyvals []interface{}) {
	if ev == nil {
		return
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		switch v := val.(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// pair достает ключ и значение; нечетный хвост логируется под ключом "!BADKEY"
func pair(keyvals []interface{}, i int) (string, interface{}) {
	if i+1 >= len(keyvals) {
		return "!BADKEY", keyvals[i]
	}
	key, ok := keyvals[i].(string)
	if !ok {
		key = fmt.Sprint(keyvals[i])
	}
	return key, keyvals[i+1]
}
