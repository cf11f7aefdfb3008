package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wonny/indexcast/pkg/config"
)

// Logger is the zerolog wrapper shared by infra and adapter packages.
// Core packages (features, walkforward, forecast) take a zerolog.Logger
// via Zerolog() instead.
// ⭐ SSOT: 모든 로깅은 이 패키지를 통해서만 수행
type Logger struct {
	zlog zerolog.Logger
}

// New writes to stdout, JSON unless LOG_FORMAT is console/pretty
func New(cfg *config.Config) *Logger {
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		return NewWithWriter(cfg, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter 지정 writer 로 로거 생성
// ⭐ SSOT: zerolog 인스턴스는 여기서만 생성
func NewWithWriter(cfg *config.Config, w io.Writer) *Logger {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	return &Logger{zlog: zerolog.New(w).With().
		Timestamp().
		Str("env", cfg.Env).
		Str("service", "indexcast").
		Logger()}
}

// NewNop 출력 없는 로거 (테스트, 라이브러리 기본값)
func NewNop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// Component 하위 모듈 태그 (history, yahoo, scheduler, ws)
func (l *Logger) Component(name string) *Logger {
	return l.WithField("component", name)
}

// Symbol 지수 심볼 태그
func (l *Logger) Symbol(symbol string) *Logger {
	return l.WithField("symbol", symbol)
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Fields(fields).Logger()}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// Zerolog core 패키지에 넘길 zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
