package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// LogConfig содержит настройки логгера ETL
type LogConfig struct {
	Level    string `mapstructure:"level"`     // debug, info, warn, error
	Format   string `mapstructure:"format"`    // text, json
	Output   string `mapstructure:"output"`    // stdout, stderr, file
	FilePath string `mapstructure:"file_path"` // шаблон имени файла, %s заменяется датой
}

// ETLLogger представляет логгер для ETL-процесса.
// Предупреждения подсчитываются, чтобы по итогам запуска определить его исход
type ETLLogger struct {
	logger   *slog.Logger
	warnings *atomic.Int64
	closer   io.Closer
}

// NewETLLogger создает новый экземпляр логгера для ETL
func NewETLLogger(cfg LogConfig) (*ETLLogger, error) {
	var writer io.Writer
	var closer io.Closer

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	case "file":
		// Файл лога создается на каждый день, вывод дублируется в stdout
		pattern := cfg.FilePath
		if pattern == "" {
			pattern = "etl_log_%s.log"
		}
		fileName := pattern
		if strings.Contains(pattern, "%s") {
			fileName = fmt.Sprintf(pattern, time.Now().Format("2006-01-02"))
		}
		file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть или создать файл лога: %w", err)
		}
		writer = io.MultiWriter(file, os.Stdout)
		closer = file
	default:
		return nil, fmt.Errorf("неизвестный вывод лога: %s", cfg.Output)
	}

	handler, err := newHandler(writer, cfg.Level, cfg.Format)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	l := newETLLogger(slog.New(handler))
	l.closer = closer
	return l, nil
}

// NewETLLoggerWithWriter создает логгер, пишущий в произвольный writer
func NewETLLoggerWithWriter(w io.Writer, level, format string) *ETLLogger {
	handler, err := newHandler(w, level, format)
	if err != nil {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return newETLLogger(slog.New(handler))
}

// NewDiscardLogger возвращает логгер без вывода, счетчик предупреждений работает
func NewDiscardLogger() *ETLLogger {
	return NewETLLoggerWithWriter(io.Discard, "debug", "text")
}

func newETLLogger(logger *slog.Logger) *ETLLogger {
	return &ETLLogger{
		logger:   logger,
		warnings: new(atomic.Int64),
	}
}

func newHandler(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("неизвестный формат лога: %s", format)
	}
}

// ParseLevel преобразует строковый уровень в slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("неизвестный уровень лога: %s", level)
	}
}

// With возвращает логгер с дополнительными полями и общим счетчиком предупреждений
func (l *ETLLogger) With(args ...any) *ETLLogger {
	return &ETLLogger{
		logger:   l.logger.With(args...),
		warnings: l.warnings,
		closer:   l.closer,
	}
}

// Info логирует информационное сообщение (прогресс этапов)
func (l *ETLLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn логирует предупреждение (отброшенные и нераспознанные строки)
func (l *ETLLogger) Warn(msg string, args ...any) {
	l.warnings.Add(1)
	l.logger.Warn(msg, args...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Debug логирует отладочное сообщение
func (l *ETLLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Warnings возвращает количество предупреждений с момента создания логгера
func (l *ETLLogger) Warnings() int64 {
	return l.warnings.Load()
}

// Slog возвращает базовый *slog.Logger
func (l *ETLLogger) Slog() *slog.Logger {
	return l.logger
}

// Close закрывает файл лога, если он был открыт
func (l *ETLLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// LogExtractComplete логирует завершение фазы извлечения данных
func (l *ETLLogger) LogExtractComplete(products, clients, sales int, duration time.Duration) {
	l.Info("Фаза Extract завершена",
		"products", products,
		"clients", clients,
		"sales", sales,
		"duration", duration,
	)
}

// LogETLComplete логирует завершение ETL-процесса
func (l *ETLLogger) LogETLComplete(startTime time.Time, status string) {
	l.Info("ETL-процесс завершён",
		"status", status,
		"duration", time.Since(startTime),
		"warnings", l.Warnings(),
	)
}
