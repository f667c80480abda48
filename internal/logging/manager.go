package logging

import (
	"fmt"
	"sync"
)

// LoggerManager хранит по одному логгеру на компонент
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// CloseAll закрывает файлы всех логгеров; следующий GetLogger создаст их заново
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("не удалось закрыть логгер %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// GetComponentLogger возвращает логгер компонента. Если файл лога открыть
// не удалось, компонент пишет только в консоль по умолчанию.
func GetComponentLogger(component string) *Logger {
	logger, err := GetLoggerManager().GetLogger(component)
	if err != nil {
		defaultLogger.Warn("%v", err)
		return &Logger{
			component:       component,
			consoleLogger:   defaultLogger.consoleLogger,
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

func GetExportLogger() *Logger {
	return GetComponentLogger("export")
}

// GetStorageLogger: логгер кэша мешей (BadgerDB и Redis)
func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}
