package logging

import (
	"errors"
	"fmt"
	"sync"
)

// Компоненты сервера, у каждого свой файл логов
const (
	ComponentPathfind  = "pathfind"
	ComponentNavigator = "navigator"
	ComponentJournal   = "journal"
	ComponentAPI       = "api"
)

// Components перечисляет компоненты в порядке запуска
var Components = []string{ComponentPathfind, ComponentNavigator, ComponentJournal, ComponentAPI}

// LoggerManager хранит по одному логгеру на компонент
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// NewLoggerManager создаёт пустой менеджер
func NewLoggerManager() *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger)}
}

// GetLoggerManager возвращает общий менеджер процесса
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, открывая его файл при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента или общий логгер, если файл не открылся
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		Default().Warn("Логгер %s недоступен: %v", component, err)
		return Default()
	}
	return logger
}

// SetLevels меняет уровни логгеров всех известных компонентов
func (lm *LoggerManager) SetLevels(console, file LogLevel) {
	for _, component := range Components {
		lm.MustGetLogger(component).SetLevels(console, file)
	}
}

// Close закрывает файлы логов. Следующий GetLogger откроет их заново.
func (lm *LoggerManager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// Len число открытых логгеров
func (lm *LoggerManager) Len() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.loggers)
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetPathfindLogger() *Logger  { return GetComponentLogger(ComponentPathfind) }
func GetNavigatorLogger() *Logger { return GetComponentLogger(ComponentNavigator) }
func GetJournalLogger() *Logger   { return GetComponentLogger(ComponentJournal) }
func GetAPILogger() *Logger       { return GetComponentLogger(ComponentAPI) }
