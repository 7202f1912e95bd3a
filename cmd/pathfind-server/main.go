package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/rts-pathfind/internal/api"
	"github.com/annel0/rts-pathfind/internal/auth"
	"github.com/annel0/rts-pathfind/internal/cache"
	"github.com/annel0/rts-pathfind/internal/config"
	"github.com/annel0/rts-pathfind/internal/journal"
	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/metrics"
	"github.com/annel0/rts-pathfind/internal/navigator"
	"github.com/annel0/rts-pathfind/internal/observability"
	"github.com/annel0/rts-pathfind/internal/pathfind"
	"github.com/annel0/rts-pathfind/internal/terrain"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или PATHFIND_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer closeLogs()
	applyLogLevel(cfg.Logging.Level)

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		closeLogs()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

// applyLogLevel выставляет уровень консоли всем логгерам компонентов
func applyLogLevel(raw string) {
	level, err := logging.ParseLevel(raw)
	if err != nil {
		logging.Warn("%v, используется INFO", err)
	}
	logging.Default().SetLevels(level, logging.TRACE)
	logging.GetLoggerManager().SetLevels(level, logging.TRACE)
}

// closeLogs закрывает файлы логов компонентов и общий логгер
func closeLogs() {
	if err := logging.GetLoggerManager().Close(); err != nil {
		logging.Warn("Логи компонентов закрыты с ошибкой: %v", err)
	}
	logging.CloseDefaultLogger()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🧭 Запуск сервера поиска пути...")

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry := observability.Shutdown(observability.Noop)
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("Трассировка выключена: %v", err)
		} else {
			shutdownTelemetry = shutdown
		}
	}

	// === ДВИЖОК ===
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	stats := engine.Stats()
	logging.Info("🗺️  Карта %dx%d, способов передвижения %d, размеров коллизии %d",
		stats.Width, stats.Height, len(engine.MoveTypes()), len(engine.CollSizes()))

	mapping, err := cfg.Grid.Mapping()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []navigator.Option{
		navigator.WithMetrics(metrics.New("pathfind", registry)),
		navigator.WithMapping(mapping),
		navigator.WithReplanAfter(cfg.Engine.ReplanAfter),
	}
	if cfg.Engine.Diagnosis {
		opts = append(opts, navigator.WithDiagnosis(navigator.NewDiagnosisRecorder()))
	}

	// === КЕШ ОТВЕТОВ ===
	if cfg.Cache.Enabled {
		var queryCache cache.CacheRepo
		if cfg.Cache.RedisURL != "" {
			queryCache, err = cache.NewRedisCache(&cache.CacheConfig{RedisURL: cfg.Cache.RedisURL})
			if err != nil {
				return fmt.Errorf("кеш: %w", err)
			}
		} else {
			queryCache = cache.NewMemoryCache(cfg.Cache.MaxKeys)
		}
		defer queryCache.Close()
		opts = append(opts, navigator.WithQueryCache(queryCache, cfg.Cache.TTL))
	}

	// === ЖУРНАЛ ===
	var (
		store *journal.Store
		conn  *nats.Conn
		sinks journal.Tee
	)
	if cfg.Journal.Enabled {
		store, err = journal.Open(journal.Options{
			Path:     cfg.Journal.Path,
			InMemory: cfg.Journal.InMemory,
			Session:  cfg.Journal.Session,
		})
		if err != nil {
			return fmt.Errorf("журнал: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if cfg.Journal.NATSURL != "" {
		conn, err = journal.Connect(cfg.Journal.NATSURL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer conn.Close()
		if !cfg.Journal.Follow {
			publisher := journal.NewPublisher(conn, cfg.Journal.Subject)
			sinks = append(sinks, publisher)
			logging.Info("📣 Изменения публикуются в %s (узел %s)", cfg.Journal.Subject, publisher.NodeID())
		}
	}
	if len(sinks) > 0 {
		opts = append(opts, navigator.WithJournal(sinks))
	}

	nav := navigator.New(engine, opts...)

	if store != nil {
		applied, err := journal.Recover(ctx, store, store.Session(), nav)
		if err != nil {
			return fmt.Errorf("восстановление: %w", err)
		}
		logging.Info("💾 Сессия %s: применено записей %d", store.Session(), applied)
	}

	var wg sync.WaitGroup
	if store != nil {
		checkpointer := journal.NewCheckpointer(store, nav, uint64(cfg.Journal.SnapshotEvery))
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkpointer.Run(ctx, 5*time.Second)
		}()
	}
	if cfg.Journal.Follow {
		follower, err := journal.Follow(ctx, conn, cfg.Journal.Subject, nav)
		if err != nil {
			return fmt.Errorf("реплика: %w", err)
		}
		logging.Info("🪞 Реплика читает %s с seq=%d", cfg.Journal.Subject, follower.LastSeq())
	} else if cfg.Engine.TickInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nav.Run(ctx, cfg.Engine.TickInterval)
		}()
	}

	// === REST API ===
	var (
		issuer    *auth.TokenIssuer
		operators auth.OperatorRepository
	)
	if cfg.Auth.JWTSecret != "" {
		issuer, err = auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		operators, err = auth.NewMemoryOperatorRepo(cfg.Auth.Operators)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		logging.Info("🔐 JWT для изменений включён, операторов: %d", len(cfg.Auth.Operators))
	} else {
		logging.Warn("⚠️  auth.jwt_secret не задан: изменения принимаются без токена")
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:        restPort,
		Navigator:   nav,
		Issuer:      issuer,
		Operators:   operators,
		Registry:    registry,
		ServiceName: cfg.Telemetry.ServiceName,
		GinMode:     cfg.Server.GinMode,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restPort)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case serveErr = <-errCh:
		stop()
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	wg.Wait()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Warn("Ошибка остановки трассировки: %v", err)
	}
	return serveErr
}

// buildEngine загружает или генерирует карту и прогревает кэши движка
func buildEngine(cfg *config.Config) (*pathfind.Component, error) {
	grid, err := loadGrid(cfg.Map)
	if err != nil {
		return nil, err
	}
	groups, err := cfg.ParseMoveGroups()
	if err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	engine := pathfind.New(groups, catalog.Sizes(), pathfind.NewGetters(grid, catalog, nil))

	started := time.Now()
	engine.Initialize(cfg.Engine.InitOptions())
	logging.Info("🔥 Кэши движка прогреты за %s", time.Since(started).Round(time.Millisecond))
	return engine, nil
}

func loadGrid(m config.MapConfig) (*terrain.Grid, error) {
	if m.File == "" {
		logging.Info("🌱 Генерация карты %dx%d (seed=%d)", m.Width, m.Height, m.Seed)
		return terrain.NewGenerator(m.Seed).Generate(m.Width, m.Height)
	}

	f, err := os.Open(m.File)
	if err != nil {
		return nil, fmt.Errorf("карта: %w", err)
	}
	defer f.Close()

	grid, err := terrain.ParseHexMap(f)
	if err != nil {
		return nil, fmt.Errorf("карта %s: %w", m.File, err)
	}
	return grid, nil
}
