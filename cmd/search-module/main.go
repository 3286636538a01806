// Точка входа Search Module — поиск по каталогу компонентов.
// Загружает конфигурацию, открывает хранилище (PostgreSQL или JSON-файл),
// настраивает кэш результатов (memory, redis или без кэша), создаёт сервисный
// слой и API handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/bigkaa/partcatalog/search-module/internal/api/handlers"
	"github.com/bigkaa/partcatalog/search-module/internal/api/middleware"
	"github.com/bigkaa/partcatalog/search-module/internal/config"
	"github.com/bigkaa/partcatalog/search-module/internal/database"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
	"github.com/bigkaa/partcatalog/search-module/internal/repository/memstore"
	"github.com/bigkaa/partcatalog/search-module/internal/server"
	"github.com/bigkaa/partcatalog/search-module/internal/service"
)

// catalogStore — репозитории выбранного хранилища и проверка его готовности.
type catalogStore struct {
	components repository.ComponentRepository
	radiation  repository.EntityRepository[model.RadiationRecord]
	domestic   repository.DomesticRepository
	checker    handlers.ReadinessChecker
}

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Search Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.StoreBackend),
		slog.String("cache", cfg.CacheBackend),
	)

	locale, err := language.Parse(cfg.FacetLocale)
	if err != nil {
		logger.Warn("Некорректная CS_FACET_LOCALE, используется zh",
			slog.String("value", cfg.FacetLocale),
			slog.String("error", err.Error()),
		)
		locale = language.Chinese
	}

	ctx := context.Background()

	// 3. Хранилище каталога
	var store catalogStore
	switch cfg.StoreBackend {
	case config.StoreMemory:
		mem, loadErr := memstore.Load(cfg.SeedFile)
		if loadErr != nil {
			logger.Error("Ошибка загрузки данных каталога", slog.String("error", loadErr.Error()))
			os.Exit(1)
		}
		logger.Info("Данные каталога загружены", slog.String("file", cfg.SeedFile))
		store = catalogStore{
			components: mem.Components(),
			radiation:  mem.Radiation(),
			domestic:   mem.Domestic(),
			checker:    mem,
		}

	default:
		// 3.1 Применение миграций БД
		if cfg.MigrateOnStart {
			logger.Info("Применение миграций БД...")
			if err := database.Migrate(cfg, logger); err != nil {
				logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, connErr := database.Connect(ctx, cfg, logger)
		if connErr != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", connErr.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// 3.3 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		dephealthSvc, dhErr := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     "search-module",
			Group:         cfg.DephealthGroup,
			PgConnURL:     cfg.DatabaseURL(),
			CheckInterval: cfg.DephealthCheckInterval,
			IsEntry:       cfg.DephealthIsEntry,
		}, pgDB, logger)
		if dhErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dhErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}

		store = catalogStore{
			components: repository.NewComponentRepository(pool),
			radiation:  repository.NewRadiationRepository(pool),
			domestic:   repository.NewDomesticRepository(pool),
			checker:    database.NewReadinessChecker(pool),
		}
	}

	// 4. Кэш результатов
	var (
		backend      service.CacheBackend
		cacheChecker handlers.ReadinessChecker
	)
	switch cfg.CacheBackend {
	case config.CacheMemory:
		backend = service.NewMemoryCacheBackend(cfg.CacheMaxEntries, cfg.MaxCacheTTL())
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		redisBackend := service.NewRedisCacheBackend(client, "cs:")
		backend, cacheChecker = redisBackend, redisBackend
		logger.Info("Кэш результатов в Redis", slog.String("addr", cfg.RedisAddr))
	case config.CacheNone:
		logger.Warn("Кэш результатов отключён")
	}
	cache := service.NewResultCache(backend, cfg.CacheDedup, logger)

	// 5. Services
	timeout := cfg.DBQueryTimeout
	defs := service.NewDefinitionService(store.components, cache, cfg.CacheTTLDefinitions, timeout, logger)

	services := handlers.Services{
		ComponentSearch: service.NewSearchService[model.Component](
			query.ComponentSchema, store.components, defs, cache, cfg.CacheTTLSearch, timeout, logger),
		RadiationSearch: service.NewSearchService[model.RadiationRecord](
			query.RadiationSchema, store.radiation, nil, cache, cfg.CacheTTLSearch, timeout, logger),
		DomesticSearch: service.NewSearchService[model.DomesticProduct](
			query.DomesticSchema, store.domestic, nil, cache, cfg.CacheTTLSearch, timeout, logger),

		ComponentFacets: service.NewFacetService(
			query.ComponentSchema, store.components, cache, cfg.CacheTTLFacets, timeout, locale, logger),
		RadiationFacets: service.NewFacetService(
			query.RadiationSchema, store.radiation, cache, cfg.CacheTTLFacets, timeout, locale, logger),
		DomesticFacets: service.NewFacetService(
			query.DomesticSchema, store.domestic, cache, cfg.CacheTTLFacets, timeout, locale, logger),

		ComponentCategories: service.NewCategoryService(
			query.ComponentSchema, store.components, cache, cfg.CacheTTLCategories, locale, timeout, logger),
		DomesticCategories: service.NewCategoryService(
			query.DomesticSchema, store.domestic, cache, cfg.CacheTTLCategories, locale, timeout, logger),

		Statistics: service.NewStatisticsService(
			store.components, cache, cfg.CacheTTLStatistics, timeout, cfg.StatisticsTopN, logger),
		Catalog: service.NewCatalogService(
			store.components, defs, cache, cfg.CacheTTLDetail, timeout, logger),
	}

	// 5.1 Фоновые задачи: прогрев кэша и перестроение деревьев классификации
	bgCtx, stopBg := context.WithCancel(ctx)
	defer stopBg()

	if cfg.CacheWarmup {
		warmer := service.NewCacheWarmer(logger).
			Add("definitions", service.WarmStep(defs.Definitions)).
			Add("facets:component", service.WarmStep(services.ComponentFacets.FacetOptions)).
			Add("facets:radiation", service.WarmStep(services.RadiationFacets.FacetOptions)).
			Add("facets:domestic", service.WarmStep(services.DomesticFacets.FacetOptions)).
			Add("category_tree:component", service.WarmStep(services.ComponentCategories.CategoryTree)).
			Add("category_tree:domestic", service.WarmStep(services.DomesticCategories.CategoryTree)).
			Add("statistics", service.WarmStep(services.Statistics.Statistics))
		go func() {
			warmCtx, cancel := context.WithTimeout(bgCtx, cfg.CacheWarmupTimeout)
			defer cancel()
			warmer.Run(warmCtx)
		}()
	}

	if cfg.CategoryRefreshInterval > 0 {
		go services.ComponentCategories.RunRefresh(bgCtx, cfg.CategoryRefreshInterval)
		go services.DomesticCategories.RunRefresh(bgCtx, cfg.CategoryRefreshInterval)
		logger.Info("Периодическое перестроение деревьев классификации",
			slog.String("interval", cfg.CategoryRefreshInterval.String()),
		)
	}

	// 6. API handler
	healthHandler := handlers.NewHealthHandler(store.checker, cacheChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, services, logger)

	// 7. HTTP-сервер: request id → metrics → logging
	srv := server.New(cfg, logger, apiHandler,
		middleware.RequestID(),
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 8. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Search Module остановлен")
}
