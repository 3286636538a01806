// Пакет repository — слой доступа к данным каталога в PostgreSQL.
// Модуль поиска — read-only потребитель таблиц каталога.
// Все запросы — чистый SQL через pgx, без ORM; SQL строится из query.Plan.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntityRepository — выполнение плана поиска для одной сущности.
// Find и Count принимают один и тот же query.Filter: выборка страницы и total
// строятся из одного объекта фильтра.
type EntityRepository[T any] interface {
	// Find возвращает страницу записей по плану.
	Find(ctx context.Context, plan query.Plan) ([]T, error)
	// Count возвращает количество записей, удовлетворяющих фильтру.
	Count(ctx context.Context, f query.Filter) (int, error)
	// Distinct возвращает различные значения столбца (для фасетных фильтров).
	Distinct(ctx context.Context, column string) ([]string, error)
}

// CategoryPathSource — источник путей классификации "корень → лист".
// Пустой фильтр — вся коллекция.
type CategoryPathSource interface {
	CategoryPaths(ctx context.Context, f query.Filter) ([][]string, error)
}

// ComponentRepository — доступ к компонентам и их справочным данным.
type ComponentRepository interface {
	EntityRepository[model.Component]
	CategoryPathSource

	// GetByID возвращает компонент по идентификатору или ErrNotFound.
	GetByID(ctx context.Context, componentID string) (*model.Component, error)
	// Parameters возвращает значения параметров компонента.
	Parameters(ctx context.Context, componentID string) ([]model.ParameterValue, error)
	// Definitions возвращает справочник параметров.
	Definitions(ctx context.Context) ([]model.ParameterDefinition, error)
	// StatisticsRows возвращает строки для агрегатора статистики,
	// сгруппированные по (manufacturer, obsolescence, quality, has_stock),
	// по записям, удовлетворяющим фильтру.
	StatisticsRows(ctx context.Context, f query.Filter) ([]model.StatisticsRow, error)
}

// DomesticRepository — доступ к отечественным изделиям.
type DomesticRepository interface {
	EntityRepository[model.DomesticProduct]
	CategoryPathSource
}
