package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// componentColumns — столбцы таблицы components для SELECT-запросов.
var componentColumns = joinColumns(
	"component_id", "part_number", "manufacturer_name", "part_type",
	"family_path", "family_path_segments", "obsolescence_type", "has_stock",
	"quality_name", "qualified", "description", "created_at", "updated_at",
)

// componentRepo — реализация ComponentRepository через pgx.
type componentRepo struct {
	entityRepo[model.Component]
}

// NewComponentRepository создаёт репозиторий компонентов.
func NewComponentRepository(db DBTX) ComponentRepository {
	return &componentRepo{entityRepo[model.Component]{
		db:      db,
		schema:  query.ComponentSchema,
		columns: componentColumns,
		scan:    scanComponent,
	}}
}

func scanComponent(row pgx.Row) (model.Component, error) {
	var c model.Component
	err := row.Scan(
		&c.ComponentID, &c.PartNumber, &c.Manufacturer, &c.PartType,
		&c.FamilyPath, &c.FamilyPathSegments, &c.ObsolescenceType, &c.HasStock,
		&c.QualityName, &c.Qualified, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// GetByID возвращает компонент по идентификатору или ErrNotFound.
func (r *componentRepo) GetByID(ctx context.Context, componentID string) (*model.Component, error) {
	q := fmt.Sprintf(`SELECT %s FROM components WHERE component_id = $1`, componentColumns)

	c, err := scanComponent(r.db.QueryRow(ctx, q, componentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения компонента: %w", err)
	}
	return &c, nil
}

// Parameters возвращает значения параметров компонента, упорядоченные по ключу.
func (r *componentRepo) Parameters(ctx context.Context, componentID string) ([]model.ParameterValue, error) {
	rows, err := r.db.Query(ctx, `
		SELECT component_id, parameter_key, parameter_value
		FROM parameters
		WHERE component_id = $1
		ORDER BY parameter_key`, componentID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения параметров: %w", err)
	}

	params, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ParameterValue, error) {
		var p model.ParameterValue
		err := row.Scan(&p.ComponentID, &p.Key, &p.Value)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования параметров: %w", err)
	}
	return params, nil
}

// Definitions возвращает справочник параметров.
func (r *componentRepo) Definitions(ctx context.Context) ([]model.ParameterDefinition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT parameter_key, name, short_name, category, example
		FROM parameter_definitions
		ORDER BY parameter_key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения справочника параметров: %w", err)
	}

	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ParameterDefinition, error) {
		var d model.ParameterDefinition
		err := row.Scan(&d.Key, &d.Name, &d.ShortName, &d.Category, &d.Example)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования справочника параметров: %w", err)
	}
	return defs, nil
}

// StatisticsRows возвращает компоненты, сгруппированные одним GROUP BY
// по всем измерениям статистики. Агрегатор сворачивает их за один проход.
func (r *componentRepo) StatisticsRows(ctx context.Context, f query.Filter) ([]model.StatisticsRow, error) {
	w := buildWhere(r.schema, f, 1)
	q := fmt.Sprintf(`
		SELECT manufacturer_name, obsolescence_type, quality_name, has_stock, COUNT(*)
		FROM components
		%s
		GROUP BY manufacturer_name, obsolescence_type, quality_name, has_stock`, w.sql)

	rows, err := r.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StatisticsRow, error) {
		var s model.StatisticsRow
		err := row.Scan(&s.Manufacturer, &s.Obsolescence, &s.Quality, &s.HasStock, &s.Count)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
	}
	return stats, nil
}

// CategoryPaths возвращает различные пути семейств в порядке "корень → лист".
// Если путь хранится массивом сегментов, используется он; иначе строка разбирается.
func (r *componentRepo) CategoryPaths(ctx context.Context, f query.Filter) ([][]string, error) {
	w := buildWhere(r.schema, f, 1)
	q := fmt.Sprintf(`
		SELECT DISTINCT family_path, family_path_segments
		FROM components
		%s`, w.and("(family_path <> '' OR cardinality(family_path_segments) > 0)"))

	rows, err := r.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения путей семейств: %w", err)
	}

	paths, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		var raw string
		var segments []string
		if err := row.Scan(&raw, &segments); err != nil {
			return nil, err
		}
		if len(segments) > 0 {
			return segments, nil
		}
		return normalize.ParsePath(raw, r.schema.PathArrayLeafFirst), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования путей семейств: %w", err)
	}
	return paths, nil
}
