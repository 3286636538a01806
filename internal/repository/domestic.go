package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

var domesticColumns = joinColumns(
	"id", "seq", "level1", "level2", "level3", "name", "manufacturer", "model",
	"key_specs", "temperature_range", "radiation", "package", "quality",
)

// domesticRepo — реализация DomesticRepository через pgx.
type domesticRepo struct {
	entityRepo[model.DomesticProduct]
}

// NewDomesticRepository создаёт репозиторий отечественных изделий.
func NewDomesticRepository(db DBTX) DomesticRepository {
	return &domesticRepo{entityRepo[model.DomesticProduct]{
		db:      db,
		schema:  query.DomesticSchema,
		columns: domesticColumns,
		scan:    scanDomestic,
	}}
}

func scanDomestic(row pgx.Row) (model.DomesticProduct, error) {
	var p model.DomesticProduct
	err := row.Scan(
		&p.ID, &p.Seq, &p.Level1, &p.Level2, &p.Level3, &p.Name, &p.Manufacturer, &p.Model,
		&p.KeySpecs, &p.TemperatureRange, &p.Radiation, &p.Package, &p.Quality,
	)
	return p, err
}

// CategoryPaths возвращает различные тройки уровней классификации.
func (r *domesticRepo) CategoryPaths(ctx context.Context, f query.Filter) ([][]string, error) {
	w := buildWhere(r.schema, f, 1)
	q := fmt.Sprintf(`
		SELECT DISTINCT btrim(level1), btrim(level2), btrim(level3)
		FROM domestic_products
		%s`, w.and("btrim(level1) <> ''"))

	rows, err := r.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения классификации: %w", err)
	}

	paths, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		var l1, l2, l3 string
		if err := row.Scan(&l1, &l2, &l3); err != nil {
			return nil, err
		}
		return []string{l1, l2, l3}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования классификации: %w", err)
	}
	return paths, nil
}
