package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// entityRepo — общая реализация EntityRepository поверх таблицы сущности.
type entityRepo[T any] struct {
	db     DBTX
	schema *query.Schema
	// columns — список столбцов для SELECT (порядок совпадает со scan)
	columns string
	scan    func(row pgx.Row) (T, error)
}

// Find выполняет выборку страницы по плану.
func (r *entityRepo[T]) Find(ctx context.Context, plan query.Plan) ([]T, error) {
	where := buildWhere(r.schema, plan.Filter, 1)
	orderBy := buildOrderBy(plan, where.score)
	argNum := len(where.args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM %s %s %s LIMIT $%d OFFSET $%d`,
		r.columns, r.schema.Table, where.sql, orderBy, argNum, argNum+1,
	)
	args := append(where.args, plan.Limit, plan.Offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска (%s): %w", r.schema.Entity, err)
	}
	defer rows.Close()

	result := make([]T, 0, plan.Limit)
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования (%s): %w", r.schema.Entity, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов (%s): %w", r.schema.Entity, err)
	}
	return result, nil
}

// Count возвращает количество записей по тому же фильтру, без сортировки и пагинации.
func (r *entityRepo[T]) Count(ctx context.Context, f query.Filter) (int, error) {
	where := buildWhere(r.schema, f, 1)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.schema.Table, where.sql)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта (%s): %w", r.schema.Entity, err)
	}
	return total, nil
}

// Distinct возвращает различные непустые значения столбца.
func (r *entityRepo[T]) Distinct(ctx context.Context, column string) ([]string, error) {
	if !columnAllowed(r.schema, column) {
		return nil, fmt.Errorf("столбец %q не описан в схеме %s", column, r.schema.Entity)
	}

	q := fmt.Sprintf(
		`SELECT DISTINCT btrim(%[1]s::text) FROM %[2]s WHERE btrim(%[1]s::text) <> ''`,
		column, r.schema.Table,
	)
	return r.collectStrings(ctx, q)
}

// collectStrings выполняет запрос с одним текстовым столбцом.
func (r *entityRepo[T]) collectStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса значений (%s): %w", r.schema.Entity, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения значений (%s): %w", r.schema.Entity, err)
	}
	return values, nil
}

// joinColumns форматирует список столбцов для SELECT.
func joinColumns(cols ...string) string {
	return strings.Join(cols, ", ")
}
