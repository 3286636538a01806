package memstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
)

// Dataset — содержимое файла данных каталога.
type Dataset struct {
	Components  []model.Component           `json:"components"`
	Parameters  []model.ParameterValue      `json:"parameters"`
	Definitions []model.ParameterDefinition `json:"definitions"`
	Radiation   []model.RadiationRecord     `json:"radiation"`
	Domestic    []model.DomesticProduct     `json:"domestic"`
}

// Store — in-memory хранилище каталога. Данные неизменяемы после создания.
type Store struct {
	components  *ComponentTable
	radiation   *Table[model.RadiationRecord]
	domestic    *DomesticTable
	definitions []model.ParameterDefinition
}

// New создаёт хранилище из набора данных.
func New(ds Dataset) *Store {
	params := make(map[string]map[string]string)
	values := make(map[string][]model.ParameterValue)
	for _, p := range ds.Parameters {
		if params[p.ComponentID] == nil {
			params[p.ComponentID] = make(map[string]string)
		}
		params[p.ComponentID][p.Key] = p.Value
		values[p.ComponentID] = append(values[p.ComponentID], p)
	}
	for id := range values {
		slices.SortFunc(values[id], func(a, b model.ParameterValue) int { return cmp.Compare(a.Key, b.Key) })
	}

	components := NewTable(query.ComponentSchema, ds.Components)
	components.params = params

	defs := slices.Clone(ds.Definitions)
	slices.SortFunc(defs, func(a, b model.ParameterDefinition) int { return cmp.Compare(a.Key, b.Key) })

	return &Store{
		components:  &ComponentTable{Table: components, values: values, defs: defs},
		radiation:   NewTable(query.RadiationSchema, ds.Radiation),
		domestic:    &DomesticTable{Table: NewTable(query.DomesticSchema, ds.Domestic)},
		definitions: defs,
	}
}

// Load читает набор данных из JSON-файла.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла данных %s: %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла данных %s: %w", path, err)
	}
	return New(ds), nil
}

// Components возвращает репозиторий компонентов.
func (s *Store) Components() repository.ComponentRepository { return s.components }

// Radiation возвращает репозиторий радиационных испытаний.
func (s *Store) Radiation() repository.EntityRepository[model.RadiationRecord] { return s.radiation }

// Domestic возвращает репозиторий отечественных изделий.
func (s *Store) Domestic() repository.DomesticRepository { return s.domestic }

// CheckReady всегда готов: данные в памяти.
func (s *Store) CheckReady() (status, message string) {
	return "ok", fmt.Sprintf("in-memory: компонентов %d", len(s.components.rows))
}

// ComponentTable — таблица компонентов со справочными данными.
type ComponentTable struct {
	*Table[model.Component]
	values map[string][]model.ParameterValue
	defs   []model.ParameterDefinition
}

// GetByID возвращает компонент по идентификатору или repository.ErrNotFound.
func (t *ComponentTable) GetByID(ctx context.Context, componentID string) (*model.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range t.rows {
		if t.rows[i].ComponentID == componentID {
			c := t.rows[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Parameters возвращает параметры компонента, упорядоченные по ключу.
func (t *ComponentTable) Parameters(ctx context.Context, componentID string) ([]model.ParameterValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(t.values[componentID]), nil
}

// Definitions возвращает справочник параметров.
func (t *ComponentTable) Definitions(ctx context.Context) ([]model.ParameterDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(t.defs), nil
}

// StatisticsRows группирует компоненты по измерениям статистики.
func (t *ComponentTable) StatisticsRows(ctx context.Context, f query.Filter) ([]model.StatisticsRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type key struct{ m, o, q, s string }
	counts := make(map[key]int)
	var order []key
	for _, c := range t.rows {
		if ok, _ := t.match(c, f); !ok {
			continue
		}
		k := key{c.Manufacturer, c.ObsolescenceType, c.QualityName, c.HasStock}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]model.StatisticsRow, 0, len(order))
	for _, k := range order {
		out = append(out, model.StatisticsRow{
			Manufacturer: k.m, Obsolescence: k.o, Quality: k.q, HasStock: k.s, Count: counts[k],
		})
	}
	return out, nil
}

// CategoryPaths возвращает различные пути семейств "корень → лист".
func (t *ComponentTable) CategoryPaths(ctx context.Context, f query.Filter) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out [][]string
	for _, c := range t.rows {
		if ok, _ := t.match(c, f); !ok {
			continue
		}
		segs := c.FamilyPathSegments
		if len(segs) == 0 {
			segs = normalize.ParsePath(c.FamilyPath, t.schema.PathArrayLeafFirst)
		}
		if len(segs) == 0 {
			continue
		}
		k := strings.Join(segs, "\x00")
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, segs)
	}
	return out, nil
}

// DomesticTable — таблица отечественных изделий.
type DomesticTable struct {
	*Table[model.DomesticProduct]
}

// CategoryPaths возвращает различные тройки уровней классификации.
func (t *DomesticTable) CategoryPaths(ctx context.Context, f query.Filter) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[[3]string]struct{})
	var out [][]string
	for _, p := range t.rows {
		if ok, _ := t.match(p, f); !ok {
			continue
		}
		k := [3]string{
			strings.TrimSpace(p.Level1), strings.TrimSpace(p.Level2), strings.TrimSpace(p.Level3),
		}
		if k[0] == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k[:])
	}
	return out, nil
}
