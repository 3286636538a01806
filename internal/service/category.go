// category.go — дерево классификации для каскадных фильтров.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bigkaa/partcatalog/search-module/internal/query"
	"github.com/bigkaa/partcatalog/search-module/internal/repository"
)

// CategoryNode — узел дерева классификации.
type CategoryNode struct {
	Value    string          `json:"value"`
	Label    string          `json:"label"`
	Children []*CategoryNode `json:"children,omitempty"`
}

// CategoryTree — дерево и плоский индекс level1 → level2 → [level3].
type CategoryTree struct {
	Tree          []*CategoryNode                `json:"tree"`
	SubCategories map[string]map[string][]string `json:"subCategories"`
}

// BuildCategoryTree строит дерево из путей "корень → лист".
// Сегменты обрезаются; путь обрывается на первом пустом сегменте.
// Одинаковые префиксы сливаются в один узел, дети сортируются по правилам локали.
func BuildCategoryTree(paths [][]string, locale language.Tag) CategoryTree {
	root := &CategoryNode{}
	index := make(map[*CategoryNode]map[string]*CategoryNode)
	sub := make(map[string]map[string][]string)

	for _, path := range paths {
		node := root
		var levels []string
		for _, seg := range path {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				break
			}
			levels = append(levels, seg)

			children := index[node]
			if children == nil {
				children = make(map[string]*CategoryNode)
				index[node] = children
			}
			child, ok := children[seg]
			if !ok {
				child = &CategoryNode{Value: seg, Label: seg}
				children[seg] = child
				node.Children = append(node.Children, child)
			}
			node = child
		}
		addSubCategory(sub, levels)
	}

	c := collate.New(locale)
	sortNodes(c, root.Children)
	for _, l2 := range sub {
		for k, l3 := range l2 {
			c.SortStrings(l3)
			l2[k] = l3
		}
	}

	tree := root.Children
	if tree == nil {
		tree = []*CategoryNode{}
	}
	return CategoryTree{Tree: tree, SubCategories: sub}
}

// addSubCategory добавляет первые три уровня пути в плоский индекс.
func addSubCategory(sub map[string]map[string][]string, levels []string) {
	if len(levels) == 0 {
		return
	}
	l2 := sub[levels[0]]
	if l2 == nil {
		l2 = make(map[string][]string)
		sub[levels[0]] = l2
	}
	if len(levels) < 2 {
		return
	}
	l3, ok := l2[levels[1]]
	if !ok {
		l3 = []string{}
	}
	if len(levels) >= 3 && !slices.Contains(l3, levels[2]) {
		l3 = append(l3, levels[2])
	}
	l2[levels[1]] = l3
}

// sortNodes рекурсивно сортирует узлы по подписи.
func sortNodes(c *collate.Collator, nodes []*CategoryNode) {
	labels := make([]string, len(nodes))
	byLabel := make(map[string]*CategoryNode, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
		byLabel[n.Label] = n
	}
	c.SortStrings(labels)
	for i, l := range labels {
		nodes[i] = byLabel[l]
		sortNodes(c, nodes[i].Children)
	}
}

// CategoryService — дерево классификации одной сущности.
// Полное дерево строится один раз за время жизни процесса (Invalidate сбрасывает его),
// деревья одного производителя хранятся в кэше результатов с TTL.
type CategoryService struct {
	schema  *query.Schema
	source  repository.CategoryPathSource
	cache   *ResultCache
	ttl     time.Duration
	locale  language.Tag
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group

	mu   sync.Mutex
	tree *CategoryTree
	// gen увеличивается при каждом Invalidate
	gen uint64
}

// NewCategoryService создаёт сервис дерева классификации.
// ttl — срок жизни деревьев одного производителя в кэше.
func NewCategoryService(
	schema *query.Schema,
	source repository.CategoryPathSource,
	cache *ResultCache,
	ttl time.Duration,
	locale language.Tag,
	timeout time.Duration,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		schema:  schema,
		source:  source,
		cache:   cache,
		ttl:     ttl,
		locale:  locale,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "category_service"), slog.String("entity", schema.Entity)),
	}
}

// CategoryTree возвращает полное дерево; ошибка построения не запоминается.
// Построение идёт вне блокировки, одновременные запросы ждут одно построение.
func (s *CategoryService) CategoryTree(ctx context.Context) (*CategoryTree, error) {
	s.mu.Lock()
	tree, gen := s.tree, s.gen
	s.mu.Unlock()
	if tree != nil {
		return tree, nil
	}

	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		built, paths, err := s.build(ctx, query.Filter{})
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.gen == gen {
			s.tree = built
		}
		s.mu.Unlock()

		s.logger.Info("Дерево классификации построено",
			slog.Int("paths", paths),
			slog.Int("roots", len(built.Tree)),
		)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CategoryTree), nil
}

// CategoryTreeFor возвращает дерево по записям производителя (подстрока без учёта
// регистра); пустое имя — полное дерево.
func (s *CategoryService) CategoryTreeFor(ctx context.Context, manufacturer string) (*CategoryTree, error) {
	f, scope := query.ScopeFilter(s.schema, "manufacturer", manufacturer)
	if scope == "" {
		return s.CategoryTree(ctx)
	}

	key := "category_tree:" + s.schema.Entity + ":manufacturer:" + scope
	tree, err := GetOrCompute(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (CategoryTree, error) {
			built, _, err := s.build(ctx, f)
			if err != nil {
				return CategoryTree{}, err
			}
			return *built, nil
		})
	if err != nil {
		return nil, err
	}
	return &tree, nil
}

// build читает пути из хранилища и строит дерево.
func (s *CategoryService) build(ctx context.Context, f query.Filter) (*CategoryTree, int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	paths, err := s.source.CategoryPaths(ctx, f)
	if err != nil {
		s.logger.Error("Ошибка построения дерева классификации", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("%w: классификация: %w", ErrDataSource, err)
	}

	tree := BuildCategoryTree(paths, s.locale)
	return &tree, len(paths), nil
}

// Invalidate сбрасывает полное дерево (после обновления справочных данных).
// Построение, начатое до сброса, результат не сохраняет.
func (s *CategoryService) Invalidate() {
	s.mu.Lock()
	s.tree = nil
	s.gen++
	s.mu.Unlock()
	s.logger.Info("Дерево классификации сброшено")
}

// Refresh сбрасывает и сразу перестраивает полное дерево.
func (s *CategoryService) Refresh(ctx context.Context) error {
	s.Invalidate()
	_, err := s.CategoryTree(ctx)
	return err
}

// RunRefresh перестраивает полное дерево с периодом interval до завершения ctx.
func (s *CategoryService) RunRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("Ошибка перестроения дерева классификации", slog.String("error", err.Error()))
			}
		}
	}
}
