// statistics.go — сводная статистика каталога компонентов.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/domain/normalize"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// statisticsCacheKey — ключ статистики в кэше.
const statisticsCacheKey = "statistics:component"

// Bucket — одна группа измерения.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Dimension — сгруппированное измерение: top-N групп и остаток.
type Dimension struct {
	Buckets []Bucket `json:"buckets"`
	// Others — количество записей с непустым ключом вне top-N
	Others int `json:"others"`
}

// Statistics — сводка по каталогу.
// Записи с пустым ключом не попадают в группы измерения, но учитываются в Total.
type Statistics struct {
	Total          int       `json:"total"`
	ByManufacturer Dimension `json:"byManufacturer"`
	ByObsolescence Dimension `json:"byObsolescence"`
	WithStock      int       `json:"withStock"`
	ByQuality      Dimension `json:"byQuality"`
}

// Aggregate сворачивает сгруппированные строки в статистику за один проход.
// topN ограничивает производителей и классы качества; статусы выводятся все.
func Aggregate(rows []model.StatisticsRow, topN int) Statistics {
	var st Statistics
	manufacturers := make(map[string]int)
	obsolescence := make(map[string]int)
	quality := make(map[string]int)

	for _, r := range rows {
		if r.Count <= 0 {
			continue
		}
		st.Total += r.Count
		addKey(manufacturers, r.Manufacturer, r.Count)
		addKey(obsolescence, r.Obsolescence, r.Count)
		addKey(quality, r.Quality, r.Count)
		if normalize.YesNo(r.HasStock) == normalize.FlagYes {
			st.WithStock += r.Count
		}
	}

	st.ByManufacturer = topBuckets(manufacturers, topN)
	st.ByObsolescence = topBuckets(obsolescence, 0)
	st.ByQuality = topBuckets(quality, topN)
	return st
}

func addKey(m map[string]int, key string, n int) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	m[key] += n
}

// topBuckets сортирует группы по убыванию количества (при равенстве — по ключу)
// и оставляет первые n; n <= 0 — без ограничения.
func topBuckets(m map[string]int, n int) Dimension {
	buckets := make([]Bucket, 0, len(m))
	for k, c := range m {
		buckets = append(buckets, Bucket{Key: k, Count: c})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	d := Dimension{Buckets: buckets}
	if n > 0 && len(buckets) > n {
		d.Buckets = buckets[:n]
		for _, b := range buckets[n:] {
			d.Others += b.Count
		}
	}
	return d
}

// StatisticsSource — источник сгруппированных строк статистики.
type StatisticsSource interface {
	StatisticsRows(ctx context.Context, f query.Filter) ([]model.StatisticsRow, error)
}

// StatisticsService — статистика каталога с кэшированием.
type StatisticsService struct {
	repo    StatisticsSource
	cache   *ResultCache
	ttl     time.Duration
	timeout time.Duration
	topN    int
	logger  *slog.Logger
}

// NewStatisticsService создаёт сервис статистики.
func NewStatisticsService(
	repo StatisticsSource,
	cache *ResultCache,
	ttl time.Duration,
	timeout time.Duration,
	topN int,
	logger *slog.Logger,
) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		topN:    topN,
		logger:  logger.With(slog.String("component", "statistics_service")),
	}
}

// Statistics возвращает сводку по каталогу компонентов.
func (s *StatisticsService) Statistics(ctx context.Context) (*Statistics, error) {
	return s.StatisticsFor(ctx, "")
}

// StatisticsFor возвращает сводку по компонентам производителя (подстрока без учёта
// регистра); пустое имя — весь каталог.
func (s *StatisticsService) StatisticsFor(ctx context.Context, manufacturer string) (*Statistics, error) {
	f, scope := query.ScopeFilter(query.ComponentSchema, "manufacturer", manufacturer)
	key := statisticsCacheKey
	if scope != "" {
		key += ":manufacturer:" + scope
	}

	st, err := GetOrCompute(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (Statistics, error) {
			ctx, cancel := withTimeout(ctx, s.timeout)
			defer cancel()

			rows, err := s.repo.StatisticsRows(ctx, f)
			if err != nil {
				s.logger.Error("Ошибка получения статистики",
					slog.String("manufacturer", scope),
					slog.String("error", err.Error()),
				)
				return Statistics{}, fmt.Errorf("%w: статистика: %w", ErrDataSource, err)
			}
			return Aggregate(rows, s.topN), nil
		})
	if err != nil {
		return nil, err
	}
	return &st, nil
}
