package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

// mockStatisticsSource — мок источника строк статистики.
type mockStatisticsSource struct {
	calls   int
	filters []query.Filter
	rowsFn  func(ctx context.Context) ([]model.StatisticsRow, error)
}

func (m *mockStatisticsSource) StatisticsRows(ctx context.Context, f query.Filter) ([]model.StatisticsRow, error) {
	m.calls++
	m.filters = append(m.filters, f)
	return m.rowsFn(ctx)
}

// TestAggregate проверяет свёртку по измерениям и учёт пустых ключей.
func TestAggregate(t *testing.T) {
	rows := []model.StatisticsRow{
		{Manufacturer: "TI", Obsolescence: "Active", Quality: "Military", HasStock: "Yes", Count: 5},
		{Manufacturer: "ADI", Obsolescence: "Active", Quality: "", HasStock: "No", Count: 3},
		{Manufacturer: "", Obsolescence: "Obsolete", Quality: "Industrial", HasStock: "", Count: 2},
		{Manufacturer: " TI ", Obsolescence: "", Quality: "Military", HasStock: "Y", Count: 1},
	}

	st := Aggregate(rows, 10)

	if st.Total != 11 {
		t.Errorf("Total = %d, ожидалось 11", st.Total)
	}
	if st.WithStock != 6 {
		t.Errorf("WithStock = %d, ожидалось 6", st.WithStock)
	}

	want := []Bucket{{Key: "TI", Count: 6}, {Key: "ADI", Count: 3}}
	if len(st.ByManufacturer.Buckets) != 2 {
		t.Fatalf("ByManufacturer = %+v, ожидалось 2 группы", st.ByManufacturer.Buckets)
	}
	for i, b := range want {
		if st.ByManufacturer.Buckets[i] != b {
			t.Errorf("ByManufacturer[%d] = %+v, ожидалось %+v", i, st.ByManufacturer.Buckets[i], b)
		}
	}

	// Пустой производитель не попадает в группы, но учтён в Total
	sum := 0
	for _, b := range st.ByManufacturer.Buckets {
		sum += b.Count
	}
	if sum+st.ByManufacturer.Others > st.Total {
		t.Errorf("сумма групп %d больше Total %d", sum+st.ByManufacturer.Others, st.Total)
	}
	if sum != 9 {
		t.Errorf("сумма групп производителей = %d, ожидалось 9", sum)
	}
}

// TestAggregate_TopN проверяет усечение, остаток и порядок при равных количествах.
func TestAggregate_TopN(t *testing.T) {
	rows := []model.StatisticsRow{
		{Manufacturer: "C", Count: 2},
		{Manufacturer: "B", Count: 2},
		{Manufacturer: "A", Count: 2},
		{Manufacturer: "Z", Count: 9},
		{Manufacturer: "Y", Count: 1},
	}

	st := Aggregate(rows, 3)
	d := st.ByManufacturer

	if len(d.Buckets) != 3 {
		t.Fatalf("Buckets = %+v, ожидалось 3", d.Buckets)
	}
	wantKeys := []string{"Z", "A", "B"}
	for i, k := range wantKeys {
		if d.Buckets[i].Key != k {
			t.Errorf("Buckets[%d] = %q, ожидался %q", i, d.Buckets[i].Key, k)
		}
	}
	if d.Others != 3 {
		t.Errorf("Others = %d, ожидалось 3 (C + Y)", d.Others)
	}
}

// TestAggregate_ObsolescenceUnlimited проверяет, что статусы выводятся все.
func TestAggregate_ObsolescenceUnlimited(t *testing.T) {
	rows := []model.StatisticsRow{
		{Obsolescence: "Active", Count: 1},
		{Obsolescence: "Obsolete", Count: 1},
		{Obsolescence: "NRND", Count: 1},
	}

	st := Aggregate(rows, 1)
	if len(st.ByObsolescence.Buckets) != 3 || st.ByObsolescence.Others != 0 {
		t.Errorf("ByObsolescence = %+v, ожидались все 3 статуса", st.ByObsolescence)
	}
}

// TestAggregate_Empty проверяет пустой каталог.
func TestAggregate_Empty(t *testing.T) {
	st := Aggregate(nil, 10)
	if st.Total != 0 || st.ByManufacturer.Buckets == nil {
		t.Errorf("st = %+v, ожидалась пустая статистика с пустыми срезами", st)
	}
}

// TestStatisticsService_Cached проверяет кэширование статистики.
func TestStatisticsService_Cached(t *testing.T) {
	src := &mockStatisticsSource{rowsFn: func(context.Context) ([]model.StatisticsRow, error) {
		return []model.StatisticsRow{{Manufacturer: "TI", Count: 4}}, nil
	}}
	svc := NewStatisticsService(src, newTestCache(), time.Minute, time.Second, 10, slog.Default())

	for range 2 {
		st, err := svc.Statistics(context.Background())
		if err != nil {
			t.Fatalf("Statistics: %v", err)
		}
		if st.Total != 4 {
			t.Errorf("Total = %d, ожидалось 4", st.Total)
		}
	}
	if src.calls != 1 {
		t.Errorf("источник вызван %d раз, ожидался 1", src.calls)
	}
}

// TestStatisticsService_Error проверяет ошибку источника данных.
func TestStatisticsService_Error(t *testing.T) {
	src := &mockStatisticsSource{rowsFn: func(context.Context) ([]model.StatisticsRow, error) {
		return nil, errors.New("timeout")
	}}
	svc := NewStatisticsService(src, newTestCache(), time.Minute, time.Second, 10, slog.Default())

	if _, err := svc.Statistics(context.Background()); !errors.Is(err, ErrDataSource) {
		t.Errorf("err = %v, ожидалась ErrDataSource", err)
	}
}

// TestStatisticsService_StatisticsFor проверяет фильтр по производителю и отдельный ключ кэша.
func TestStatisticsService_StatisticsFor(t *testing.T) {
	src := &mockStatisticsSource{rowsFn: func(context.Context) ([]model.StatisticsRow, error) {
		return []model.StatisticsRow{{Manufacturer: "Texas Instruments", Count: 2}}, nil
	}}
	svc := NewStatisticsService(src, newTestCache(), time.Minute, time.Second, 10, slog.Default())
	ctx := context.Background()

	if _, err := svc.StatisticsFor(ctx, " texas "); err != nil {
		t.Fatalf("StatisticsFor: %v", err)
	}
	if _, err := svc.StatisticsFor(ctx, "texas"); err != nil {
		t.Fatalf("StatisticsFor: %v", err)
	}
	if _, err := svc.Statistics(ctx); err != nil {
		t.Fatalf("Statistics: %v", err)
	}

	// производитель (одинаковый после нормализации) и весь каталог кэшируются раздельно
	if src.calls != 2 {
		t.Fatalf("источник вызван %d раз, ожидалось 2", src.calls)
	}
	scoped := src.filters[0]
	if len(scoped.Predicates) != 1 || scoped.Predicates[0].Field.Column != "manufacturer_name" ||
		scoped.Predicates[0].Values[0] != "texas" {
		t.Errorf("фильтр = %+v, ожидался предикат manufacturer_name = texas", scoped)
	}
	if len(src.filters[1].Predicates) != 0 {
		t.Errorf("фильтр полной статистики = %+v, ожидался пустой", src.filters[1])
	}
}
