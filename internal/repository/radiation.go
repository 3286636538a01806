package repository

import (
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/partcatalog/search-module/internal/domain/model"
	"github.com/bigkaa/partcatalog/search-module/internal/query"
)

var radiationColumns = joinColumns(
	"id", "category", "subcategory", "product_name", "model", "model_spec", "package",
	"total_dose", "total_dose_numeric", "single_event", "single_event_numeric",
	"displacement", "esd_rating", "quality_grade", "supplier", "remark", "created_at",
)

// NewRadiationRepository создаёт репозиторий результатов радиационных испытаний.
func NewRadiationRepository(db DBTX) EntityRepository[model.RadiationRecord] {
	return &entityRepo[model.RadiationRecord]{
		db:      db,
		schema:  query.RadiationSchema,
		columns: radiationColumns,
		scan:    scanRadiation,
	}
}

func scanRadiation(row pgx.Row) (model.RadiationRecord, error) {
	var r model.RadiationRecord
	err := row.Scan(
		&r.ID, &r.Category, &r.Subcategory, &r.ProductName, &r.Model, &r.ModelSpec, &r.Package,
		&r.TotalDose, &r.TotalDoseNumeric, &r.SingleEvent, &r.SingleEventNumeric,
		&r.Displacement, &r.ESDRating, &r.QualityGrade, &r.Supplier, &r.Remark, &r.CreatedAt,
	)
	return r, err
}
