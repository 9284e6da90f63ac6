package mysql

import (
	"context"

	"marketplace/domain/cart"
	"marketplace/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Lines(ctx context.Context, customerID string) ([]cart.Line, error) {
	var rows []po.CartLinePO
	if err := dbFor(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("added_at, product_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]cart.Line, len(rows))
	for i, row := range rows {
		out[i] = cart.Line{
			CustomerID: row.CustomerID,
			ProductID:  row.ProductID,
			Quantity:   row.Quantity,
			UpdatedAt:  row.UpdatedAt,
		}
	}
	return out, nil
}

// Set 数量为 0 删除；否则 upsert，保留原加入时间
func (r *CartRepository) Set(ctx context.Context, line cart.Line) error {
	db := dbFor(ctx, r.db)
	if line.Quantity <= 0 {
		return db.Where("customer_id = ? AND product_id = ?", line.CustomerID, line.ProductID).
			Delete(&po.CartLinePO{}).Error
	}
	row := po.CartLinePO{
		CustomerID: line.CustomerID,
		ProductID:  line.ProductID,
		Quantity:   line.Quantity,
		AddedAt:    line.UpdatedAt,
		UpdatedAt:  line.UpdatedAt,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&row).Error
}

func (r *CartRepository) Clear(ctx context.Context, customerID string) error {
	return dbFor(ctx, r.db).Where("customer_id = ?", customerID).Delete(&po.CartLinePO{}).Error
}

var _ cart.Repository = (*CartRepository)(nil)
