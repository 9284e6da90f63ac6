package mysql

import (
	"context"
	"errors"
	"time"

	"marketplace/domain/inventory"
	"marketplace/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

// InventoryRepository 商品库存与台账
// 库存变更都是单条条件 UPDATE，不做读-改-写
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) NextIdentity() string {
	return newID()
}

func (r *InventoryRepository) SaveProduct(ctx context.Context, p *inventory.Product) error {
	row := po.FromProductDomain(p)
	row.Version = p.Version() + 1
	db := dbFor(ctx, r.db)

	if p.IsNew() {
		if err := db.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return inventory.ErrConcurrentModification
			}
			return err
		}
	} else {
		result := db.Model(&po.ProductPO{}).
			Where("id = ? AND version = ?", p.ID(), p.Version()).
			Select("*").Omit("created_at").
			Updates(row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return inventory.ErrConcurrentModification
		}
	}
	p.ClearDirtyTracking()
	return nil
}

func (r *InventoryRepository) FindProductByID(ctx context.Context, id string) (*inventory.Product, error) {
	var row po.ProductPO
	if err := dbFor(ctx, r.db).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.NewProductNotFoundError(id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindProductsByIDs 按 ID 排序加锁，多个结账并发时加锁顺序一致
func (r *InventoryRepository) FindProductsByIDs(ctx context.Context, ids []string) (map[string]*inventory.Product, error) {
	out := make(map[string]*inventory.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []po.ProductPO
	if err := lockForUpdate(ctx, dbFor(ctx, r.db)).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// AdjustStock 扣减：stock = stock + delta WHERE stock >= -delta；回补：无条件累加
func (r *InventoryRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	db := dbFor(ctx, r.db)
	query := db.Model(&po.ProductPO{}).Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	result := query.Updates(map[string]any{
		"stock":   gorm.Expr("stock + ?", delta),
		"version": gorm.Expr("version + 1"),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var row po.ProductPO
	if err := db.Select("id", "stock").First(&row, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.NewProductNotFoundError(productID)
		}
		return err
	}
	return inventory.NewInsufficientStockError([]inventory.Shortfall{{
		ProductID: productID,
		Requested: -delta,
		Available: row.Stock,
	}})
}

func (r *InventoryRepository) SaveReservations(ctx context.Context, rows []inventory.Reservation) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]po.StockReservationPO, len(rows))
	for i, row := range rows {
		records[i] = po.FromReservation(row)
	}
	return dbFor(ctx, r.db).Create(&records).Error
}

func (r *InventoryRepository) FindReservations(ctx context.Context, merchantOrderID string) ([]inventory.Reservation, error) {
	var records []po.StockReservationPO
	if err := dbFor(ctx, r.db).
		Where("merchant_order_id = ?", merchantOrderID).
		Order("order_item_id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.Reservation, len(records))
	for i := range records {
		out[i] = records[i].ToDomain()
	}
	return out, nil
}

// TransitionReservation UPDATE ... WHERE status IN (from)，影响行数为 0 表示已被其他事务翻转
func (r *InventoryRepository) TransitionReservation(ctx context.Context, id string, from []inventory.ReservationStatus, to inventory.ReservationStatus, now time.Time) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	result := dbFor(ctx, r.db).Model(&po.StockReservationPO{}).
		Where("id = ? AND status IN ?", id, statuses).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var _ inventory.Repository = (*InventoryRepository)(nil)
