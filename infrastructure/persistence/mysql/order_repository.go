package mysql

import (
	"context"
	"errors"

	"marketplace/domain/order"
	"marketplace/infrastructure/persistence"
	"marketplace/infrastructure/persistence/mysql/po"
	"marketplace/infrastructure/persistence/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository MySQL/GORM implementation of the merchant order repository
// DDD principle: Repository is only responsible for persistence of aggregate roots, not event publishing
// GORM usage specification: Association features are prohibited to maintain DDD aggregate boundaries
type OrderRepository struct {
	db         *gorm.DB
	translator *specification.OrderTranslator
}

// NewOrderRepository Create order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db, translator: specification.NewOrderTranslator(db)}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *OrderRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFor(ctx, r.db)
}

// NextIdentity 时间有序的 UUIDv7
func (r *OrderRepository) NextIdentity() string {
	return newID()
}

// ============================================================================
// 订单组
// ============================================================================

func (r *OrderRepository) SaveGroup(ctx context.Context, g *order.OrderGroup) error {
	row := po.FromGroupDomain(g)
	row.Version = g.Version() + 1

	err := r.inTx(ctx, func(tx *gorm.DB) error {
		if g.IsNew() {
			if err := tx.Create(row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return order.NewConcurrentModificationError("order_group", g.ID())
				}
				return err
			}
			return nil
		}
		result := tx.Model(&po.OrderGroupPO{}).
			Where("id = ? AND version = ?", g.ID(), g.Version()).
			Select("*").Omit("created_at").
			Updates(row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return order.NewConcurrentModificationError("order_group", g.ID())
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.IncrementVersionForSave()
	g.ClearDirtyTracking()
	return nil
}

func (r *OrderRepository) FindGroupByID(ctx context.Context, id string) (*order.OrderGroup, error) {
	var row po.OrderGroupPO
	if err := lockForUpdate(ctx, r.getDB(ctx)).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewGroupNotFoundError(id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// ============================================================================
// 商户订单
// ============================================================================

// Save 新建时插入；更新时 WHERE version = 加载时的版本，子表先删后插
func (r *OrderRepository) Save(ctx context.Context, o *order.MerchantOrder) error {
	rows, err := po.FromOrderDomain(o)
	if err != nil {
		return err
	}
	rows.Order.Version = o.Version() + 1

	err = r.inTx(ctx, func(tx *gorm.DB) error {
		if o.IsNew() {
			if err := tx.Create(rows.Order).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return order.NewConcurrentModificationError("merchant_order", o.ID())
				}
				return err
			}
		} else {
			result := tx.Model(&po.MerchantOrderPO{}).
				Where("id = ? AND version = ?", o.ID(), o.Version()).
				Select("*").Omit("created_at").
				Updates(rows.Order)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return order.NewConcurrentModificationError("merchant_order", o.ID())
			}
		}
		return r.saveChildren(tx, rows)
	})
	if err != nil {
		return err
	}
	o.IncrementVersionForSave()
	o.ClearDirtyTracking()
	return nil
}

// saveChildren 简单策略：删除旧行后插入新行
func (r *OrderRepository) saveChildren(tx *gorm.DB, rows po.OrderRows) error {
	orderID := rows.Order.ID

	if err := tx.Where("merchant_order_id = ?", orderID).Delete(&po.OrderItemPO{}).Error; err != nil {
		return err
	}
	if len(rows.Items) > 0 {
		if err := tx.Create(&rows.Items).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("merchant_order_id = ?", orderID).Delete(&po.PaymentTransactionPO{}).Error; err != nil {
		return err
	}
	if rows.Payment != nil {
		if err := tx.Create(rows.Payment).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("merchant_order_id = ?", orderID).Delete(&po.ShipmentPO{}).Error; err != nil {
		return err
	}
	if rows.Shipment != nil {
		if err := tx.Create(rows.Shipment).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID 事务内加行锁，并发的状态迁移在这里排队
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.MerchantOrder, error) {
	db := r.getDB(ctx)
	var row po.MerchantOrderPO
	if err := lockForUpdate(ctx, db).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, err
	}
	orders, err := r.assemble(db, []po.MerchantOrderPO{row})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (r *OrderRepository) FindByGroupID(ctx context.Context, groupID string) ([]*order.MerchantOrder, error) {
	db := r.getDB(ctx)
	var rows []po.MerchantOrderPO
	if err := lockForUpdate(ctx, db).
		Where("group_id = ? AND removed = ?", groupID, false).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.assemble(db, rows)
}

// Find 按规约查询，按创建时间倒序分页
func (r *OrderRepository) Find(ctx context.Context, spec order.Specification, page order.Page) ([]*order.MerchantOrder, int64, error) {
	scope, err := r.translator.Translate(spec)
	if err != nil {
		return nil, 0, err
	}
	db := r.getDB(ctx)
	page = page.Normalize()

	var total int64
	if err := db.Model(&po.MerchantOrderPO{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []po.MerchantOrderPO
	if err := db.Scopes(scope).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders, err := r.assemble(db, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// assemble 批量加载子表（不使用 GORM 的 Preload，保持聚合边界清晰）
func (r *OrderRepository) assemble(db *gorm.DB, rows []po.MerchantOrderPO) ([]*order.MerchantOrder, error) {
	if len(rows) == 0 {
		return []*order.MerchantOrder{}, nil
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	var items []po.OrderItemPO
	if err := db.Where("merchant_order_id IN ?", ids).Order("merchant_order_id, position").Find(&items).Error; err != nil {
		return nil, err
	}
	var payments []po.PaymentTransactionPO
	if err := db.Where("merchant_order_id IN ?", ids).Find(&payments).Error; err != nil {
		return nil, err
	}
	var shipments []po.ShipmentPO
	if err := db.Where("merchant_order_id IN ?", ids).Find(&shipments).Error; err != nil {
		return nil, err
	}

	itemsByOrder := make(map[string][]po.OrderItemPO, len(rows))
	for _, it := range items {
		itemsByOrder[it.MerchantOrderID] = append(itemsByOrder[it.MerchantOrderID], it)
	}
	paymentByOrder := make(map[string]*po.PaymentTransactionPO, len(payments))
	for i := range payments {
		paymentByOrder[payments[i].MerchantOrderID] = &payments[i]
	}
	shipmentByOrder := make(map[string]*po.ShipmentPO, len(shipments))
	for i := range shipments {
		shipmentByOrder[shipments[i].MerchantOrderID] = &shipments[i]
	}

	out := make([]*order.MerchantOrder, len(rows))
	for i := range rows {
		o, err := po.OrderRows{
			Order:    &rows[i],
			Items:    itemsByOrder[rows[i].ID],
			Payment:  paymentByOrder[rows[i].ID],
			Shipment: shipmentByOrder[rows[i].ID],
		}.ToDomain()
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// inTx When called within UoW.Execute(), it uses the transaction from context.
// When called standalone, it creates its own transaction for atomicity
func (r *OrderRepository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return fn(tx)
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// ============================================================================
// 公共辅助
// ============================================================================

func dbFor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// lockForUpdate 只在事务内加 FOR UPDATE，事务外的只读查询不加锁
func lockForUpdate(ctx context.Context, db *gorm.DB) *gorm.DB {
	if persistence.TxFromContext(ctx) == nil {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Compile-time interface implementation check
var _ order.Repository = (*OrderRepository)(nil)
