package mysql

import (
	"context"
	"errors"

	"marketplace/domain/aftersale"
	"marketplace/domain/cancellation"
	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

// ============================================================================
// 取消申请
// ============================================================================

type CancelRequestRepository struct {
	db *gorm.DB
}

func NewCancelRequestRepository(db *gorm.DB) *CancelRequestRepository {
	return &CancelRequestRepository{db: db}
}

func (r *CancelRequestRepository) NextIdentity() string { return newID() }

func (r *CancelRequestRepository) Save(ctx context.Context, req *cancellation.Request) error {
	row := po.FromCancelRequestDomain(req)
	row.Version = req.Version() + 1
	err := saveVersioned(dbFor(ctx, r.db), &po.CancelRequestPO{}, row, req.ID(), req.Version(), req.IsNew())
	if err != nil {
		if errors.Is(err, errStaleVersion) {
			return shared.NewDomainError(cancellation.ErrConcurrentModification, "cancel_request", "cancel request "+req.ID()+" was modified concurrently")
		}
		return err
	}
	req.IncrementVersionForSave()
	req.ClearDirtyTracking()
	return nil
}

func (r *CancelRequestRepository) FindByID(ctx context.Context, id string) (*cancellation.Request, error) {
	var row po.CancelRequestPO
	if err := lockForUpdate(ctx, dbFor(ctx, r.db)).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(cancellation.ErrRequestNotFound, "cancel_request", "cancel request not found: "+id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *CancelRequestRepository) FindPending(ctx context.Context, merchantOrderID, userID string) (*cancellation.Request, error) {
	var row po.CancelRequestPO
	err := dbFor(ctx, r.db).
		Where("merchant_order_id = ? AND user_id = ? AND status = ?", merchantOrderID, userID, string(cancellation.StatusPending)).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *CancelRequestRepository) PendingOrderIDs(ctx context.Context, merchantOrderIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(merchantOrderIDs))
	if len(merchantOrderIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := dbFor(ctx, r.db).Model(&po.CancelRequestPO{}).
		Distinct("merchant_order_id").
		Where("merchant_order_id IN ? AND status = ?", merchantOrderIDs, string(cancellation.StatusPending)).
		Pluck("merchant_order_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *CancelRequestRepository) List(ctx context.Context, filter cancellation.Filter) ([]*cancellation.Request, error) {
	db := dbFor(ctx, r.db)
	if filter.MerchantID != "" {
		db = db.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	var rows []po.CancelRequestPO
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*cancellation.Request, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ cancellation.Repository = (*CancelRequestRepository)(nil)

// ============================================================================
// 售后申请
// ============================================================================

type AfterSaleRepository struct {
	db *gorm.DB
}

func NewAfterSaleRepository(db *gorm.DB) *AfterSaleRepository {
	return &AfterSaleRepository{db: db}
}

func (r *AfterSaleRepository) NextIdentity() string { return newID() }

func (r *AfterSaleRepository) Save(ctx context.Context, req *aftersale.Request) error {
	row := po.FromAfterSaleDomain(req)
	row.Version = req.Version() + 1
	err := saveVersioned(dbFor(ctx, r.db), &po.AfterSaleRequestPO{}, row, req.ID(), req.Version(), req.IsNew())
	if err != nil {
		if errors.Is(err, errStaleVersion) {
			return shared.NewDomainError(aftersale.ErrConcurrentModification, "after_sale", "after-sale request "+req.ID()+" was modified concurrently")
		}
		return err
	}
	req.IncrementVersionForSave()
	req.ClearDirtyTracking()
	return nil
}

func (r *AfterSaleRepository) FindByID(ctx context.Context, id string) (*aftersale.Request, error) {
	var row po.AfterSaleRequestPO
	if err := lockForUpdate(ctx, dbFor(ctx, r.db)).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(aftersale.ErrRequestNotFound, "after_sale", "after-sale request not found: "+id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *AfterSaleRepository) FindByOrderID(ctx context.Context, merchantOrderID string) ([]*aftersale.Request, error) {
	var rows []po.AfterSaleRequestPO
	if err := dbFor(ctx, r.db).
		Where("merchant_order_id = ?", merchantOrderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*aftersale.Request, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (r *AfterSaleRepository) HasOpenForItem(ctx context.Context, orderItemID string) (bool, error) {
	return r.hasOpen(ctx, "order_item_id = ?", orderItemID)
}

func (r *AfterSaleRepository) HasOpenForOrder(ctx context.Context, merchantOrderID string) (bool, error) {
	return r.hasOpen(ctx, "merchant_order_id = ?", merchantOrderID)
}

func (r *AfterSaleRepository) hasOpen(ctx context.Context, cond string, arg string) (bool, error) {
	open := make([]string, len(aftersale.OpenStatuses))
	for i, s := range aftersale.OpenStatuses {
		open[i] = string(s)
	}
	var n int64
	if err := dbFor(ctx, r.db).Model(&po.AfterSaleRequestPO{}).
		Where(cond, arg).
		Where("status IN ?", open).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ aftersale.Repository = (*AfterSaleRepository)(nil)

// ============================================================================
// 乐观锁保存
// ============================================================================

var errStaleVersion = errors.New("stale version")

// saveVersioned 新建时 INSERT；更新时 UPDATE ... WHERE id = ? AND version = ?
func saveVersioned(db *gorm.DB, model any, row any, id string, version int, isNew bool) error {
	if isNew {
		if err := db.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errStaleVersion
			}
			return err
		}
		return nil
	}
	result := db.Model(model).
		Where("id = ? AND version = ?", id, version).
		Select("*").Omit("created_at").
		Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errStaleVersion
	}
	return nil
}
