// Package payment 模拟支付网关：不接入真实渠道，总是扣款成功并生成 MOCK_ 前缀的交易号
package payment

import (
	"context"
	"sync"

	"marketplace/domain/payment"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// TradeNoPrefix 模拟交易号前缀
const TradeNoPrefix = "MOCK_"

// SimulatedGateway 模拟网关。Decline 非空时用于测试注入扣款失败。
type SimulatedGateway struct {
	mu      sync.RWMutex
	decline func(tx *payment.Transaction) error
	log     *zap.Logger
}

// NewSimulatedGateway 创建模拟网关
func NewSimulatedGateway(log *zap.Logger) *SimulatedGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimulatedGateway{log: log.Named("gateway")}
}

// SetDecline 设置扣款失败钩子；传 nil 恢复为总是成功
func (g *SimulatedGateway) SetDecline(fn func(tx *payment.Transaction) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decline = fn
}

// Charge 生成 MOCK_<ulid> 交易号
func (g *SimulatedGateway) Charge(ctx context.Context, tx *payment.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.RLock()
	decline := g.decline
	g.mu.RUnlock()
	if decline != nil {
		if err := decline(tx); err != nil {
			g.log.Info("charge declined",
				zap.String("payment_id", tx.ID()),
				zap.String("merchant_order_id", tx.MerchantOrderID()),
				zap.Error(err))
			return "", err
		}
	}

	tradeNo := TradeNoPrefix + ulid.Make().String()
	g.log.Debug("charge accepted",
		zap.String("payment_id", tx.ID()),
		zap.String("method", string(tx.Method())),
		zap.Int64("amount", tx.Amount().Amount()),
		zap.String("trade_no", tradeNo))
	return tradeNo, nil
}

var _ payment.Gateway = (*SimulatedGateway)(nil)
