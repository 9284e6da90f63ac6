// Package audit 审计记录器：业务操作提交后调用，失败只记 WARN 日志，从不影响调用方
package audit

import (
	"context"

	domainaudit "marketplace/domain/audit"
	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder 审计记录器
type Recorder struct {
	repo  domainaudit.Repository
	log   *zap.Logger
	major *zap.Logger // 重大事件日志，可为 nil
	clock shared.Clock
}

// RecorderDeps 构造依赖
type RecorderDeps struct {
	Repository  domainaudit.Repository
	Logger      *zap.Logger
	MajorEvents *zap.Logger
	Clock       shared.Clock
}

// NewRecorder 创建审计记录器
func NewRecorder(deps RecorderDeps) *Recorder {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		repo:  deps.Repository,
		log:   log,
		major: deps.MajorEvents,
		clock: deps.Clock,
	}
}

// Record 追加一条审计记录
func (r *Recorder) Record(ctx context.Context, actor shared.Actor, action domainaudit.Action, targetType domainaudit.TargetType, targetID string, payload map[string]any) {
	if r == nil {
		return
	}
	entry := domainaudit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Payload:    payload,
		CreatedAt:  r.clock.Now(),
	}

	if r.repo != nil {
		if err := r.repo.Append(ctx, entry); err != nil {
			r.log.Warn("audit append failed",
				zap.String("request_id", persistence.RequestIDFromContext(ctx)),
				zap.String("action", string(action)),
				zap.String("target_id", targetID),
				zap.Error(err))
		}
	}

	if r.major != nil && action.IsMajor() {
		r.major.Info(string(action),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
			zap.String("target_type", string(targetType)),
			zap.String("target_id", targetID),
			zap.Any("payload", payload))
	}
}
