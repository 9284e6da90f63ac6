package ctxutil

import (
	"context"

	"marketplace/api/response"
	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence"

	"github.com/gin-gonic/gin"
)

// ActorKey 是 gin context 中保存操作者的键
const ActorKey = "actor"

// WithRequestID 把请求 ID 放进标准 context，供仓储与 gorm 日志使用
func WithRequestID(ctx *gin.Context) context.Context {
	requestID := response.GetRequestID(ctx)
	return persistence.ContextWithRequestID(ctx.Request.Context(), requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return persistence.RequestIDFromContext(ctx)
}

// SetActor 由 Actor 中间件调用
func SetActor(ctx *gin.Context, actor shared.Actor) {
	ctx.Set(ActorKey, actor)
}

// Actor 取出当前请求的操作者；未经过 Actor 中间件时返回零值，应用层会拒绝
func Actor(ctx *gin.Context) shared.Actor {
	if v, ok := ctx.Get(ActorKey); ok {
		if actor, ok := v.(shared.Actor); ok {
			return actor
		}
	}
	return shared.Actor{}
}
