package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// KeyRequestID context value key set by RequestID.
const KeyRequestID = "request_id"

// RequestID tags every request with an id and logs the round trip.
func RequestID() iris.Handler {
	return func(ctx iris.Context) {
		id := ctx.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Values().Set(KeyRequestID, id)
		ctx.Header("X-Request-Id", id)

		start := time.Now()
		ctx.Next()

		zap.L().Info("http request",
			zap.String("request_id", id),
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Int("status", ctx.GetStatusCode()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
