package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "stockflow/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
	HeaderOperator  = "X-Operator"
)

// maxOperatorLen bounds the free-form operator name recorded in audit entries.
const maxOperatorLen = 100

// Trace middleware adds request tracing context and the operator name.
// Incoming ids are kept, missing ones generated.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.TraceFromHeaders(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))
		ctx := appctx.WithTrace(c.Request.Context(), trace)

		if op := strings.TrimSpace(c.GetHeader(HeaderOperator)); op != "" {
			if len(op) > maxOperatorLen {
				op = op[:maxOperatorLen]
			}
			ctx = appctx.WithOperator(ctx, &appctx.Operator{Name: op})
		}
		c.Request = c.Request.WithContext(ctx)

		c.Set("trace_id", trace.TraceID)
		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
