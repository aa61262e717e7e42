package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the browser frontend at origins to call the API.
// An empty origin list allows localhost development servers only.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Accept",
			"Content-Type",
			"Origin",
			HeaderRequestID,
			HeaderTraceID,
			HeaderOperator,
			HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"Content-Length", HeaderRequestID, HeaderTraceID, "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
