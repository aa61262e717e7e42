package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_AppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(apperror.NewFieldValidation("amount", "too much").WithDetail("maxAllowed", "150.00"))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperror.CodeValidation, body.Code)
	assert.Equal(t, "too much", body.Message)
	assert.Equal(t, "amount", body.Details["field"])
	assert.Equal(t, "150.00", body.Details["maxAllowed"])
}

func TestErrorHandler_PlainErrorHidesCause(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused"))
		c.Abort()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/x", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestTrace(t *testing.T) {
	var operator, requestID string
	r := gin.New()
	r.Use(Trace())
	r.GET("/x", func(c *gin.Context) {
		operator = appctx.GetOperatorName(c.Request.Context())
		requestID = appctx.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(HeaderRequestID, "req-1")
		req.Header.Set(HeaderOperator, "  alice  ")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "req-1", requestID)
		assert.Equal(t, "alice", operator)
	})

	t.Run("generates ids and defaults operator", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
		assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
		assert.Equal(t, "system", operator)
	})

	t.Run("truncates long operator", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(HeaderOperator, strings.Repeat("a", 300))
		r.ServeHTTP(httptest.NewRecorder(), req)

		assert.Len(t, operator, maxOperatorLen)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(ErrorHandler(), rl.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, apperror.CodeRateLimited, decodeError(t, w).Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, 1, rl.Size())
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	rl.limiterFor("10.0.0.2")
	require.Equal(t, 2, rl.Size())

	now = now.Add(time.Hour)
	rl.limiterFor("10.0.0.3")
	assert.Equal(t, 1, rl.Size())
}

type fakeIdempotencyStore struct {
	acquired  map[string]string
	completed map[string]*postgres.IdempotencyReplay
	failed    map[string]int
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		acquired:  make(map[string]string),
		completed: make(map[string]*postgres.IdempotencyReplay),
		failed:    make(map[string]int),
	}
}

func (s *fakeIdempotencyStore) AcquireKey(_ context.Context, key, _ string, requestHash string) (*postgres.IdempotencyReplay, error) {
	if hash, ok := s.acquired[key]; ok {
		if hash != requestHash {
			return nil, apperror.NewIdempotencyMismatch(key)
		}
		if replay, done := s.completed[key]; done {
			return replay, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
	s.acquired[key] = requestHash
	return nil, nil
}

func (s *fakeIdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	s.completed[key] = &postgres.IdempotencyReplay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

func (s *fakeIdempotencyStore) FailKey(_ context.Context, key string, statusCode int, _ string, _ any) error {
	s.failed[key] = statusCode
	delete(s.acquired, key)
	return nil
}

func TestIdempotency(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0

	r := gin.New()
	r.Use(ErrorHandler(), Idempotency(store))
	r.POST("/payments", func(c *gin.Context) {
		calls++
		resp := gin.H{"call": calls}
		CompleteIdempotency(c, http.StatusCreated, "application/json", resp)
		c.JSON(http.StatusCreated, resp)
	})
	r.POST("/fail", func(c *gin.Context) {
		_ = c.Error(apperror.NewConflict("nope"))
		c.Abort()
	})

	post := func(path, key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post("/payments", "k1", `{"amount":"50"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	t.Run("replays completed key", func(t *testing.T) {
		w := post("/payments", "k1", `{"amount":"50"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(t, first.Body.String(), w.Body.String())
		assert.Equal(t, 1, calls)
	})

	t.Run("rejects different body under same key", func(t *testing.T) {
		w := post("/payments", "k1", `{"amount":"60"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("no key passes through", func(t *testing.T) {
		post("/payments", "", `{}`)
		assert.Equal(t, 2, calls)
	})

	t.Run("failed request releases key", func(t *testing.T) {
		w := post("/fail", "k2", `{}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, http.StatusConflict, store.failed["k2"])
		assert.NotContains(t, store.acquired, "k2")
	})

	t.Run("rejects overlong key", func(t *testing.T) {
		w := post("/payments", strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type lineReq struct {
	ArticleID string `json:"articleId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
	Location  string `json:"location" binding:"required,location"`
}

type movementReq struct {
	Type  string    `json:"type" binding:"required,movementtype"`
	Lines []lineReq `json:"lines" binding:"required,min=1,dive"`
}

func TestBindingError(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, RegisterValidations(v))

	t.Run("custom enum tag", func(t *testing.T) {
		err := v.Struct(movementReq{Type: "SIDEWAYS", Lines: []lineReq{{ArticleID: "3f1c5e8e-9d8c-4a8f-9b1d-2a7c0e4f6b11", Quantity: 1, Location: "STORE"}}})
		appErr := BindingError(err, "invalid request body")

		assert.Equal(t, apperror.CodeValidation, appErr.Code)
		assert.Equal(t, "type", appErr.Details["field"])
		assert.Equal(t, "movementtype", appErr.Details["rule"])
	})

	t.Run("nested path", func(t *testing.T) {
		err := v.Struct(movementReq{Type: "IN", Lines: []lineReq{{ArticleID: "3f1c5e8e-9d8c-4a8f-9b1d-2a7c0e4f6b11", Quantity: 1, Location: "ROOF"}}})
		appErr := BindingError(err, "invalid request body")

		assert.Equal(t, "lines[0].location", appErr.Details["field"])
		assert.Equal(t, "location must be STORE or DEPOT", appErr.Message)
	})

	t.Run("non validation error", func(t *testing.T) {
		appErr := BindingError(errors.New("unexpected EOF"), "invalid request body")

		assert.Equal(t, "invalid request body", appErr.Message)
		assert.Equal(t, "unexpected EOF", appErr.Details["error"])
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(Trace(), Logger(log), ErrorHandler())
	r.GET("/articles/:id", func(c *gin.Context) {
		logger.Info(c.Request.Context(), "loading article")
		_ = c.Error(apperror.NewNotFound("article", c.Param("id")))
		c.Abort()
	})

	req := httptest.NewRequest(http.MethodGet, "/articles/42", nil)
	req.Header.Set(HeaderRequestID, "req-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "req-9", logs.All()[0].ContextMap()["request_id"])

	entry := logs.All()[1]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/articles/:id", fields["route"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
}
