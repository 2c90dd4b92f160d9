package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func TestSuccessResponse(t *testing.T) {
	c, w := testContext()
	c.Set("request_id", "req-123")

	SuccessResponse(c, gin.H{"value": 42})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-123", resp.Meta.RequestID)
}

func TestErrorResponse(t *testing.T) {
	c, w := testContext()

	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", "scan not found", "")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "scan not found", resp.Error.Message)
}

func TestPaginatedResponse(t *testing.T) {
	c, w := testContext()

	PaginatedResponse(c, []int{1, 2, 3}, 2, 3, 10)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.PerPage)
	assert.Equal(t, 10, resp.Meta.Total)
	assert.Equal(t, 4, resp.Meta.TotalPages)
}

func TestFileResponse(t *testing.T) {
	t.Run("ValidFilename", func(t *testing.T) {
		c, w := testContext()

		PDFResponse(c, []byte("%PDF-1.4"), "scan-report.pdf")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "scan-report.pdf")
	})

	t.Run("PathTraversal", func(t *testing.T) {
		c, w := testContext()

		FileResponse(c, []byte("data"), "../etc/passwd", "text/plain")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&page_size=50", 3, 50},
		{"negative page", "page=-1", 1, 20},
		{"oversized page_size", "page_size=5000", 1, 20},
		{"garbage", "page=abc&page_size=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/test?"+tt.query, nil)

			page, size := GetPaginationParams(c)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, 2)

	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// Burst of 2 passes, the third is throttled.
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_CleanupLimiters(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.GetLimiter("10.0.0.1")

	limiter.CleanupLimiters(time.Nanosecond)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.limiters)
}
