package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// safeFilenameRegex constrains filenames used in Content-Disposition headers
var safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta contains metadata for pagination responses
type Meta struct {
	Page       int       `json:"page,omitempty"`
	PerPage    int       `json:"per_page,omitempty"`
	TotalPages int       `json:"total_pages,omitempty"`
	Total      int       `json:"total,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// ErrorResponse returns a standardized error response
func ErrorResponse(c *gin.Context, statusCode int, code, message, details string) {
	logEntry := logrus.WithFields(logrus.Fields{
		"status_code": statusCode,
		"error_code":  code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"request_id":  c.GetString("request_id"),
	})

	if details != "" {
		logEntry = logEntry.WithField("details", details)
	}

	// 4xx responses are client errors, not server failures
	if statusCode >= 500 {
		logEntry.Error("API error response")
	} else {
		logEntry.Info("API client error response")
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// SuccessResponse returns a standardized success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// CreatedResponse returns a standardized 201 Created response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// AcceptedResponse returns a standardized 202 Accepted response
func AcceptedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// PaginatedResponse returns a standardized paginated response
func PaginatedResponse(c *gin.Context, data interface{}, page, perPage, total int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			Total:      total,
			Timestamp:  time.Now(),
			RequestID:  c.GetString("request_id"),
		},
	})
}

// NoContentResponse returns a 204 No Content response
func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// FileResponse sends a byte payload as a file attachment
func FileResponse(c *gin.Context, data []byte, filename, contentType string) {
	if !safeFilenameRegex.MatchString(filename) {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", "")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

// PDFResponse sends a rendered PDF as a file attachment
func PDFResponse(c *gin.Context, data []byte, filename string) {
	FileResponse(c, data, filename, "application/pdf")
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication is required to access this resource"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, "")
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have permission to access this resource"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, "")
}

// NotFound returns a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "The requested resource was not found"
	}
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, "")
}

// Conflict returns a 409 Conflict response
func Conflict(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, "CONFLICT", message, "")
}

// UnprocessableEntity returns a 422 Unprocessable Entity response
func UnprocessableEntity(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", message, "")
}

// TooManyRequests returns a 429 Too Many Requests response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Rate limit exceeded, please try again later"
	}
	ErrorResponse(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", message, "")
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal server error occurred"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, "")
}

// BindJSON binds the request body to the given object and writes a 400
// response when binding fails. Returns true on success.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body", ValidationMessage(err))
		return false
	}
	return true
}

// BindQuery binds the query string to the given object and writes a 400
// response when binding fails. Returns true on success.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_QUERY_PARAMS", "Invalid query parameters", ValidationMessage(err))
		return false
	}
	return true
}

// GetPaginationParams extracts page and page_size query parameters with defaults
func GetPaginationParams(c *gin.Context) (page int, pageSize int) {
	page = 1
	pageSize = 20

	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}

	return page, pageSize
}

// RateLimiter manages per-client rate limiting for HTTP requests
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter gets or creates a rate limiter for the given key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = time.Now()
	return limiter
}

// CleanupLimiters removes limiters that have been idle longer than maxAge
func (rl *RateLimiter) CleanupLimiters(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, seen := range rl.lastSeen {
		if time.Since(seen) > maxAge {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
		}
	}
}

// RateLimitMiddleware limits requests per client IP
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			TooManyRequests(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
