// Package validation provides input validation helpers and middleware for
// the PlayProof API.
package validation

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxSessionIDLength bounds caller-supplied session identifiers.
const MaxSessionIDLength = 128

// MaxListLimit caps the limit query parameter of block listings.
const MaxListLimit = 1000

var sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidSessionID reports whether s is usable as a session identifier.
func IsValidSessionID(s string) bool {
	return len(s) <= MaxSessionIDLength && sessionIDRegex.MatchString(s)
}

// SanitizeString trims whitespace, strips null bytes and limits length.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs validators and collects their errors.
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// ValidSessionID checks an optional session identifier.
func ValidSessionID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidSessionID(value) {
			return &ValidationError{Field: field, Message: "must be 1-128 characters of letters, digits, '_', '-', '.', or ':'"}
		}
		return nil
	}
}

// OneOf checks an optional value against a fixed set.
func OneOf(field, value string, allowed ...string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return &ValidationError{Field: field, Message: "must be one of " + strings.Join(allowed, ", ")}
	}
}

// Limit checks an optional integer in 1..MaxListLimit.
func Limit(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > MaxListLimit {
			return &ValidationError{Field: field, Message: "must be an integer between 1 and " + strconv.Itoa(MaxListLimit)}
		}
		return nil
	}
}

// BlockIDParamMiddleware rejects an :id URL parameter that is not a positive
// integer, so handlers can parse it without rechecking.
func BlockIDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" {
			if n, err := strconv.ParseUint(id, 10, 64); err != nil || n == 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error":   "invalid_id",
					"message": "block id must be a positive integer",
				})
				return
			}
		}
		c.Next()
	}
}
