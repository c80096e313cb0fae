package middleware

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BranchIDKey is the gin context key holding the parsed X-Branch-ID
const BranchIDKey = "branch_id"

// BranchScope reads the optional X-Branch-ID header. A malformed value is
// rejected; a valid one is stored on the gin context and on the request logger.
func BranchScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderBranchID)
		if raw == "" {
			c.Next()
			return
		}
		branchID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Invalid X-Branch-ID header", GetRequestID(c)))
			return
		}
		c.Set(BranchIDKey, branchID)

		ctx, reqLogger := logger.WithBranchID(c.Request.Context(), logger.FromContext(c.Request.Context()), branchID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", reqLogger)
		c.Next()
	}
}

// GetBranchID returns the branch scope of the request, or nil when none was sent
func GetBranchID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(BranchIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
