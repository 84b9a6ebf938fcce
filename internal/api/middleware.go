package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// CompanyHeader carries the acting company, set by the authentication
	// proxy in front of the service.
	CompanyHeader = "X-Company-ID"

	companyKey = "company_id"
)

// CompanyChecker confirms that a company exists.
type CompanyChecker interface {
	CompanyExists(ctx context.Context, companyID uint) (bool, error)
}

// RequireCompany rejects requests without a known acting company.
func RequireCompany(companies CompanyChecker, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(CompanyHeader))
		id, err := strconv.ParseUint(raw, 10, 64)
		if raw == "" || err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + CompanyHeader + " header"})
			return
		}

		exists, err := companies.CompanyExists(c.Request.Context(), uint(id))
		if err != nil {
			logger.WithError(err).Error("Failed to look up company")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to authenticate company"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown company"})
			return
		}

		c.Set(companyKey, uint(id))
		c.Next()
	}
}

func companyID(c *gin.Context) uint {
	id, _ := c.Get(companyKey)
	v, _ := id.(uint)
	return v
}
