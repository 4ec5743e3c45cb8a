package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
)

const maxAuditListLimit = 200

// @Summary      List Audit Logs
// @Tags         audit
// @Produce      json
// @Param        action       query  string  false  "Action"
// @Param        target_type  query  string  false  "Target type"
// @Param        target_id    query  string  false  "Target ID"
// @Param        limit        query  int     false  "Limit"
// @Success      200  {object}  []auditdomain.AuditLog
// @Router       /admin/audit-logs [get]
func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	filter := auditdomain.ListFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxAuditListLimit {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be between 1 and 200"))
			return
		}
		filter.Limit = limit
	}

	items, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
