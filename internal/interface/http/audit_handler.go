package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/security"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/response"
)

// AuditSearcher queries indexed audit history.
type AuditSearcher interface {
	Search(ctx context.Context, action, userID string, size int) ([]entity.AuditEntry, error)
}

// AuditArchiver stores a snapshot of entries and returns where it went.
type AuditArchiver interface {
	Archive(ctx context.Context, entries []entity.AuditEntry) (string, error)
}

type AuditHandler struct {
	Audit    *security.AuditLogger
	Search   AuditSearcher
	Archiver AuditArchiver
	Logger   *logrus.Logger
}

func NewAuditHandler(audit *security.AuditLogger, search AuditSearcher, archiver AuditArchiver, logger *logrus.Logger) *AuditHandler {
	return &AuditHandler{Audit: audit, Search: search, Archiver: archiver, Logger: logger}
}

func (h *AuditHandler) recent(action, userID string) []entity.AuditEntry {
	switch {
	case action != "" && userID != "":
		out := make([]entity.AuditEntry, 0)
		for _, e := range h.Audit.ByAction(action) {
			if e.UserID == userID {
				out = append(out, e)
			}
		}
		return out
	case action != "":
		return h.Audit.ByAction(action)
	case userID != "":
		return h.Audit.ByUser(userID)
	default:
		return h.Audit.Entries()
	}
}

// List GET /api/debug/audit?action=&userId=
func (h *AuditHandler) List(c *gin.Context) {
	entries := h.recent(c.Query("action"), c.Query("userId"))
	response.Success(c, http.StatusOK, entries, "", map[string]any{"count": len(entries)})
}

// SearchIndexed GET /api/debug/audit/search?action=&userId=&size=
func (h *AuditHandler) SearchIndexed(c *gin.Context) {
	if h.Search == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "audit search not configured", nil)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	entries, err := h.Search.Search(c.Request.Context(), c.Query("action"), c.Query("userId"), size)
	if err != nil {
		helpers.LogError(h.Logger, "audit search failed", err, nil)
		response.Error[any](c, http.StatusBadGateway, "audit search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, entries, "", map[string]any{"count": len(entries)})
}

// Archive POST /api/debug/audit/archive
func (h *AuditHandler) Archive(c *gin.Context) {
	if h.Archiver == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "audit archive not configured", nil)
		return
	}
	entries := h.Audit.Entries()
	uri, err := h.Archiver.Archive(c.Request.Context(), entries)
	if err != nil {
		helpers.LogError(h.Logger, "audit archive failed", err, nil)
		response.Error[any](c, http.StatusBadGateway, "audit archive failed", nil)
		return
	}
	helpers.LogInfo(h.Logger, "audit archived", logrus.Fields{"uri": uri, "count": len(entries)})
	response.Success(c, http.StatusOK, gin.H{"uri": uri}, "audit archived", map[string]any{"count": len(entries)})
}
