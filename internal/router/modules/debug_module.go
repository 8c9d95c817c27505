package modules

import (
	"context"
	"expvar"
	"sync"

	"github.com/gin-gonic/gin"

	handlers "github.com/exotic-fruits/auth-service/internal/interface/http"
	"github.com/exotic-fruits/auth-service/internal/interface/middleware"
	"github.com/exotic-fruits/auth-service/internal/security"
)

type DebugModule struct {
	Audit     *handlers.AuditHandler
	Limiter   *security.RateLimiter
	Blacklist *security.TokenBlacklist
	// Vars exposes expvar at /debug/vars.
	Vars bool
}

func NewDebugModule(audit *handlers.AuditHandler, limiter *security.RateLimiter, blacklist *security.TokenBlacklist, vars bool) *DebugModule {
	return &DebugModule{Audit: audit, Limiter: limiter, Blacklist: blacklist, Vars: vars}
}

var publishOnce sync.Once

// expvar panics on duplicate names, so the gauges are published once per
// process against whichever module registers first.
func (m *DebugModule) publish() {
	publishOnce.Do(func() {
		expvar.Publish("audit_entries", expvar.Func(func() any {
			if m.Audit == nil || m.Audit.Audit == nil {
				return 0
			}
			return len(m.Audit.Audit.Entries())
		}))
		expvar.Publish("blacklisted_tokens", expvar.Func(func() any {
			if m.Blacklist == nil {
				return 0
			}
			return m.Blacklist.Len(context.Background())
		}))
	})
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// rate-limited per IP
	rl := middleware.RateLimit(m.Limiter, security.DebugPolicy, nil)
	dbg := rg.Group("/debug", rl)

	if m.Vars {
		m.publish()
		dbg.GET("/vars", gin.WrapH(expvar.Handler()))
	}

	// audit data only leaves the building on private addresses
	private := dbg.Group("/audit", middleware.RequireAllowed(middleware.AllowPrivateIP()))
	private.GET("", m.Audit.List)
	private.GET("/search", m.Audit.SearchIndexed)
	private.POST("/archive", m.Audit.Archive)
}
