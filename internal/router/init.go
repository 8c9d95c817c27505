package router

import (
	"github.com/exotic-fruits/auth-service/internal/container"
	handlers "github.com/exotic-fruits/auth-service/internal/interface/http"
	"github.com/exotic-fruits/auth-service/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	svc := container.GetAuthService()
	logger := container.GetLogger()

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc, logger)))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc), svc))

	// keep nil interfaces nil so the handler can tell "not configured"
	var search handlers.AuditSearcher
	if s := container.GetAuditSearch(); s != nil {
		search = s
	}
	var archiver handlers.AuditArchiver
	if a := container.GetAuditArchiver(); a != nil {
		archiver = a
	}
	audit := handlers.NewAuditHandler(container.GetAudit(), search, archiver, logger)
	debugVars := container.GetConfig() != nil && container.GetConfig().DebugMetricsEnabled
	r.Add(modules.NewDebugModule(audit, container.GetRateLimiter(), container.GetBlacklist(), debugVars))
}
