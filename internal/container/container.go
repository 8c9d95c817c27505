package container

import (
	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/config"
	"github.com/exotic-fruits/auth-service/internal/application"
	"github.com/exotic-fruits/auth-service/internal/infrastructure/elasticsearch"
	"github.com/exotic-fruits/auth-service/internal/infrastructure/gcs"
	"github.com/exotic-fruits/auth-service/internal/security"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg    *config.Config
	logger *logrus.Logger

	authService *application.AuthService
	limiter     *security.RateLimiter
	blacklist   *security.TokenBlacklist
	audit       *security.AuditLogger

	auditSearch   *elasticsearch.AuditSink
	auditArchiver *gcs.AuditArchiver
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }

func SetAuthService(s *application.AuthService) { authService = s }
func GetAuthService() *application.AuthService  { return authService }
func SetRateLimiter(l *security.RateLimiter)    { limiter = l }
func GetRateLimiter() *security.RateLimiter     { return limiter }
func SetBlacklist(b *security.TokenBlacklist)   { blacklist = b }
func GetBlacklist() *security.TokenBlacklist    { return blacklist }
func SetAudit(a *security.AuditLogger)          { audit = a }
func GetAudit() *security.AuditLogger           { return audit }

func SetAuditSearch(s *elasticsearch.AuditSink) { auditSearch = s }
func GetAuditSearch() *elasticsearch.AuditSink  { return auditSearch }
func SetAuditArchiver(a *gcs.AuditArchiver)     { auditArchiver = a }
func GetAuditArchiver() *gcs.AuditArchiver      { return auditArchiver }
