package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/pkg/response"
)

// Module is a feature that mounts its routes on the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects the API-wide middleware and feature modules and mounts
// them under /api.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

// Use queues middleware for the /api group. It must be called before RegisterAll.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every module and answers unknown routes with the JSON
// error envelope instead of gin's plain text 404.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
	r.Engine.NoRoute(func(c *gin.Context) {
		response.Error[any](c, http.StatusNotFound, "route not found", nil)
	})
}
