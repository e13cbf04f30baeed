package router

import "github.com/gin-gonic/gin"

// Registry collects global middleware and feature modules, then mounts them
// on the engine's root group.
type Registry struct {
	Engine      *gin.Engine
	Root        *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	closers     []func()
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, Root: &engine.RouterGroup}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// OnClose registers cleanup for resources owned by routes, such as local
// rate limiters.
func (r *Registry) OnClose(fn func()) {
	r.closers = append(r.closers, fn)
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.Engine.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.Root)
	}
}

func (r *Registry) Close() {
	for _, fn := range r.closers {
		fn()
	}
	r.closers = nil
}
