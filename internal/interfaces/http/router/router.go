package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/infrastructure/config"
	"github.com/restosuite/backend/internal/infrastructure/logger"
	"github.com/restosuite/backend/internal/infrastructure/telemetry"
	"github.com/restosuite/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a handler's routes onto a router group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Func adapts a plain function to the RouteRegistrar interface, for handlers
// that expose routes in more than one trust zone.
type Func func(rg *gin.RouterGroup)

// RegisterRoutes implements RouteRegistrar.
func (f Func) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

// Router assembles the gin engine, shared middleware, and all route groups.
//
// Routes are split across three trust zones: public (probes and agent
// bootstrap), agent (inbound sync from vendor agents, token-authenticated
// per vendor), and admin (back-office, JWT-authenticated).
type Router struct {
	engine     *gin.Engine
	apiVersion string

	public []RouteRegistrar
	agent  []RouteRegistrar
	admin  []RouteRegistrar

	agentAuth gin.HandlerFunc
	adminAuth gin.HandlerFunc
}

// Options carries the cross-cutting collaborators the router wires in.
type Options struct {
	Config    config.HTTPConfig
	Logger    *zap.Logger
	Metrics   *telemetry.Metrics
	AgentAuth gin.HandlerFunc
	AdminAuth gin.HandlerFunc
}

// New creates a router with the shared middleware chain installed.
func New(opts Options) *Router {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(opts.Config),
		middleware.BodyLimit(opts.Config.MaxBodySize),
		otelgin.Middleware("erp-sync"),
		opts.Metrics.GinMiddleware(),
	)
	if len(opts.Config.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(opts.Config.TrustedProxies)
	}

	return &Router{
		engine:     engine,
		apiVersion: "v1",
		agentAuth:  opts.AgentAuth,
		adminAuth:  opts.AdminAuth,
	}
}

// RegisterPublic adds registrars for unauthenticated routes.
func (r *Router) RegisterPublic(registrars ...RouteRegistrar) {
	r.public = append(r.public, registrars...)
}

// RegisterAgent adds registrars for agent-authenticated routes. They are
// mounted under /agent.
func (r *Router) RegisterAgent(registrars ...RouteRegistrar) {
	r.agent = append(r.agent, registrars...)
}

// RegisterAdmin adds registrars for admin-authenticated routes.
func (r *Router) RegisterAdmin(registrars ...RouteRegistrar) {
	r.admin = append(r.admin, registrars...)
}

// Setup mounts every registered route group and returns the engine.
func (r *Router) Setup() *gin.Engine {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, reg := range r.public {
		reg.RegisterRoutes(api)
	}

	agentGroup := api.Group("/agent", r.agentAuth)
	for _, reg := range r.agent {
		reg.RegisterRoutes(agentGroup)
	}

	adminGroup := api.Group("", r.adminAuth)
	for _, reg := range r.admin {
		reg.RegisterRoutes(adminGroup)
	}

	return r.engine
}

// Engine returns the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
