package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quilldesk/helpdesk/internal/api/http/handlers"
	"github.com/quilldesk/helpdesk/internal/auth"
	"github.com/quilldesk/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Management     *handlers.ManagementHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	agents := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgent())

	tickets := agents.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:code", cfg.Tickets.Get)
	tickets.Put("/:code", cfg.Tickets.Update)
	tickets.Post("/:code/replies", cfg.Tickets.Reply)
	tickets.Post("/:code/ai-process", cfg.Tickets.AIProcess)
	tickets.Get("/:code/holds", cfg.Tickets.Holds)

	agents.Get("/teams", cfg.Management.ListTeams)
	agents.Get("/teams/:name", cfg.Management.GetTeam)
	agents.Get("/priorities", cfg.Management.ListPriorities)
	agents.Get("/slas", cfg.Management.ListSLAs)
	agents.Get("/customers", cfg.Management.ListCustomers)
	agents.Get("/customers/:name", cfg.Management.GetCustomer)
	agents.Get("/kb", cfg.Management.ListArticles)

	managers := agents.Group("", auth.RequireRole(domain.RoleManager, domain.RoleAdminAgent))
	managers.Post("/agents", auth.RequireManager(), cfg.Auth.CreateAgent)
	managers.Get("/agents", cfg.Management.ListAgents)

	managers.Post("/teams", cfg.Management.CreateTeam)
	managers.Put("/teams/:name", cfg.Management.UpdateTeam)
	managers.Delete("/teams/:name", cfg.Management.DeleteTeam)
	managers.Post("/teams/:name/members", cfg.Management.AddMember)
	managers.Delete("/teams/:name/members/:agent", cfg.Management.RemoveMember)

	managers.Post("/priorities", cfg.Management.CreatePriority)
	managers.Put("/priorities/:name", cfg.Management.UpdatePriority)
	managers.Delete("/priorities/:name", cfg.Management.DeletePriority)

	managers.Post("/slas", cfg.Management.CreateSLA)
	managers.Put("/slas/:name", cfg.Management.UpdateSLA)
	managers.Delete("/slas/:name", cfg.Management.DeleteSLA)

	managers.Post("/customers", cfg.Management.CreateCustomer)
	managers.Put("/customers/:name", cfg.Management.UpdateCustomer)
	managers.Post("/customers/:name/handles", cfg.Management.AddHandle)
	managers.Delete("/customers/:name/handles/:id", cfg.Management.RemoveHandle)

	managers.Post("/kb", cfg.Management.CreateArticle)
	managers.Put("/kb/:id", cfg.Management.UpdateArticle)
	managers.Delete("/kb/:id", cfg.Management.DeleteArticle)

	managers.Get("/settings", cfg.Management.GetSettings)
	managers.Put("/settings", cfg.Management.UpdateSettings)
}
