package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Feedback       *handlers.FeedbackHandler
	Activity       *handlers.ActivityHandler
	Notifications  *handlers.NotificationsHandler
	Reference      *handlers.ReferenceHandler
	Media          *handlers.MediaHandler
	Live           *handlers.LiveHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/ws", cfg.Live.Upgrade, cfg.Live.Serve())
	app.Get(handlers.MediaPrefix+"/*", cfg.Media.Serve)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/community", cfg.Tickets.CommunityTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.ArchiveTicket)

	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/comments", cfg.Comments.AddComment)
	tickets.Patch("/:id/comments/:commentId", cfg.Comments.EditComment)
	tickets.Delete("/:id/comments/:commentId", cfg.Comments.DeleteComment)

	tickets.Get("/:id/feedback", cfg.Feedback.GetFeedback)
	tickets.Post("/:id/feedback", cfg.Feedback.SubmitFeedback)
	tickets.Patch("/:id/feedback/:feedbackId", cfg.Feedback.UpdateFeedback)
	tickets.Delete("/:id/feedback/:feedbackId", cfg.Feedback.DeleteFeedback)

	api.Get("/history", cfg.Activity.History)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	api.Get("/categories", cfg.Reference.ListCategories)
	api.Get("/priorities", cfg.Reference.ListPriorities)

	staffOnly := auth.RequireStaff()
	api.Get("/dashboard", staffOnly, cfg.Activity.Dashboard)
	api.Post("/categories", staffOnly, cfg.Reference.CreateCategory)
	api.Delete("/categories/:id", staffOnly, cfg.Reference.DeleteCategory)
	api.Post("/priorities", staffOnly, cfg.Reference.CreatePriority)
	api.Delete("/priorities/:id", staffOnly, cfg.Reference.DeletePriority)
	api.Get("/metrics", staffOnly, cfg.Health.Metrics)
}
