package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// ActivityHandler serves the history feed and the staff dashboard.
type ActivityHandler struct {
	history   *service.HistoryService
	dashboard *service.DashboardService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(history *service.HistoryService, dashboard *service.DashboardService) *ActivityHandler {
	return &ActivityHandler{history: history, dashboard: dashboard}
}

// History GET /api/history?ticket=REF.
func (h *ActivityHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	feed, err := h.history.Feed(c.UserContext(), actor, c.Query("ticket"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEventResponse, 0, len(feed))
	for _, event := range feed {
		items = append(items, dto.HistoryEventResponse{
			ID:           event.ID,
			TicketID:     event.TicketID,
			TicketNumber: event.TicketNumber,
			Title:        event.Title,
			Action:       string(event.Action),
			Description:  event.Description,
			Timestamp:    event.At,
			Status:       event.Status,
			Priority:     event.Priority,
			Category:     event.Category,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Dashboard GET /api/dashboard.
func (h *ActivityHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(stats)})
}

func dashboardResponse(stats *domain.DashboardStats) dto.DashboardResponse {
	resp := dto.DashboardResponse{
		GeneratedAt:       stats.GeneratedAt,
		Total:             metricResponse(stats.Total),
		Resolved:          metricResponse(stats.Resolved),
		Pending:           metricResponse(stats.Pending),
		Volume:            make([]dto.VolumePointResponse, 0, len(stats.Volume)),
		StatusBreakdown:   breakdownResponses(stats.StatusBreakdown),
		CategoryBreakdown: breakdownResponses(stats.CategoryBreakdown),
		RespondedTickets:  stats.RespondedTickets,
	}
	for _, point := range stats.Volume {
		resp.Volume = append(resp.Volume, dto.VolumePointResponse{Date: point.Day.Format(time.DateOnly), Value: point.Value})
	}
	if stats.AvgFirstResponse != nil {
		hours := stats.AvgFirstResponse.Hours()
		resp.AvgFirstResponseHours = &hours
	}
	return resp
}

func metricResponse(m domain.MetricComparison) dto.MetricResponse {
	return dto.MetricResponse{
		Current:  m.Current,
		Previous: m.Previous,
		Change:   m.Change,
		Trend:    string(domain.TrendOf(m.Change)),
	}
}

func breakdownResponses(items []domain.Breakdown) []dto.BreakdownResponse {
	resp := make([]dto.BreakdownResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.BreakdownResponse{Label: item.Label, Count: item.Count})
	}
	return resp
}
