package handlers

import (
	"github.com/gin-gonic/gin"

	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/response"
)

// TicketHandler 门票查询与核销接口
type TicketHandler struct {
	service      *services.TicketService
	eventService *services.EventService
	evaluator    *services.Evaluator
}

func NewTicketHandler(service *services.TicketService, eventService *services.EventService) *TicketHandler {
	return &TicketHandler{
		service:      service,
		eventService: eventService,
		evaluator:    services.NewEvaluator(),
	}
}

// ListMine 当前用户持有的门票
func (h *TicketHandler) ListMine(c *gin.Context) {
	user := middleware.GetUser(c)
	tickets, err := h.service.ListByUser(user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tickets)
}

// ListByEvent 活动已出的门票，要求ticket写权限
func (h *TicketHandler) ListByEvent(c *gin.Context) {
	eventExternalID := c.Param("id")

	event, err := h.eventService.FindByExternalID(eventExternalID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := h.requireTicket(c, eventExternalID); err != nil {
		response.FromError(c, err)
		return
	}

	tickets, err := h.service.ListByEvent(event.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tickets)
}

type CheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

// CheckIn 核销门票，要求对所属活动持有ticket写权限
func (h *TicketHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	ticket, err := h.service.FindByCode(req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}

	event, err := h.eventService.FindByID(ticket.EventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := h.requireTicket(c, event.ExternalID); err != nil {
		response.FromError(c, err)
		return
	}

	ticket, err = h.service.CheckIn(req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "门票核销成功", ticket)
}

func (h *TicketHandler) requireTicket(c *gin.Context, eventExternalID string) error {
	principal := middleware.GetPrincipal(c)
	chain := services.NewEvaluatorChain(h.evaluator).
		AddPermission(eventExternalID, models.ResourceTypeEvent,
			models.PermissionMap{models.EventPrivilegeTicket: models.AccessWrite})
	return chain.Evaluate(principal)
}
