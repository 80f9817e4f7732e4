package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// DashboardHandler serves the admin overview.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboardData answers GET /api/v1/admin/dashboard?recent=N with
// candidate and attempt counts, the CEFR distribution, question bank
// coverage, the live attempt count and the N latest attempts.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	recent, err := strconv.Atoi(c.DefaultQuery("recent", "0"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"recent": "must be a number"})
		return
	}

	data, err := h.dashboardService.GetDashboardData(c.Request.Context(), recent)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
