package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-service/internal/api/dto"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// ListJobs handles GET /api/v1/admin/jobs
// Searches all bookings with the admin filters
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	filter, err := req.ToFilter(h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	page, err := h.service.ListJobs(c.Request.Context(), filter, req.Page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, jobDTO))
}

// ListExpiring handles GET /api/v1/admin/expiring
func (h *JobHandler) ListExpiring(c *gin.Context) {
	h.listJobs(c, h.service.ListExpiring)
}

// ListExpired handles GET /api/v1/admin/expired
func (h *JobHandler) ListExpired(c *gin.Context) {
	h.listJobs(c, h.service.ListExpired)
}

// ListAlerts handles GET /api/v1/admin/alerts
// Lists jobs whose session ran at least twice the booked duration
func (h *JobHandler) ListAlerts(c *gin.Context) {
	h.listJobs(c, h.service.ListAlerts)
}

// IgnoreExpiring handles POST /api/v1/admin/expiring/:job_id/ignore and
// POST /api/v1/admin/alerts/:job_id/ignore; both queues share the ignore flag
func (h *JobHandler) IgnoreExpiring(c *gin.Context) {
	h.ignore(c, "job_id", h.service.IgnoreExpiring)
}

// IgnoreExpired handles POST /api/v1/admin/expired/:job_id/ignore
func (h *JobHandler) IgnoreExpired(c *gin.Context) {
	h.ignore(c, "job_id", h.service.IgnoreExpired)
}

// ListThrottles handles GET /api/v1/admin/throttles
func (h *JobHandler) ListThrottles(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	page, err := h.service.ListThrottles(c.Request.Context(), req.Page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.NewThrottleDTO))
}

// IgnoreThrottle handles POST /api/v1/admin/throttles/:throttle_id/ignore
func (h *JobHandler) IgnoreThrottle(c *gin.Context) {
	h.ignore(c, "throttle_id", h.service.IgnoreThrottle)
}

func (h *JobHandler) listJobs(c *gin.Context, list func(ctx context.Context, page int) (domain.Page[domain.Job], error)) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	page, err := list(c.Request.Context(), req.Page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, jobDTO))
}

func (h *JobHandler) ignore(c *gin.Context, param string, ignore func(ctx context.Context, id int64) error) {
	id, ok := pathID(c, param)
	if !ok {
		return
	}

	if err := ignore(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Changes saved"})
}
