package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-service/internal/api/dto"
	"github.com/cuongbtq/booking-service/internal/booking"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

// ListUserJobs handles GET /api/v1/jobs
// Lists the current jobs of the acting customer or translator
func (h *JobHandler) ListUserJobs(c *gin.Context) {
	jobs, err := h.service.ListUserJobs(c.Request.Context(), Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserJobsResponse{
		Emergency: dto.NewJobDTOs(jobs.Emergency),
		Normal:    dto.NewJobDTOs(jobs.Normal),
	})
}

// JobHistory handles GET /api/v1/jobs/history
// Pages through the finished jobs of the acting user
func (h *JobHandler) JobHistory(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	page, err := h.service.JobHistory(c.Request.Context(), Actor(c), req.Page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, jobDTO))
}

// PotentialJobs handles GET /api/v1/jobs/potential
// Lists the open jobs the acting translator may accept
func (h *JobHandler) PotentialJobs(c *gin.Context) {
	jobs, err := h.service.PotentialJobs(c.Request.Context(), Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": dto.NewJobDTOs(jobs)})
}

// CreateBooking handles POST /api/v1/jobs
// Creates a new booking for the acting customer
func (h *JobHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.CreateBooking(c.Request.Context(), Actor(c), req.ToBooking())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewResultResponse(res))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	actor := Actor(c)
	if !actor.Role.IsAdmin() && actor.Role != domain.RoleTranslator && job.UserID != actor.ID {
		respondError(c, h.logger, domain.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// ConfirmBooking handles POST /api/v1/jobs/:job_id/confirm
// Stores contact details and offers the job to translators
func (h *JobHandler) ConfirmBooking(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.ConfirmBooking(c.Request.Context(), jobID, Actor(c), req.ToContact())
	})
}

// UpdateJob handles PUT /api/v1/jobs/:job_id
// Applies an admin edit to a booking
func (h *JobHandler) UpdateJob(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	update, err := req.ToUpdate(h.location)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.UpdateJob(c.Request.Context(), jobID, update, Actor(c))
	})
}

// AcceptJob handles POST /api/v1/jobs/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	var req dto.AcceptJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id is required"})
		return
	}

	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.AcceptJob(c.Request.Context(), req.JobID, Actor(c))
	})
}

// AcceptJobWithID handles POST /api/v1/jobs/:job_id/accept
func (h *JobHandler) AcceptJobWithID(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.AcceptJobWithID(c.Request.Context(), jobID, Actor(c))
	})
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	h.jobAction(c, h.service.CancelJob)
}

// ReopenJob handles POST /api/v1/jobs/:job_id/reopen
func (h *JobHandler) ReopenJob(c *gin.Context) {
	h.jobAction(c, h.service.ReopenJob)
}

// EndJob handles POST /api/v1/jobs/:job_id/end
func (h *JobHandler) EndJob(c *gin.Context) {
	h.jobAction(c, h.service.EndJob)
}

// CustomerNotCall handles POST /api/v1/jobs/:job_id/not-carried-out
func (h *JobHandler) CustomerNotCall(c *gin.Context) {
	h.jobAction(c, h.service.CustomerNotCall)
}

// PotentialTranslators handles GET /api/v1/admin/jobs/:job_id/translators
func (h *JobHandler) PotentialTranslators(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	users, err := h.service.PotentialTranslators(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"translators": dto.NewTranslatorDTOs(users)})
}

// DistanceFeed handles POST /api/v1/admin/distance-feed
func (h *JobHandler) DistanceFeed(c *gin.Context) {
	var req dto.DistanceFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.DistanceFeed(c.Request.Context(), req.ToFeed())
	})
}

// ResendPush handles POST /api/v1/admin/jobs/:job_id/resend-push
func (h *JobHandler) ResendPush(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}
	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.ResendPush(c.Request.Context(), jobID)
	})
}

// ResendSMS handles POST /api/v1/admin/jobs/:job_id/resend-sms
func (h *JobHandler) ResendSMS(c *gin.Context) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}
	h.respondResult(c, func() (*booking.Result, error) {
		return h.service.ResendSMS(c.Request.Context(), jobID)
	})
}

type actionFunc func(ctx context.Context, jobID int64, actor *domain.User) (*booking.Result, error)

func (h *JobHandler) jobAction(c *gin.Context, action actionFunc) {
	jobID, ok := pathID(c, "job_id")
	if !ok {
		return
	}
	h.respondResult(c, func() (*booking.Result, error) {
		return action(c.Request.Context(), jobID, Actor(c))
	})
}

func (h *JobHandler) respondResult(c *gin.Context, call func() (*booking.Result, error)) {
	res, err := call()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(res.Warnings) > 0 {
		h.logger.Warn("Booking action completed with notification warnings",
			slog.String("path", c.FullPath()),
			slog.Any("warnings", res.Warnings),
		)
	}
	c.JSON(http.StatusOK, dto.NewResultResponse(res))
}

func jobDTO(job domain.Job) dto.JobDTO {
	return dto.NewJobDTO(&job)
}
