package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers/common"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateJob POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title         string `json:"title" binding:"required"`
		Description   string `json:"description" binding:"required"`
		JobType       string `json:"job_type" binding:"required"`
		LawnSize      string `json:"lawn_size" binding:"required"`
		Parish        string `json:"parish" binding:"required"`
		Address       string `json:"address"`
		ScheduledAt   string `json:"scheduled_at" binding:"required"`
		CustomerOffer *int64 `json:"customer_offer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		common.RespondBadRequest(c, "scheduled_at должен быть в формате RFC3339")
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), userID, service.CreateJobInput{
		Title:         req.Title,
		Description:   req.Description,
		JobType:       req.JobType,
		LawnSize:      req.LawnSize,
		Parish:        req.Parish,
		Address:       req.Address,
		ScheduledAt:   scheduledAt,
		CustomerOffer: req.CustomerOffer,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListOpenJobs GET /jobs?parish=...
func (h *JobHandler) ListOpenJobs(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	jobs, err := h.jobs.ListOpenJobs(c.Request.Context(), c.Query("parish"), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListMyJobs GET /jobs/my
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	jobs, err := h.jobs.ListCustomerJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ListAssignedJobs GET /jobs/assigned
func (h *JobHandler) ListAssignedJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	jobs, err := h.jobs.ListProviderJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// CreateProposal POST /jobs/:id/proposals
func (h *JobHandler) CreateProposal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Message       string `json:"message"`
		ProposedPrice int64  `json:"proposed_price" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "proposed_price должен быть положительным")
		return
	}

	proposal, err := h.jobs.CreateProposal(c.Request.Context(), userID, jobID, req.Message, req.ProposedPrice)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// ListProposals GET /jobs/:id/proposals
func (h *JobHandler) ListProposals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposals, err := h.jobs.ListProposals(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// AcceptProposal POST /jobs/:id/proposals/:proposalId/accept
func (h *JobHandler) AcceptProposal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	proposalID, err := common.ParseUUIDParam(c, "proposalId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.AcceptProposal(c.Request.Context(), userID, jobID, proposalID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// StartWork POST /jobs/:id/start
func (h *JobHandler) StartWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.StartWork(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CompleteByProvider POST /jobs/:id/complete
func (h *JobHandler) CompleteByProvider(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.CompleteByProvider(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ConfirmCompletion POST /jobs/:id/confirm
func (h *JobHandler) ConfirmCompletion(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.ConfirmCompletion(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// AddPhoto POST /jobs/:id/photos
func (h *JobHandler) AddPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Kind string `json:"kind" binding:"required"`
		URL  string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "kind и url обязательны")
		return
	}

	photo, err := h.jobs.AddPhoto(c.Request.Context(), userID, jobID, req.Kind, req.URL)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, photo)
}
