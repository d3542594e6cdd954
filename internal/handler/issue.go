package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/orgissues/internal/domain"
	"github.com/sumire/orgissues/internal/service"
)

// CreateIssueRequest is the POST /issues payload. Any status or
// organizationId field in the body is ignored.
type CreateIssueRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description" validate:"required"`
	Priority    *domain.IssuePriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *string               `json:"assigneeId"`
}

// UpdateIssueRequest is the PATCH /issues/:id payload. Absent fields are left unchanged.
type UpdateIssueRequest struct {
	Title       *string               `json:"title" validate:"omitempty,min=1"`
	Description *string               `json:"description" validate:"omitempty,min=1"`
	Status      *domain.IssueStatus   `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
	Priority    *domain.IssuePriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *string               `json:"assigneeId"`
}

// IssueHandler handles issue endpoints.
type IssueHandler struct {
	issues *service.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issues *service.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

// Create handles POST /issues.
func (h *IssueHandler) Create(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}

	var req CreateIssueRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Create(c.Request().Context(), tc, service.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, issue)
}

// List handles GET /issues.
func (h *IssueHandler) List(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}

	issues, err := h.issues.List(c.Request().Context(), tc.OrganizationID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, issues)
}

// Get handles GET /issues/:id.
func (h *IssueHandler) Get(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	issue, err := h.issues.Get(c.Request().Context(), id, tc.OrganizationID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, issue)
}

// Update handles PATCH /issues/:id. ADMIN only.
func (h *IssueHandler) Update(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}
	if err := domain.RequireRole(tc, domain.RoleAdmin); err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req UpdateIssueRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Update(c.Request().Context(), tc, id, service.UpdateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, issue)
}

// Delete handles DELETE /issues/:id. ADMIN only.
func (h *IssueHandler) Delete(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}
	if err := domain.RequireRole(tc, domain.RoleAdmin); err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.issues.Delete(c.Request().Context(), tc, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Activity handles GET /issues/:id/activity.
func (h *IssueHandler) Activity(c echo.Context) error {
	tc, err := mustTenant(c)
	if err != nil {
		return err
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	logs, err := h.issues.Activity(c.Request().Context(), id, tc.OrganizationID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, logs)
}
