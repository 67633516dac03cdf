package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/middleware"
	"github.com/synesthesie/verification/internal/models"
	"github.com/synesthesie/verification/internal/services"
	"github.com/synesthesie/verification/pkg/validation"
)

const maxSearchLimit = 200

// AuditRecorder stores admin actions. Satisfied by *services.AuditService.
type AuditRecorder interface {
	LogAction(ctx context.Context, entry services.AuditEntry) error
}

type SecurityCodeHandler struct {
	codeService *services.SecurityCodeService
	audit       AuditRecorder
}

// NewSecurityCodeHandler builds the handler. audit may be nil.
func NewSecurityCodeHandler(codeService *services.SecurityCodeService, audit AuditRecorder) *SecurityCodeHandler {
	return &SecurityCodeHandler{codeService: codeService, audit: audit}
}

// Issue creates a code for an email or phone and sends it
func (h *SecurityCodeHandler) Issue(c *gin.Context) {
	var req struct {
		Email string          `json:"email"`
		Phone string          `json:"phone"`
		Type  models.CodeType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person := models.Person{
		Email: validation.SanitizeString(req.Email),
		Phone: validation.NormalizePhone(validation.SanitizeString(req.Phone)),
	}
	if person.Email != "" && !validation.ValidateEmail(person.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}
	if person.Email == "" && person.Phone != "" && !validation.ValidatePhone(person.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone format"})
		return
	}

	code, err := h.codeService.Issue(c.Request.Context(), person, req.Type)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     code.ID,
		"name":   code.Name,
		"type":   code.Type,
		"status": code.Status,
	})
}

// Verify consumes a code
func (h *SecurityCodeHandler) Verify(c *gin.Context) {
	var req struct {
		Code string          `json:"code" binding:"required"`
		Name string          `json:"name" binding:"required"`
		Type models.CodeType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validation.ValidateCode(req.Code) {
		h.respondError(c, services.ErrWrongCode)
		return
	}

	name := validation.SanitizeString(req.Name)
	if !validation.ValidateEmail(name) {
		name = validation.NormalizePhone(name)
	}

	if err := h.codeService.Verify(c.Request.Context(), req.Code, name, req.Type); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Security code verified"})
}

// Search lists codes (admin)
func (h *SecurityCodeHandler) Search(c *gin.Context) {
	var filter services.CodeFilter
	if name := c.Query("name"); name != "" {
		filter.Name = &name
	}
	if status := models.CodeStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		filter.Status = &status
	}
	if codeType := models.CodeType(c.Query("type")); codeType != "" {
		if !codeType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type"})
			return
		}
		filter.Type = &codeType
	}
	sort, err := services.ParseCodeSort(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Sort = sort

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > maxSearchLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	filter.Limit = limit

	ctx := c.Request.Context()
	total, err := h.codeService.Count(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	codes, err := h.codeService.Search(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes, "total": total})
}

// Get returns a single code (admin)
func (h *SecurityCodeHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	code, err := h.codeService.FindByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// Resend queues delivery of an existing unused code again (admin)
func (h *SecurityCodeHandler) Resend(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	code, err := h.codeService.FindByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if code.Status != models.CodeStatusUnused {
		c.JSON(http.StatusConflict, gin.H{"error": "Security code already used"})
		return
	}
	h.codeService.SendCode(*code)
	h.logAdminAction(c, services.AuditActionResendCode, code.ID, map[string]interface{}{"type": code.Type})
	c.JSON(http.StatusAccepted, gin.H{"message": "Security code queued for delivery"})
}

// Delete removes a code (admin)
func (h *SecurityCodeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.codeService.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		h.respondError(c, services.ErrCodeNotFound)
		return
	}
	h.logAdminAction(c, services.AuditActionDeleteCode, id, nil)
	c.Status(http.StatusNoContent)
}

// logAdminAction never fails the request; audit errors are only logged.
func (h *SecurityCodeHandler) logAdminAction(c *gin.Context, action string, codeID int64, details map[string]interface{}) {
	if h.audit == nil {
		return
	}
	entry := services.AuditEntry{
		AdminSubject: c.GetString(middleware.AdminSubjectKey),
		Action:       action,
		CodeID:       codeID,
		Details:      details,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if err := h.audit.LogAction(c.Request.Context(), entry); err != nil {
		log.Error().Err(err).Str("action", action).Int64("code_id", codeID).Msg("failed to write audit log")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func (h *SecurityCodeHandler) respondError(c *gin.Context, err error) {
	var storeErr *services.StorageError
	switch {
	case errors.Is(err, services.ErrWrongCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrWrongCode.Error()})
	case errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusGone, gin.H{"error": services.ErrCodeExpired.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrCodeNotFound.Error()})
	case errors.As(err, &storeErr):
		log.Error().Err(err).Str("op", storeErr.Op).Msg("security code storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		log.Error().Err(err).Msg("security code request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
