package handler

import (
	"log/slog"

	"github.com/farm-credit-ledger/internal/credit_api/middleware"
	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultHandler exposes default detection and the recovery workflow
type DefaultHandler struct {
	recoveryService service.RecoveryService
	logger          *slog.Logger
}

func NewDefaultHandler(logger *slog.Logger, recoveryService service.RecoveryService) *DefaultHandler {
	return &DefaultHandler{
		recoveryService: recoveryService,
		logger:          logger,
	}
}

func (h *DefaultHandler) defaultID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid default ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid default ID")
		return uuid.Nil, false
	}
	return id, true
}

// Scan runs default detection on demand. Reminders are left to the
// scheduled job.
func (h *DefaultHandler) Scan(c *gin.Context) {
	res, err := h.recoveryService.IdentifyOverdueFarmers(c.Request.Context())
	if err != nil {
		RespondEngineError(c, h.logger, "default_scan", err)
		return
	}
	RespondOK(c, res)
}

func (h *DefaultHandler) ListActive(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	defaults, err := h.recoveryService.ListActiveDefaults(c.Request.Context(), params.Page, params.PerPage)
	if err != nil {
		RespondEngineError(c, h.logger, "list_defaults", err)
		return
	}
	RespondOK(c, defaults)
}

func (h *DefaultHandler) Get(c *gin.Context) {
	id, ok := h.defaultID(c)
	if !ok {
		return
	}

	d, err := h.recoveryService.GetDefault(c.Request.Context(), id)
	if err != nil {
		RespondEngineError(c, h.logger, "get_default", err)
		return
	}
	RespondOK(c, d)
}

func (h *DefaultHandler) CreateAction(c *gin.Context) {
	id, ok := h.defaultID(c)
	if !ok {
		return
	}
	var req RecoveryActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	action, err := h.recoveryService.CreateRecoveryAction(c.Request.Context(), id,
		recovery.ActionType(req.ActionType), req.Notes, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "recovery_action", err)
		return
	}
	RespondCreated(c, action)
}

// CompleteAction marks a recovery action done. The body is optional.
func (h *DefaultHandler) CompleteAction(c *gin.Context) {
	id, ok := h.defaultID(c)
	if !ok {
		return
	}
	actionID, err := uuid.Parse(c.Param("actionId"))
	if err != nil {
		RespondBadRequest(c, "Invalid action ID")
		return
	}
	var req CompleteActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	action, err := h.recoveryService.CompleteRecoveryAction(c.Request.Context(), id, actionID, req.Notes, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "complete_action", err)
		return
	}
	RespondOK(c, action)
}

func (h *DefaultHandler) AddContact(c *gin.Context) {
	id, ok := h.defaultID(c)
	if !ok {
		return
	}
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.recoveryService.AddContactHistory(c.Request.Context(), id,
		recovery.ContactMethod(req.ContactMethod), req.Notes, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "contact", err)
		return
	}
	RespondCreated(c, entry)
}

// Resolve closes the default. Repeating the call returns the resolved
// default unchanged.
func (h *DefaultHandler) Resolve(c *gin.Context) {
	id, ok := h.defaultID(c)
	if !ok {
		return
	}
	var req ResolveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	d, err := h.recoveryService.ResolveDefault(c.Request.Context(), id, req.ResolutionNotes, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "resolve_default", err)
		return
	}
	RespondOK(c, d)
}
