package handler

import (
	"log/slog"

	"github.com/farm-credit-ledger/internal/credit_api/middleware"
	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreditHandler exposes the per-farmer credit workflows
type CreditHandler struct {
	creditService service.CreditService
	logger        *slog.Logger
}

func NewCreditHandler(logger *slog.Logger, creditService service.CreditService) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
		logger:        logger,
	}
}

// farmerID parses the :farmerId path parameter and answers 400 when invalid
func (h *CreditHandler) farmerID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("farmerId")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid farmer ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid farmer ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *CreditHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("Invalid request body", "path", c.FullPath(), "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *CreditHandler) Eligibility(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	eligibility, err := h.creditService.CalculateCreditEligibility(c.Request.Context(), farmerID)
	if err != nil {
		RespondEngineError(c, h.logger, "eligibility", err)
		return
	}
	RespondOK(c, eligibility)
}

func (h *CreditHandler) Provision(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	p, err := h.creditService.ProvisionProfile(c.Request.Context(), farmerID, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "provision", err)
		return
	}
	RespondOK(c, mapProfileToResponse(p))
}

// Grant performs the one-time initial grant
func (h *CreditHandler) Grant(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	res, err := h.creditService.GrantCreditToFarmer(c.Request.Context(), farmerID, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "grant", err)
		return
	}
	RespondCreated(c, mapMutationToResponse(res))
}

func (h *CreditHandler) Use(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.creditService.UseCredit(c.Request.Context(), farmerID, req.Amount, middleware.GetActorID(c), req.Notes)
	if err != nil {
		RespondEngineError(c, h.logger, "use", err)
		return
	}
	RespondCreated(c, mapMutationToResponse(res))
}

func (h *CreditHandler) Repay(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.creditService.RecordRepayment(c.Request.Context(), farmerID, req.Amount, middleware.GetActorID(c), req.Notes)
	if err != nil {
		RespondEngineError(c, h.logger, "repay", err)
		return
	}
	RespondCreated(c, mapMutationToResponse(res))
}

func (h *CreditHandler) AdjustLimit(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var req AdjustLimitRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.creditService.AdjustCreditLimit(c.Request.Context(), farmerID, *req.NewMaxAmount, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "adjust_limit", err)
		return
	}
	RespondOK(c, mapMutationToResponse(res))
}

func (h *CreditHandler) Freeze(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var req FreezeRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.creditService.FreezeUnfreezeCredit(c.Request.Context(), farmerID, *req.Freeze, req.Reason, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "freeze", err)
		return
	}
	RespondOK(c, mapMutationToResponse(res))
}

func (h *CreditHandler) Suspend(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var req SuspendRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.creditService.SuspendCredit(c.Request.Context(), farmerID, req.Reason, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "suspend", err)
		return
	}
	RespondOK(c, mapMutationToResponse(res))
}

// Settle runs the monthly settlement for one farmer ahead of the sweep
func (h *CreditHandler) Settle(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	res, err := h.creditService.PerformMonthlySettlement(c.Request.Context(), farmerID, middleware.GetActorID(c))
	if err != nil {
		RespondEngineError(c, h.logger, "settle", err)
		return
	}
	RespondOK(c, mapMutationToResponse(res))
}

func (h *CreditHandler) Reconcile(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	rec, err := h.creditService.ReconcileProfile(c.Request.Context(), farmerID)
	if err != nil {
		RespondEngineError(c, h.logger, "reconcile", err)
		return
	}
	RespondOK(c, rec)
}

func (h *CreditHandler) GetProfile(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}

	p, err := h.creditService.GetProfile(c.Request.Context(), farmerID)
	if err != nil {
		RespondEngineError(c, h.logger, "get_profile", err)
		return
	}
	RespondOK(c, mapProfileToResponse(p))
}

// ListTransactions returns the farmer's ledger, newest first
func (h *CreditHandler) ListTransactions(c *gin.Context) {
	farmerID, ok := h.farmerID(c)
	if !ok {
		return
	}
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	txns, total, err := h.creditService.ListTransactions(c.Request.Context(), farmerID, params.Page, params.PerPage)
	if err != nil {
		RespondEngineError(c, h.logger, "list_transactions", err)
		return
	}
	RespondWithPaginatedData(c, mapTransactionsToResponse(txns), params.Page, params.PerPage, total)
}
