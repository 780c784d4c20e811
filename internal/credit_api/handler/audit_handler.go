package handler

import (
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/platform/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultAuditWindow applies when the caller omits from
const defaultAuditWindow = 30 * 24 * time.Hour

// AuditHandler serves the audit read model
type AuditHandler struct {
	creditService service.CreditService
	clock         clock.Clock
	logger        *slog.Logger
}

func NewAuditHandler(logger *slog.Logger, creditService service.CreditService, clk clock.Clock) *AuditHandler {
	return &AuditHandler{
		creditService: creditService,
		clock:         clk,
		logger:        logger,
	}
}

// List returns audit entries in [from, to). Without farmer_id every farmer
// is included.
func (h *AuditHandler) List(c *gin.Context) {
	var params AuditParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	farmerID := uuid.Nil
	if params.FarmerID != "" {
		farmerID = uuid.MustParse(params.FarmerID)
	}
	to := params.To
	if to.IsZero() {
		to = h.clock.Now()
	}
	from := params.From
	if from.IsZero() {
		from = to.Add(-defaultAuditWindow)
	}

	entries, total, err := h.creditService.GetAuditTrail(c.Request.Context(), farmerID, from, to, params.Page, params.PerPage)
	if err != nil {
		RespondEngineError(c, h.logger, "audit_trail", err)
		return
	}
	RespondWithPaginatedData(c, mapTransactionsToResponse(entries), params.Page, params.PerPage, total)
}
