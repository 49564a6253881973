package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"blineit/investor-portal/investor-portal-backend/internal/compliance"
	"blineit/investor-portal/investor-portal-backend/internal/liquidity"
	"blineit/investor-portal/investor-portal-backend/internal/secondary"
	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// Handler exposes the gateway over HTTP. Transport glue only; every
// decision lives in the engine packages.
type Handler struct {
	gateway *Gateway
	logger  *zap.Logger
}

// NewHandler creates a gateway HTTP handler
func NewHandler(gateway *Gateway, logger *zap.Logger) *Handler {
	return &Handler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers gateway routes on the router group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/offerings/:offering_id/eligibility", h.CheckEligibility)
	r.GET("/offerings/:offering_id/liquidity-requests", h.ListLiquidityRequests)
	r.GET("/offerings/:offering_id/market-summary", h.MarketSummary)

	r.GET("/offerings/:offering_id/liquidity-program", h.GetLiquidityProgram)
	r.PUT("/offerings/:offering_id/liquidity-program", h.ConfigureLiquidityProgram)
	r.POST("/offerings/:offering_id/liquidity-program/fund", h.FundLiquidityReserve)

	r.POST("/liquidity-requests", h.SubmitLiquidityRequest)
	r.GET("/liquidity-requests/:id", h.GetLiquidityRequest)
	r.POST("/liquidity-requests/:id/review", h.ReviewLiquidityRequest)
	r.POST("/liquidity-requests/:id/processing", h.AdvanceLiquidityRequest)
	r.POST("/liquidity-requests/:id/complete", h.CompleteLiquidityRequest)
	r.POST("/liquidity-requests/:id/cancel", h.CancelLiquidityRequest)

	r.POST("/listings", h.CreateListing)
	r.POST("/listings/:id/cancel", h.CancelListing)
	r.POST("/listings/:id/purchase", h.ExecutePurchase)
}

type eligibilityPayload struct {
	InvestorID      uuid.UUID                       `json:"investor_id" binding:"required"`
	Requirements    compliance.OfferingRequirements `json:"requirements"`
	RequestedAmount decimal.Decimal                 `json:"requested_amount"`
}

func (h *Handler) CheckEligibility(c *gin.Context) {
	var payload eligibilityPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gateway.CheckEligibility(c.Request.Context(), payload.InvestorID, payload.Requirements, payload.RequestedAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetLiquidityProgram(c *gin.Context) {
	offeringID, ok := h.pathID(c, "offering_id")
	if !ok {
		return
	}
	settings, err := h.gateway.GetLiquidityProgram(c.Request.Context(), offeringID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) ConfigureLiquidityProgram(c *gin.Context) {
	offeringID, ok := h.pathID(c, "offering_id")
	if !ok {
		return
	}
	var payload liquidity.ConfigureProgramRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.OfferingID = offeringID

	settings, err := h.gateway.ConfigureLiquidityProgram(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type fundPayload struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) FundLiquidityReserve(c *gin.Context) {
	offeringID, ok := h.pathID(c, "offering_id")
	if !ok {
		return
	}
	var payload fundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.gateway.FundLiquidityReserve(c.Request.Context(), offeringID, payload.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) SubmitLiquidityRequest(c *gin.Context) {
	var payload liquidity.SubmitRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.gateway.SubmitLiquidityRequest(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *Handler) GetLiquidityRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	request, err := h.gateway.GetLiquidityRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) ListLiquidityRequests(c *gin.Context) {
	offeringID, ok := h.pathID(c, "offering_id")
	if !ok {
		return
	}
	requests, err := h.gateway.ListLiquidityRequests(c.Request.Context(), offeringID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": len(requests)})
}

func (h *Handler) ReviewLiquidityRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var decision liquidity.ReviewDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.gateway.ReviewLiquidityRequest(c.Request.Context(), id, decision)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) AdvanceLiquidityRequest(c *gin.Context) {
	h.transition(c, h.gateway.AdvanceLiquidityRequest)
}

func (h *Handler) CompleteLiquidityRequest(c *gin.Context) {
	h.transition(c, h.gateway.CompleteLiquidityRequest)
}

func (h *Handler) CancelLiquidityRequest(c *gin.Context) {
	h.transition(c, h.gateway.CancelLiquidityRequest)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var payload secondary.CreateListingRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.gateway.CreateListing(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) CancelListing(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	listing, err := h.gateway.CancelListing(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type purchasePayload struct {
	BuyerID  uuid.UUID `json:"buyer_id" binding:"required"`
	Quantity int64     `json:"quantity"`
}

func (h *Handler) ExecutePurchase(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var payload purchasePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settlement, err := h.gateway.ExecutePurchase(c.Request.Context(), id, payload.BuyerID, payload.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) MarketSummary(c *gin.Context) {
	offeringID, ok := h.pathID(c, "offering_id")
	if !ok {
		return
	}
	summary, err := h.gateway.MarketSummary(c.Request.Context(), offeringID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*liquidity.LiquidityRequest, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	request, err := fn(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validation *faults.ValidationError
		ineligible *faults.IneligibleError
		notFound   *faults.NotFoundError
		transition *faults.InvalidTransitionError
		reserve    *faults.InsufficientReserveError
		capErr     *faults.CapExceededError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ineligible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &transition), errors.As(err, &reserve), errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Gateway request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
