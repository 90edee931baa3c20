package billing

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/middleware"
)

const maxWebhookBytes = 65536

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/plans", h.ListPlans)
	g.GET("/account", h.GetAccount)
	g.POST("/checkout-session", h.CreateCheckoutSession)
	g.POST("/portal-session", h.CreatePortalSession)
}

func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, Plans)
}

func (h *Handler) GetAccount(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	acc, err := h.service.Account(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Plan          string `json:"plan"`
		BillingPeriod string `json:"billingPeriod"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	plan, err := ParsePlan(req.Plan)
	if err != nil {
		writeError(c, err)
		return
	}
	period, err := ParsePeriod(req.BillingPeriod)
	if err != nil {
		writeError(c, err)
		return
	}

	session, err := h.service.Checkout(c.Request.Context(), userID, plan, period)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) CreatePortalSession(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ReturnURL string `json:"returnUrl"`
	}
	// body is optional
	_ = c.ShouldBindJSON(&req)

	url, err := h.service.Portal(c.Request.Context(), userID, req.ReturnURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// --------------------------------------------------
// Stripe webhook (public, signature checked)
// --------------------------------------------------
func (h *Handler) Webhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no signature"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			log.Printf("STRIPE_WEBHOOK_REJECTED err=%v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		log.Printf("STRIPE_WEBHOOK_FAILED err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook handler failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrNoCustomer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPriceMissing):
		log.Printf("BILLING_MISCONFIGURED err=%v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "plan not available"})
	default:
		log.Printf("BILLING_ERROR err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
