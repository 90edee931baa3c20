package onboarding

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/middleware"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the wizard under an authenticated group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/sessions", h.Start)
	g.GET("/sessions/:id", h.Get)
	g.PUT("/sessions/:id/business", h.UpdateBusiness)
	g.POST("/sessions/:id/next", h.Next)
	g.POST("/sessions/:id/previous", h.Previous)

	g.POST("/sessions/:id/scan", h.Upload)
	g.POST("/sessions/:id/scan/retry", h.Retry)

	g.PATCH("/sessions/:id/categories/:ci/items/:ii", h.Correct)
	g.POST("/sessions/:id/categories/:ci/items", h.AddItem)
	g.DELETE("/sessions/:id/categories/:ci/items/:ii", h.RemoveItem)
	g.POST("/sessions/:id/review/reset", h.ResetReview)

	g.PUT("/sessions/:id/design", h.SetDesign)
	g.POST("/sessions/:id/complete", h.Complete)
}

// --------------------------------------------------
// Session
// --------------------------------------------------

func (h *Handler) Start(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.Start(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateBusiness(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"restaurantName" binding:"required"`
		Description string `json:"description"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Website     string `json:"website" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	st, err := h.service.UpdateBusiness(c.Request.Context(), userID, c.Param("id"), BusinessDetails{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Website:     req.Website,
	})
	respond(c, st, err)
}

func (h *Handler) Next(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.Next(c.Request.Context(), userID, c.Param("id"))
	respond(c, st, err)
}

func (h *Handler) Previous(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.Previous(c.Request.Context(), userID, c.Param("id"))
	respond(c, st, err)
}

// --------------------------------------------------
// Scan
// --------------------------------------------------

func (h *Handler) Upload(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	method, err := ocr.ParseMethod(c.PostForm("ocr_method"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ocr_method must be CLIENT, SERVER or BOTH"})
		return
	}

	fh, err := c.FormFile("menu_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "menu_image is required"})
		return
	}
	limit := h.service.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = ocr.DefaultMaxUploadBytes
	}
	if fh.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ocr.ErrFileTooLarge.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read upload"})
		return
	}

	st, err := h.service.Upload(c.Request.Context(), userID, c.Param("id"), fh.Filename, data, method)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

func (h *Handler) Retry(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.Retry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

// --------------------------------------------------
// Review
// --------------------------------------------------

type itemUpdateRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Price       *menu.Money `json:"price"`
	ClearPrice  bool        `json:"clearPrice"`
	Allergens   []string    `json:"allergens"`
}

func (h *Handler) Correct(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	ci, ii, ok := positionParams(c)
	if !ok {
		return
	}

	var req itemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Price != nil && *req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}

	st, err := h.service.Correct(c.Request.Context(), userID, c.Param("id"), ci, ii, menu.ItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ClearPrice:  req.ClearPrice,
		Allergens:   req.Allergens,
	})
	respond(c, st, err)
}

func (h *Handler) AddItem(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	ci, err := strconv.Atoi(c.Param("ci"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category index"})
		return
	}

	st, idx, err := h.service.AddItem(c.Request.Context(), userID, c.Param("id"), ci)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item_index": idx, "session": st})
}

func (h *Handler) RemoveItem(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	ci, ii, ok := positionParams(c)
	if !ok {
		return
	}
	st, err := h.service.RemoveItem(c.Request.Context(), userID, c.Param("id"), ci, ii)
	respond(c, st, err)
}

func (h *Handler) ResetReview(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}
	st, err := h.service.ResetReview(c.Request.Context(), userID, c.Param("id"))
	respond(c, st, err)
}

// --------------------------------------------------
// Design & completion
// --------------------------------------------------

func (h *Handler) SetDesign(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Template       string `json:"template" binding:"required"`
		QRStyle        string `json:"qrCodeStyle" binding:"required"`
		PrimaryColor   string `json:"primaryColor" binding:"required"`
		SecondaryColor string `json:"secondaryColor" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	st, err := h.service.SetDesign(c.Request.Context(), userID, c.Param("id"), Design{
		Template:       req.Template,
		QRStyle:        req.QRStyle,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
	})
	respond(c, st, err)
}

func (h *Handler) Complete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	st, err := h.service.Complete(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, ErrSubmissionFailed) {
		c.JSON(http.StatusBadGateway, gin.H{"error": st.SubmitError, "session": st})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant_id": st.RestaurantID,
		"slug":          st.Slug,
		"redirect":      "/dashboard",
	})
}

// --------------------------------------------------
// helpers
// --------------------------------------------------

func positionParams(c *gin.Context) (int, int, bool) {
	ci, err1 := strconv.Atoi(c.Param("ci"))
	ii, err2 := strconv.Atoi(c.Param("ii"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item position"})
		return 0, 0, false
	}
	return ci, ii, true
}

func respond(c *gin.Context, st State, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, ErrSessionClosed):
		status, msg = http.StatusGone, err.Error()
	case errors.Is(err, ErrScanInProgress):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrWrongStep),
		errors.Is(err, ErrScanNotCompleted),
		errors.Is(err, ErrNoImage):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, ErrBusinessNameRequired),
		errors.Is(err, ErrInvalidWebsite),
		errors.Is(err, ErrInvalidDesign),
		errors.Is(err, menu.ErrPositionOutOfRange),
		errors.Is(err, ocr.ErrUnknownMethod):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ocr.ErrFileTooLarge), errors.Is(err, ocr.ErrImageTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, ocr.ErrFileExtension),
		errors.Is(err, ocr.ErrFileType),
		errors.Is(err, ocr.ErrContentMismatch),
		errors.Is(err, ocr.ErrEmptyImage),
		errors.Is(err, ocr.ErrImageDecode):
		status, msg = http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, ocr.ErrEngineUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	default:
		log.Printf("ONBOARDING_ERROR path=%s err=%v", c.FullPath(), err)
	}

	c.JSON(status, gin.H{"error": msg})
}
