package restaurant

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// List restaurants owned by user
// --------------------------------------------------
func (h *Handler) ListMyRestaurants(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return
	}

	restaurants, err := h.service.ListMyRestaurants(c.Request.Context(), userID)
	if err != nil {
		log.Printf("RESTAURANT_LIST_FAILED user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch restaurants"})
		return
	}
	if restaurants == nil {
		restaurants = []*Restaurant{}
	}

	c.JSON(http.StatusOK, restaurants)
}

// --------------------------------------------------
// Public menu by slug (no auth)
// --------------------------------------------------
func (h *Handler) GetPublicMenu(c *gin.Context) {
	pm, err := h.service.PublicMenu(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "menu not found"})
		return
	}
	if err != nil {
		log.Printf("PUBLIC_MENU_FAILED slug=%s err=%v", c.Param("slug"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load menu"})
		return
	}

	c.JSON(http.StatusOK, pm)
}
