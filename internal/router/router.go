package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/auth"
	"github.com/kemojs/mydigitalmenu/internal/billing"
	"github.com/kemojs/mydigitalmenu/internal/middleware"
	"github.com/kemojs/mydigitalmenu/internal/onboarding"
	"github.com/kemojs/mydigitalmenu/internal/restaurant"
)

// Handlers groups the HTTP surfaces. Billing is optional and left out when
// no payment provider is configured.
type Handlers struct {
	Auth       *auth.Handler
	Onboarding *onboarding.Handler
	Restaurant *restaurant.Handler
	Billing    *billing.Handler
}

func New(origins []string, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ───────────────────────── AUTH ─────────────────────────
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", middleware.AuthMiddleware(), h.Auth.Me)
	}

	// ───────────────────────── ONBOARDING ─────────────────────────
	ob := r.Group("/onboarding")
	ob.Use(
		middleware.AuthMiddleware(),
		middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin),
	)
	h.Onboarding.RegisterRoutes(ob)

	// ───────────────────────── RESTAURANTS ─────────────────────────
	restaurants := r.Group("/restaurants")
	restaurants.Use(middleware.AuthMiddleware())
	{
		restaurants.GET("/me", h.Restaurant.ListMyRestaurants)
	}

	// ───────────────────────── PUBLIC ─────────────────────────
	r.GET("/menu/:slug", h.Restaurant.GetPublicMenu)

	// ───────────────────────── BILLING ─────────────────────────
	if h.Billing != nil {
		bg := r.Group("/billing")
		bg.Use(middleware.AuthMiddleware())
		h.Billing.RegisterRoutes(bg)

		r.POST("/webhooks/stripe", h.Billing.Webhook)
	}

	return r
}
