package main

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/config"
	jwtgin "github.com/entragate/go-jwt-gate/framework/gin"
	"github.com/entragate/go-jwt-gate/validator"
)

func newRouter(gate *jwtgate.Gate, gatherer prometheus.Gatherer, cfg *config.Config, log logrus.FieldLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(log), corsPolicy(cfg.Server.CORSOrigins), jwtgin.New(gate))

	router.GET("/health", healthHandler(cfg.Auth.Enabled))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/me", meHandler)
	router.POST("/echo/add_two", addTwoHandler)

	return router
}

// corsPolicy answers browser preflights before they reach the gate.
func corsPolicy(origins []string) gin.HandlerFunc {
	policy := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		policy.AllowOriginFunc = func(string) bool { return true }
	} else {
		policy.AllowOrigins = origins
	}
	return cors.New(policy)
}

func accessLog(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	}
}

type healthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Authentication string `json:"authentication"`
}

func healthHandler(authEnabled bool) gin.HandlerFunc {
	response := healthResponse{
		Status:         "healthy",
		Service:        serviceName,
		Authentication: authState(authEnabled),
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response)
	}
}

// UserInfo describes the caller of a request.
type UserInfo struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	Scopes []string `json:"scopes"`
}

func userInfo(claims *validator.TrustedClaims) UserInfo {
	info := UserInfo{
		UserID: claims.Subject,
		Name:   stringClaim(claims, "name"),
		Roles:  claims.Roles(),
		Scopes: claims.Scopes(),
	}
	for _, name := range []string{"email", "upn", "preferred_username"} {
		if info.Email = stringClaim(claims, name); info.Email != "" {
			break
		}
	}
	if info.Roles == nil {
		info.Roles = []string{}
	}
	if info.Scopes == nil {
		info.Scopes = []string{}
	}
	return info
}

func stringClaim(claims *validator.TrustedClaims, name string) string {
	s, _ := claims.Extra[name].(string)
	return s
}

func meHandler(c *gin.Context) {
	claims, err := jwtgin.GetClaims(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, jwtgate.ErrorResponse{Message: "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, userInfo(claims))
}

type addTwoRequest struct {
	N *int `json:"n" binding:"required"`
}

type addTwoResponse struct {
	Result int `json:"result"`
}

// addTwoHandler is the calculator tool: it answers n+2.
func addTwoHandler(c *gin.Context) {
	var req addTwoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, jwtgate.ErrorResponse{Message: "request body must be {\"n\": <integer>}"})
		return
	}
	c.JSON(http.StatusOK, addTwoResponse{Result: *req.N + 2})
}
