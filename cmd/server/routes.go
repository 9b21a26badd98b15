// Package main provides the FILKOM chatbot server entry point.
package main

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qlerdi098-png/chatbot-filkom/internal/config"
	"github.com/qlerdi098-png/chatbot-filkom/internal/httpapi"
	"github.com/qlerdi098-png/chatbot-filkom/internal/sentry"
)

// apiRateLimitPerMinute throttles each client IP on the chat API.
const apiRateLimitPerMinute = 120

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, handler *httpapi.Handler, registry *prometheus.Registry, cfg *config.Config) {
	// Health check endpoints
	// Liveness Probe - only checks that the process is running
	router.GET("/healthz", handler.Healthz)
	router.HEAD("/healthz", handler.Healthz)

	// Readiness Probe - database, knowledge base, and search state
	router.GET("/ready", handler.Ready)
	router.HEAD("/ready", handler.Ready)

	// Chat API
	api := router.Group("/api/v1")
	api.Use(httpapi.RateLimit(apiRateLimitPerMinute))
	if sentry.IsEnabled() {
		api.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	{
		api.POST("/chat", handler.Chat)
		api.GET("/chat/history", handler.ChatHistory)
		api.DELETE("/chat/context", handler.ClearContext)
		api.POST("/search", handler.Search)
		api.POST("/intent", handler.Intent)
	}

	// Prometheus metrics endpoint, basic-auth protected when configured
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsPassword != "" {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsUsername: cfg.MetricsPassword,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}
}
