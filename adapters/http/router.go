package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khoahotran/profile-portal/pkg/logger"
)

type RouterConfig struct {
	AllowedOrigins []string
	ServiceName    string
	// Tracing adds the otelgin middleware.
	Tracing bool
}

type Handlers struct {
	Content *ContentHandler
	Contact *ContactHandler
	RSS     *RSSHandler
}

func NewRouter(cfg RouterConfig, h Handlers, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Tracing {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, HeaderRequestID)
	corsCfg.ExposeHeaders = []string{HeaderRequestID}
	router.Use(cors.New(corsCfg))

	router.Use(RequestIDMiddleware())
	router.Use(AccessLogMiddleware(log))
	router.Use(ErrorMiddleware(log))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		site := api.Group("/site")
		{
			site.GET("/content", h.Content.GetContent)
			site.GET("/status", h.Content.GetStatus)
			site.POST("/refresh", h.Content.Refresh)
			site.POST("/visibility", h.Content.ReportVisibility)
			site.DELETE("/visibility/:client_id", h.Content.ForgetVisibility)
		}

		api.POST("/contact", h.Contact.Submit)
	}

	router.GET("/rss.xml", h.RSS.GenerateRSS)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
