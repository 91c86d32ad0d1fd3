package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/handlers"
	"github.com/ran-crm/crm/internal/middleware"
	"github.com/ran-crm/crm/internal/pages"
	"github.com/ran-crm/crm/internal/types"
)

type Options struct {
	AllowedOrigins []string
	SignupEnabled  bool
}

func corsConfig() cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	// credentials cannot be combined with a wildcard origin
	if types.AllowsAnyOrigin() {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = types.AllowedOrigins
		config.AllowCredentials = true
	}

	return config
}

// NewRouter builds the gin engine with every API route and the admin pages
func NewRouter(opts Options) *gin.Engine {
	types.SetAllowedOrigins(opts.AllowedOrigins)

	r := gin.Default()
	r.SetHTMLTemplate(pages.Templates())

	r.Use(middleware.RequestID())
	r.Use(cors.New(corsConfig()))

	r.GET("/", handlers.Index)
	r.GET("/health", handlers.HealthCheck)
	r.POST("/login", handlers.LoginUser)

	if opts.SignupEnabled {
		r.POST("/signup", handlers.Signup)
	}

	authed := r.Group("", middleware.AuthMiddleware())
	{
		authed.GET("/me", handlers.Me)

		contacts := authed.Group("/contacts")
		{
			contacts.GET("", handlers.ListContacts)
			contacts.POST("", handlers.CreateContact)
			contacts.PUT("/:id", handlers.UpdateContact)
			contacts.DELETE("/:id", handlers.DeleteContact)
		}

		calls := authed.Group("/calls")
		{
			calls.GET("", handlers.ListCalls)
			calls.POST("", handlers.CreateCall)
			calls.GET("/stats", handlers.GetCallStats)
			calls.POST("/bulk", handlers.BulkCreateCalls)
			calls.DELETE("/:id", handlers.DeleteCall)
		}

		sync := authed.Group("/sync")
		{
			sync.GET("/contacts", handlers.PullContacts)
			sync.POST("/contacts", handlers.PushContacts)
			sync.GET("/calls", handlers.PullCalls)
			sync.POST("/calls", handlers.PushCalls)
		}
	}

	admin := r.Group("/admin")
	{
		// pages are public; their scripts carry the token
		admin.GET("/", handlers.AdminLoginPage)
		admin.GET("/dashboard", handlers.AdminDashboardPage)
		admin.GET("/ws", middleware.WebSocketAuthMiddleware(), middleware.AdminMiddleware(), handlers.AdminWebSocket)

		api := admin.Group("", middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			api.GET("/users", handlers.ListUsers)
			api.POST("/users", handlers.CreateUser)
			api.DELETE("/users/:id", handlers.DeleteUser)
			api.GET("/users/:id/contacts", handlers.GetUserContacts)
			api.GET("/users/:id/calls", handlers.GetUserCalls)
			api.GET("/users/:id/stats", handlers.GetUserStats)
			api.DELETE("/users/:id/data", handlers.FlushUserData)
			api.GET("/audit", handlers.ListAuditLogs)
		}
	}

	return r
}
