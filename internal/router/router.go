package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"conductor/internal/database"
	"conductor/internal/handlers"
	"conductor/internal/middleware"
	"conductor/internal/models"
	"conductor/internal/services"
	"conductor/pkg/response"
)

// SetupRouter 设置路由
func SetupRouter(idp models.ExternalIDProvider) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, idp)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, idp models.ExternalIDProvider) {
	db := database.GetDB()
	auth := middleware.NewAuthMiddleware(db, idp)

	userService := services.NewUserService(db, idp)
	permService := services.NewPermissionService(db)

	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由
		authHandler := handlers.NewAuthHandler(userService)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/register", authHandler.Register)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Profile)
		}

		// 权限管理路由
		permHandler := handlers.NewPermissionHandler(permService, userService)
		perms := api.Group("/permissions", auth.RequireLogin())
		{
			perms.POST("/grant", permHandler.Grant)
			perms.POST("/revoke", permHandler.Revoke)
			perms.GET("/mine", permHandler.ListMine)
			perms.GET("/users/:id", auth.RequireAdmin(), permHandler.ListByUser)
		}

		// 申请详情
		appHandler := handlers.NewApplicationHandler(services.NewApplicationManager(db, idp))
		api.GET("/applications/:id", auth.RequireLogin(), appHandler.Get)

		// 组织入驻申请路由
		orgAppHandler := handlers.NewOrganizationApplicationHandler(
			services.NewOrganizationApplicationService(db, idp))
		orgApps := api.Group("/organization-applications", auth.RequireLogin())
		{
			orgApps.POST("", orgAppHandler.Apply)
			orgApps.GET("/pending", auth.RequireAdmin(), orgAppHandler.ListPending)
			orgApps.POST("/:id/approve", auth.RequireAdmin(), orgAppHandler.Approve)
			orgApps.POST("/:id/reject", auth.RequireAdmin(), orgAppHandler.Reject)
			orgApps.POST("/:id/cancel", orgAppHandler.Cancel)
			orgApps.POST("/:id/comments", orgAppHandler.Comment)
		}

		// 活动报名申请路由
		eventAppHandler := handlers.NewEventApplicationHandler(
			services.NewEventApplicationService(db, idp))
		eventApps := api.Group("/event-applications", auth.RequireLogin())
		{
			eventApps.POST("", eventAppHandler.Apply)
			eventApps.GET("/pending", auth.RequireRole(models.RoleOperator), eventAppHandler.ListPending)
			eventApps.POST("/:id/approve", auth.RequireRole(models.RoleOperator), eventAppHandler.Approve)
			eventApps.POST("/:id/reject", auth.RequireRole(models.RoleOperator), eventAppHandler.Reject)
			eventApps.POST("/:id/cancel", eventAppHandler.Cancel)
			eventApps.POST("/:id/comments", eventAppHandler.Comment)
		}

		// 组织路由
		orgHandler := handlers.NewOrganizationHandler(services.NewOrganizationService(db))
		orgs := api.Group("/organizations")
		{
			orgs.GET("", orgHandler.List)
			orgs.GET("/:id", orgHandler.Get)
			orgs.PUT("/:id", auth.RequireLogin(), orgHandler.Update)
			orgs.GET("/:id/audit", auth.RequireLogin(), orgHandler.Audit)
			orgs.GET("/:id/operators", auth.RequireLogin(), orgHandler.ListOperators)
		}

		// 活动路由
		eventService := services.NewEventService(db, idp)
		eventHandler := handlers.NewEventHandler(eventService)
		events := api.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/:id", eventHandler.Get)
			events.POST("", auth.RequireLogin(), eventHandler.Create)
			events.POST("/:id/publish", auth.RequireLogin(), eventHandler.Publish)
			events.POST("/:id/close", auth.RequireLogin(), eventHandler.Close)
			events.GET("/:id/applications", auth.RequireLogin(),
				auth.RequireRole(models.RoleOperator), eventAppHandler.ListByEvent)
		}
		api.GET("/organizations/:id/events", eventHandler.ListByOrganization)

		// 门票路由
		ticketHandler := handlers.NewTicketHandler(services.NewTicketService(db), eventService)
		tickets := api.Group("/tickets", auth.RequireLogin())
		{
			tickets.GET("/mine", ticketHandler.ListMine)
			tickets.POST("/check-in", ticketHandler.CheckIn)
			tickets.GET("/events/:id", ticketHandler.ListByEvent)
		}
	}
}

// 健康检查
func healthCheck(c *gin.Context) {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		response.ServerError(c, "数据库连接异常")
		return
	}

	response.Success(c, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func ping(c *gin.Context) {
	response.Success(c, gin.H{"message": "pong"})
}
