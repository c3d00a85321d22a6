package routes

import (
	"github.com/gin-gonic/gin"

	"secureshare/controllers"
	"secureshare/middleware"
)

// FileRoutes registers the file API. The limiter, when set, runs after
// authentication so callers with a principal are limited per user.
func FileRoutes(r *gin.RouterGroup, fileController *controllers.FileController, tokens middleware.TokenValidator, limiter *middleware.RateLimiter) {
	files := r.Group("/files")

	// Authenticated operations
	authed := files.Group("")
	authed.Use(middleware.AuthMiddleware(tokens))
	if limiter != nil {
		authed.Use(limiter.Middleware())
	}
	{
		authed.POST("/upload", fileController.Upload)
		authed.GET("/my-files", fileController.GetMyFiles)
		authed.DELETE("/delete/:id", fileController.DeleteFile)
		authed.POST("/cleanup", middleware.RequireAdmin(), fileController.Cleanup)
	}

	// Capability access; a token only adds owner visibility on info
	public := files.Group("")
	public.Use(middleware.OptionalAuthMiddleware(tokens))
	if limiter != nil {
		public.Use(limiter.Middleware())
	}
	{
		public.GET("/download/:id", fileController.Download)
		public.POST("/download/:id", fileController.Download)
		public.GET("/info/:id", fileController.GetFileInfo)

		public.GET("/share/:token", fileController.GetSharedFileInfo)
		public.GET("/share/:token/download", fileController.SharedDownload)
		public.POST("/share/:token/download", fileController.SharedDownload)
	}
}
