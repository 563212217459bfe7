package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/snapmatch/snapmatch/internal/web/handlers"
	"github.com/snapmatch/snapmatch/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionSecret string, deps Deps) {
	captureHandler := handlers.NewCaptureHandler(deps.Matcher, deps.Images, deps.Captures)
	resultsHandler := handlers.NewResultsHandler(deps.Images)
	emailHandler := handlers.NewEmailHandler(deps.Captures, deps.UserLogs, deps.Images, deps.Dispatcher, deps.Uploader)
	galleryHandler := handlers.NewGalleryHandler(s.config.Paths.GalleryDir, deps.Downloader)
	adminHandler := handlers.NewAdminHandler(deps.Admins, deps.UserLogs, s.sessionManager,
		s.config.Paths.CredentialsFile, s.config.Paths.GalleryDir)

	// Health check (no session required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Public capture flow; every route runs inside a capture session.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.CaptureSession(sessionSecret))

		r.Post("/capture", captureHandler.Capture)
		r.Get("/status", captureHandler.Status)
		r.Post("/reset", captureHandler.Reset)

		r.Get("/results", resultsHandler.List)
		r.Get("/static/matched/{filename}", resultsHandler.ServeImage)
		r.Get("/static/matched/{filename}/thumb", resultsHandler.Thumbnail)

		r.Post("/store_email", emailHandler.StoreEmail)
		r.Post("/send_email", emailHandler.SendEmail)
	})

	// Admin surface
	s.router.Route("/admin", func(r chi.Router) {
		r.Post("/login", adminHandler.Login)
		r.Post("/logout", adminHandler.Logout)
		r.Get("/status", adminHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.sessionManager))

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Post("/upload_credentials", adminHandler.UploadCredentials)
			r.Post("/add_admin", adminHandler.AddAdmin)
			r.Get("/list_admins", adminHandler.ListAdmins)
			r.Delete("/delete_admin/{id}", adminHandler.DeleteAdmin)
			r.Put("/edit_admin/{id}", adminHandler.EditAdmin)
			r.Get("/list_user_logs", adminHandler.ListUserLogs)
		})
	})

	// Gallery management is admin-only even though the routes are top-level.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.sessionManager))

		r.Post("/download_drive_images", galleryHandler.Download)
		r.Post("/clear_gallery", galleryHandler.Clear)
	})
}
