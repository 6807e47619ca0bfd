package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/nikahsufiyana/nikah-backend/internal/handlers"
)

func SetupRoutes(r chi.Router) {
	// Member auth
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Get("/api/auth/me", handlers.GetMe)
	r.Post("/api/auth/signout", handlers.Signout)

	// Privacy settings
	r.Get("/api/privacy", handlers.GetPrivacy)
	r.Put("/api/privacy", handlers.UpdatePrivacy)

	// Photos and access checks
	r.Post("/api/photos/{category}", handlers.UploadPhoto)
	r.Get("/api/photos/{ownerID}/{category}", handlers.GetPhotos)
	r.Get("/api/access/{ownerID}/{category}", handlers.CheckAccess)

	// Interest lifecycle
	r.Post("/api/interests", handlers.SendInterest)
	r.Get("/api/interests", handlers.ListInterests)
	r.Get("/api/interests/{id}", handlers.GetInterest)
	r.Post("/api/interests/{id}/accept", handlers.AcceptInterest)
	r.Post("/api/interests/{id}/decline", handlers.DeclineInterest)
	r.Get("/api/connections/{userID}", handlers.GetConnection)

	// Photo access grants
	r.Get("/api/grants", handlers.ListGrants)
	r.Get("/api/grants/{id}", handlers.GetGrant)
	r.Post("/api/grants/{id}/revoke", handlers.RevokeGrant)

	// Blocks
	r.Get("/api/blocks", handlers.ListBlocks)
	r.Post("/api/blocks", handlers.BlockUser)
	r.Delete("/api/blocks/{userID}", handlers.UnblockUser)

	// Notifications (MongoDB history + Redis Pub/Sub)
	r.Get("/api/notifications", handlers.ListNotifications)
	r.Post("/api/notifications/{id}/read", handlers.MarkNotificationRead)
	r.Get("/ws/notifications", handlers.NotificationsWebSocket)

	// Admin (accounts are created directly in the database)
	r.Post("/api/admin/signin", handlers.AdminSignin)
	r.Get("/api/admin/users", handlers.GetUsers)
	r.Put("/api/admin/users/premium", handlers.SetPremium)
	r.Put("/api/admin/users/verified", handlers.SetVerified)
	r.Delete("/api/admin/blocks", handlers.AdminUnblock)
}
