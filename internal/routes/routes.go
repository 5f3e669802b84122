package routes

import (
	"net/http"

	"github.com/dislink/connect-api/internal/authz"
	"github.com/dislink/connect-api/internal/handlers"
	"github.com/gorilla/mux"
)

type Handlers struct {
	Health        http.HandlerFunc
	Auth          *handlers.AuthHandler
	Public        *handlers.PublicHandler
	Profile       *handlers.ProfileHandler
	Codes         *handlers.CodeHandler
	Invitations   *handlers.InvitationHandler
	Connections   *handlers.ConnectionHandler
	Notifications *handlers.NotificationHandler
	Hooks         *handlers.HookHandler
}

// NewRouter sets up the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Anonymous share surface
	public := router.PathPrefix("/api/public/codes/{code}").Subrouter()
	public.HandleFunc("", h.Public.Resolve).Methods(http.MethodGet)
	public.HandleFunc("/scans", h.Public.RecordScan).Methods(http.MethodPost)
	public.HandleFunc("/invitations", h.Public.SubmitInvitation).Methods(http.MethodPost)
	public.HandleFunc("/qr.png", h.Public.QRCode).Methods(http.MethodGet)

	// Auth provider callbacks
	router.HandleFunc("/internal/hooks/user-verified", h.Hooks.UserVerified).Methods(http.MethodPost)

	// Owner endpoints
	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)
	api.Use(authz.RequireUser)

	api.HandleFunc("/profile", h.Profile.Get).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.Profile.Put).Methods(http.MethodPut)

	api.HandleFunc("/codes", h.Codes.Create).Methods(http.MethodPost)
	api.HandleFunc("/codes", h.Codes.List).Methods(http.MethodGet)

	api.HandleFunc("/invitations", h.Invitations.List).Methods(http.MethodGet)
	api.HandleFunc("/invitations/{invitationID}/reject", h.Invitations.Reject).Methods(http.MethodPost)

	api.HandleFunc("/connections", h.Connections.List).Methods(http.MethodGet)

	api.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notifications.MarkRead).Methods(http.MethodPost)

	return router
}
