package handlers

import (
	"net/http"

	"github.com/friendlink/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Presence: deps.Presence}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.LoginLimiter}
	friends := FriendHandler{Friends: deps.Friends, Limiter: deps.FriendRequestLimiter}
	notifications := NotificationHandler{Notifications: deps.Notifications}

	authenticated := middleware.RequireUser(deps.Identity)
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authenticated(fn))
	}

	mux.HandleFunc("/healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
	if deps.Realtime != nil {
		mux.Handle("/ws", deps.Realtime)
	}

	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)

	protect("/api/v1/friend/request/{id}", friends.SendRequest)
	protect("/api/v1/friend/accept/{id}", friends.AcceptRequest)
	protect("/api/v1/friend/declinefriend/{id}", friends.DeclineRequest)
	protect("/api/v1/friend/cancel/{id}", friends.CancelRequest)
	protect("/api/v1/friend/remove/{id}", friends.RemoveFriend)
	protect("/api/v1/friend/status/{id}", friends.Status)
	protect("/api/v1/friend/getallfriends", friends.ListFriends)
	protect("/api/v1/friend/addfriendLists", friends.ListCandidates)
	protect("/api/v1/friend/getfriendrequests", friends.ListRequests)

	protect("/api/v1/notifications/getall", notifications.List)
	protect("/api/v1/notifications/markasread/{id}", notifications.MarkRead)
	protect("/api/v1/notifications/markallasread", notifications.MarkAllRead)
	protect("/api/v1/notifications/unreadcount", notifications.UnreadCount)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users                UserStore
	Sessions             SessionManager
	Identity             middleware.Identifier
	Friends              FriendService
	Notifications        NotificationService
	Presence             PresenceCounter
	Realtime             http.Handler
	Metrics              http.Handler
	LoginLimiter         RateLimiter
	FriendRequestLimiter RateLimiter
}
