package routes

import (
	"postfeed/auth"
	"postfeed/feed"
	"postfeed/middleware"
	"postfeed/ratelim"
	"postfeed/socket"

	"github.com/julienschmidt/httprouter"
)

// Deps is everything the route groups hang off.
type Deps struct {
	Feed      *feed.Handler
	Auth      *auth.Handler
	Hub       *socket.Hub
	Tokens    middleware.Verifier
	ImageDir  string
	RateLimit *ratelim.RateLimiter
}

func RoutesWrapper(router *httprouter.Router, d Deps) {
	router.GET("/health", Index)
	AddAuthRoutes(router, d.Auth, d.Tokens, d.RateLimit)
	AddFeedRoutes(router, d.Feed, d.Tokens)
	AddSocketRoutes(router, d.Hub, d.Tokens)
	AddStaticRoutes(router, d.ImageDir)
}
