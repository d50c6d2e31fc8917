package routes

import (
	"fmt"
	"net/http"

	"postfeed/auth"
	"postfeed/feed"
	"postfeed/middleware"
	"postfeed/ratelim"
	"postfeed/socket"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router, imageDir string) {
	router.ServeFiles("/images/*filepath", http.Dir(imageDir))
}

func AddFeedRoutes(router *httprouter.Router, h *feed.Handler, v middleware.Verifier) {
	authed := middleware.Authenticate(v)
	router.GET("/feed/posts", authed(h.GetPosts))
	router.POST("/feed/post", authed(h.CreatePost))
	router.GET("/feed/post/:postId", authed(h.GetPost))
	router.PUT("/feed/post/:postId", authed(h.UpdatePost))
	router.DELETE("/feed/post/:postId", authed(h.DeletePost))
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, v middleware.Verifier, rateLimiter *ratelim.RateLimiter) {
	authed := middleware.Authenticate(v)
	router.PUT("/auth/signup", rateLimiter.Limit(h.Signup))
	router.POST("/auth/login", rateLimiter.Limit(h.Login))
	router.GET("/auth/status", authed(h.GetStatus))
	router.PUT("/auth/status", authed(h.UpdateStatus))
}

func AddSocketRoutes(router *httprouter.Router, hub *socket.Hub, v middleware.Verifier) {
	router.GET("/socket", middleware.OptionalAuth(v)(hub.ServeWS()))
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}
