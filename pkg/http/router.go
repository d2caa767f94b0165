package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router with path fixing and
// trailing-slash redirects enabled. Unmatched routes answer JSON to
// match the API handlers.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	r.NotFound = jsonStatusHandler(StatusNotFound)
	r.MethodNotAllowed = jsonStatusHandler(StatusMethodNotAllowed)
	return r
}

func jsonStatusHandler(status int) RequestHandler {
	body := []byte(`{"error":"` + StatusText(status) + `"}`)
	return func(ctx *RequestCtx) {
		ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
		ctx.Response.SetStatusCode(status)
		ctx.Response.SetBody(body)
	}
}
