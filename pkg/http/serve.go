// Package xhttp wraps fasthttp with the middleware chain, router defaults
// and server tuning shared by every HTTP-facing binary in this repo.
package xhttp

import (
	"crypto/tls"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

// Baseline tuning. Deployments can nudge these through the environment
// before any server is built:
//
//	XHTTP_SERVER_READ_TIMEOUT_MS
//	XHTTP_SERVER_WRITE_TIMEOUT_MS
//	XHTTP_SERVER_REQUEST_TIMEOUT_MS
//	XHTTP_SERVER_READ_BUFFER_BYTE
//	XHTTP_SERVER_WRITE_BUFFER_BYTE
var (
	defaultReadBufferSize  = 1024 * 4
	defaultWriteBufferSize = 1024 * 4
	defaultReadTimeout     = 2500 * time.Millisecond
	defaultWriteTimeout    = 2500 * time.Millisecond
	defaultRequestTimeout  = 5000 * time.Millisecond
)

func init() {
	overrideMillis("XHTTP_SERVER_READ_TIMEOUT_MS", &defaultReadTimeout)
	overrideMillis("XHTTP_SERVER_WRITE_TIMEOUT_MS", &defaultWriteTimeout)
	overrideMillis("XHTTP_SERVER_REQUEST_TIMEOUT_MS", &defaultRequestTimeout)
	overrideBytes("XHTTP_SERVER_READ_BUFFER_BYTE", &defaultReadBufferSize)
	overrideBytes("XHTTP_SERVER_WRITE_BUFFER_BYTE", &defaultWriteBufferSize)
}

func overrideMillis(name string, target *time.Duration) {
	if v, ok := envInt(name); ok && v > 0 {
		*target = time.Duration(v) * time.Millisecond
	}
}

// overrideBytes ignores values below 1KiB; fasthttp needs room for the
// request line and headers in the read buffer.
func overrideBytes(name string, target *int) {
	if v, ok := envInt(name); ok && v > 1024 {
		*target = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

type Server = fasthttp.Server

// ServerOption carries the knobs a binary plausibly varies. Tuning that
// must stay uniform across every listener is fixed inside NewServer.
type ServerOption struct {
	Handler RequestHandler

	// Idle connections held open too long exhaust file descriptors, so
	// both get bounded.
	IdleTimeout           time.Duration
	MaxIdleWorkerDuration time.Duration
	TCPKeepalivePeriod    time.Duration

	// MaxRequestBodySize bounds uploads. Submit payloads are small JSON
	// bodies, so 1MB leaves generous headroom.
	MaxRequestBodySize int

	// RequestTimeout is enforced by TimeoutMiddleware, not by fasthttp;
	// callers pass it to Use themselves.
	RequestTimeout time.Duration

	ReadBufferSize  int
	WriteBufferSize int

	// ReadTimeout covers the whole request including body; WriteTimeout
	// covers the response write.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Concurrency is the max concurrent connections served.
	Concurrency int

	MaxConnsPerIP int

	Name             string
	CompressionLevel int
	Logger           logger.Logger
	TLSConfig        *tls.Config
}

var DefaultServerOption = ServerOption{
	Handler: func(ctx *RequestCtx) {
		ctx.Error(StatusText(StatusNotFound), StatusNotFound)
	},
	IdleTimeout:           10 * time.Second,
	MaxIdleWorkerDuration: time.Minute,
	TCPKeepalivePeriod:    120 * time.Minute,
	MaxRequestBodySize:    1 * 1024 * 1024,
	RequestTimeout:        defaultRequestTimeout,
	ReadBufferSize:        defaultReadBufferSize, // also caps header size
	WriteBufferSize:       defaultWriteBufferSize,
	ReadTimeout:           defaultReadTimeout,
	WriteTimeout:          defaultWriteTimeout,
	Concurrency:           30_000,
	// the fasthttp default of 0 means unlimited conns per IP; cap it well
	// below the linux open-file ceiling
	MaxConnsPerIP:    10_000,
	Logger:           logger.GetLogger(),
	CompressionLevel: fasthttp.CompressBestSpeed,
}

// Engine couples a fasthttp server with a router and a middleware chain.
// Routes and middleware are collected up front; the final handler is
// assembled when a Listen method runs.
type Engine struct {
	*Router
	*Server
	chain []MiddlewareFunc
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: &fasthttp.Server{
			Handler:               options.Handler,
			Name:                  options.Name,
			Concurrency:           options.Concurrency,
			ReadBufferSize:        options.ReadBufferSize,
			WriteBufferSize:       options.WriteBufferSize,
			ReadTimeout:           options.ReadTimeout,
			WriteTimeout:          options.WriteTimeout,
			IdleTimeout:           options.IdleTimeout,
			MaxConnsPerIP:         options.MaxConnsPerIP,
			MaxIdleWorkerDuration: options.MaxIdleWorkerDuration,
			TCPKeepalivePeriod:    options.TCPKeepalivePeriod,
			MaxRequestBodySize:    options.MaxRequestBodySize,
			Logger:                options.Logger,
			TLSConfig:             options.TLSConfig,

			// Uniform listener behavior: no server identity headers,
			// multipart parsing left to handlers, connections closed
			// eagerly on shutdown.
			NoDefaultServerHeader:        true,
			NoDefaultDate:                true,
			NoDefaultContentType:         true,
			CloseOnShutdown:              true,
			DisablePreParseMultipartForm: true,
			LogAllErrors:                 true,
			TCPKeepalive:                 true,
			// Brief backoff before refusing connections over the limit.
			SleepWhenConcurrencyLimitsExceeded: 100 * time.Millisecond,
			ErrorHandler: func(ctx *RequestCtx, err error) {
				ctx.Logger().Printf("[xhttp] error: %s", err)
			},
		},
		Router: NewRouter(),
	}
}

// CreateServer is the default-tuned variant used by auxiliary listeners.
func CreateServer() *Engine {
	s := NewServer(DefaultServerOption)
	s.Router = CreateDefaultRouter()
	return s
}

// Use appends middleware applied to every request. The first Use runs
// outermost.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.chain = append(e.chain, middleware)
}

func (e *Engine) ListenAndServe(addr string) error {
	e.install()
	e.Server.Logger.Printf("[xhttp] server is listening on %s", addr)
	return e.Server.ListenAndServe(addr)
}

// install makes the router the server handler and wraps it with the
// middleware chain, innermost last.
func (e *Engine) install() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			e.Server.Logger.Printf("[xhttp] route %s %s", method, r)
		}
	}

	e.Server.Handler = e.Router.Handler
	slices.Reverse(e.chain)
	for _, m := range e.chain {
		e.Server.Handler = m(e.Server.Handler)
	}
}

// Shutdown drains active connections and stops the server.
func (e *Engine) Shutdown() {
	e.Server.Logger.Printf("[xhttp] server is shutting down, pid %d", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		e.Server.Logger.Printf("[xhttp] error while shutting down: %v", err)
	}
}
