package server

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/web"
)

// Options configures the web application router.
type Options struct {
	API            APIOpts
	OAuth          services.OAuthService // Enables /auth/deezer and /callback when set
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// NewRouter mounts the page, the JSON API and the optional OAuth flow behind the standard middleware.
func NewRouter(opts Options) (*BasicRouter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.API.Logger == nil {
		opts.API.Logger = logger
	}

	r := NewBasicRouter()
	r.Use(
		Logging(shared.WithLogger(logger, "component", "http")),
		Recover(logger),
		LimitBody(opts.MaxBodyBytes),
		Timeout(opts.RequestTimeout),
	)

	assets, err := web.New()
	if err != nil {
		return nil, err
	}
	r.Handler(assets)
	r.Handler(NewAPIHandler(opts.API))

	if opts.OAuth != nil {
		r.Handler(NewOAuthHandler(opts.OAuth))
	}
	return r, nil
}
