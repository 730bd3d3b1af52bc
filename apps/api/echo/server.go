package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger     core.Logger
		UserSvc    user.Service
		ChatSvc    chat.Service
		StudySvc   study.Service
		ContentSvc content.Service
		PaymentSvc payment.Service
		Limiter    ratesvc.Limiter
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts.UserSvc, s.opts.ChatSvc)
	registerChatAPI(v1, jwt, s.opts.ChatSvc, s.opts.Limiter)
	registerStudyAPI(v1, jwt, s.opts.StudySvc, s.opts.UserSvc, s.opts.Limiter)
	registerContentAPI(v1, jwt, s.opts.ContentSvc, s.opts.UserSvc, s.opts.Limiter)
	registerInsightAPI(v1, jwt, s.opts.StudySvc, s.opts.ChatSvc)
	registerPaymentAPI(v1, jwt, s.opts.PaymentSvc, s.opts.UserSvc)
}

func (s *server) Start() {
	go func() {
		s.errs <- s.app.Start(s.opts.Address)
	}()
}

func (s *server) Errors() <-chan error               { return s.errs }
func (s *server) ShutdownSignal() <-chan os.Signal   { return s.shutdown }
func (s *server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }
func (s *server) Close() error                       { return s.app.Close() }

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the BrainyPal API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "healthy", "build": core.Conf.Build})
}
