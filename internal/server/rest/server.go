package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/gate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the API. metrics may be nil; gatherer backs /metrics.
func NewRouter(h *Handler, g *gate.Gate, metrics *Metrics, gatherer prometheus.Gatherer, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(log.With("module", "http")), Recovery(log), metrics.Handler())

	r.GET("/healthz", h.Healthz)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	test := r.Group("/test")
	test.GET("/ping", h.Ping)
	test.GET("/authorizedPing", g.Middleware(), h.AuthorizedPing)
	test.GET("/testLogin", h.TestLogin)

	user := r.Group("/user")
	user.POST("/register", h.Register)
	user.POST("/login", h.Login)

	protected := user.Group("", g.Middleware())
	protected.GET("/verifyUserSession", h.VerifyUserSession)
	protected.GET("/getCustomer", h.GetCustomer)
	protected.GET("/getCustomerOrders", h.GetCustomerOrders)
	protected.GET("/getNewOrder", h.GetNewOrder)
	protected.GET("/getOrder", h.GetOrder)
	protected.POST("/saveOrUpdateOrder", h.SaveOrUpdateOrder)
	protected.DELETE("/deleteOrder", h.DeleteOrder)
	protected.POST("/saveOrUpdateAddress", h.SaveOrUpdateAddress)
	protected.POST("/logout", h.Logout)

	return r
}

// Server runs the router until its context is cancelled.
type Server struct {
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          logging.Logger
}

func NewServer(address string, handler http.Handler, shutdownTimeout time.Duration, l logging.Logger) *Server {
	return &Server{
		address:         address,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
		logger:          l.With("module", "http_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen and shuts down gracefully once ctx is
// done, waiting at most shutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
