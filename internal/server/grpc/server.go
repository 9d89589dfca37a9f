package internalgrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/importer"
	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/go-playground/validator/v10"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Application interface {
	GetLogger() app.Logger

	CreateBanner(ctx context.Context, banner storage.Banner, confirm layout.Confirmer) (string, error)
	GetBanner(ctx context.Context, id string) (storage.Banner, error)
	ListBanners(ctx context.Context) ([]storage.Banner, error)
	UpdateBanner(ctx context.Context, banner storage.Banner, confirm layout.Confirmer) error

	CreateCoupon(ctx context.Context, coupon storage.Coupon, confirm layout.Confirmer) (string, error)
	GetCoupon(ctx context.Context, id string) (storage.Coupon, error)
	ListCoupons(ctx context.Context) ([]storage.Coupon, error)
	UpdateCoupon(ctx context.Context, coupon storage.Coupon, confirm layout.Confirmer) error

	CreateStore(ctx context.Context, store storage.Store, confirm layout.Confirmer) (string, error)
	GetStore(ctx context.Context, id string) (storage.Store, error)
	ListStores(ctx context.Context) ([]storage.Store, error)
	UpdateStore(ctx context.Context, store storage.Store, confirm layout.Confirmer) error

	AssignSlot(ctx context.Context, contextKey, id string, position *int, confirm layout.Confirmer) (layout.Result, error)
	SetSlotFlag(ctx context.Context, contextKey, id string, on bool) error
	SlotBoard(ctx context.Context, contextKey string) ([]layout.Occupant, error)
	SlotContext(contextKey string) (layout.Context, error)

	PreviewCoupons(ctx context.Context, filename string, data []byte) (app.Preview[storage.Coupon], error)
	PreviewStores(filename string, data []byte) (app.Preview[storage.Store], error)
	ImportCoupons(ctx context.Context, filename string, data []byte) (app.ImportReport, error)
	ImportStores(ctx context.Context, filename string, data []byte) (app.ImportReport, error)
	ImportColumns(entity string) ([]importer.Column, error)
	ImportTemplate(entity string) (string, error)
}

type Server struct {
	app      Application
	logger   app.Logger
	host     string
	port     string
	grpcPort string

	mux      *runtime.ServeMux
	handler  http.Handler
	http     *http.Server
	grpc     *grpc.Server
	health   *health.Server
	validate *validator.Validate
	metrics  *metrics
}

func NewServer(application Application, host string, port string, grpcPort string) (*Server, error) {
	logg := application.GetLogger()

	s := &Server{
		app:      application,
		logger:   logg,
		host:     host,
		port:     port,
		grpcPort: grpcPort,
		mux:      runtime.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  newMetrics(),
		health:   health.NewServer(),
	}

	if err := s.registerRoutes(); err != nil {
		return nil, fmt.Errorf("cannot register routes, %w", err)
	}

	s.handler = s.loggingMiddleware(s.mux)

	s.grpc = grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_ctxtags.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(logg.GetInstance()),
			grpc_recovery.UnaryServerInterceptor(),
		)),
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_ctxtags.StreamServerInterceptor(),
			grpc_zap.StreamServerInterceptor(logg.GetInstance()),
			grpc_recovery.StreamServerInterceptor(),
		)),
	)

	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.http = &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the HTTP routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", net.JoinHostPort(s.host, s.grpcPort))
	if err != nil {
		return fmt.Errorf("cannot listen grpc port %s, %w", s.grpcPort, err)
	}

	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpc.Serve(lis); err != nil {
			s.logger.Error("grpc server stopped", "error", err.Error())
		}
	}()

	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logger.Info("servers are listening", "http", s.http.Addr, "grpc", lis.Addr().String())

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot serve http, %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	err := s.http.Shutdown(ctx)

	stopped := make(chan struct{})

	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
	}

	return err
}
