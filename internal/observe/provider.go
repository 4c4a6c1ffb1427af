package observe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/config"
)

const serviceName = "go-discord-usrp"

// Module provides the meter provider, the bridge instruments and the
// Prometheus endpoint.
var Module = fx.Module("observe",
	fx.Provide(
		NewMeterProvider,
		NewMetrics,
	),
)

// MeterProviderParams holds dependencies for NewMeterProvider.
type MeterProviderParams struct {
	fx.In
	Cfg    *config.Config
	Logger *zap.Logger
	LC     fx.Lifecycle
}

// newResource describes the bridge process. The service attributes carry no
// schema URL, so they merge with whatever schema the SDK detectors report.
func newResource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithProcessRuntimeName(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics resource: %w", err)
	}

	return res, nil
}

// NewMeterProvider builds an SDK meter provider backed by a Prometheus
// exporter, registers it globally, and serves the registry on
// cfg.Metrics.ListenAddr while the application runs.
func NewMeterProvider(params MeterProviderParams) (metric.MeterProvider, error) {
	res, err := newResource(context.Background())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	var srv *http.Server
	if addr := params.Cfg.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	logger := params.Logger.Named("metrics")
	params.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if srv == nil {
				return nil
			}

			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("Serving metrics", zap.Stringer("addr", ln.Addr()))

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Metrics server stopped", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			var errs []error
			if srv != nil {
				errs = append(errs, srv.Shutdown(ctx))
			}
			errs = append(errs, mp.Shutdown(ctx))

			return errors.Join(errs...)
		},
	})

	return mp, nil
}
