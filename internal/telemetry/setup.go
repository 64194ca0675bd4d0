package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"google.golang.org/grpc"
)

// Options configures Setup.
type Options struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Environment string
}

// Telemetry owns the installed providers.
type Telemetry struct {
	Logger *slog.Logger

	conn      *grpc.ClientConn
	shutdowns []func(context.Context) error
}

// Setup installs the tracer, meter and logger providers when opts.Enabled is
// set. Otherwise the global providers stay no-op and Logger writes JSON to
// stdout.
func Setup(ctx context.Context, opts Options) (*Telemetry, error) {
	t := &Telemetry{}
	if !opts.Enabled {
		t.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
		return t, nil
	}

	res, err := newResource(opts.ServiceName, opts.Environment)
	if err != nil {
		return nil, err
	}
	conn, err := dial(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	t.conn = conn

	tp, err := InitTracerProvider(ctx, conn, res)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	t.shutdowns = append(t.shutdowns, tp.Shutdown)

	mp, err := InitMeterProvider(ctx, conn, res)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	t.shutdowns = append(t.shutdowns, mp.Shutdown)

	// Last, so the other providers are in place for log-trace correlation.
	lp, logger, err := InitLoggerProvider(ctx, conn, res, opts.ServiceName)
	if err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	t.shutdowns = append(t.shutdowns, lp.Shutdown)
	t.Logger = logger

	return t, nil
}

// Shutdown flushes the providers in reverse order and closes the collector
// connection.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdowns = nil
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		t.conn = nil
	}
	return errors.Join(errs...)
}
