// Package daemon implements the tblmgrd lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/tblmgr/pkg/api"
	"github.com/psaab/tblmgr/pkg/backend"
	_ "github.com/psaab/tblmgr/pkg/backend/memory" // registers the memory backend
	"github.com/psaab/tblmgr/pkg/catalog"
	"github.com/psaab/tblmgr/pkg/config"
	"github.com/psaab/tblmgr/pkg/dataplane"
	"github.com/psaab/tblmgr/pkg/logging"
	"github.com/psaab/tblmgr/pkg/metrics"
	"github.com/psaab/tblmgr/pkg/pipe"
	"github.com/psaab/tblmgr/pkg/table"
)

// Options configures the daemon.
type Options struct {
	ConfigFile string
	Logger     *slog.Logger
}

// Daemon is the main tblmgr daemon.
type Daemon struct {
	opts     Options
	log      *slog.Logger
	cfg      *config.Config
	be       backend.Backend
	dp       *dataplane.Manager // nil unless the eBPF backend is in use
	aging    *dataplane.Aging
	tables   *table.Manager
	registry *prometheus.Registry
	events   *logging.EventBuffer
}

// New creates a new Daemon.
func New(opts Options) *Daemon {
	if opts.ConfigFile == "" {
		opts.ConfigFile = "/etc/tblmgr/tblmgrd.toml"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Daemon{opts: opts, log: opts.Logger, events: logging.NewEventBuffer(1000)}
}

// Tables returns the table manager. It is nil before Setup.
func (d *Daemon) Tables() *table.Manager { return d.tables }

// Setup loads the configuration and the p4info, creates the backend and
// builds the tables.
func (d *Daemon) Setup() error {
	cfg, err := config.Load(d.opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, w := range cfg.Warnings {
		d.log.Warn("config", "warning", w)
	}
	d.cfg = cfg

	cat, err := catalog.LoadP4InfoText(cfg.P4Info)
	if err != nil {
		return err
	}
	idleCfg, err := cfg.IdleConfigs()
	if err != nil {
		return err
	}

	be, err := dataplane.NewBackend(cfg.Backend, cfg.DataplaneOptions())
	if err != nil {
		return fmt.Errorf("create %s backend: %w", cfg.Backend, err)
	}
	d.be = be
	if dp, ok := be.(*dataplane.Manager); ok {
		d.dp = dp
	}

	d.registry = prometheus.NewRegistry()
	rec := metrics.NewRecorder()
	if err := rec.Register(d.registry); err != nil {
		return err
	}

	d.tables, err = table.NewManager(cat, table.Options{
		Dev:          pipe.DevID(cfg.Device),
		Backend:      be,
		Idle:         idleCfg,
		MaxResources: cfg.MaxAttachments,
		Logger:       d.log,
		Recorder:     rec,
	})
	if err != nil {
		d.closeBackend()
		return err
	}

	if d.dp != nil {
		d.aging = dataplane.NewAging(d.dp, cfg.Dataplane.AgingInterval.Duration, d.expired())
		for _, t := range d.tables.Tables() {
			if t.Info().Idle && !t.IdleConfig().IsPollMode() {
				d.aging.Watch(t.Info().Handle)
			}
		}
		d.registry.MustRegister(metrics.NewCollector(d.tables, d.aging))
	} else {
		d.registry.MustRegister(metrics.NewCollector(d.tables, nil))
	}

	d.log.Info("tables ready",
		"device", cfg.Device,
		"backend", cfg.Backend,
		"tables", len(d.tables.Tables()))
	return nil
}

// expired returns the aging callback. Each notify-mode expiration is
// logged and kept in the event buffer.
func (d *Daemon) expired() dataplane.ExpiryFunc {
	names := make(map[pipe.TableHandle]string)
	for _, t := range d.tables.Tables() {
		names[t.Info().Handle] = t.Name()
	}
	return func(tbl pipe.TableHandle, h pipe.EntryHandle) {
		d.log.Info("entry idle timeout", "table", names[tbl], "entry", h)
		d.events.Add(logging.EventRecord{Type: logging.EventIdleTimeout, Table: names[tbl], Entry: h})
	}
}

// Run sets up the daemon and blocks until ctx is cancelled or a signal
// arrives.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("starting tblmgr daemon",
		"config", d.opts.ConfigFile,
		"pid", os.Getpid())

	if err := d.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var wg sync.WaitGroup
	if d.aging != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.aging.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	if d.cfg.MetricsAddr != "" {
		apiCfg := api.Config{
			Addr:     d.cfg.MetricsAddr,
			Backend:  d.cfg.Backend,
			Tables:   d.tables,
			Registry: d.registry,
			Events:   d.events,
		}
		if d.dp != nil {
			apiCfg.Ready = d.dp.IsLoaded
		}
		srv := api.NewServer(apiCfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				errCh <- fmt.Errorf("API server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		d.log.Info("signal received, shutting down")
	}

	stop()
	wg.Wait()
	d.closeBackend()
	d.log.Info("shutdown complete")
	return runErr
}

func (d *Daemon) closeBackend() {
	if d.dp != nil {
		if err := d.dp.Close(); err != nil {
			d.log.Warn("close dataplane", "err", err)
		}
	}
}
