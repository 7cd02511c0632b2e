// Package app wires the scale type registry, tech gate, entity catalog and
// dry cost coordinator behind the gRPC and HTTP listeners.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/xtding233/scale-backend/internal/api"
	"github.com/xtding233/scale-backend/internal/catalog"
	"github.com/xtding233/scale-backend/internal/configdb"
	"github.com/xtding233/scale-backend/internal/drycost"
	"github.com/xtding233/scale-backend/internal/exponent"
	"github.com/xtding233/scale-backend/internal/scale"
	"github.com/xtding233/scale-backend/internal/tech"
)

// App owns every long-lived component of the server process.
type App struct {
	cfg Config
	log *slog.Logger

	Loader   *configdb.Loader
	Registry *scale.Registry
	Gate     *tech.Gate
	Catalog  *catalog.Catalog
	DryCost  *drycost.Coordinator

	store     *catalog.Store
	ticker    *drycost.FrameTicker
	saveWatch *configdb.FileWatcher
	health    *health.Server
	grpcSrv   *grpc.Server
	httpSrv   *http.Server
	grpcLis   net.Listener
	httpLis   net.Listener

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New builds the components. Nothing is read or served until Start.
func New(cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	store, err := catalog.Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, store: store}
	a.Loader = configdb.NewLoader(cfg.ConfigDir, log)
	a.Registry = scale.NewRegistry(a.Loader, scale.Resolver{
		Log:       log,
		Exponents: exponent.Builder{Log: log},
	}, log)

	var session tech.Session
	if mode := tech.ParseMode(cfg.Mode); mode != tech.ModeNone {
		session = tech.SaveFile{Path: cfg.SavePath, GameMode: mode}
	}
	a.Gate = tech.NewGate(session, log)

	a.Catalog = catalog.New()
	a.ticker = drycost.NewFrameTicker(cfg.DryCost.TickInterval)

	svc := &api.Service{Registry: a.Registry, Gate: a.Gate, Log: log}
	a.grpcSrv, a.health = api.NewGRPCServer(svc)
	a.DryCost = drycost.New(a.Catalog, a.ticker, drycost.Options{
		WaitRounds:    cfg.DryCost.WaitRounds,
		ScaleModule:   cfg.DryCost.ScaleModule,
		CostExclusion: cfg.DryCost.CostExclusion,
		Log:           log,
		OnConcluded: func(drycost.Report) {
			api.MarkConcluded(a.health)
		},
	})
	svc.DryCost = a.DryCost
	a.httpSrv = &http.Server{Handler: api.NewRouter(svc)}
	return a, nil
}

// Start loads the scale types, binds the listeners and launches the
// catalog population and the dry cost computation in the background.
func (a *App) Start(ctx context.Context) error {
	if err := a.listen(); err != nil {
		return err
	}

	a.Registry.Load()
	a.Gate.Reload()
	if mode := tech.ParseMode(a.cfg.Mode); mode.Gated() {
		interval := a.cfg.SavePollInterval
		if interval <= 0 {
			interval = DefaultConfig().SavePollInterval
		}
		a.saveWatch = tech.WatchSave(a.Gate, tech.SaveFile{Path: a.cfg.SavePath, GameMode: mode}, interval, a.log)
	}

	a.goServe("grpc", a.grpcLis, func(l net.Listener) error { return a.grpcSrv.Serve(l) })
	a.goServe("http", a.httpLis, func(l net.Listener) error { return a.httpSrv.Serve(l) })

	go func() {
		if err := a.store.Migrate(ctx); err != nil {
			a.log.Error("catalog migrate failed", "err", err)
			return
		}
		if err := a.store.Populate(ctx, a.Catalog, a.cfg.DryCost.ScaleModule, a.log); err != nil {
			a.log.Error("catalog populate failed", "err", err)
		}
	}()
	// Shutdown stops the ticker, which lets an unfinished run drain and conclude.
	go a.DryCost.Run()
	return nil
}

func (a *App) listen() error {
	var err error
	if a.cfg.GRPCAddr != "" {
		if a.grpcLis, err = net.Listen("tcp", a.cfg.GRPCAddr); err != nil {
			return fmt.Errorf("listen grpc %s: %w", a.cfg.GRPCAddr, err)
		}
	}
	if a.cfg.HTTPAddr != "" {
		if a.httpLis, err = net.Listen("tcp", a.cfg.HTTPAddr); err != nil {
			if a.grpcLis != nil {
				a.grpcLis.Close()
			}
			return fmt.Errorf("listen http %s: %w", a.cfg.HTTPAddr, err)
		}
	}
	return nil
}

func (a *App) goServe(name string, lis net.Listener, serve func(net.Listener) error) {
	if lis == nil {
		return
	}
	a.log.Info("listening", "transport", name, "addr", lis.Addr().String())
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, net.ErrClosed) {
			a.log.Error("serve failed", "transport", name, "err", err)
		}
	}()
}

// HTTPAddr returns the bound HTTP address, or "" when HTTP is disabled.
func (a *App) HTTPAddr() string {
	if a.httpLis == nil {
		return ""
	}
	return a.httpLis.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (a *App) GRPCAddr() string {
	if a.grpcLis == nil {
		return ""
	}
	return a.grpcLis.Addr().String()
}

// Shutdown stops the listeners and the save watcher and closes the catalog
// store. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		if a.saveWatch != nil {
			a.saveWatch.Stop()
		}
		if a.httpLis != nil {
			err = a.httpSrv.Shutdown(ctx)
		}
		if a.grpcLis != nil {
			a.grpcSrv.GracefulStop()
		}
		a.wg.Wait()
		a.ticker.Stop()
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.log.Info("shutdown complete")
	})
	return err
}
