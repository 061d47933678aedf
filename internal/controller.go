package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/admin"
	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
	"github.com/hoo-game/hoo-server/internal/core/debug"
	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/game"
	"github.com/hoo-game/hoo-server/internal/quickmatch"
	"github.com/hoo-game/hoo-server/internal/session"
	"github.com/hoo-game/hoo-server/internal/updater"
	"github.com/hoo-game/hoo-server/internal/user"
)

// Controller is the main entrypoint for the server. It's responsible for initializing
// any shared resources (such as the account store and logging), composing the
// session layer and the protocol backends, and launching everything.
type Controller struct {
	Config *core.Config
	// Logger is built from Config when nil.
	Logger *logrus.Logger

	wg    sync.WaitGroup
	ready chan struct{}
	once  sync.Once

	store      *auth.Store
	metrics    *metrics.Metrics
	sessions   *session.Manager
	pool       *game.Pool
	quickMatch *quickmatch.QuickMatch
	frontend   *frontend

	httpServers []*http.Server
}

// Run starts every component and blocks until ctx is cancelled or an admin
// requests a shutdown. An error is returned only when the server failed to start.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.start(ctx, cancel); err != nil {
		cancel()
		c.shutdown()
		return err
	}
	close(c.readyChan())

	<-ctx.Done()
	c.Logger.Infof("shutting down")
	c.shutdown()
	return nil
}

// Ready is closed once the server accepts connections.
func (c *Controller) Ready() <-chan struct{} {
	return c.readyChan()
}

func (c *Controller) readyChan() chan struct{} {
	c.once.Do(func() { c.ready = make(chan struct{}) })
	return c.ready
}

// Addr is the address clients connect to. It is only valid once Ready is closed.
func (c *Controller) Addr() net.Addr {
	return c.frontend.Addr()
}

func (c *Controller) start(ctx context.Context, cancel context.CancelFunc) error {
	var err error
	// Set up the logger, which will be used by all components.
	if c.Logger == nil {
		if c.Logger, err = core.NewLogger(c.Config); err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}
	}

	dialector, err := data.Dialector(c.Config)
	if err != nil {
		return err
	}
	c.store = auth.NewStore(dialector, c.Config.Debugging.DatabaseLoggingEnabled)
	if err := c.store.Connect(ctx); err != nil {
		return fmt.Errorf("error connecting to the account store: %w", err)
	}

	c.metrics = metrics.New(c.stats)
	c.sessions = session.NewManager(c.Config.MaxConnections, c.Config.ProtocolVersion, c.store, c.Logger, c.metrics)
	c.pool = game.NewPool(c.Config.MaxConnections)
	library := &game.StandardLibrary{
		Characters:    c.Config.QuickMatch.Characters,
		MatchDuration: c.Config.QuickMatch.MatchDuration,
	}
	if err := c.pool.InitGames(library, c.sessions); err != nil {
		return err
	}
	c.quickMatch = quickmatch.New(c.sessions, c.pool, library, c.Logger, c.metrics)

	c.frontend = &frontend{
		Address:  c.Config.ListenAddress(),
		Config:   c.Config,
		Logger:   c.Logger,
		Sessions: c.sessions,
		Metrics:  c.metrics,
		Backends: []Backend{
			&user.Server{
				Name:       "USER",
				Config:     c.Config,
				Logger:     c.Logger,
				Sessions:   c.sessions,
				Store:      c.store,
				Library:    library,
				QuickMatch: c.quickMatch,
			},
			&admin.Server{
				Name:     "ADMIN",
				Config:   c.Config,
				Logger:   c.Logger,
				Sessions: c.sessions,
				Store:    c.store,
				Stats:    c.stats,
				Shutdown: cancel,
			},
			&updater.Server{
				Name:     "UPDATER",
				Config:   c.Config,
				Logger:   c.Logger,
				Sessions: c.sessions,
			},
		},
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.PprofEnabled {
		c.httpServers = append(c.httpServers, debug.StartPprofServer(c.Logger, c.Config.Debugging.PprofPort))
	}
	if c.Config.Web.HTTPPort != 0 {
		c.httpServers = append(c.httpServers, c.startMetricsServer())
	}

	// Failure to bind the listener is considered terminal.
	return c.frontend.Start(ctx, &c.wg)
}

func (c *Controller) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.Config.Hostname, c.Config.Web.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	c.Logger.Infof("serving metrics on %s/metrics", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger.Errorf("error serving metrics: %v", err)
		}
	}()
	return server
}

func (c *Controller) stats() metrics.Stats {
	sessions := c.sessions.Stats()
	return metrics.Stats{
		Capacity:    c.sessions.Capacity(),
		Connected:   sessions.Open,
		LoggedIn:    sessions.LoggedIn,
		ActiveGames: c.pool.ActiveCount(),
		Waiting:     c.quickMatch.Waiting(),
	}
}

// shutdown waits for the frontend to disconnect every session before closing
// the resources the sessions depend on.
func (c *Controller) shutdown() {
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, server := range c.httpServers {
		if err := server.Shutdown(ctx); err != nil && c.Logger != nil {
			c.Logger.Warnf("error stopping http server %s: %v", server.Addr, err)
		}
	}

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.Logger.Errorf("error closing the account store: %v", err)
		}
	}
}
