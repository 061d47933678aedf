package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/core/client"
	hoodebug "github.com/hoo-game/hoo-server/internal/core/debug"
	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/dispatch"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
)

// frontend implements the concurrent client connection logic.
//
// Envelopes are read from any connected clients and dispatched to the Backend of
// their protocol class, abstracting the lower level connection details away from
// the Backends.
type frontend struct {
	Address  string
	Backends []Backend
	Config   *core.Config
	Logger   *logrus.Logger
	Sessions *session.Manager
	Metrics  *metrics.Metrics

	dispatcher *dispatch.Dispatcher
	workers    *ants.Pool
	socket     *net.TCPListener
}

// Start initializes the Backends and opens a TCP socket for the server. A blocking
// loop for accepting client connections is spun off in its own goroutine and added
// to the WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	var tables []*dispatch.Table
	for _, backend := range f.Backends {
		if err := backend.Init(ctx); err != nil {
			return fmt.Errorf("error initializing %s server: %w", backend.Identifier(), err)
		}
		table := dispatch.NewTable(backend.Class())
		if err := backend.Register(table); err != nil {
			return fmt.Errorf("error registering %s handlers: %w", backend.Identifier(), err)
		}
		tables = append(tables, table)
	}
	f.dispatcher = dispatch.NewDispatcher(f.Metrics, tables...)

	workers, err := ants.NewPool(f.Sessions.Capacity(), ants.WithLogger(f.Logger))
	if err != nil {
		return fmt.Errorf("error creating connection workers: %w", err)
	}
	f.workers = workers

	socket, err := f.createSocket()
	if err != nil {
		workers.Release()
		return fmt.Errorf("error creating socket on %s: %w", f.Address, err)
	}
	f.socket = socket

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// Addr is the address the frontend is listening on once started.
func (f *frontend) Addr() net.Addr {
	return f.socket.Addr()
}

// createSocket opens a TCP socket to listen for client connections on the Address
// provided to the frontend.
func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %w", err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %w", err)
	}

	return socket, nil
}

// startBlockingLoop accepts new connections until the context is cancelled, then
// disconnects every session and waits for their connections to close.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Infof("waiting for connections on %v", socket.Addr())

	go func() {
		<-ctx.Done()
		_ = socket.Close()
	}()

	clientWg := &sync.WaitGroup{}
	for {
		connection, err := socket.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			f.Logger.Warnf("failed to accept connection: %s", err.Error())
			continue
		}
		f.acceptClient(ctx, connection, clientWg)
	}

	f.Logger.Infof("shutting down (waiting for connections to close)")
	f.Sessions.DisconnectAll(packets.ReasonServerShutdown)
	clientWg.Wait()
	f.workers.Release()
	f.Logger.Infof("exited")
}

// acceptClient assigns a session to the connection and hands it to a worker,
// or turns the client away when every session is in use.
func (f *frontend) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	c := client.NewClient(connection)

	s, ok := f.Sessions.Open(c)
	if !ok {
		f.Logger.Warnf("rejected connection from %s: server full", c.RemoteAddr())
		f.rejectClient(c, packets.ReasonServerFull)
		return
	}
	c.SessionID = s.ID()
	c.DebugTags["session"] = s.ID()
	c.Log(f.Logger).Infof("accepted connection")

	wg.Add(1)
	err := f.workers.Submit(func() {
		defer wg.Done()
		f.processPackets(ctx, c, s)
	})
	if err != nil {
		wg.Done()
		f.Logger.Errorf("error scheduling session %d: %v", s.ID(), err)
		f.Sessions.Disconnect(s.ID(), packets.ReasonInternalError)
		f.Sessions.Release(s)
	}
}

func (f *frontend) rejectClient(c *client.Client, reason packets.DisconnectReason) {
	env, err := packets.Encode(c.SessionID, &packets.Disconnect{Reason: reason})
	if err == nil {
		err = c.Send(env)
	}
	if err != nil {
		f.Logger.Debugf("error rejecting %s: %v", c.RemoteAddr(), err)
	}
	_ = c.Close()
}

// processPackets starts a blocking loop dedicated to reading envelopes sent from
// a client and only returns once the connection has closed.
func (f *frontend) processPackets(ctx context.Context, c *client.Client, s *session.Session) {
	reason := packets.ReasonClientClosed
	defer f.closeConnectionAndRecover(c, s, &reason)

	for {
		env, err := c.ReadEnvelope()
		if err != nil {
			if errors.Is(err, packets.ErrMalformed) {
				c.Log(f.Logger).Warn(err)
				reason = packets.ReasonInvalidMessage
			}
			return
		}

		if f.Config.Debugging.PacketLoggingEnabled {
			hoodebug.LogMessage(f.Logger, "recv", s.ID(), env)
		}

		err = f.Sessions.CheckClass(s.ID(), env.Class)
		if err == nil {
			err = f.dispatcher.Dispatch(ctx, env)
		}
		if err != nil {
			if v, ok := session.AsViolation(err); ok {
				c.Log(f.Logger).Warn(v.Error())
				reason = v.Reason
			} else {
				c.Log(f.Logger).Errorf("error handling %s message %#04x: %v", env.Class, env.Type, err)
				reason = packets.ReasonInternalError
			}
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics, disconnects the
// session and frees it regardless of the state of the connection.
func (f *frontend) closeConnectionAndRecover(c *client.Client, s *session.Session, reason *packets.DisconnectReason) {
	if err := recover(); err != nil {
		c.Log(f.Logger).Errorf("error in client communication: error=%s, trace: %s", err, debug.Stack())
		*reason = packets.ReasonInternalError
	}

	f.Sessions.Disconnect(s.ID(), *reason)
	f.Sessions.Release(s)

	c.Log(f.Logger).Infof("disconnected client")
}
