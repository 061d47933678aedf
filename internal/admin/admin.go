// Package admin implements the admin protocol used by operator tools to
// inspect the server and moderate accounts.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/dispatch"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
)

// Server handles the requests of admin tools. Every request except connecting
// and logging in requires a session logged in with an administrator account.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger

	Sessions *session.Manager
	Store    auth.AccountStore
	// Stats reports the current occupancy of the server.
	Stats func() metrics.Stats
	// Shutdown is called once a SHUTDOWN_SERVER request has been answered.
	Shutdown func()

	started time.Time
	now     func() time.Time
}

func (s *Server) Identifier() string { return s.Name }

func (s *Server) Class() packets.ProtocolClass { return packets.ClassAdmin }

func (s *Server) Init(_ context.Context) error {
	if s.Sessions == nil || s.Store == nil || s.Stats == nil {
		return errors.New("admin server requires sessions, store and stats")
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()
	return nil
}

func (s *Server) Register(t *dispatch.Table) error {
	return t.RegisterAll(map[uint16]dispatch.HandlerFunc{
		packets.AdminConnectType:       s.handleConnect,
		packets.AdminLoginType:         s.handleLogin,
		packets.ServerStatsType:        s.handleServerStats,
		packets.BanUsersType:           s.handleBanUsers,
		packets.LockAccountsType:       s.handleLockAccounts,
		packets.GetLoginsType:          s.handleGetLogins,
		packets.SetActivationCodesType: s.handleSetActivationCodes,
		packets.ShutdownServerType:     s.handleShutdown,
		packets.SetItemsType:           s.handleSetItems,
	})
}

func (s *Server) handleConnect(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.AdminConnect
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, err := s.Sessions.Connect(id, packets.ClassAdmin, msg.Version)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.AdminConnectAnswer{
		Result:        result,
		ServerVersion: s.Config.ProtocolVersion,
	})
}

func (s *Server) handleLogin(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.AdminLogin
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, _, err := s.Sessions.AdminLogin(ctx, id, msg.Login, msg.Password)
	if err != nil {
		return err
	}
	if result == packets.LoginNotAdmin {
		s.Logger.Warnf("session %d: %s is not an administrator", id, msg.Login)
	}
	return s.Sessions.SendAnswer(id, &packets.AdminLoginAnswer{Result: result})
}

func (s *Server) handleServerStats(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.ServerStats{}); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "server stats"); err != nil {
		return err
	}
	stats := s.Stats()
	return s.Sessions.SendAnswer(id, &packets.ServerStatsAnswer{
		Capacity:      uint32(stats.Capacity),
		Connected:     uint32(stats.Connected),
		LoggedIn:      uint32(stats.LoggedIn),
		ActiveGames:   uint32(stats.ActiveGames),
		Waiting:       uint32(stats.Waiting),
		UptimeSeconds: uint64(s.now().Sub(s.started) / time.Second),
	})
}

// batch applies op to every distinct login and reports which ones succeeded.
func (s *Server) batch(op string, logins []string, apply func(login string) error) packets.BatchAnswer {
	var answer packets.BatchAnswer
	for _, login := range lo.Uniq(logins) {
		if err := apply(login); err != nil {
			s.Logger.Warnf("%s %s: %v", op, login, err)
			answer.Failed = append(answer.Failed, login)
			continue
		}
		answer.Updated = append(answer.Updated, login)
	}
	return answer
}

// handleBanUsers bans the requested accounts and drops their open sessions.
func (s *Server) handleBanUsers(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.BanUsers
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "ban users"); err != nil {
		return err
	}

	answer := s.batch("ban", msg.Logins, func(login string) error {
		return s.Store.BanUser(ctx, login, int(msg.Days))
	})
	s.Logger.Infof("session %d: banned %v for %d days", id, answer.Updated, msg.Days)
	if err := s.Sessions.SendAnswer(id, &packets.BanUsersAnswer{BatchAnswer: answer}); err != nil {
		return err
	}

	if msg.Days == auth.LiftBan {
		return nil
	}
	banned := lo.FlatMap(answer.Updated, func(login string, _ int) []int {
		return s.Sessions.FindByLogin(login)
	})
	for _, sessionID := range banned {
		s.Sessions.Disconnect(sessionID, packets.ReasonAccountBanned)
	}
	return nil
}

func (s *Server) handleLockAccounts(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.LockAccounts
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "lock accounts"); err != nil {
		return err
	}

	op, apply := "unlock", s.Store.UnlockAccount
	if msg.Lock {
		op, apply = "lock", s.Store.LockAccount
	}
	answer := s.batch(op, msg.Logins, func(login string) error {
		return apply(ctx, login)
	})
	return s.Sessions.SendAnswer(id, &packets.LockAccountsAnswer{BatchAnswer: answer})
}

func (s *Server) handleGetLogins(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.GetLogins
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "get logins"); err != nil {
		return err
	}
	logins, err := s.Store.GetLogins(ctx, msg.Mail)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.GetLoginsAnswer{Logins: logins})
}

func (s *Server) handleSetActivationCodes(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.SetActivationCodes
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "set activation codes"); err != nil {
		return err
	}

	err := s.Store.SetActivationCode(ctx, msg.Logins, msg.Codes, time.Unix(msg.Expires, 0))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrNoAccount), errors.Is(err, auth.ErrCodeCountMismatch):
		s.Logger.Warnf("session %d: activation codes rejected: %v", id, err)
	default:
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.SetActivationCodesAnswer{OK: err == nil})
}

// handleSetItems replaces the inventory of one account. Sessions already logged
// in as that account see the new items on their next login.
func (s *Server) handleSetItems(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.SetItems
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.RequireAdmin(id, "set items"); err != nil {
		return err
	}

	items := lo.Map(msg.Items, func(item packets.Item, _ int) data.Item {
		return data.Item{ItemID: item.ID, Equipped: item.Equipped}
	})
	err := s.Store.SetItems(ctx, msg.Login, items)
	switch {
	case err == nil:
		s.Logger.Infof("session %d: set %d items on %s", id, len(items), msg.Login)
	case errors.Is(err, auth.ErrNoAccount):
		s.Logger.Warnf("session %d: set items: %v", id, err)
	default:
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.SetItemsAnswer{OK: err == nil})
}

func (s *Server) handleShutdown(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.ShutdownServer{}); err != nil {
		return err
	}
	sess, err := s.Sessions.RequireAdmin(id, "shutdown server")
	if err != nil {
		return err
	}
	if err := s.Sessions.SendAnswer(id, &packets.ShutdownServerAnswer{}); err != nil {
		return err
	}
	s.Logger.Warnf("shutdown requested by %s (session %d)", sess.Login(), id)
	if s.Shutdown != nil {
		s.Shutdown()
	}
	return nil
}
