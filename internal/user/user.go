// Package user implements the user protocol: connecting, authenticating and
// creating accounts, character and configuration management and quick match.
package user

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
	"github.com/hoo-game/hoo-server/internal/dispatch"
	"github.com/hoo-game/hoo-server/internal/game"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/quickmatch"
	"github.com/hoo-game/hoo-server/internal/session"
)

const (
	// MaxConfigurations is the number of named configurations an account can save.
	MaxConfigurations = 10
	// MaxConfigurationName is the maximum length of a configuration name in characters.
	MaxConfigurationName = 32
)

// Server handles the requests of game clients.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger

	Sessions   *session.Manager
	Store      auth.AccountStore
	Library    game.Library
	QuickMatch *quickmatch.QuickMatch
}

func (s *Server) Identifier() string { return s.Name }

func (s *Server) Class() packets.ProtocolClass { return packets.ClassUser }

func (s *Server) Init(_ context.Context) error {
	if s.Sessions == nil || s.Store == nil || s.Library == nil || s.QuickMatch == nil {
		return errors.New("user server requires sessions, store, library and quick match")
	}
	return nil
}

func (s *Server) Register(t *dispatch.Table) error {
	return t.RegisterAll(map[uint16]dispatch.HandlerFunc{
		packets.ConnectType:               s.handleConnect,
		packets.UserLoginType:             s.handleLogin,
		packets.UserLoginAcCodeType:       s.handleLoginAcCode,
		packets.CheckLoginAvailableType:   s.handleCheckLoginAvailable,
		packets.CreateAccountType:         s.handleCreateAccount,
		packets.UserQuickMatchType:        s.handleQuickMatch,
		packets.UserCancelQuickMatchType:  s.handleCancelQuickMatch,
		packets.UserLeaveGameType:         s.handleLeaveGame,
		packets.UserSelectCharacterType:   s.handleSelectCharacter,
		packets.UserSaveConfigurationType: s.handleSaveConfiguration,
		packets.UserGetConfigurationsType: s.handleGetConfigurations,
	})
}

func (s *Server) handleConnect(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.Connect
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, err := s.Sessions.Connect(id, packets.ClassUser, msg.Version)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.ConnectAnswer{
		Result:        result,
		ServerVersion: s.Config.ProtocolVersion,
	})
}

func (s *Server) handleLogin(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.UserLogin
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, account, err := s.Sessions.Login(ctx, id, msg.Login, msg.Password)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, loginAnswer(result, account))
}

func (s *Server) handleLoginAcCode(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.UserLoginAcCode
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, account, err := s.Sessions.LoginAcCode(ctx, id, msg.Login, msg.Code)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.UserLoginAcCodeAnswer{UserLoginAnswer: *loginAnswer(result, account)})
}

func loginAnswer(result packets.LoginResult, account *data.Account) *packets.UserLoginAnswer {
	answer := &packets.UserLoginAnswer{Result: result}
	if result == packets.LoginOK && account != nil {
		answer.Account = session.AccountInfo(account)
	}
	return answer
}

func (s *Server) handleCheckLoginAvailable(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.CheckLoginAvailable
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.Require(id, session.Connected, "check login availability"); err != nil {
		return err
	}
	available, err := s.Store.CheckLoginAvailability(ctx, msg.Login)
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.CheckLoginAvailableAnswer{Available: available})
}

func (s *Server) handleCreateAccount(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.CreateAccount
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	if _, err := s.Sessions.Require(id, session.Connected, "create account"); err != nil {
		return err
	}

	result := packets.CreateAccountOK
	_, err := s.Store.CreateAccount(ctx, msg.Login, msg.Password, msg.Mail)
	switch {
	case err == nil:
		s.Logger.Infof("session %d: created account %s", id, msg.Login)
	case errors.Is(err, auth.ErrLoginUnavailable):
		result = packets.CreateAccountLoginUnavailable
	case errors.Is(err, auth.ErrBadLogin):
		result = packets.CreateAccountBadLogin
	case errors.Is(err, auth.ErrBadMail):
		result = packets.CreateAccountBadMail
	default:
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.CreateAccountAnswer{Result: result})
}

func (s *Server) handleQuickMatch(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.UserQuickMatch{}); err != nil {
		return err
	}
	_, err := s.QuickMatch.QuickMatch(id)
	return err
}

func (s *Server) handleCancelQuickMatch(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.UserCancelQuickMatch{}); err != nil {
		return err
	}
	_, err := s.QuickMatch.CancelQuickMatch(id)
	return err
}

func (s *Server) handleLeaveGame(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.UserLeaveGame{}); err != nil {
		return err
	}
	_, err := s.QuickMatch.LeaveGame(id)
	return err
}

func (s *Server) handleSelectCharacter(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.UserSelectCharacter
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	sess, err := s.Sessions.Require(id, session.LoggedIn, "select character")
	if err != nil {
		return err
	}

	account := sess.Account()
	if int(msg.Character) >= s.Library.NumCharacters() {
		return s.Sessions.SendAnswer(id, &packets.UserSelectCharacterAnswer{
			Result:    packets.SelectCharacterInvalid,
			Character: account.Character,
		})
	}

	if err := s.Store.SetCharacter(ctx, account.Login, msg.Character); err != nil {
		return err
	}
	account.Character = msg.Character
	sess.UpdateAccount(account)
	return s.Sessions.SendAnswer(id, &packets.UserSelectCharacterAnswer{
		Result:    packets.SelectCharacterOK,
		Character: msg.Character,
	})
}

func validConfigurationName(name string) bool {
	return strings.TrimSpace(name) != "" && utf8.RuneCountInString(name) <= MaxConfigurationName
}

func (s *Server) handleSaveConfiguration(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.UserSaveConfiguration
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	sess, err := s.Sessions.Require(id, session.LoggedIn, "save configuration")
	if err != nil {
		return err
	}
	if !validConfigurationName(msg.Name) {
		return s.Sessions.SendAnswer(id, &packets.UserSaveConfigurationAnswer{Result: packets.SaveConfigurationBadName})
	}

	login := sess.Login()
	saved, err := s.Store.GetConfigurations(ctx, login)
	if err != nil {
		return err
	}
	exists := lo.ContainsBy(saved, func(c data.SavedConfiguration) bool { return c.Name == msg.Name })
	if !exists && len(saved) >= MaxConfigurations {
		return s.Sessions.SendAnswer(id, &packets.UserSaveConfigurationAnswer{Result: packets.SaveConfigurationTooMany})
	}

	if err := s.Store.SaveConfiguration(ctx, login, msg.Name, msg.Data); err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.UserSaveConfigurationAnswer{Result: packets.SaveConfigurationOK})
}

func (s *Server) handleGetConfigurations(ctx context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.UserGetConfigurations{}); err != nil {
		return err
	}
	sess, err := s.Sessions.Require(id, session.LoggedIn, "get configurations")
	if err != nil {
		return err
	}
	saved, err := s.Store.GetConfigurations(ctx, sess.Login())
	if err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.UserGetConfigurationsAnswer{
		Configurations: lo.Map(saved, func(c data.SavedConfiguration, _ int) packets.Configuration {
			return packets.Configuration{Name: c.Name, Data: c.Data}
		}),
	})
}
