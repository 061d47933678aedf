// Package updater implements the updater protocol, which tells outdated clients
// which files to fetch. Updaters connect with any protocol version.
package updater

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/dispatch"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
)

type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger

	Sessions *session.Manager
}

func (s *Server) Identifier() string { return s.Name }

func (s *Server) Class() packets.ProtocolClass { return packets.ClassUpdater }

func (s *Server) Init(_ context.Context) error {
	if s.Sessions == nil {
		return errors.New("updater server requires sessions")
	}
	if len(s.Config.Updater.Files) == 0 {
		s.Logger.Infof("[%s] no update files configured", s.Name)
	}
	return nil
}

func (s *Server) Register(t *dispatch.Table) error {
	return t.RegisterAll(map[uint16]dispatch.HandlerFunc{
		packets.UpdaterConnectType:     s.handleConnect,
		packets.UpdaterGetFileListType: s.handleGetFileList,
	})
}

func (s *Server) handleConnect(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	var msg packets.UpdaterConnect
	if err := packets.Decode(env, &msg); err != nil {
		return err
	}
	result, err := s.Sessions.Connect(id, packets.ClassUpdater, msg.Version)
	if err != nil {
		return err
	}
	s.Logger.Debugf("session %d: updater at version %d, latest is %d", id, msg.Version, s.Config.Updater.LatestVersion)
	return s.Sessions.SendAnswer(id, &packets.UpdaterConnectAnswer{
		Result:        result,
		LatestVersion: s.Config.Updater.LatestVersion,
	})
}

func (s *Server) handleGetFileList(_ context.Context, _ uint16, id int, env *packets.Envelope) error {
	if err := packets.Decode(env, &packets.UpdaterGetFileList{}); err != nil {
		return err
	}
	if _, err := s.Sessions.Require(id, session.Connected, "get file list"); err != nil {
		return err
	}
	return s.Sessions.SendAnswer(id, &packets.UpdaterGetFileListAnswer{
		LatestVersion: s.Config.Updater.LatestVersion,
		Files:         s.Config.Updater.Files,
	})
}
