package packets

import "github.com/hoo-game/hoo-server/internal/core/bytes"

// Message types of the updater protocol.
const (
	UpdaterConnectType     = 0x0001
	UpdaterGetFileListType = 0x0002

	UpdaterConnectAnswerType     = AnswerFlag | UpdaterConnectType
	UpdaterGetFileListAnswerType = AnswerFlag | UpdaterGetFileListType
)

type updaterMessage struct{}

func (updaterMessage) Class() ProtocolClass { return ClassUpdater }

type UpdaterConnect struct {
	updaterMessage
	Version uint32
}

func (m *UpdaterConnect) Type() uint16          { return UpdaterConnectType }
func (m *UpdaterConnect) Write(w *bytes.Writer) { w.Uint32(m.Version) }
func (m *UpdaterConnect) Read(r *bytes.Reader) (err error) {
	m.Version, err = r.Uint32()
	return err
}

type UpdaterConnectAnswer struct {
	updaterMessage
	Result        ConnectResult
	LatestVersion uint32
}

func (m *UpdaterConnectAnswer) Type() uint16 { return UpdaterConnectAnswerType }
func (m *UpdaterConnectAnswer) Write(w *bytes.Writer) {
	w.Uint8(uint8(m.Result))
	w.Uint32(m.LatestVersion)
}
func (m *UpdaterConnectAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Result = ConnectResult(v)
	m.LatestVersion, err = r.Uint32()
	return err
}

type UpdaterGetFileList struct{ updaterMessage }

func (m *UpdaterGetFileList) Type() uint16             { return UpdaterGetFileListType }
func (m *UpdaterGetFileList) Write(*bytes.Writer)      {}
func (m *UpdaterGetFileList) Read(*bytes.Reader) error { return nil }

type UpdaterGetFileListAnswer struct {
	updaterMessage
	LatestVersion uint32
	Files         []string
}

func (m *UpdaterGetFileListAnswer) Type() uint16 { return UpdaterGetFileListAnswerType }
func (m *UpdaterGetFileListAnswer) Write(w *bytes.Writer) {
	w.Uint32(m.LatestVersion)
	w.Strings(m.Files)
}
func (m *UpdaterGetFileListAnswer) Read(r *bytes.Reader) (err error) {
	if m.LatestVersion, err = r.Uint32(); err != nil {
		return err
	}
	m.Files, err = r.Strings()
	return err
}
