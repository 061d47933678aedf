package client

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/hoo-game/hoo-server/internal/packets"
)

var testEnvelope = &packets.Envelope{
	Class:   packets.ClassUser,
	Type:    packets.ConnectType,
	Payload: []byte{1, 0, 0, 0},
}

func newTestListener(t *testing.T) (*net.TCPListener, *net.TCPAddr) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error initializing test listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener, listener.Addr().(*net.TCPAddr)
}

// newTestPair returns a Client for the server side of a loopback connection
// along with the remote end.
func newTestPair(t *testing.T) (*Client, *net.TCPConn) {
	serverListener, addr := newTestListener(t)
	conn, err := net.DialTCP("tcp", nil, addr)
	if err != nil {
		t.Fatalf("error initializing test connection: %v", err)
	}
	clientConn, err := serverListener.AcceptTCP()
	if err != nil {
		t.Fatalf("error initializing client connection: %s", err)
	}
	t.Cleanup(func() { conn.Close(); clientConn.Close() })
	return NewClient(clientConn), conn
}

func TestClient_ReadEnvelope(t *testing.T) {
	client, conn := newTestPair(t)
	client.SessionID = 3

	frame, err := packets.MarshalFrame(testEnvelope)
	if err != nil {
		t.Fatalf("error marshaling test frame: %v", err)
	}
	if _, err = conn.Write(frame); err != nil {
		t.Fatalf("error writing to test connection: %s", err)
	}

	env, err := client.ReadEnvelope()
	if err != nil {
		t.Fatalf("ReadEnvelope() returned an unexpected error: %s", err)
	}
	want := *testEnvelope
	want.SessionID = 3
	if diff := cmp.Diff(&want, env); diff != "" {
		t.Fatalf("ReadEnvelope() result did not match expected; diff:\n%s", diff)
	}
}

func TestClient_ReadEnvelope_Malformed(t *testing.T) {
	client, conn := newTestPair(t)

	// Declares a frame larger than the maximum frame size.
	if _, err := conn.Write([]byte{0xFF, 0xFF, 0xFF, 0x00, 1, 1, 0}); err != nil {
		t.Fatalf("error writing to test connection: %s", err)
	}
	if _, err := client.ReadEnvelope(); !errors.Is(err, packets.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestClient_ReadEnvelope_Closed(t *testing.T) {
	client, conn := newTestPair(t)
	conn.Close()

	if _, err := client.ReadEnvelope(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestClient_Send(t *testing.T) {
	client, conn := newTestPair(t)

	if err := client.Send(testEnvelope); err != nil {
		t.Fatalf("Send() returned an unexpected error: %s", err)
	}

	want, _ := packets.MarshalFrame(testEnvelope)
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("error reading from test connection: %s", err)
	}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Fatalf("Send() wrote unexpected bytes; diff:\n%s", diff)
	}
}

func TestClient_Close(t *testing.T) {
	client, _ := newTestPair(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() returned an unexpected error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("expected a second Close() to be a no-op, got %v", err)
	}
	if err := client.Send(testEnvelope); err == nil {
		t.Errorf("expected Send() on a closed client to fail")
	}
}

func TestClient_Log(t *testing.T) {
	client, conn := newTestPair(t)
	client.DebugTags["session"] = 5
	logger, hook := test.NewNullLogger()

	client.Log(logger).Info("accepted")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	want := logrus.Fields{"remote": conn.LocalAddr().String(), "session": 5}
	if diff := cmp.Diff(want, entry.Data); diff != "" {
		t.Errorf("log fields diff:\n%s", diff)
	}
}
