package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type testMessage struct {
	Login string
	Items []uint32
}

func TestDump(t *testing.T) {
	got := Dump(&testMessage{Login: "alice", Items: []uint32{1, 2}})
	for _, want := range []string{`Login: (string) (len=5) "alice"`, "(uint32) 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected dump to contain %q, got:\n%s", want, got)
		}
	}
}

func TestLogMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	logger.SetLevel(logrus.InfoLevel)
	LogMessage(logger, "recv", 1, &testMessage{})
	if buf.Len() != 0 {
		t.Errorf("expected nothing to be logged below debug level, got %q", buf.String())
	}

	logger.SetLevel(logrus.DebugLevel)
	LogMessage(logger, "recv", 1, &testMessage{Login: "bob"})
	if !strings.Contains(buf.String(), "bob") {
		t.Errorf("expected the message contents to be logged, got %q", buf.String())
	}
}
