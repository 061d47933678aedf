package debug

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// StartPprofServer starts a pprof HTTP server on localhost that can be used to
// get runtime information about the server. See https://golang.org/pkg/net/http/pprof/
func StartPprofServer(logger *logrus.Logger, port int) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	server := &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux}
	logger.Infof("starting pprof server on %s", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("error starting pprof server: %s", err)
		}
	}()
	return server
}

// Dump returns a readable multi-line representation of a decoded message.
func Dump(v interface{}) string {
	return dumper.Sdump(v)
}

// LogMessage writes a message exchanged with a session at debug level.
func LogMessage(logger *logrus.Logger, direction string, sessionID int, msg interface{}) {
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	logger.WithFields(logrus.Fields{
		"session":   sessionID,
		"direction": direction,
	}).Debugf("%T\n%s", msg, Dump(msg))
}
