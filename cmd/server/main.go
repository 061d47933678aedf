// The server command is the main entrypoint for running hoo-server. It loads
// the config file, starts the Controller and runs until it is interrupted or
// an admin shuts it down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hoo-game/hoo-server/internal"
	"github.com/hoo-game/hoo-server/internal/core"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "unhandled error: %v\n%s", err, debug.Stack())
			code = 1
		}
	}()

	flags := pflag.NewFlagSet("hoo-server", pflag.ContinueOnError)
	help := flags.BoolP("help", "h", false, "Print this usage info.")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hoo-server [config file] (default %s)\n", core.DefaultConfigFile)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *help {
		flags.Usage()
		return 0
	}

	configPath := core.DefaultConfigFile
	if flags.NArg() > 0 {
		configPath = flags.Arg(0)
	}
	config, err := core.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("using configuration file:", configPath)

	// Bind the Controller to one top-level server context so that we can shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register a SIGTERM handler so that Ctrl-C will shut the server down gracefully.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	go exitHandler(cancel, c)

	controller := &internal.Controller{Config: config}
	if err := controller.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("shut down")
	return 0
}

func exitHandler(cancelFn func(), c chan os.Signal) {
	if _, ok := <-c; !ok {
		return
	}
	fmt.Println("waiting to shut down gracefully...")
	cancelFn()

	if _, ok := <-c; ok {
		fmt.Println("hard exiting (killed)")
		os.Exit(1)
	}
}
