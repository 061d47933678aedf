// This script is a small convenience tool for manipulating user accounts in the
// configured server database.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/hoo-game/hoo-server/internal/core"
	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
)

const usage = `Usage: hoo-account [--config file] <command> [arguments]

Commands:
  add <login> <password> <mail>   register a new account
  admin <login>                   flag an account as administrator
  ban <login> <days>              ban an account (0 = permanent, -1 = lift)
  lock <login>                    lock an account
  unlock <login>                  unlock an account
  logins <mail>                   list the logins registered with a mail address
`

func main() {
	configPath := pflag.StringP("config", "c", core.DefaultConfigFile, "Path to the server config file")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() < 2 {
		pflag.Usage()
		os.Exit(1)
	}

	config, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	dialector, err := data.Dialector(config)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx := context.Background()
	store := auth.NewStore(dialector, config.Debugging.DatabaseLoggingEnabled)
	if err := store.Connect(ctx); err != nil {
		fmt.Println("error connecting to database:", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := runCommand(ctx, store, pflag.Arg(0), pflag.Args()[1:]); err != nil {
		fmt.Println(err)
		store.Close()
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, store *auth.Store, command string, args []string) error {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s expects %d arguments, got %d", command, n, len(args))
		}
		return nil
	}

	switch command {
	case "add":
		if err := need(3); err != nil {
			return err
		}
		account, err := store.CreateAccount(ctx, args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("error creating account: %w", err)
		}
		fmt.Printf("created account for '%s' (ID: %d)\n", account.Login, account.ID)
	case "admin":
		if err := need(1); err != nil {
			return err
		}
		if err := store.SetAdmin(ctx, args[0], true); err != nil {
			return err
		}
		fmt.Printf("'%s' is now an administrator\n", args[0])
	case "ban":
		if err := need(2); err != nil {
			return err
		}
		days, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number of days %q", args[1])
		}
		if err := store.BanUser(ctx, args[0], days); err != nil {
			return err
		}
		fmt.Printf("banned '%s' for %d days\n", args[0], days)
	case "lock", "unlock":
		if err := need(1); err != nil {
			return err
		}
		lock := store.LockAccount
		if command == "unlock" {
			lock = store.UnlockAccount
		}
		if err := lock(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%sed '%s'\n", command, args[0])
	case "logins":
		if err := need(1); err != nil {
			return err
		}
		logins, err := store.GetLogins(ctx, args[0])
		if err != nil {
			return err
		}
		for _, login := range logins {
			fmt.Println(login)
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
