package cli

import (
	"context"
	"fmt"
	"os"
)

func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error
	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "sync":
		err = c.runSync(ctx)
	case "force-sync":
		err = c.runForceSync(ctx)
	case "set":
		err = c.runSet(ctx, args)
	case "get":
		err = c.runGet(ctx, args)
	case "remove":
		err = c.runRemove(ctx, args)
	case "keys":
		err = c.runKeys(ctx)
	case "export":
		err = c.runExport(ctx, args)
	case "import":
		err = c.runImport(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
