// flow is the entrypoint for the dataflow graph runtime: it serves the
// graph service, runs single graphs, and manages the on-disk catalog.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/valaphee/flow/internal/app"
	"github.com/valaphee/flow/internal/catalog"
	"github.com/valaphee/flow/internal/cli"
)

func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	cmd, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flowApp, err := app.NewApp(ctx, outW, cmd.Config)
	if err != nil {
		return err
	}

	switch cmd.Name {
	case "serve":
		return flowApp.Serve(ctx, cmd.Config)
	case "run":
		defer flowApp.Shutdown()
		return flowApp.RunOnce(cmd.GraphName)
	case "import":
		count, err := catalog.Import(ctx, flowApp.Catalog(), cmd.ImportPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(outW, "imported %d graph(s)\n", count)
		return nil
	case "list":
		for _, g := range flowApp.Catalog().List() {
			fmt.Fprintf(outW, "%s\t%d node(s)\n", g.Name, len(g.Nodes))
		}
		return nil
	}
	return fmt.Errorf("unhandled command %q", cmd.Name)
}
