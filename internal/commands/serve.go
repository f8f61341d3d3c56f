package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/manager"
	"tasklist/internal/server"
)

// DefaultAddr is the address serve listens on without --addr.
const DefaultAddr = "localhost:8080"

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
// It keeps one session open and serves it until interrupted.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve the task list over HTTP" }
func (c *ServeCmd) Usage() string      { return "tasklist serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsSession() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", DefaultAddr, "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, mgr *manager.Manager, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	addr := c.addr
	if addr == "" {
		addr = DefaultAddr
	}

	var logger *log.Logger
	if !cfg.Quiet {
		logger = log.New(errOut, "tasklist: ", 0)
	}

	if err := server.New(mgr, logger).ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
