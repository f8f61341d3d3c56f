package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/manager"
)

func init() {
	Register(&CountCmd{})
}

// CountCmd implements the count command. The number is printed even with
// --quiet since it is the command's result.
type CountCmd struct{}

func (c *CountCmd) Name() string       { return "count" }
func (c *CountCmd) Aliases() []string  { return nil }
func (c *CountCmd) Synopsis() string   { return "Print the number of open tasks" }
func (c *CountCmd) Usage() string      { return "tasklist count" }
func (c *CountCmd) NeedsSession() bool { return true }

func (c *CountCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CountCmd) Run(ctx context.Context, cfg *config.Config, mgr *manager.Manager, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, mgr.RemainingCount())
	return exitcode.Success
}
