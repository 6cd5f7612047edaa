// Package commands implements the crimectl CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"streetcrime/internal/cache"
	"streetcrime/internal/config"
	"streetcrime/internal/directory"
	"streetcrime/internal/external"
)

// Deps are the collaborators shared by every command.
type Deps struct {
	Source external.CrimeDataSource
	Cache  *cache.Cache
	Logger *slog.Logger
	Out    io.Writer
}

// CLI is the crimectl command tree.
type CLI struct {
	deps    Deps
	rootCmd *cobra.Command

	loadOnce sync.Once
	forces   *directory.ForceDirectory
	periods  *directory.PeriodCatalog
	loadErr  error
}

// New builds the command tree.
func New(deps Deps) *CLI {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(cache.Options{Logger: deps.Logger})
	}

	rootCmd := &cobra.Command{
		Use:           "crimectl",
		Short:         "Query street-level crime for police neighbourhoods",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       config.NewBuildInfo().Version,
	}
	if deps.Out != nil {
		rootCmd.SetOut(deps.Out)
	}

	c := &CLI{deps: deps, rootCmd: rootCmd}

	rootCmd.AddCommand(c.newForcesCmd())
	rootCmd.AddCommand(c.newPeriodsCmd())
	rootCmd.AddCommand(c.newNeighbourhoodsCmd())
	rootCmd.AddCommand(c.newLinksCmd())
	rootCmd.AddCommand(c.newQueryCmd())

	return c
}

// Execute runs the root command with ctx.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// directory loads forces and periods once per process.
func (c *CLI) directory(ctx context.Context) (*directory.ForceDirectory, *directory.PeriodCatalog, error) {
	c.loadOnce.Do(func() {
		c.forces, c.periods, c.loadErr = directory.Load(ctx, c.deps.Source, c.deps.Cache, c.deps.Logger)
		if c.loadErr != nil {
			c.loadErr = fmt.Errorf("loading police directory: %w", c.loadErr)
		}
	})
	return c.forces, c.periods, c.loadErr
}

func (c *CLI) resolveForce(ctx context.Context, name string) (string, error) {
	forces, _, err := c.directory(ctx)
	if err != nil {
		return "", err
	}
	id, ok := forces.ResolveID(name)
	if !ok {
		return "", fmt.Errorf("unknown police force %q (see crimectl forces)", name)
	}
	return id, nil
}
