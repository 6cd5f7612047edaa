package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streetcrime/internal/directory"
)

func (c *CLI) newForcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forces",
		Short: "List police forces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forces, _, err := c.directory(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, f := range forces.List() {
				fmt.Fprintf(tw, "%s\t%s\n", f.ID, f.Name)
			}
			return tw.Flush()
		},
	}
}

func (c *CLI) newPeriodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List months with published crime data, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, periods, err := c.directory(cmd.Context())
			if err != nil {
				return err
			}
			for _, o := range periods.Options() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", o.Value, o.Label)
			}
			return nil
		},
	}
}

func (c *CLI) newNeighbourhoodsCmd() *cobra.Command {
	var force string
	cmd := &cobra.Command{
		Use:   "neighbourhoods",
		Short: "List the neighbourhoods of a police force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.resolveForce(cmd.Context(), force)
			if err != nil {
				return err
			}
			stubs, err := directory.NewNeighbourhoodResolver(c.deps.Source, c.deps.Cache, c.deps.Logger).List(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, s := range stubs {
				fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&force, "force", "", "Police force name")
	_ = cmd.MarkFlagRequired("force")
	return cmd
}

func (c *CLI) newLinksCmd() *cobra.Command {
	var force string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Show a police force's engagement links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forces, _, err := c.directory(cmd.Context())
			if err != nil {
				return err
			}
			links, err := forces.EngagementLinks(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("engagement links for %q: %w", force, err)
			}
			for _, l := range links {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", l.Title, l.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&force, "force", "", "Police force name")
	_ = cmd.MarkFlagRequired("force")
	return cmd
}
