package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"streetcrime/internal/crimes"
	"streetcrime/internal/directory"
	"streetcrime/internal/query"
	"streetcrime/internal/types"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	var (
		params  query.Params
		asJSON  bool
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Show crimes for a neighbourhood and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			forces, periods, err := c.directory(cmd.Context())
			if err != nil {
				return err
			}
			if params.Period == "" {
				params.Period, _ = periods.Latest()
			}
			params.Submitted = true

			pipeline := query.NewPipeline(query.Deps{
				Forces:         forces,
				Neighbourhoods: directory.NewNeighbourhoodResolver(c.deps.Source, c.deps.Cache, c.deps.Logger),
				Fetcher:        crimes.NewFetcher(c.deps.Source, c.deps.Cache),
				Periods:        periods,
				Logger:         c.deps.Logger,
			})
			res, err := pipeline.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return renderResult(out, res, summary)
		},
	}
	cmd.Flags().StringVar(&params.Force, "force", "", "Police force name")
	cmd.Flags().StringVar(&params.Neighbourhood, "neighbourhood", "", "Neighbourhood name")
	cmd.Flags().StringVar(&params.Period, "period", "", "Month as YYYY-MM (default: latest published)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print only the per-category totals")
	_ = cmd.MarkFlagRequired("force")
	_ = cmd.MarkFlagRequired("neighbourhood")
	return cmd
}

// renderResult prints headings, then either the incident table and summary
// or the state message.
func renderResult(w io.Writer, res *query.Result, summaryOnly bool) error {
	bold := color.New(color.Bold)
	bold.Fprintln(w, res.Heading)
	fmt.Fprintln(w, res.Subheading)
	fmt.Fprintln(w)

	switch res.State {
	case query.StateEmpty:
		fmt.Fprintln(w, res.Message)
		return nil
	case query.StatePopulated:
	default:
		fmt.Fprintln(w, "Force or neighbourhood not found.")
		return nil
	}

	if !summaryOnly {
		rows := [][]string{types.IncidentColumns()}
		for _, inc := range res.Incidents {
			rows = append(rows, []string{
				inc.Month,
				string(inc.Category),
				inc.LocationName,
				fmt.Sprintf("%.6f", inc.Latitude),
				fmt.Sprintf("%.6f", inc.Longitude),
			})
		}
		err := writeTable(w, rows, func(i int, line string) string {
			if i == 0 {
				return line
			}
			// The month column never contains a category name.
			cat := res.Incidents[i-1].Category
			return strings.Replace(line, string(cat), paint(cat), 1)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	rows := [][]string{types.SummaryColumns()}
	for _, row := range res.Summary {
		rows = append(rows, []string{string(row.Category), fmt.Sprint(row.Total)})
	}
	rows = append(rows, []string{"All", fmt.Sprint(res.Summary.Total())})
	return writeTable(w, rows, func(i int, line string) string {
		switch {
		case i == 0:
			return line
		case i <= len(res.Summary):
			cat := res.Summary[i-1].Category
			return strings.Replace(line, string(cat), paint(cat), 1)
		default:
			return strings.Replace(line, "All", bold.Sprint("All"), 1)
		}
	})
}

// writeTable aligns rows with a tabwriter and styles each aligned line
// afterwards, so escape sequences never count towards column widths.
func writeTable(w io.Writer, rows [][]string, style func(i int, line string) string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for i, line := range lines {
		if _, err := fmt.Fprintln(w, style(i, line)); err != nil {
			return err
		}
	}
	return nil
}

var terminalColours = map[string]color.Attribute{
	"red":          color.FgRed,
	"orange":       color.FgHiRed,
	"magenta":      color.FgMagenta,
	"blue":         color.FgBlue,
	"green":        color.FgGreen,
	"light yellow": color.FgHiYellow,
	"light green":  color.FgHiGreen,
	"cyan":         color.FgCyan,
	"white":        color.FgWhite,
	"grey":         color.FgHiBlack,
	"light orange": color.FgHiRed,
	"brown":        color.FgYellow,
	"light blue":   color.FgHiBlue,
	"yellow":       color.FgYellow,
}

// paint renders a category in its map colour.
func paint(c types.Category) string {
	attr, ok := terminalColours[strings.ToLower(c.Colour())]
	if !ok {
		return string(c)
	}
	return color.New(attr).Sprint(string(c))
}
