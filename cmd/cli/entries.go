package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mediatrack/pkg/models"
)

type entryList struct {
	Total int                  `json:"total"`
	Items []models.EntryDetail `json:"items"`
	Stats models.StatusStats   `json:"stats"`
}

func (app *cli) newEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"ls"},
		Short:   "Browse and edit your list",
	}
	cmd.AddCommand(
		app.newEntriesListCmd(),
		app.newEntriesShowCmd(),
		app.newEntriesUpdateCmd(),
		app.newEntriesDeleteCmd(),
		app.newEntriesHistoryCmd(),
	)
	cmd.RunE = app.newEntriesListCmd().RunE
	return cmd
}

func (app *cli) newEntriesListCmd() *cobra.Command {
	var (
		category, status, search string
		tag, limit, offset       int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "category", category)
			setIf(q, "status", status)
			setIf(q, "search", search)
			if tag > 0 {
				q.Set("tag", strconv.Itoa(tag))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			var resp entryList
			if err := app.client.do(cmd.Context(), http.MethodGet, "/entries?"+q.Encode(), true, nil, &resp); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, resp)
			}

			tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tPROGRESS\tRATING")
			for _, e := range resp.Items {
				rating := "-"
				if e.Rating != nil {
					rating = strconv.Itoa(*e.Rating)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, truncate(e.Title, 40), e.CategoryLabel, statusColor(string(e.Status)),
					progressText(e.ProgressCurrent, e.ProgressTotal, e.ProgressPercent), rating)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			st := resp.Stats
			fmt.Fprintf(app.out, "\n%d of %d shown · %d pending · %d in progress · %d completed · %d dropped\n",
				len(resp.Items), resp.Total, st.Pending, st.InProgress, st.Completed, st.Dropped)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&search, "search", "", "match title or notes")
	cmd.Flags().IntVar(&tag, "tag", 0, "filter by tag id")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func (app *cli) newEntriesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var d models.EntryDetail
			if err := app.client.do(cmd.Context(), http.MethodGet, fmt.Sprintf("/entries/%d", id), true, nil, &d); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, d)
			}
			printDetail(app, d)
			return nil
		},
	}
}

func printDetail(app *cli, d models.EntryDetail) {
	tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "Title:\t%s\n", d.Title)
	fmt.Fprintf(tw, "Category:\t%s\n", d.CategoryLabel)
	fmt.Fprintf(tw, "Status:\t%s\n", statusColor(string(d.Status)))
	fmt.Fprintf(tw, "Progress:\t%s\n", progressText(d.ProgressCurrent, d.ProgressTotal, d.ProgressPercent))
	if d.Rating != nil {
		fmt.Fprintf(tw, "Rating:\t%d/10\n", *d.Rating)
	}
	if d.Platform != "" {
		fmt.Fprintf(tw, "Platform:\t%s\n", d.Platform)
	}
	if len(d.Tags) > 0 {
		names := make([]string, 0, len(d.Tags))
		for _, t := range d.Tags {
			names = append(names, t.Name)
		}
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(names, ", "))
	}
	if d.ExternalLink != "" {
		fmt.Fprintf(tw, "Link:\t%s\n", d.ExternalLink)
	}
	_ = tw.Flush()
	if d.Notes != "" {
		fmt.Fprintf(app.out, "\n%s\n", d.Notes)
	}
}

func (app *cli) newEntriesUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> field=value...",
		Short: "Change fields (title, notes, progress_current, progress_total, status, platform, rating)",
		Long: `Change one or more fields of an entry. Values are sent as given and
checked by the server; an empty value clears progress_total or rating.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			var resp struct {
				Updated []string           `json:"updated"`
				Entry   models.EntryDetail `json:"entry"`
			}
			if err := app.client.do(cmd.Context(), http.MethodPatch, fmt.Sprintf("/entries/%d", id), true, fields, &resp); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, resp)
			}
			ok(app.out, "updated %s", strings.Join(resp.Updated, ", "))
			return nil
		},
	}
}

func (app *cli) newEntriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.client.do(cmd.Context(), http.MethodDelete, fmt.Sprintf("/entries/%d", id), true, nil, nil); err != nil {
				return err
			}
			ok(app.out, "deleted entry %d", id)
			return nil
		},
	}
}

func (app *cli) newEntriesHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show how progress changed over time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var resp struct {
				Total int                      `json:"total"`
				Items []models.ProgressHistory `json:"items"`
			}
			if err := app.client.do(cmd.Context(), http.MethodGet, fmt.Sprintf("/entries/%d/progress", id), true, nil, &resp); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, resp)
			}
			tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tFROM\tTO")
			for _, h := range resp.Items {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", h.At.Local().Format("2006-01-02 15:04"), h.Previous, h.Current)
			}
			return tw.Flush()
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseAssignments turns key=value arguments into an update payload. Numeric
// values are sent as numbers and empty values as null.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		switch {
		case value == "":
			out[key] = nil
		case key != "title" && key != "notes" && key != "platform" && isInt(value):
			n, _ := strconv.Atoi(value)
			out[key] = n
		default:
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil, errors.New("nothing to update")
	}
	return out, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
