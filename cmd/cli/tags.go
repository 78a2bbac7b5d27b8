package main

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type tagItem struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	EntryCount int    `json:"entry_count"`
}

func (app *cli) newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List and manage tags",
	}
	cmd.AddCommand(app.newTagsListCmd(), app.newTagsCreateCmd(), app.newTagsDeleteCmd())
	cmd.RunE = app.newTagsListCmd().RunE
	return cmd
}

func (app *cli) newTagsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags with entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Items []tagItem `json:"items"`
			}
			if err := app.client.do(cmd.Context(), http.MethodGet, "/tags", true, nil, &resp); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, resp.Items)
			}
			if len(resp.Items) == 0 {
				fmt.Fprintln(app.out, "No tags yet.")
				return nil
			}
			tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tENTRIES")
			for _, t := range resp.Items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", t.ID, color.New(color.Bold).Sprint(t.Name), t.Color, t.EntryCount)
			}
			return tw.Flush()
		},
	}
}

func (app *cli) newTagsCreateCmd() *cobra.Command {
	var hex string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"name": args[0]}
			if hex != "" {
				payload["color"] = hex
			}
			var created tagItem
			if err := app.client.do(cmd.Context(), http.MethodPost, "/tags", true, payload, &created); err != nil {
				return err
			}
			ok(app.out, "created tag %q (id %d)", created.Name, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&hex, "color", "", "color as #RRGGBB")
	return cmd
}

func (app *cli) newTagsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tag; tagged entries are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.client.do(cmd.Context(), http.MethodDelete, fmt.Sprintf("/tags/%d", id), true, nil, nil); err != nil {
				return err
			}
			ok(app.out, "deleted tag %d", id)
			return nil
		},
	}
}
