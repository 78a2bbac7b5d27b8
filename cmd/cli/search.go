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

type searchResponse struct {
	Results []models.Candidate `json:"results"`
	Count   int                `json:"count"`
}

func (app *cli) search(cmd *cobra.Command, query string, limit int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp searchResponse
	if err := app.client.do(cmd.Context(), http.MethodGet, "/search?"+q.Encode(), true, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (app *cli) newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search AniList and TVMaze",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := app.search(cmd, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, results)
			}
			if len(results) == 0 {
				warn(app.out, "no results")
				return nil
			}

			tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tID\tTITLE\tYEAR\tEPISODES\tSCORE")
			for _, c := range results {
				episodes := "-"
				if c.Episodes != nil {
					episodes = strconv.Itoa(*c.Episodes)
				}
				year := "-"
				if c.Year > 0 {
					year = strconv.Itoa(c.Year)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\n", c.Source, c.ExternalID, truncate(c.Title, 48), year, episodes, c.Score)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "results per provider")
	return cmd
}

func (app *cli) newImportCmd() *cobra.Command {
	var source, id string
	cmd := &cobra.Command{
		Use:   "import <query> --source anilist --id 123",
		Short: "Add a search result to your list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" || id == "" {
				return errors.New("--source and --id are required")
			}
			results, err := app.search(cmd, strings.Join(args, " "), 0)
			if err != nil {
				return err
			}

			var pick *models.Candidate
			for i := range results {
				if string(results[i].Source) == source && results[i].ExternalID == id {
					pick = &results[i]
					break
				}
			}
			if pick == nil {
				return fmt.Errorf("no %s result with id %s for that query", source, id)
			}

			var created struct {
				ID int64 `json:"id"`
			}
			err = app.client.do(cmd.Context(), http.MethodPost, "/entries/import", true, pick, &created)
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Body["code"] == "duplicate" {
				warn(app.out, "%q is already in your list (entry %v)", pick.Title, apiErr.Body["existing_id"])
				return nil
			}
			if err != nil {
				return err
			}
			ok(app.out, "imported %q as entry %d", pick.Title, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "anilist or tvmaze")
	cmd.Flags().StringVar(&id, "id", "", "external id from search output")
	return cmd
}
