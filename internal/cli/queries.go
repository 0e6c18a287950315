package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/queryshelf/internal/catalog"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

func newSaveCmd() *cobra.Command {
	var req catalog.SaveRequest
	var actor string
	cmd := &cobra.Command{
		Use:   "save --database <db> [--url <slug> | --title <title>] <sql>",
		Short: "Save a named query",
		Long: `Save stores a SQL query against a database. The slug is taken from --url
or, when absent, derived from --title.

Example:
  queryshelf save --database data --url select-21 "select 21"
  queryshelf save --database data --title "Active users" "select * from users where active"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req.SQL = args[0]
			if actor != "" {
				req.Actor = &types.Actor{ID: actor}
			}
			saved, err := a.service.Save(cmd.Context(), req)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Query saved as %s\n", saved.Location())
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Database, "database", "", "database the query runs against")
	cmd.Flags().StringVar(&req.Slug, "url", "", "URL slug of the query")
	cmd.Flags().StringVar(&req.Title, "title", "", "query title")
	cmd.Flags().StringVar(&req.Description, "description", "", "query description")
	cmd.Flags().StringVar(&actor, "actor", "", "actor recorded as the creator")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <database>",
		Short: "List the saved queries of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			queries, err := a.service.CannedQueries(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, queries)
			}

			slugList := make([]string, 0, len(queries))
			for slug := range queries {
				slugList = append(slugList, slug)
			}
			sort.Strings(slugList)
			for _, slug := range slugList {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", slug, queries[slug].Title)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var run bool
	cmd := &cobra.Command{
		Use:   "show <database> <slug>",
		Short: "Show a saved query, optionally running it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if run {
				_, rows, err := a.service.Execute(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, rows)
			}

			q, err := a.service.Lookup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, q)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", q.Location())
			if q.Title != "" {
				fmt.Fprintf(out, "title: %s\n", q.Title)
			}
			if q.Description != "" {
				fmt.Fprintf(out, "description: %s\n", q.Description)
			}
			if q.Actor != nil {
				fmt.Fprintf(out, "actor: %s\n", *q.Actor)
			}
			fmt.Fprintf(out, "created: %s\n\n%s\n", q.Created().Format("2006-01-02 15:04:05Z"), strings.TrimSpace(q.SQL))
			return nil
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "execute the query and print its rows as JSON")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <database> <slug>",
		Short: "Delete a saved query (succeeds when it does not exist)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if !flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted /%s/%s\n", args[0], args[1])
			}
			return nil
		},
	}
}

func newSuggestCmd() *cobra.Command {
	var database string
	cmd := &cobra.Command{
		Use:   "suggest --database <db> <sql>",
		Short: "Suggest a title and description for a query",
		Long:  "Suggest asks the configured completion model for a title and description.\nRequires " + envAPIKey + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sg, err := a.service.Suggest(cmd.Context(), database, args[0])
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, sg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "title: %s\ndescription: %s\nurl: %s\n", sg.Title, sg.Description, sg.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&database, "database", "", "database the query runs against")
	_ = cmd.MarkFlagRequired("database")
	return cmd
}
