package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite"
	"github.com/couchcryptid/efb-avv-checker/internal/checker"
	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List catalog sites with code and hint counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.OpenExisting(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		return runSites(cmd.Context(), checker.NewService(store, nil, logger, metrics), cmd.OutOrStdout())
	},
}

func runSites(ctx context.Context, svc *checker.Service, out io.Writer) error {
	sites, err := svc.Sites(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSITE\tNAME\tCODES\tHINTS")
	for _, s := range sites {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", s.Site.ID, s.Label, s.Site.Name, s.CodeCount, s.HintCount)
	}
	return tw.Flush()
}
