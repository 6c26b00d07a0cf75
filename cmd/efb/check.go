package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite"
	"github.com/couchcryptid/efb-avv-checker/internal/checker"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/spf13/cobra"
)

var checkSiteID int64

var checkCmd = &cobra.Command{
	Use:   "check --site <id> <avv>",
	Short: "Check whether an AVV code is listed for a site",
	Long: `Normalize the AVV input (spaces, dots and an optional * are ignored) and
look it up in the site's accepted codes. Negative results list codes from the
same chapter group.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.OpenExisting(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := checker.NewService(store, nil, logger, metrics)
		return runCheck(cmd.Context(), svc, checkSiteID, args[0], cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().Int64Var(&checkSiteID, "site", 0, "site id (see efb sites)")
	_ = checkCmd.MarkFlagRequired("site")
}

var errInvalidAVV = errors.New("invalid AVV input")

func runCheck(ctx context.Context, svc *checker.Service, siteID int64, input string, out io.Writer) error {
	site, err := svc.Site(ctx, siteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("site %d not found", siteID)
		}
		return err
	}
	res, err := svc.Check(ctx, siteID, input)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("%w: %s", errInvalidAVV, res.Message)
	}

	fmt.Fprintf(out, "%s\n", site.Label)
	if res.Positive {
		fmt.Fprintf(out, "POSITIVE: AVV %s is listed", domain.FormatCode(res.Code))
		if res.Entry != nil && res.Entry.Text != "" {
			fmt.Fprintf(out, " (%s)", res.Entry.Text)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintf(out, "NEGATIVE: AVV %s is not listed\n", domain.FormatCode(res.Code))
		if len(res.Suggestions) > 0 {
			fmt.Fprintln(out, "Similar codes at this site:")
			for _, s := range res.Suggestions {
				fmt.Fprintf(out, "  %s  %s\n", domain.FormatCode(s.Code), s.Text)
			}
		}
	}
	fmt.Fprintln(out, domain.CheckNotice)
	return nil
}
