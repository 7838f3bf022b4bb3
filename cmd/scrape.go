package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/scrape"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// scrapeCmd implements: diaryscope scrape
//
//	--from string   First date, YYYY-MM-DD (default today)
//	--days int      Number of dates to scrape
//	--step int      Days between dates; negative walks back in time
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape diary dates into the archive",
	Example: `  diaryscope scrape --days 7            # today and the six days before it
  diaryscope scrape --from 2025-01-31 --days 12 --step -30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'diaryscope scrape --help'", args[0])
		}
		from, _ := cmd.Flags().GetString("from")
		days, _ := cmd.Flags().GetInt("days")
		step, _ := cmd.Flags().GetInt("step")

		start := datekey.FromTime(time.Now())
		if from != "" {
			var err error
			if start, err = datekey.Parse(from); err != nil {
				return fmt.Errorf("bad --from: %w", err)
			}
		}

		path, err := archivePath()
		if err != nil {
			return err
		}
		lock, err := utils.NewArchiveLock(path)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		store, err := archive.Open(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, view, err := openSession(ctx, "")
		if err != nil {
			return err
		}
		defer func() {
			// The run context may be cancelled already.
			if err := client.Close(context.Background()); err != nil {
				utils.Log.Warnf("Closing session: %v", err)
			}
		}()

		runID := uuid.NewString()
		runner := scrape.New(view, store)
		runner.RunID = runID
		runner.Log = utils.Log.WithField("run", runID)
		runner.OnDay = printDay

		report, err := runner.ScrapeDiaryFromDate(ctx, start, days, step)
		if report != nil {
			fmt.Printf("\n%d of %d dates saved to %s\n", report.Persisted(), len(report.Days), store.Path())
		}
		return err
	},
}

func printDay(r scrape.DayResult) {
	if r.OK() {
		fmt.Fprintf(color.Output, "%s %s  %3d entries  %s kcal\n",
			color.GreenString("✓"), r.Target, len(r.Day.Diary), r.Day.Tally.Calories)
		return
	}
	fmt.Fprintf(color.Output, "%s %s  %s\n", color.RedString("✗"), r.Target, color.New(color.Faint).Sprint(r.Err))
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().String("from", "", "First date to scrape, YYYY-MM-DD (default today)")
	scrapeCmd.Flags().IntP("days", "n", 1, "Number of dates to scrape")
	scrapeCmd.Flags().IntP("step", "s", -1, "Days between scraped dates; negative goes back in time")
}
