package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Read the scraped archive",
}

var archiveShowCmd = &cobra.Command{
	Use:   "show [DATE]",
	Short: "Print the diary of one date (default the latest scraped)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadArchive()
		if err != nil {
			return err
		}
		if len(a.Diary) == 0 {
			fmt.Println("The archive is empty.")
			return nil
		}

		date := a.Diary[len(a.Diary)-1].Date
		if len(args) == 1 {
			if date, err = datekey.Parse(args[0]); err != nil {
				return err
			}
		}
		macros, _ := cmd.Flags().GetBool("macros")

		bold := color.New(color.Bold)
		for _, s := range a.DailySummary {
			if s.Date == date {
				fmt.Fprintf(color.Output, "%s  goal %s, food %s\n\n", bold.Sprint(date), s.Contents.Goal, s.Contents.Calories)
			}
		}
		if macros {
			batch, ok := latestBatch(a, date)
			if !ok {
				return fmt.Errorf("no macro records for %s", date)
			}
			printMacros(batch.Contents)
			return nil
		}
		for _, d := range a.Diary {
			if d.Date == date {
				printDiary(d.Contents)
				return nil
			}
		}
		return fmt.Errorf("%s is not in the archive", date)
	},
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the archive.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadArchive()
		if err != nil {
			return err
		}
		st := a.Stats()

		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.AddRow("App version", st.Version)
		tbl.AddRow("Daily summaries", st.DailySummaries)
		tbl.AddRow("Diaries", st.Diaries)
		tbl.AddRow("Food entries", st.FoodEntries)
		tbl.AddRow("Macro batches", st.MacroBatches)
		if !st.First.IsZero() {
			tbl.AddRow("First date", st.First)
			tbl.AddRow("Last date", st.Last)
		}
		tbl.RightAlign(1)
		_, _ = fmt.Fprintln(color.Output, tbl)
		return nil
	},
}

func loadArchive() (archive.Archive, error) {
	path, err := archivePath()
	if err != nil {
		return archive.Archive{}, err
	}
	a, err := archive.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return archive.Archive{}, fmt.Errorf("archive file not found: %s", path)
	}
	return a, err
}

// latestBatch returns the last macro batch appended for date.
func latestBatch(a archive.Archive, date datekey.Key) (diary.MacroBatchRecord, bool) {
	for i := len(a.Macro) - 1; i >= 0; i-- {
		if a.Macro[i].Date == date {
			return a.Macro[i], true
		}
	}
	return diary.MacroBatchRecord{}, false
}

func printDiary(entries []diary.FlatDiaryEntry) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold.Sprint("MEAL"), bold.Sprint("TIME"), bold.Sprint("FOOD"), bold.Sprint("KCAL"))
	meal := ""
	for _, e := range entries {
		name := e.Meal
		if name == meal {
			name = ""
		}
		meal = e.Meal
		tbl.AddRow(name, faint.Sprint(e.Time), e.Name, e.Calories)
	}
	tbl.RightAlign(3)
	_, _ = fmt.Fprintln(color.Output, tbl)
}

func printMacros(records []diary.MacroRecord) {
	bold := color.New(color.Bold)
	for _, r := range records {
		fmt.Fprintf(color.Output, "%s  %s, %s\n", bold.Sprint(r.Name), r.Meal, r.Time)
		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.AddRow("  servings", r.Servings+" x "+r.Units)
		tbl.AddRow("  calories", r.Calories)
		tbl.AddRow("  carbohydrates", r.Carbohydrates)
		tbl.AddRow("  fat", r.Fat)
		tbl.AddRow("  protein", r.Protein)
		tbl.AddRow("  fiber", r.Fiber)
		tbl.AddRow("  sugar", r.Sugar)
		tbl.AddRow("  sodium", r.Sodium)
		_, _ = fmt.Fprintln(color.Output, tbl)
	}
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveStatsCmd)
	archiveShowCmd.Flags().BoolP("macros", "m", false, "Print the nutrient detail of every food instead")
}
