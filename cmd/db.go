package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/tabwriter"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
	"github.com/diaryscope/diaryscope/pkg/storage"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Mirror the archive into a SQLite database",
}

func resolveDBPath() (string, error) {
	return utils.AbsDBPath(viper.GetString("db.path"))
}

func openDB() (*storage.DB, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s (run 'diaryscope db sync' first)", dbPath)
	}
	return storage.Open(dbPath)
}

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the archive into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadArchive()
		if err != nil {
			return err
		}
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return err
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.SyncArchive(cmd.Context(), a)
		if err != nil {
			return err
		}
		utils.Log.Infof("Synced %s: %d days added, %d updated, %d removed, %d entries, %d macro batches",
			dbPath, res.Added, res.Updated, res.Removed, res.Entries, res.MacroBatches)
		return nil
	},
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the diary mirror in the sqlite3 shell",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("diary mirror not found: %s (run 'diaryscope db sync' first)", dbPath)
		}

		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return errors.New("sqlite3 not found in PATH; install it to open the diary mirror shell")
		}

		fmt.Println("--> Diary mirror schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			utils.Log.Warnf("Couldn't read the mirror schema: %v", err)
		}
		fmt.Printf("\n--> Opening %s (Ctrl+D to exit)\n", dbPath)

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the mirrored days and foods.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if st.Days == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "DAYS\tENTRIES\tMACRO BATCHES\tMACRO ITEMS\tFIRST\tLAST\t")
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\t%s\t\n", st.Days, st.Entries, st.MacroBatches, st.MacroItems, st.First, st.Last)
		w.Flush()

		return nil
	},
}

// daysCmd represents the days command
var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "List mirrored days with their calorie tally",
	RunE: func(cmd *cobra.Command, args []string) error {
		var from, to datekey.Key
		for flag, key := range map[string]*datekey.Key{"from": &from, "to": &to} {
			s, _ := cmd.Flags().GetString(flag)
			if s == "" {
				continue
			}
			k, err := datekey.Parse(s)
			if err != nil {
				return fmt.Errorf("bad --%s: %w", flag, err)
			}
			*key = k
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		days, err := db.ListDays(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		bold := color.New(color.Bold)
		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.AddRow(bold.Sprint("DATE"), bold.Sprint("GOAL"), bold.Sprint("FOOD"), bold.Sprint("ENTRIES"))
		for _, d := range days {
			tbl.AddRow(d.Date, d.Goal, d.Calories, d.Entries)
		}
		tbl.RightAlign(1)
		tbl.RightAlign(2)
		tbl.RightAlign(3)
		_, _ = fmt.Fprintln(color.Output, tbl)
		return nil
	},
}

// entriesCmd represents the entries command
var entriesCmd = &cobra.Command{
	Use:   "entries DATE",
	Short: "List the mirrored diary entries of one day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := datekey.Parse(args[0])
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListEntries(cmd.Context(), date)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no diary entries mirrored for %s", date)
		}
		_, _ = fmt.Fprintln(color.Output, entriesTable(entries))
		return nil
	},
}

func entriesTable(entries []diary.FlatDiaryEntry) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("MEAL"), bold.Sprint("TIME"), bold.Sprint("NAME"), bold.Sprint("CALORIES"))
	for _, e := range entries {
		tbl.AddRow(e.Meal, e.Time, e.Name, e.Calories)
	}
	tbl.RightAlign(3)
	return tbl
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(syncCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(daysCmd)
	dbCmd.AddCommand(entriesCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default is $HOME/.config/diaryscope/diaryscope.sqlite)")
	viper.BindPFlag("db.path", dbCmd.PersistentFlags().Lookup("dbpath"))
	daysCmd.Flags().String("from", "", "First date, YYYY-MM-DD")
	daysCmd.Flags().String("to", "", "Last date, YYYY-MM-DD")
}
