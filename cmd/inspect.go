package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/driver/webdriver"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

// inspectCmd dumps the current screen, for finding resource-ids after an
// application update.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the elements on the device screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		all, _ := cmd.Flags().GetBool("all")
		output, _ := cmd.Flags().GetString("output")

		sessionID, _ := cmd.Flags().GetString("session")

		ctx := cmd.Context()
		client, view, err := openSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sessionID == "" {
			defer func() {
				if err := client.Close(context.Background()); err != nil {
					utils.Log.Warnf("Closing session: %v", err)
				}
			}()
		}

		if ok, err := view.IsDiary(ctx); err == nil {
			utils.Log.Infof("Diary screen: %v", ok)
		}

		source, err := client.Source(ctx)
		if err != nil {
			return err
		}
		if output != "" {
			if err := os.WriteFile(output, []byte(source), 0o644); err != nil {
				return err
			}
			utils.Log.Infof("Page source written to %s", output)
		}
		if raw {
			fmt.Println(source)
			return nil
		}

		elements, err := webdriver.Inspect(source)
		if err != nil {
			return err
		}
		faint := color.New(color.Faint)
		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.MaxColWidth = 50
		for _, e := range elements {
			if !all && !e.Labelled() {
				continue
			}
			class := e.Class[strings.LastIndex(e.Class, ".")+1:]
			tbl.AddRow(strings.Repeat(" ", e.Depth)+class, shortID(e.ResourceID), e.Text, e.ContentDesc, faint.Sprint(e.Bounds))
		}
		_, _ = fmt.Fprintln(color.Output, tbl)
		return nil
	},
}

// shortID drops the package part of a resource-id.
func shortID(id string) string {
	if i := strings.Index(id, ":id/"); i >= 0 {
		return id[i+len(":id/"):]
	}
	return id
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("raw", false, "Print the page source XML as returned by the server")
	inspectCmd.Flags().BoolP("all", "a", false, "Include elements without resource-id, text or content-desc")
	inspectCmd.Flags().StringP("output", "o", "", "Also save the page source to this file")
	inspectCmd.Flags().String("session", "", "Attach to a running session instead of starting one; it is left open")
}
