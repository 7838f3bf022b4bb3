package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/driver/webdriver"
	"github.com/diaryscope/diaryscope/pkg/screen"
	"github.com/diaryscope/diaryscope/pkg/scrape"
)

func main() {
	// Usage: go run *.go -url http://127.0.0.1:4723 -days 3

	urlFlag := flag.String("url", "http://127.0.0.1:4723", "Appium server URL")
	daysFlag := flag.Int("days", 1, "Number of days to scrape, going back from today")
	archiveFlag := flag.String("archive", "diary.mem", "Archive file")

	// Parse the command-line flags
	flag.Parse()

	ctx := context.Background()
	client := webdriver.New(webdriver.Config{
		URL: *urlFlag,
		Capabilities: map[string]interface{}{
			"platformName":          "Android",
			"appium:automationName": "UiAutomator2",
			"appium:appPackage":     "com.myfitnesspal.android",
			"appium:noReset":        true,
		},
		Timeout: 10 * time.Second,
		Retries: 3,
	})
	if err := client.NewSession(ctx); err != nil {
		fmt.Println("Could not start a session:", err)
		return
	}
	defer client.Close(ctx)

	store, err := archive.Open(*archiveFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	view := &screen.View{Driver: client, Timeout: 10 * time.Second, Settle: 1500 * time.Millisecond}
	report, err := scrape.New(view, store).ScrapeDiaryFromDate(ctx, datekey.FromTime(time.Now()), *daysFlag, -1)
	if err != nil {
		fmt.Println("Run aborted:", err)
	}
	if report == nil {
		return
	}

	for _, day := range report.Days {
		if !day.OK() {
			fmt.Println(day.Target, "skipped:", day.Err)
			continue
		}
		for _, e := range day.Day.Diary {
			fmt.Println(day.Target, e.Meal, e.Name, e.Calories)
		}
	}
}
