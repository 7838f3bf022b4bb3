package scrape

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
	"github.com/diaryscope/diaryscope/pkg/driver/drivertest"
	"github.com/diaryscope/diaryscope/pkg/screen"
)

var today = datekey.New(2025, 1, 4)

func meals(breakfast, dinner string) *drivertest.Day {
	return &drivertest.Day{
		Goal: "2,000",
		Sections: []drivertest.Section{
			{Meal: "Breakfast", Foods: []drivertest.Food{
				{Description: breakfast, Details: "1 serving", Time: "8:00 AM", Calories: "350"},
			}},
			{Meal: "Water", Foods: []drivertest.Food{
				{Description: "Water", Details: "250 ml", Calories: "0"},
			}},
			{Meal: "Dinner", Foods: []drivertest.Food{
				{Description: dinner, Details: "1 plate", Time: "7:30 PM", Calories: "700"},
				{Description: "Yogurt", Details: "1 cup", Calories: "150"},
			}},
		},
	}
}

type fixture struct {
	app    *drivertest.App
	screen *drivertest.Screen
	store  *archive.Store
	runner *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := drivertest.NewApp(today)
	a.SetDay(datekey.New(2025, 1, 3), meals("Eggs", "Salmon"))
	a.SetDay(datekey.New(2025, 1, 2), meals("Porridge", "Risotto"))

	store, err := archive.Open(filepath.Join(t.TempDir(), "diary.mem"))
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	s := a.Screen()
	v := &screen.View{Driver: s, Now: a.Now}
	return &fixture{app: a, screen: s, store: store, runner: New(v, store)}
}

func TestScrapeDiaryFromDate(t *testing.T) {
	f := newFixture(t)
	var seen []datekey.Key
	f.runner.OnDay = func(r DayResult) { seen = append(seen, r.Target) }

	report, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 2, -1)
	if err != nil {
		t.Fatalf("ScrapeDiaryFromDate: %v", err)
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}
	if len(report.Days) != 2 || report.Persisted() != 2 || len(report.Failed()) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(seen) != 2 || seen[0] != datekey.New(2025, 1, 3) || seen[1] != datekey.New(2025, 1, 2) {
		t.Errorf("OnDay saw %v", seen)
	}

	if f.app.PickerOpens != 1 {
		t.Errorf("picker opened %d times, want 1", f.app.PickerOpens)
	}
	if f.app.DaySteps != 1 {
		t.Errorf("stepped %d days, want 1", f.app.DaySteps)
	}
	if got := f.screen.ClickCount("datebar:previous"); got != 1 {
		t.Errorf("clicked previous day %d times, want 1", got)
	}

	a, err := archive.Load(f.store.Path())
	if err != nil {
		t.Fatalf("archive.Load: %v", err)
	}
	if len(a.DailySummary) != 2 || len(a.Diary) != 2 || len(a.Macro) != 2 {
		t.Fatalf("archive has %d summaries, %d diaries, %d macro batches, want 2 each",
			len(a.DailySummary), len(a.Diary), len(a.Macro))
	}
	for _, d := range a.Diary {
		if len(d.Contents) != 4 {
			t.Errorf("%s diary has %d entries, want 4", d.Date, len(d.Contents))
		}
	}
	for _, m := range a.Macro {
		if len(m.Contents) != 3 {
			t.Errorf("%s macro batch has %d records, want 3", m.Date, len(m.Contents))
		}
	}
	if a.Diary[0].Contents[0].Name != "Eggs, 1 serving" && a.Diary[1].Contents[0].Name != "Eggs, 1 serving" {
		t.Errorf("2025-01-03 breakfast not found in %+v", a.Diary)
	}
}

func TestScrapeRepeatAppendsMacros(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		if _, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 2), 1, 1); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	st := f.store.Stats()
	if st.DailySummaries != 1 || st.Diaries != 1 || st.MacroBatches != 2 {
		t.Errorf("stats = %+v, want 1 summary, 1 diary, 2 macro batches", st)
	}
}

func TestScrapeInvalidRequest(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name       string
		days, step int
	}{
		{"no days", 0, -1},
		{"negative days", -2, 1},
		{"zero step", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := f.runner.ScrapeDiaryFromDate(context.Background(), today, tt.days, tt.step)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("error = %v, want ErrInvalidRequest", err)
			}
			if report != nil {
				t.Errorf("report = %+v, want nil", report)
			}
		})
	}
	if len(f.screen.Clicks) != 0 {
		t.Errorf("invalid requests clicked %v", f.screen.Clicks)
	}
}

func TestScrapeDiscardsInconsistentDay(t *testing.T) {
	f := newFixture(t)
	bad := meals("Eggs", "Salmon")
	bad.Food = "999"
	f.app.SetDay(datekey.New(2025, 1, 3), bad)

	report, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 2, -1)
	if err != nil {
		t.Fatalf("ScrapeDiaryFromDate: %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Target != datekey.New(2025, 1, 3) {
		t.Fatalf("failed days = %+v", failed)
	}
	if !errors.Is(failed[0].Err, diary.ErrConsistencyCheckFailed) {
		t.Errorf("failure = %v, want ErrConsistencyCheckFailed", failed[0].Err)
	}
	if report.Persisted() != 1 {
		t.Errorf("persisted %d days, want 1", report.Persisted())
	}
	// The day after a failure is reached through the picker again.
	if f.app.PickerOpens != 2 || f.app.DaySteps != 0 {
		t.Errorf("picker opens = %d, day steps = %d, want 2 and 0", f.app.PickerOpens, f.app.DaySteps)
	}

	st := f.store.Stats()
	if st.DailySummaries != 1 || st.Diaries != 1 || st.MacroBatches != 1 {
		t.Errorf("stats = %+v, want only 2025-01-02", st)
	}
	if st.First != datekey.New(2025, 1, 2) {
		t.Errorf("stored day = %s, want 2025-01-02", st.First)
	}
}

func TestScrapeLargeStepUsesPicker(t *testing.T) {
	f := newFixture(t)
	f.app.SetDay(datekey.New(2024, 12, 24), meals("Toast", "Goose"))

	report, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 2, -10)
	if err != nil {
		t.Fatalf("ScrapeDiaryFromDate: %v", err)
	}
	if report.Persisted() != 2 {
		t.Fatalf("persisted %d days: %+v", report.Persisted(), report.Failed())
	}
	if f.app.PickerOpens != 2 || f.app.DaySteps != 0 {
		t.Errorf("picker opens = %d, day steps = %d, want 2 and 0", f.app.PickerOpens, f.app.DaySteps)
	}
}

func TestScrapeOpensDiaryTab(t *testing.T) {
	f := newFixture(t)
	f.app.View = drivertest.ViewHome

	report, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 1, 1)
	if err != nil {
		t.Fatalf("ScrapeDiaryFromDate: %v", err)
	}
	if report.Persisted() != 1 {
		t.Errorf("persisted %d days: %+v", report.Persisted(), report.Failed())
	}
}

func TestScrapeAbortsOnUnclassifiedError(t *testing.T) {
	f := newFixture(t)
	lost := errors.New("session terminated")
	f.screen.Fail = func(op, target string) error {
		if op == "text" && target == "datebar:label" {
			return lost
		}
		return nil
	}

	report, err := f.runner.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 2, -1)
	if !errors.Is(err, lost) {
		t.Fatalf("error = %v, want %v", err, lost)
	}
	if len(report.Days) != 1 {
		t.Errorf("report has %d days, want the run to stop after 1", len(report.Days))
	}
	if st := f.store.Stats(); st.DailySummaries != 0 {
		t.Errorf("stats = %+v, want nothing stored", st)
	}
}

func TestScrapeAbortsOnPersistFailure(t *testing.T) {
	a := drivertest.NewApp(today)
	a.SetDay(datekey.New(2025, 1, 3), meals("Eggs", "Salmon"))
	dir := filepath.Join(t.TempDir(), "archive")
	store, err := archive.Open(filepath.Join(dir, "diary.mem"))
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(&screen.View{Driver: a.Screen(), Now: a.Now}, store)
	report, err := r.ScrapeDiaryFromDate(context.Background(), datekey.New(2025, 1, 3), 2, -1)
	if err == nil {
		t.Fatal("expected the run to abort")
	}
	if len(report.Days) != 1 {
		t.Errorf("report has %d days, want 1", len(report.Days))
	}
}

func TestScrapeCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.runner.OnDay = func(DayResult) { cancel() }

	report, err := f.runner.ScrapeDiaryFromDate(ctx, datekey.New(2025, 1, 3), 3, -1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(report.Days) != 2 || !report.Days[0].OK() {
		t.Errorf("report = %+v, want one saved day then the cancelled one", report.Days)
	}
}
