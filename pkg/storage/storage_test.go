package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "diaryscope.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testArchive() archive.Archive {
	d1, d2 := datekey.New(2025, 1, 2), datekey.New(2025, 1, 3)
	return archive.Archive{
		Version: "24.24.0",
		DailySummary: []diary.DailySummaryRecord{
			{Date: d1, Contents: diary.CalorieTally{Goal: "2000", Calories: "405"}},
			{Date: d2, Contents: diary.CalorieTally{Goal: "2000", Calories: "300"}},
		},
		Diary: []diary.DiaryRecord{
			{Date: d1, Contents: []diary.FlatDiaryEntry{
				{Meal: "Breakfast", Time: "8:00 AM", Name: "Oatmeal, 1 cup", Calories: "300"},
				{Meal: "Breakfast", Time: "8:00 AM", Name: "Banana, 1 medium", Calories: "105"},
			}},
			{Date: d2, Contents: []diary.FlatDiaryEntry{
				{Meal: "Lunch", Time: "No Time", Name: "Soup, 1 bowl", Calories: "300"},
			}},
		},
		Macro: []diary.MacroBatchRecord{
			{Date: d2, Contents: []diary.MacroRecord{{Name: "Soup", Calories: "300", SaturatedFat: "2"}}},
			{Date: d1, Contents: []diary.MacroRecord{{Name: "Oatmeal"}, {Name: "Banana"}}},
		},
	}
}

func TestSyncArchive(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	a := testArchive()

	res, err := db.SyncArchive(ctx, a)
	if err != nil {
		t.Fatalf("SyncArchive: %v", err)
	}
	if res.Added != 2 || res.Updated != 0 || res.Entries != 3 || res.MacroBatches != 2 {
		t.Errorf("first sync = %+v", res)
	}

	st, err := db.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Days: 2, Entries: 3, MacroBatches: 2, MacroItems: 3, First: datekey.New(2025, 1, 2), Last: datekey.New(2025, 1, 3)}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}

	// A re-sync of the same archive changes nothing.
	res, err = db.SyncArchive(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Updated != 0 || res.Removed != 0 || res.MacroBatches != 2 {
		t.Errorf("idempotent sync = %+v", res)
	}

	// Replace one day, drop the other, append a macro batch.
	a.DailySummary = a.DailySummary[1:]
	a.DailySummary[0].Contents.Calories = "350"
	a.Diary = a.Diary[1:]
	a.Macro = append(a.Macro, diary.MacroBatchRecord{Date: datekey.New(2025, 1, 3)})
	res, err = db.SyncArchive(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Removed != 1 || res.MacroBatches != 3 {
		t.Errorf("changed sync = %+v", res)
	}
	days, err := db.ListDays(ctx, datekey.Key{}, datekey.Key{})
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].Calories != "350" || days[0].Entries != 1 {
		t.Errorf("days = %+v", days)
	}
}

func macroBatchDates(t *testing.T, db *DB) []string {
	t.Helper()
	rows, err := db.sql.Query("SELECT date FROM macro_batches ORDER BY seq")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			t.Fatal(err)
		}
		dates = append(dates, d)
	}
	return dates
}

func TestSyncReplacedArchive(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.SyncArchive(ctx, testArchive()); err != nil {
		t.Fatal(err)
	}

	feb := datekey.New(2025, 2, 1)
	other := archive.Archive{
		Version:      "24.24.0",
		DailySummary: []diary.DailySummaryRecord{{Date: feb, Contents: diary.CalorieTally{Goal: "1800", Calories: "120"}}},
		Diary: []diary.DiaryRecord{{Date: feb, Contents: []diary.FlatDiaryEntry{
			{Meal: "Snacks", Time: "No Time", Name: "Apple, 1 medium", Calories: "120"},
		}}},
		Macro: []diary.MacroBatchRecord{{Date: feb, Contents: []diary.MacroRecord{{Name: "Apple", Calories: "120"}}}},
	}
	res, err := db.SyncArchive(ctx, other)
	if err != nil {
		t.Fatalf("SyncArchive: %v", err)
	}
	if res.Added != 1 || res.Removed != 2 || res.MacroBatches != 1 {
		t.Errorf("sync = %+v", res)
	}

	if got := macroBatchDates(t, db); len(got) != 1 || got[0] != "2025-02-01" {
		t.Errorf("macro batch dates = %v, want [2025-02-01]", got)
	}
	st, err := db.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Days: 1, Entries: 1, MacroBatches: 1, MacroItems: 1, First: feb, Last: feb}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}

func TestListDaysRange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.SyncArchive(ctx, testArchive()); err != nil {
		t.Fatal(err)
	}

	days, err := db.ListDays(ctx, datekey.New(2025, 1, 3), datekey.Key{})
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].Date != datekey.New(2025, 1, 3) {
		t.Errorf("days from 2025-01-03 = %+v", days)
	}

	entries, err := db.ListEntries(ctx, datekey.New(2025, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "Oatmeal, 1 cup" || entries[1].Name != "Banana, 1 medium" {
		t.Errorf("entries = %+v", entries)
	}
}
