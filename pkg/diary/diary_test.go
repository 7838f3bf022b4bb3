package diary

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
)

func TestFoldState(t *testing.T) {
	rows := []Row{
		{Kind: KindFood, Name: "Gum, 1 piece", Calories: "5"},
		{Kind: KindMeal, Name: "Breakfast"},
		{Kind: KindFood, Name: "Oatmeal, 1 cup", Time: "8:00 AM", Calories: "300"},
		{Kind: KindFood, Name: "Banana, 1 medium", Calories: "105"},
		{Kind: KindMeal, Name: app.MealWater},
		{Kind: KindFood, Name: "Water, 500 ml", Time: "9:00 AM", Calories: "0"},
		{Kind: KindMeal, Name: "Lunch"},
		{Kind: KindFood, Name: "Soup, 1 bowl", Calories: "210"},
		{Kind: KindMeal, Name: app.MealExercise},
		{Kind: KindFood, Name: "Running, 30 minutes", Calories: "-300"},
	}
	want := []FlatDiaryEntry{
		{UndefinedMeal, NoTime, "Gum, 1 piece", "5"},
		{"Breakfast", "8:00 AM", "Oatmeal, 1 cup", "300"},
		{"Breakfast", "8:00 AM", "Banana, 1 medium", "105"},
		{app.MealWater, "9:00 AM", "Water, 500 ml", "0"},
		{"Lunch", NoTime, "Soup, 1 bowl", "210"},
		{app.MealExercise, NoTime, "Running, 30 minutes", "-300"},
	}

	s := NewFoldState()
	for _, r := range rows {
		if err := s.Apply(r); err != nil {
			t.Fatalf("Apply(%+v): %v", r, err)
		}
	}
	if len(s.Diary) != len(want) {
		t.Fatalf("diary has %d entries, want %d", len(s.Diary), len(want))
	}
	for i := range want {
		if s.Diary[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, s.Diary[i], want[i])
		}
	}

	var queued []string
	for _, r := range s.Queue {
		queued = append(queued, r.Name)
	}
	wantQueued := []string{"Gum, 1 piece", "Oatmeal, 1 cup", "Banana, 1 medium", "Soup, 1 bowl"}
	if len(queued) != len(wantQueued) {
		t.Fatalf("queued %v, want %v", queued, wantQueued)
	}
	for i := range wantQueued {
		if queued[i] != wantQueued[i] {
			t.Errorf("queued[%d] = %q, want %q", i, queued[i], wantQueued[i])
		}
	}
}

func TestFoldStateUnrecognized(t *testing.T) {
	s := NewFoldState()
	if err := s.Apply(Row{Name: "note"}); !errors.Is(err, ErrUnrecognizedRow) {
		t.Errorf("Apply error = %v, want ErrUnrecognizedRow", err)
	}
	if len(s.Diary) != 0 || len(s.Queue) != 0 {
		t.Error("unrecognized row changed the fold")
	}
}

func TestMacroRecordFields(t *testing.T) {
	var m MacroRecord
	for i, f := range app.MacroFields {
		if !m.Set(f.Name, string(rune('a'+i))) {
			t.Errorf("Set(%q) = false", f.Name)
		}
	}
	if m.Set("caffeine", "1") {
		t.Error("Set accepted an unknown field")
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(app.MacroFields) {
		t.Errorf("encoded %d keys, want %d", len(decoded), len(app.MacroFields))
	}
	for i, f := range app.MacroFields {
		if got := decoded[f.Name]; got != string(rune('a'+i)) {
			t.Errorf("key %q = %q", f.Name, got)
		}
		if m.Get(f.Name) != decoded[f.Name] {
			t.Errorf("Get(%q) = %q", f.Name, m.Get(f.Name))
		}
	}
}

func TestParseCalories(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"2000", 2000, false},
		{"1,250", 1250, false},
		{" 95 ", 95, false},
		{"-300", -300, false},
		{"", 0, true},
		{"n/a", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCalories(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCalories(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCalories(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func consistentDay(date datekey.Key) Day {
	return Day{
		Date:  date,
		Tally: CalorieTally{Goal: "2,200", Calories: "2,000"},
		Diary: []FlatDiaryEntry{
			{Meal: "Breakfast", Name: "Oatmeal", Calories: "1,500"},
			{Meal: "Lunch", Name: "Soup", Calories: "500"},
		},
		Macros: []MacroRecord{
			{Name: "Oatmeal", Calories: "1500"},
			{Name: "Soup", Calories: "500"},
		},
	}
}

func TestCheck(t *testing.T) {
	date := datekey.New(2025, 1, 3)
	if err := Check(consistentDay(date), date); err != nil {
		t.Fatalf("Check on consistent day: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Day)
		expect datekey.Key
	}{
		{"declared", func(d *Day) { d.Tally.Calories = "1999" }, date},
		{"diary", func(d *Day) { d.Diary[1].Calories = "499" }, date},
		{"macro", func(d *Day) { d.Macros[1].Calories = "499" }, date},
		{"date", func(d *Day) {}, date.AddDays(1)},
		{"unparsable", func(d *Day) { d.Macros[0].Calories = "" }, date},
	}
	for _, tt := range tests {
		d := consistentDay(date)
		tt.mutate(&d)
		err := Check(d, tt.expect)
		if !errors.Is(err, ErrConsistencyCheckFailed) {
			t.Errorf("%s: Check error = %v, want ErrConsistencyCheckFailed", tt.name, err)
			continue
		}
		var cerr *ConsistencyError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: error is not a *ConsistencyError", tt.name)
		}
	}
}

func TestDayRecords(t *testing.T) {
	date := datekey.New(2025, 1, 3)
	d := Day{Date: date, Tally: CalorieTally{Goal: "2000", Calories: "0"}}

	b, err := json.Marshal(d.DiaryRecord())
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"date":"2025-01-03","contents":[]}` {
		t.Errorf("empty diary record = %s", b)
	}
	b, err = json.Marshal(d.Summary())
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"date":"2025-01-03","contents":{"goal":"2000","calories":"0"}}` {
		t.Errorf("summary record = %s", b)
	}
	if d.MacroBatch().Key() != date {
		t.Errorf("macro batch key = %s", d.MacroBatch().Key())
	}
}
