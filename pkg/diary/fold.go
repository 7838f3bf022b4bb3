package diary

import (
	"errors"
	"fmt"

	"github.com/diaryscope/diaryscope/pkg/app"
)

// ErrUnrecognizedRow is returned when a row is neither a meal header nor a food item.
var ErrUnrecognizedRow = errors.New("unrecognized diary row")

// Initial fold values, also used for food logged before any meal header or
// without an entry time.
const (
	UndefinedMeal = "Undefined"
	NoTime        = "No Time"
)

// FlatDiaryEntry is one food row with the meal and time it was logged under.
type FlatDiaryEntry struct {
	Meal     string `json:"meal"`
	Time     string `json:"time"`
	Name     string `json:"name"`
	Calories string `json:"calories"`
}

// FoldState accumulates one day's rows in the order they are encountered.
type FoldState struct {
	CurrentMeal string
	CurrentTime string
	Diary       []FlatDiaryEntry
	// Queue holds the food rows whose macro detail must be read.
	Queue []Row
}

func NewFoldState() *FoldState {
	return &FoldState{CurrentMeal: UndefinedMeal, CurrentTime: NoTime}
}

// Apply folds one row.
func (s *FoldState) Apply(r Row) error {
	switch r.Kind {
	case KindMeal:
		s.CurrentMeal = r.Name
		s.CurrentTime = NoTime
	case KindFood:
		if r.Time != "" {
			s.CurrentTime = r.Time
		}
		s.Diary = append(s.Diary, FlatDiaryEntry{
			Meal:     s.CurrentMeal,
			Time:     s.CurrentTime,
			Name:     r.Name,
			Calories: r.Calories,
		})
		if s.CurrentMeal != app.MealWater && s.CurrentMeal != app.MealExercise {
			s.Queue = append(s.Queue, r)
		}
	default:
		return fmt.Errorf("%+v: %w", r, ErrUnrecognizedRow)
	}
	return nil
}
