package diary

import (
	"context"
	"errors"
	"fmt"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/collector"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// Kind tags a diary list row. The zero value is an unrecognized row.
type Kind int

const (
	KindMeal Kind = iota + 1
	KindFood
)

func (k Kind) String() string {
	switch k {
	case KindMeal:
		return "Meal"
	case KindFood:
		return "Food"
	}
	return "Unrecognized"
}

// Row is what a diary list row displays. Meal rows only carry Name. Food rows
// carry "description, details" as Name, their own entry time ("" when the
// row shows none) and the displayed calories.
type Row struct {
	Kind     Kind
	Name     string
	Time     string
	Calories string
}

// RowLister lists the recycler's rows that look like meal headers or food
// items. A food item whose fields cannot all be read is returned with a zero
// Kind so that folding it fails.
type RowLister struct {
	Driver driver.Driver
}

var _ collector.Lister[Row] = RowLister{}

func (l RowLister) List(ctx context.Context) ([]collector.Row[Row], error) {
	children, err := l.Driver.FindAll(ctx, driver.Children(app.DiaryRecycler))
	if err != nil {
		return nil, fmt.Errorf("listing diary rows: %w", err)
	}
	rows := make([]collector.Row[Row], 0, len(children))
	for _, h := range children {
		kind, err := l.classify(ctx, h)
		if err != nil {
			return nil, err
		}
		if kind == 0 {
			continue
		}
		value, err := l.read(ctx, h, kind)
		if err != nil {
			return nil, err
		}
		rect, err := l.Driver.Rect(ctx, h)
		if err != nil {
			return nil, err
		}
		rows = append(rows, collector.Row[Row]{Handle: h, Rect: rect, Value: value})
	}
	return rows, nil
}

func (l RowLister) classify(ctx context.Context, h driver.Handle) (Kind, error) {
	descendants, err := l.Driver.FindAllIn(ctx, h, driver.AllDescendants())
	if err != nil {
		return 0, err
	}
	for _, d := range descendants {
		id, err := l.Driver.Attribute(ctx, d, "resource-id")
		if err != nil {
			return 0, err
		}
		switch id {
		case app.MealHeader:
			return KindMeal, nil
		case app.FoodItem:
			return KindFood, nil
		}
	}
	return 0, nil
}

func (l RowLister) text(ctx context.Context, h driver.Handle, id string) (string, error) {
	f, err := l.Driver.FindIn(ctx, h, driver.ID(id))
	if err != nil {
		return "", err
	}
	return l.Driver.Text(ctx, f)
}

func (l RowLister) read(ctx context.Context, h driver.Handle, kind Kind) (Row, error) {
	if kind == KindMeal {
		name, err := l.text(ctx, h, app.MealName)
		if errors.Is(err, driver.ErrNotFound) {
			return Row{}, nil
		}
		return Row{Kind: KindMeal, Name: name}, err
	}

	var fields [3]string
	for i, id := range []string{app.ItemDescription, app.ItemDetails, app.ItemCalories} {
		s, err := l.text(ctx, h, id)
		if errors.Is(err, driver.ErrNotFound) {
			return Row{}, nil
		}
		if err != nil {
			return Row{}, err
		}
		fields[i] = s
	}
	entryTime, err := l.text(ctx, h, app.EntryTimestamp)
	if err != nil && !errors.Is(err, driver.ErrNotFound) {
		return Row{}, err
	}
	return Row{
		Kind:     KindFood,
		Name:     fields[0] + ", " + fields[1],
		Time:     entryTime,
		Calories: fields[2],
	}, nil
}
