package drivertest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/driver"
)

// View is the screen the simulated application currently shows.
type View int

const (
	ViewHome View = iota
	ViewDiary
	ViewPicker
	ViewYears
	ViewMacro
)

// Screen geometry, in pixels.
const (
	ScreenWidth  = 1080
	ScreenHeight = 1950
	ListTop      = 300
	RibbonTop    = 1800
	RowHeight    = 150
	listPadding  = 50
	macroTop     = 200
	yearRows     = 8
	yearTop      = 400
)

// Food is one logged item of a simulated diary day.
type Food struct {
	Description string
	Details     string
	Time        string
	Calories    string
	// Macros overrides detail screen values by field name; unset fields show "0".
	Macros map[string]string
	// Hidden lists detail screen fields that are never rendered.
	Hidden []string
}

// Section is a meal header and its foods.
type Section struct {
	Meal  string
	Foods []Food
}

// Day is the diary content of one date.
type Day struct {
	Goal     string
	Food     string
	Sections []Section
}

// Calories sums the calories of every food in the day.
func (d *Day) Calories() int {
	total := 0
	for _, s := range d.Sections {
		for _, f := range s.Foods {
			n, _ := strconv.Atoi(strings.ReplaceAll(f.Calories, ",", ""))
			total += n
		}
	}
	return total
}

// App simulates the nutrition diary application: the diary list with its
// recycled rows, the bottom ribbon, the date picker with year view and the
// food detail screen.
type App struct {
	Today   datekey.Key
	Current datekey.Key
	Days    map[datekey.Key]*Day
	View    View

	MinYear, MaxYear int

	// StuckArrows makes the picker month arrows ignore clicks.
	StuckArrows bool
	// SelectShift is added to the date a day cell click selects.
	SelectShift int

	offset      int
	macroOffset int
	openMeal    string
	openFood    *Food

	selected       datekey.Key
	pendingYear    int
	pendingMonth   time.Month
	firstYearShown int

	PickerOpens int
	DaySteps    int
	YearScrolls int
	ListScrolls int
	MacroOpens  int
}

// NewApp returns an application showing today's diary.
func NewApp(today datekey.Key) *App {
	return &App{
		Today:   today,
		Current: today,
		Days:    map[datekey.Key]*Day{},
		View:    ViewDiary,
		MinYear: 1900,
		MaxYear: 2100,
	}
}

// Screen wraps the application in a driver.
func (a *App) Screen() *Screen { return NewScreen(a) }

// Now is a clock anchored on the application's notion of today.
func (a *App) Now() time.Time {
	return a.Today.Time().Add(12 * time.Hour)
}

// SetDay installs the diary content of date, computing the food total when
// day.Food is empty.
func (a *App) SetDay(date datekey.Key, day *Day) {
	if day.Food == "" {
		day.Food = strconv.Itoa(day.Calories())
	}
	if day.Goal == "" {
		day.Goal = "2000"
	}
	a.Days[date] = day
}

func (a *App) day() *Day {
	if d, ok := a.Days[a.Current]; ok {
		return d
	}
	return &Day{Goal: "2000", Food: "0"}
}

func (a *App) showDiary(date datekey.Key) {
	a.Current = date
	a.View = ViewDiary
	a.offset = 0
}

func (a *App) Render() *Node {
	root := &Node{Key: "root", Class: "android.widget.FrameLayout", Rect: driver.Rect{Width: ScreenWidth, Height: ScreenHeight}}
	switch a.View {
	case ViewHome:
		root.Children = append(root.Children, a.toolbar("Today"), a.ribbon())
	case ViewDiary:
		root.Children = append(root.Children, a.toolbar(app.DiaryTitle))
		root.Children = append(root.Children, a.dateBar()...)
		root.Children = append(root.Children, a.tally()...)
		root.Children = append(root.Children, a.list(), a.ribbon())
	case ViewPicker:
		root.Children = append(root.Children, a.pickerHeader()...)
		root.Children = append(root.Children, a.monthGrid()...)
	case ViewYears:
		root.Children = append(root.Children, a.pickerHeader()...)
		root.Children = append(root.Children, a.yearList())
	case ViewMacro:
		root.Children = append(root.Children, a.macroFields()...)
		root.Children = append(root.Children, &Node{
			Key:  "navbar",
			ID:   app.NavigationBar,
			Rect: driver.Rect{Y: ScreenHeight, Width: ScreenWidth, Height: 100},
		})
	}
	return root
}

func (a *App) toolbar(title string) *Node {
	return &Node{
		Key:  "toolbar",
		ID:   app.ToolbarContainer,
		Rect: driver.Rect{Width: ScreenWidth, Height: 100},
		Children: []*Node{{
			Key:   "toolbar:title",
			Class: "android.widget.TextView",
			Text:  title,
			Rect:  driver.Rect{X: 40, Y: 20, Width: 400, Height: 60},
		}},
	}
}

func (a *App) ribbon() *Node {
	n := &Node{
		Key:  "ribbon",
		ID:   app.BottomContainer,
		Rect: driver.Rect{Y: RibbonTop, Width: ScreenWidth, Height: ScreenHeight - RibbonTop},
	}
	labels := []string{"Dashboard", "Diary", "Plans", "More"}
	for i, id := range app.RibbonTabs {
		tab := &Node{
			Key:  "tab:" + labels[i],
			ID:   id,
			Desc: labels[i],
			Rect: driver.Rect{X: i * ScreenWidth / 4, Y: RibbonTop, Width: ScreenWidth / 4, Height: ScreenHeight - RibbonTop},
		}
		if id == app.TabDiary {
			tab.OnClick = func() { a.showDiary(a.Current) }
		}
		if id == app.TabDashboard {
			tab.OnClick = func() { a.View = ViewHome }
		}
		n.Children = append(n.Children, tab)
	}
	return n
}

// DiaryLabel is the diary header text for date.
func (a *App) DiaryLabel(date datekey.Key) string {
	switch date {
	case a.Today:
		return "Today"
	case a.Today.AddDays(-1):
		return "Yesterday"
	case a.Today.AddDays(1):
		return "Tomorrow"
	}
	if date.Year == a.Today.Year {
		return date.Format("Monday, Jan 2")
	}
	return date.Format(app.DiaryDateLayout)
}

func (a *App) dateBar() []*Node {
	return []*Node{
		{
			Key:     "datebar",
			ID:      app.DatePicker,
			Rect:    driver.Rect{X: 150, Y: 100, Width: ScreenWidth - 300, Height: 100},
			OnClick: a.openPicker,
			Children: []*Node{{
				Key:  "datebar:label",
				ID:   app.DiaryDate,
				Text: a.DiaryLabel(a.Current),
				Rect: driver.Rect{X: 200, Y: 120, Width: 680, Height: 60},
			}},
		},
		{
			Key:  "datebar:previous",
			ID:   app.PreviousDay,
			Rect: driver.Rect{Y: 100, Width: 150, Height: 100},
			OnClick: func() {
				a.DaySteps++
				a.showDiary(a.Current.AddDays(-1))
			},
		},
		{
			Key:  "datebar:next",
			ID:   app.NextDay,
			Rect: driver.Rect{X: ScreenWidth - 150, Y: 100, Width: 150, Height: 100},
			OnClick: func() {
				a.DaySteps++
				a.showDiary(a.Current.AddDays(1))
			},
		},
	}
}

func (a *App) tally() []*Node {
	d := a.day()
	return []*Node{
		{Key: "tally:goal", ID: app.CalorieGoal, Text: d.Goal, Rect: driver.Rect{X: 0, Y: 200, Width: 300, Height: 100}},
		{Key: "tally:food", ID: app.CalorieFood, Text: d.Food, Rect: driver.Rect{X: 300, Y: 200, Width: 300, Height: 100}},
	}
}

type listRow struct {
	meal string
	food *Food
	done bool
}

func (a *App) rows() []listRow {
	var rows []listRow
	for si := range a.day().Sections {
		s := &a.day().Sections[si]
		rows = append(rows, listRow{meal: s.Meal})
		for fi := range s.Foods {
			rows = append(rows, listRow{meal: s.Meal, food: &s.Foods[fi]})
		}
	}
	return append(rows, listRow{done: true})
}

func (a *App) maxOffset() int {
	content := len(a.rows()) * RowHeight
	return max(0, content-(RibbonTop-ListTop)+listPadding)
}

func (a *App) list() *Node {
	n := &Node{
		Key:  "recycler",
		ID:   app.DiaryRecycler,
		Rect: driver.Rect{Y: ListTop, Width: ScreenWidth, Height: ScreenHeight - ListTop},
	}
	for i, r := range a.rows() {
		top := ListTop + i*RowHeight - a.offset
		bottom := top + RowHeight
		if bottom <= ListTop || top >= ScreenHeight {
			continue
		}
		y := max(top, ListTop)
		rect := driver.Rect{Y: y, Width: ScreenWidth, Height: min(bottom, ScreenHeight) - y}
		n.Children = append(n.Children, a.row(i, r, rect))
	}
	return n
}

func (a *App) row(i int, r listRow, rect driver.Rect) *Node {
	key := fmt.Sprintf("row:%s:%d", a.Current, i)
	row := &Node{Key: key, Class: "android.widget.LinearLayout", Rect: rect}
	switch {
	case r.done:
		row.Children = []*Node{{Key: key + ":complete", ID: app.CompleteDiary, Text: "Complete Diary", Rect: rect}}
	case r.food == nil:
		row.Children = []*Node{{
			Key:  key + ":header",
			ID:   app.MealHeader,
			Rect: rect,
			Children: []*Node{{
				Key:  key + ":meal",
				ID:   app.MealName,
				Text: r.meal,
				Rect: rect,
			}},
		}}
	default:
		f := r.food
		item := &Node{Key: key + ":item", ID: app.FoodItem, Rect: rect}
		item.Children = append(item.Children,
			&Node{Key: key + ":description", ID: app.ItemDescription, Text: f.Description, Rect: rect},
			&Node{Key: key + ":details", ID: app.ItemDetails, Text: f.Details, Rect: rect},
			&Node{Key: key + ":calories", ID: app.ItemCalories, Text: f.Calories, Rect: rect},
		)
		if f.Time != "" {
			item.Children = append(item.Children, &Node{Key: key + ":time", ID: app.EntryTimestamp, Text: f.Time, Rect: rect})
		}
		row.Children = []*Node{item}
		meal := r.meal
		row.OnClick = func() {
			a.MacroOpens++
			a.openMeal = meal
			a.openFood = f
			a.macroOffset = 0
			a.View = ViewMacro
		}
	}
	return row
}

func (a *App) openPicker() {
	a.PickerOpens++
	a.View = ViewPicker
	a.selected = a.Current
	a.pendingYear = a.Current.Year
	a.pendingMonth = a.Current.Month
}

func (a *App) pickerHeader() []*Node {
	return []*Node{
		{Key: "picker:frame", ID: app.PickerSelectionFrame, Rect: driver.Rect{Width: ScreenWidth, Height: 300}},
		{Key: "picker:selected", ID: app.PickerSelectedDate, Text: a.selected.Format(app.SelectedDateLayout), Rect: driver.Rect{X: 40, Y: 100, Width: 600, Height: 100}},
		{
			Key:  "picker:toggle",
			ID:   app.PickerPendingToggle,
			Text: time.Date(a.pendingYear, a.pendingMonth, 1, 0, 0, 0, 0, time.UTC).Format(app.PendingDateLayout),
			Rect: driver.Rect{X: 40, Y: 300, Width: 500, Height: 100},
			OnClick: func() {
				if a.View == ViewYears {
					a.View = ViewPicker
					return
				}
				a.View = ViewYears
				a.firstYearShown = min(max(a.pendingYear-yearRows/2, a.MinYear), a.MaxYear-yearRows+1)
			},
		},
		{Key: "picker:cancel", ID: app.PickerCancel, Rect: driver.Rect{X: 500, Y: 1700, Width: 200, Height: 100}, OnClick: func() { a.View = ViewDiary }},
		{Key: "picker:confirm", ID: app.PickerConfirm, Rect: driver.Rect{X: 800, Y: 1700, Width: 200, Height: 100}, OnClick: func() { a.showDiary(a.selected) }},
	}
}

// DayDesc is the content-desc the picker gives the cell for date.
func (a *App) DayDesc(date datekey.Key) string {
	label := date.Format(app.DayLabelYearLayout)
	if a.pendingYear == a.Today.Year {
		label = date.Format(app.DayLabelLayout)
	}
	if date == a.Today {
		label = app.TodayPrefix + label
	}
	return label
}

func (a *App) monthGrid() []*Node {
	nodes := []*Node{
		{Key: "picker:previous", ID: app.PickerPreviousMonth, Rect: driver.Rect{X: 700, Y: 300, Width: 150, Height: 100}, OnClick: func() { a.stepMonth(-1) }},
		{Key: "picker:next", ID: app.PickerNextMonth, Rect: driver.Rect{X: 880, Y: 300, Width: 150, Height: 100}, OnClick: func() { a.stepMonth(1) }},
	}
	first := datekey.New(a.pendingYear, a.pendingMonth, 1)
	for d := first; d.Month == a.pendingMonth; d = d.AddDays(1) {
		date := d
		week := (d.Day - 1 + int(first.Time().Weekday())) / 7
		nodes = append(nodes, &Node{
			Key:     "day:" + d.String(),
			Desc:    a.DayDesc(d),
			Text:    strconv.Itoa(d.Day),
			Rect:    driver.Rect{X: int(d.Time().Weekday()) * 150, Y: 450 + week*150, Width: 150, Height: 150},
			OnClick: func() { a.selected = date.AddDays(a.SelectShift) },
		})
	}
	return nodes
}

func (a *App) stepMonth(delta int) {
	if a.StuckArrows {
		return
	}
	t := time.Date(a.pendingYear, a.pendingMonth+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	a.pendingYear, a.pendingMonth = t.Year(), t.Month()
}

func (a *App) yearList() *Node {
	n := &Node{Key: "years", ID: app.PickerYearFrame, Rect: driver.Rect{Y: yearTop, Width: ScreenWidth, Height: yearRows * RowHeight}}
	for i := 0; i < yearRows; i++ {
		year := a.firstYearShown + i
		if year > a.MaxYear {
			break
		}
		n.Children = append(n.Children, &Node{
			Key:  "year:" + strconv.Itoa(year),
			Desc: app.YearDesc(year, a.Now()),
			Text: strconv.Itoa(year),
			Rect: driver.Rect{Y: yearTop + i*RowHeight, Width: ScreenWidth, Height: RowHeight},
			OnClick: func() {
				a.pendingYear = year
				a.View = ViewPicker
			},
		})
	}
	return n
}

func (a *App) macroValue(name string) string {
	f := a.openFood
	if v, ok := f.Macros[name]; ok {
		return v
	}
	switch name {
	case "meal":
		return a.openMeal
	case "time":
		return f.Time
	case "name":
		return f.Description
	case "calories":
		return f.Calories
	case "units":
		return f.Details
	case "servings":
		return "1"
	}
	return "0"
}

func (a *App) macroFields() []*Node {
	var nodes []*Node
	for i, field := range app.MacroFields {
		hidden := false
		for _, h := range a.openFood.Hidden {
			if h == field.Name {
				hidden = true
			}
		}
		top := macroTop + i*RowHeight - a.macroOffset
		bottom := top + RowHeight
		if hidden || bottom <= 100 || top >= ScreenHeight {
			continue
		}
		y := max(top, 100)
		nodes = append(nodes, &Node{
			Key:  "macro:" + field.Name,
			ID:   field.ResourceID,
			Text: a.macroValue(field.Name),
			Rect: driver.Rect{X: 600, Y: y, Width: 400, Height: min(bottom, ScreenHeight) - y},
		})
	}
	return nodes
}

func (a *App) Scroll(from, to driver.Rect, d time.Duration) {
	delta := from.Y - to.Y
	switch a.View {
	case ViewDiary:
		a.ListScrolls++
		a.offset = min(max(a.offset+delta, 0), a.maxOffset())
	case ViewYears:
		a.YearScrolls++
		shift := delta / RowHeight
		a.firstYearShown = min(max(a.firstYearShown+shift, a.MinYear), a.MaxYear-yearRows+1)
	case ViewMacro:
		limit := max(0, macroTop+len(app.MacroFields)*RowHeight-(ScreenHeight-listPadding))
		a.macroOffset = min(max(a.macroOffset+delta, 0), limit)
	}
}

func (a *App) Back() {
	switch a.View {
	case ViewMacro:
		a.View = ViewDiary
		a.openFood = nil
	case ViewPicker, ViewYears:
		a.View = ViewDiary
	}
}
