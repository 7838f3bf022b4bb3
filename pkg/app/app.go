// Package app describes the screens of the nutrition diary application the
// engine is tailored to: resource identifiers, content-desc templates and the
// date layouts rendered by its controls.
package app

import (
	"strconv"
	"time"
)

// SoftwareVersion is the application release the identifiers below were
// taken from. It stamps every new archive.
const SoftwareVersion = "24.24.0"

const pkgPrefix = "com.myfitnesspal.android:id/"

func id(name string) string { return pkgPrefix + name }

// Bottom ribbon and toolbar.
var (
	BottomContainer  = id("bottomContainer")
	NavigationBar    = "android:id/navigationBarBackground"
	ToolbarContainer = id("toolbar_container")

	TabDashboard = id("action_dashboard")
	TabDiary     = id("action_diary")
	TabPlans     = id("action_plans")
	TabMore      = id("action_more")

	// RibbonTabs are the last four content-desc carrying elements of every
	// application screen, in order.
	RibbonTabs = []string{TabDashboard, TabDiary, TabPlans, TabMore}
)

// Diary screen.
var (
	DiaryTitle      = "Diary"
	DiaryRecycler   = id("diary_recycler_view")
	DiaryDate       = id("btnDate")
	DatePicker      = id("date_bar")
	PreviousDay     = id("btnPrevious")
	NextDay         = id("btnNext")
	CompleteDiary   = id("btnComplete")
	CalorieGoal     = id("goal")
	CalorieFood     = id("food")
	MealHeader      = id("sectionHeaderRelativeLayout")
	MealName        = id("txtSectionHeader")
	FoodItem        = id("foodSearchViewFoodItem")
	ItemDescription = id("txtItemDescription")
	ItemDetails     = id("txtItemDetails")
	ItemCalories    = id("txtCalories")
	EntryTimestamp  = id("entry_timestamp")
)

// Calendar picker.
var (
	PickerSelectionFrame = id("mtrl_calendar_selection_frame")
	PickerYearFrame      = id("mtrl_calendar_year_selector_frame")
	PickerSelectedDate   = id("mtrl_picker_header_selection_text")
	PickerPendingToggle  = id("month_navigation_fragment_toggle")
	PickerPreviousMonth  = id("month_navigation_previous")
	PickerNextMonth      = id("month_navigation_next")
	PickerConfirm        = id("confirm_button")
	PickerCancel         = id("cancel_button")
)

// Date layouts rendered by the application.
const (
	// SelectedDateLayout is the picker header, e.g. "Jan 4, 2025".
	SelectedDateLayout = "Jan 2, 2006"
	// PendingDateLayout is the month toggle, e.g. "January 2025".
	PendingDateLayout = "January 2006"
	// DayLabelLayout is a day cell content-desc within the current year, e.g. "Sat, Jan 4".
	DayLabelLayout = "Mon, Jan 2"
	// DayLabelYearLayout is the year-qualified day cell content-desc, e.g. "Fri, Jan 3, 2025".
	DayLabelYearLayout = "Mon, Jan 2, 2006"
	// DiaryDateLayout is the diary header for dates away from today, e.g. "Saturday, Jan 4, 2025".
	DiaryDateLayout = "Monday, Jan 2, 2006"

	TodayPrefix = "Today "
)

// Year cells in the picker's year view.
const (
	YearDescPrefix  = "Navigate to "
	yearDesc        = "Navigate to year "
	currentYearDesc = "Navigate to current year "
	YearDescMarker  = " year "
)

// YearDesc is the content-desc of the year cell for year, which the picker
// renders differently for the current year.
func YearDesc(year int, now time.Time) string {
	if year == now.Year() {
		return currentYearDesc + strconv.Itoa(year)
	}
	return yearDesc + strconv.Itoa(year)
}

// Meal buckets that hold no food and therefore have no macro detail.
const (
	MealWater    = "Water"
	MealExercise = "Exercise"
)

// MacroField is one labelled value on the food detail screen.
type MacroField struct {
	Name       string
	ResourceID string
}

// MacroFields lists every value read from the food detail screen, in screen
// order. Names are the archive keys.
var MacroFields = []MacroField{
	{"meal", id("textMeal")},
	{"time", id("textTimeValue")},
	{"name", id("txtFoodName")},
	{"units", id("txtServingSize")},
	{"servings", id("txtNoOfServings")},
	{"calories", id("txtCalories")},
	{"carbohydrates", id("txtTotalCarbs")},
	{"fat", id("txtTotalFat")},
	{"protein", id("txtProtein")},
	{"vitamin a", id("txtVitaminA")},
	{"cholesterol", id("txtCholesterol")},
	{"saturated fat", id("txtSaturated")},
	{"polyunsaturated fat", id("txtPolyunsaturated")},
	{"monounsaturated fat", id("txtMonosaturated")},
	{"trans fat", id("txtTrans")},
	{"sodium", id("txtSodium")},
	{"potassium", id("txtPotassium")},
	{"fiber", id("txtDietaryFiber")},
	{"sugar", id("txtSugars")},
	{"vitamin c", id("txtVitaminC")},
	{"calcium", id("txtCalcium")},
	{"iron", id("txtIron")},
}
