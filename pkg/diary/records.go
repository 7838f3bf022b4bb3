package diary

import "github.com/diaryscope/diaryscope/pkg/datekey"

type DailySummaryRecord struct {
	Date     datekey.Key  `json:"date"`
	Contents CalorieTally `json:"contents"`
}

type DiaryRecord struct {
	Date     datekey.Key      `json:"date"`
	Contents []FlatDiaryEntry `json:"contents"`
}

type MacroBatchRecord struct {
	Date     datekey.Key   `json:"date"`
	Contents []MacroRecord `json:"contents"`
}

func (r DailySummaryRecord) Key() datekey.Key { return r.Date }
func (r DiaryRecord) Key() datekey.Key { return r.Date }
func (r MacroBatchRecord) Key() datekey.Key { return r.Date }

// Day is everything read from one diary date.
type Day struct {
	Date   datekey.Key
	Tally  CalorieTally
	Diary  []FlatDiaryEntry
	Macros []MacroRecord
}

func (d Day) Summary() DailySummaryRecord {
	return DailySummaryRecord{Date: d.Date, Contents: d.Tally}
}

func (d Day) DiaryRecord() DiaryRecord {
	contents := d.Diary
	if contents == nil {
		contents = []FlatDiaryEntry{}
	}
	return DiaryRecord{Date: d.Date, Contents: contents}
}

func (d Day) MacroBatch() MacroBatchRecord {
	contents := d.Macros
	if contents == nil {
		contents = []MacroRecord{}
	}
	return MacroBatchRecord{Date: d.Date, Contents: contents}
}
