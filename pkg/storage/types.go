package storage

import "github.com/diaryscope/diaryscope/pkg/datekey"

// Day is one mirrored daily summary with its diary entry count.
type Day struct {
	Date     datekey.Key
	Goal     string
	Calories string
	Entries  int
}

// SyncResult counts what a sync changed.
type SyncResult struct {
	Added        int
	Updated      int
	Removed      int
	Entries      int // diary entries written
	MacroBatches int // macro batches written
}

type Stats struct {
	Days         int
	Entries      int
	MacroBatches int
	MacroItems   int
	First, Last  datekey.Key
}
