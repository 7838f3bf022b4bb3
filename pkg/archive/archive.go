// Package archive owns the JSON file scraped diary days are kept in.
//
// Daily summaries and diaries hold at most one record per date; merging a
// record for a date already present replaces it. Macro batches are only ever
// appended.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/diaryscope/diaryscope/internal/utils"
	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
)

// ErrUnreadable is returned by Load when the file is not a valid archive.
var ErrUnreadable = errors.New("archive unreadable")

// Archive is the file's content.
type Archive struct {
	Version      string                     `json:"app_sw_version"`
	DailySummary []diary.DailySummaryRecord `json:"DailySummary"`
	Diary        []diary.DiaryRecord        `json:"Diary"`
	Macro        []diary.MacroBatchRecord   `json:"Macro"`
}

func empty() Archive {
	return Archive{
		Version:      app.SoftwareVersion,
		DailySummary: []diary.DailySummaryRecord{},
		Diary:        []diary.DiaryRecord{},
		Macro:        []diary.MacroBatchRecord{},
	}
}

func (a *Archive) normalize() {
	if a.DailySummary == nil {
		a.DailySummary = []diary.DailySummaryRecord{}
	}
	if a.Diary == nil {
		a.Diary = []diary.DiaryRecord{}
	}
	if a.Macro == nil {
		a.Macro = []diary.MacroBatchRecord{}
	}
}

// Load reads an archive file without creating or repairing it.
func Load(path string) (Archive, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Archive{}, err
	}
	var a Archive
	if err := json.Unmarshal(b, &a); err != nil {
		return Archive{}, fmt.Errorf("%s: %w: %v", path, ErrUnreadable, err)
	}
	a.normalize()
	return a, nil
}

// Store is the sole writer of one archive file.
type Store struct {
	path string

	mu   sync.Mutex
	data Archive
}

// Open loads the archive at path. A missing file is created empty. A file
// that cannot be decoded is moved to path+".bak" and replaced by an empty
// archive.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	a, err := Load(path)
	switch {
	case err == nil:
		s.data = a
		return s, nil
	case errors.Is(err, os.ErrNotExist):
		utils.Log.Infof("Creating archive %s", path)
	case errors.Is(err, ErrUnreadable):
		backup := path + ".bak"
		utils.Log.Warnf("Archive %s is unreadable (%v), moving it to %s", path, err, backup)
		if err := os.Rename(path, backup); err != nil {
			return nil, fmt.Errorf("moving unreadable archive aside: %w", err)
		}
	default:
		return nil, err
	}
	s.data = empty()
	if err := s.Persist(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

type dated interface {
	Key() datekey.Key
}

// mergeByDate puts r in front, sorts stably by date and keeps the first
// record of every date, so r replaces any earlier record for its date.
func mergeByDate[R dated](list []R, r R) []R {
	merged := make([]R, 0, len(list)+1)
	merged = append(merged, r)
	merged = append(merged, list...)
	slices.SortStableFunc(merged, func(a, b R) int { return a.Key().Compare(b.Key()) })

	out := merged[:0]
	for _, rec := range merged {
		if len(out) > 0 && out[len(out)-1].Key() == rec.Key() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *Store) MergeDailySummary(r diary.DailySummaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.DailySummary = mergeByDate(s.data.DailySummary, r)
}

func (s *Store) MergeDiary(r diary.DiaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Diary = mergeByDate(s.data.Diary, r)
}

func (s *Store) AppendMacro(r diary.MacroBatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Macro = append(s.data.Macro, r)
}

// MergeDay merges the three records of one scraped day.
func (s *Store) MergeDay(d diary.Day) {
	s.MergeDailySummary(d.Summary())
	s.MergeDiary(d.DiaryRecord())
	s.AppendMacro(d.MacroBatch())
}

// Persist rewrites the whole file. The new content is written next to it
// and renamed over it, so readers see either the old or the new archive.
func (s *Store) Persist() error {
	s.mu.Lock()
	b, err := json.MarshalIndent(s.data, "", "    ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("persisting archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("persisting archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persisting archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persisting archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("persisting archive: %w", err)
	}
	return nil
}

// Archive returns a copy of the in-memory archive.
func (s *Store) Archive() Archive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Archive{
		Version:      s.data.Version,
		DailySummary: slices.Clone(s.data.DailySummary),
		Diary:        slices.Clone(s.data.Diary),
		Macro:        slices.Clone(s.data.Macro),
	}
}

// Stats summarizes an archive.
type Stats struct {
	Version        string
	DailySummaries int
	Diaries        int
	MacroBatches   int
	FoodEntries    int
	First, Last    datekey.Key
}

func (a Archive) Stats() Stats {
	st := Stats{
		Version:        a.Version,
		DailySummaries: len(a.DailySummary),
		Diaries:        len(a.Diary),
		MacroBatches:   len(a.Macro),
	}
	for _, d := range a.Diary {
		st.FoodEntries += len(d.Contents)
	}
	if len(a.Diary) > 0 {
		st.First = a.Diary[0].Date
		st.Last = a.Diary[len(a.Diary)-1].Date
	}
	return st
}

func (s *Store) Stats() Stats {
	return s.Archive().Stats()
}
