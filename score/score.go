// Package score keeps the sorted high score list
package score

import (
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultSize is how many entries a store keeps when none is configured
const DefaultSize = 10

var ErrEmptyName = eris.New("score name is empty")

// Entry is one (score, name) pair
type Entry struct {
	Score int64  `json:"score"`
	Name  string `json:"name"`
}

// Store persists high scores
// Top returns entries best first; a store that was never written returns an empty list
type Store interface {
	Add(ctx context.Context, score int64, name string) error
	Top(ctx context.Context, n int) ([]Entry, error)
}

// compare orders entries descending by score, ties descending by name
func compare(a, b Entry) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	return -strings.Compare(a.Name, b.Name)
}

// Sort orders entries best first
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, compare)
}

// Insert adds e keeping entries sorted and at most size long
func Insert(entries []Entry, e Entry, size int) []Entry {
	i, _ := slices.BinarySearchFunc(entries, e, compare)
	entries = slices.Insert(entries, i, e)
	if size > 0 && len(entries) > size {
		entries = entries[:size]
	}
	return entries
}

// Qualifies reports whether score would enter a full list of the given size
func Qualifies(entries []Entry, score int64, size int) bool {
	if size <= 0 || len(entries) < size {
		return true
	}
	return score > entries[len(entries)-1].Score
}

func head(entries []Entry, n int) []Entry {
	if n < 0 || n > len(entries) {
		n = len(entries)
	}
	return slices.Clone(entries[:n])
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
