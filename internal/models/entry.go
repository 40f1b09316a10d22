package models

import (
	"strings"
	"time"
)

// Mood is one of the five levels a user can pick for an entry.
type Mood string

const (
	MoodVeryUnpleasant Mood = "Very Unpleasant"
	MoodUnpleasant     Mood = "Unpleasant"
	MoodNeutral        Mood = "Neutral"
	MoodPleasant       Mood = "Pleasant"
	MoodVeryPleasant   Mood = "Very Pleasant"
)

// Moods lists every valid mood from least to most pleasant.
var Moods = []Mood{
	MoodVeryUnpleasant,
	MoodUnpleasant,
	MoodNeutral,
	MoodPleasant,
	MoodVeryPleasant,
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// ParseMood matches s against the known moods, ignoring case and surrounding space.
func ParseMood(s string) (Mood, bool) {
	s = strings.TrimSpace(s)
	for _, v := range Moods {
		if strings.EqualFold(string(v), s) {
			return v, true
		}
	}
	return "", false
}

// Entry is a single mood-journal record owned by exactly one subject.
type Entry struct {
	ID         string    `json:"_id"`
	OwnerID    string    `json:"ownerId"`
	Date       string    `json:"date"` // YYYY-MM-DD in the user's local calendar
	Time       string    `json:"time"` // hh:mm AM/PM
	Mood       Mood      `json:"mood"`
	Feelings   []string  `json:"description"`
	Activities []string  `json:"activities"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EntryPatch carries the mutable fields of an entry. Nil fields are left unchanged.
type EntryPatch struct {
	Mood       *Mood
	Feelings   *[]string
	Activities *[]string
}

// EntryQuery narrows a listing of one owner's entries.
// Empty strings and zero values mean "no constraint".
type EntryQuery struct {
	Date  string
	From  string
	To    string
	Mood  Mood
	Limit int64
	Skip  int64
}
