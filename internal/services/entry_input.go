package services

import (
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const maxListLimit = 500

// CreateEntryInput holds the parameters for creating an entry.
type CreateEntryInput struct {
	Date           string
	Time           string
	Mood           string
	TimezoneOffset *int // minutes, UTC minus local
	Feelings       []string
	Activities     []string
}

// normalize validates every field, collecting all problems, and returns the entry
// to persist. now supplies the time of day when neither time nor a timestamp is given.
func (i CreateEntryInput) normalize(now time.Time) (*models.Entry, error) {
	var errs []models.FieldError
	collect := func(err error) {
		if ve, ok := err.(*models.ValidationError); ok {
			errs = append(errs, ve.Errors...)
		}
	}

	if strings.TrimSpace(i.Date) == "" {
		errs = append(errs, models.FieldError{Field: "date", Message: "is required"})
	}
	var mood models.Mood
	if strings.TrimSpace(i.Mood) == "" {
		errs = append(errs, models.FieldError{Field: "mood", Message: "is required"})
	} else if m, ok := models.ParseMood(i.Mood); ok {
		mood = m
	} else {
		errs = append(errs, models.FieldError{Field: "mood", Message: "must be one of " + moodList()})
	}

	zone, zerr := ZoneForOffset(i.TimezoneOffset)
	collect(zerr)

	entry := &models.Entry{Mood: mood}

	if strings.TrimSpace(i.Date) != "" && zerr == nil {
		date, at, derr := NormalizeEntryDate(i.Date, zone)
		collect(derr)
		entry.Date = date
		if derr == nil {
			t, terr := NormalizeEntryTime(i.Time, at, zone, now)
			collect(terr)
			entry.Time = t
		}
	}

	feelings, err := NormalizeTags("description", i.Feelings)
	collect(err)
	entry.Feelings = feelings

	activities, err := NormalizeTags("activities", i.Activities)
	collect(err)
	entry.Activities = activities

	if len(errs) > 0 {
		return nil, &models.ValidationError{Errors: errs}
	}
	return entry, nil
}

// UpdateEntryInput holds the parameters for updating an entry.
// Nil fields are left unchanged; an empty slice clears the tags.
type UpdateEntryInput struct {
	EntryID    string
	Mood       *string
	Feelings   *[]string
	Activities *[]string
}

func (i UpdateEntryInput) normalize() (models.EntryPatch, error) {
	var errs []models.FieldError
	var patch models.EntryPatch

	if strings.TrimSpace(i.EntryID) == "" {
		errs = append(errs, models.FieldError{Field: "entryId", Message: "is required"})
	}

	if i.Mood != nil {
		if mood, ok := models.ParseMood(*i.Mood); ok {
			patch.Mood = &mood
		} else {
			errs = append(errs, models.FieldError{Field: "mood", Message: "must be one of " + moodList()})
		}
	}

	for _, f := range []struct {
		name string
		in   *[]string
		out  **[]string
	}{
		{"description", i.Feelings, &patch.Feelings},
		{"activities", i.Activities, &patch.Activities},
	} {
		if f.in == nil {
			continue
		}
		tags, err := NormalizeTags(f.name, *f.in)
		if ve, ok := err.(*models.ValidationError); ok {
			errs = append(errs, ve.Errors...)
			continue
		}
		*f.out = &tags
	}

	if len(errs) > 0 {
		return models.EntryPatch{}, &models.ValidationError{Errors: errs}
	}
	return patch, nil
}

// DeleteEntryInput holds the parameters for deleting an entry.
type DeleteEntryInput struct {
	EntryID string
}

// Validate checks that an entry id was supplied.
func (i DeleteEntryInput) Validate() error {
	if strings.TrimSpace(i.EntryID) == "" {
		return models.NewValidationError("entryId", "is required")
	}
	return nil
}

// ListEntriesInput narrows a listing. Zero values mean no constraint; Limit 0
// returns every matching entry.
type ListEntriesInput struct {
	Date  string
	From  string
	To    string
	Mood  string
	Limit int64
	Skip  int64
}

func (i ListEntriesInput) query() (models.EntryQuery, error) {
	var errs []models.FieldError
	q := models.EntryQuery{Limit: i.Limit, Skip: i.Skip}

	for _, f := range []struct {
		name string
		in   string
		out  *string
	}{
		{"date", i.Date, &q.Date},
		{"from", i.From, &q.From},
		{"to", i.To, &q.To},
	} {
		v := strings.TrimSpace(f.in)
		if v == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, v); err != nil {
			errs = append(errs, models.FieldError{Field: f.name, Message: "must be YYYY-MM-DD"})
			continue
		}
		*f.out = v
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		errs = append(errs, models.FieldError{Field: "from", Message: "must not be after to"})
	}

	if strings.TrimSpace(i.Mood) != "" {
		mood, ok := models.ParseMood(i.Mood)
		if !ok {
			errs = append(errs, models.FieldError{Field: "mood", Message: "must be one of " + moodList()})
		}
		q.Mood = mood
	}

	if i.Limit < 0 || i.Limit > maxListLimit {
		errs = append(errs, models.FieldError{Field: "limit", Message: "must be between 0 and 500"})
	}
	if i.Skip < 0 {
		errs = append(errs, models.FieldError{Field: "skip", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return models.EntryQuery{}, &models.ValidationError{Errors: errs}
	}
	return q, nil
}

func moodList() string {
	names := make([]string, len(models.Moods))
	for i, m := range models.Moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
