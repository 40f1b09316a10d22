package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const entriesTable = "entries"

var entryColumns = []string{
	"id", "user_id", "date", "time", "mood", "description", "activities", "created_at", "updated_at",
}

// psql builds PostgreSQL ($n) placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresEntries stores entries in PostgreSQL with text[] tag columns.
// Ids are UUIDs; a malformed id is reported as not found.
type PostgresEntries struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresEntries(db *sql.DB) *PostgresEntries {
	return &PostgresEntries{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.Entry, error) {
	var (
		e          models.Entry
		mood       string
		feelings   pq.StringArray
		activities pq.StringArray
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Date, &e.Time, &mood, &feelings, &activities, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.Entry{}, err
	}
	e.Mood = models.Mood(mood)
	e.Feelings = []string(feelings)
	e.Activities = []string(activities)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return cloneEntry(e), nil
}

func (s *PostgresEntries) Insert(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	now := s.now().UTC().Truncate(time.Microsecond)

	query, args, err := psql.Insert(entriesTable).
		Columns(entryColumns...).
		Values(
			uuid.NewString(), entry.OwnerID, entry.Date, entry.Time, string(entry.Mood),
			pq.StringArray(nonNil(entry.Feelings)), pq.StringArray(nonNil(entry.Activities)),
			now, now,
		).
		Suffix("RETURNING " + strings.Join(entryColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	out, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &out, nil
}

func (s *PostgresEntries) ListByOwner(ctx context.Context, ownerID string, q models.EntryQuery) ([]models.Entry, int64, error) {
	where := squirrel.And{squirrel.Eq{"user_id": ownerID}}
	if q.Date != "" {
		where = append(where, squirrel.Eq{"date": q.Date})
	}
	if q.From != "" {
		where = append(where, squirrel.GtOrEq{"date": q.From})
	}
	if q.To != "" {
		where = append(where, squirrel.LtOrEq{"date": q.To})
	}
	if q.Mood != "" {
		where = append(where, squirrel.Eq{"mood": string(q.Mood)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(entriesTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	sel := psql.Select(entryColumns...).
		From(entriesTable).
		Where(where).
		OrderBy("date DESC", "created_at DESC")
	if q.Skip > 0 {
		sel = sel.Offset(uint64(q.Skip))
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, total, nil
}

func (s *PostgresEntries) UpdateOwned(ctx context.Context, id, ownerID string, patch models.EntryPatch) (*models.Entry, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	// uuid.UUID is an array; squirrel.Eq would expand it into an IN list.
	upd := psql.Update(entriesTable).
		Set("updated_at", s.now().UTC().Truncate(time.Microsecond)).
		Where(squirrel.Eq{"id": uid.String(), "user_id": ownerID}).
		Suffix("RETURNING " + strings.Join(entryColumns, ", "))
	if patch.Mood != nil {
		upd = upd.Set("mood", string(*patch.Mood))
	}
	if patch.Feelings != nil {
		upd = upd.Set("description", pq.StringArray(nonNil(*patch.Feelings)))
	}
	if patch.Activities != nil {
		upd = upd.Set("activities", pq.StringArray(nonNil(*patch.Activities)))
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	out, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return &out, nil
}

func (s *PostgresEntries) DeleteOwned(ctx context.Context, id, ownerID string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.ErrNotFound
	}

	query, args, err := psql.Delete(entriesTable).
		Where(squirrel.Eq{"id": uid.String(), "user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresEntries) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
