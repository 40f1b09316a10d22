package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/pkg/ctxutil"
)

type entryRepo interface {
	Insert(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	ListByOwner(ctx context.Context, ownerID string, q models.EntryQuery) ([]models.Entry, int64, error)
	UpdateOwned(ctx context.Context, id, ownerID string, patch models.EntryPatch) (*models.Entry, error)
	DeleteOwned(ctx context.Context, id, ownerID string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, ev EntryEvent) error
}

// EntryService is the ownership-scoped entry API. Every method reads the verified
// subject from ctx and fails with models.ErrUnauthorized before touching the store
// when it is absent.
type EntryService struct {
	entries   entryRepo
	publisher eventPublisher
	log       *slog.Logger
	now       func() time.Time
}

// NewEntryService creates an EntryService. publisher may be nil.
func NewEntryService(log *slog.Logger, entries entryRepo, publisher eventPublisher) *EntryService {
	return &EntryService{
		entries:   entries,
		publisher: publisher,
		log:       log.With("service", "entry"),
		now:       time.Now,
	}
}

// ListEntriesResult is one page of an owner's entries plus the unpaged total.
type ListEntriesResult struct {
	Entries []models.Entry
	Total   int64
}

// List returns the caller's entries, newest first. An empty result is not an error.
func (s *EntryService) List(ctx context.Context, input ListEntriesInput) (*ListEntriesResult, error) {
	ownerID, ok := ctxutil.SubjectFromCtx(ctx)
	if !ok {
		return nil, models.ErrUnauthorized
	}

	query, err := input.query()
	if err != nil {
		return nil, err
	}

	entries, total, err := s.entries.ListByOwner(ctx, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	return &ListEntriesResult{Entries: entries, Total: total}, nil
}

// Create validates and stores a new entry owned by the caller.
func (s *EntryService) Create(ctx context.Context, input CreateEntryInput) (*models.Entry, error) {
	ownerID, ok := ctxutil.SubjectFromCtx(ctx)
	if !ok {
		return nil, models.ErrUnauthorized
	}

	entry, err := input.normalize(s.now())
	if err != nil {
		return nil, err
	}
	entry.OwnerID = ownerID

	created, err := s.entries.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	s.log.InfoContext(ctx, "entry created",
		slog.String("owner_id", ownerID),
		slog.String("entry_id", created.ID),
	)
	s.publish(ctx, EntryCreated, created.ID, created)

	return created, nil
}

// Update merges the supplied mood, feelings and activities into the caller's entry.
// A missing entry and someone else's entry both yield models.ErrNotFound.
func (s *EntryService) Update(ctx context.Context, input UpdateEntryInput) (*models.Entry, error) {
	ownerID, ok := ctxutil.SubjectFromCtx(ctx)
	if !ok {
		return nil, models.ErrUnauthorized
	}

	patch, err := input.normalize()
	if err != nil {
		return nil, err
	}

	updated, err := s.entries.UpdateOwned(ctx, input.EntryID, ownerID, patch)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.log.InfoContext(ctx, "entry updated",
		slog.String("owner_id", ownerID),
		slog.String("entry_id", updated.ID),
	)
	s.publish(ctx, EntryUpdated, updated.ID, updated)

	return updated, nil
}

// Delete removes the caller's entry.
func (s *EntryService) Delete(ctx context.Context, input DeleteEntryInput) error {
	ownerID, ok := ctxutil.SubjectFromCtx(ctx)
	if !ok {
		return models.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return err
	}

	if err := s.entries.DeleteOwned(ctx, input.EntryID, ownerID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.log.InfoContext(ctx, "entry deleted",
		slog.String("owner_id", ownerID),
		slog.String("entry_id", input.EntryID),
	)
	s.publish(ctx, EntryDeleted, input.EntryID, nil)

	return nil
}

// publish notifies listeners of a committed change. Failures are logged only.
func (s *EntryService) publish(ctx context.Context, typ EntryEventType, entryID string, entry *models.Entry) {
	if s.publisher == nil {
		return
	}
	ownerID, _ := ctxutil.SubjectFromCtx(ctx)
	ev := EntryEvent{
		Type:      typ,
		OwnerID:   ownerID,
		EntryID:   entryID,
		Entry:     entry,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.WarnContext(ctx, "entry event publish failed",
			slog.String("type", string(typ)),
			slog.String("entry_id", entryID),
			slog.String("error", err.Error()),
		)
	}
}
