package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
	"github.com/ericfisherdev/keyledger/internal/domain/port/driven"
)

// Snapshot is a consistent copy of the store state for rendering.
type Snapshot struct {
	Records   []model.Record
	PendingID string
}

// HasPending reports whether a delete is awaiting confirmation.
func (s Snapshot) HasPending() bool {
	return s.PendingID != ""
}

// RecordStore owns the ordered record sequence and mirrors it to a single
// persisted slot. Every mutation rewrites the whole slot before the store
// accepts another operation.
type RecordStore struct {
	mu       sync.Mutex
	slots    driven.SlotStore
	slotName string
	scheme   model.IDScheme
	now      func() time.Time
	logger   *slog.Logger

	records []model.Record
	nextSeq int
	pending string

	// readErr is set when the slot exists but could not be read. Writes are
	// refused while it is set so the unread value is never overwritten.
	readErr error
}

// Option customizes a RecordStore.
type Option func(*RecordStore)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *RecordStore) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecordStore) { s.logger = logger }
}

// NewRecordStore creates an empty RecordStore backed by the named slot.
// Call Load to populate it from persisted state.
func NewRecordStore(slots driven.SlotStore, slotName string, scheme model.IDScheme, opts ...Option) *RecordStore {
	s := &RecordStore{
		slots:    slots,
		slotName: slotName,
		scheme:   scheme,
		now:      time.Now,
		logger:   slog.Default(),
		records:  []model.Record{},
		nextSeq:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory sequence with the persisted one. A missing,
// unreadable or malformed slot leaves the store empty; the failure is logged
// and never returned. A slot that exists but cannot be read (wrong
// encryption key, I/O failure) also makes the store read-only until the next
// successful Load, see ReadOnly.
func (s *RecordStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []model.Record{}
	s.nextSeq = 1
	s.pending = ""
	s.readErr = nil

	data, err := s.slots.Read(ctx, s.slotName)
	if errors.Is(err, driven.ErrSlotNotFound) {
		s.logger.Info("record slot empty, starting fresh", "slot", s.slotName)
		return
	}
	if err != nil {
		s.readErr = err
		s.logger.Error("failed to read record slot, starting empty and read-only", "slot", s.slotName, "error", err)
		return
	}

	decoded, err := decodeSlot(data)
	if err != nil {
		s.logger.Warn("discarding malformed record slot", "slot", s.slotName, "error", err)
		return
	}

	s.records = decoded.Records
	s.nextSeq = decoded.NextSeq
	s.logger.Info("records loaded", "slot", s.slotName, "count", len(s.records), "next_seq", s.nextSeq)
}

// Create appends a new record and persists the sequence. Input is assumed to
// be validated by the caller. If persisting fails the record is still kept in
// memory and returned together with an error wrapping model.ErrPersist.
func (s *RecordStore) Create(ctx context.Context, username, key string, durationDays int, notes string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	if s.scheme == model.IDSchemeLength {
		seq = len(s.records) + 1
	}

	rec := model.NewRecord(model.FormatID(seq), username, key, durationDays, notes, s.now())
	s.records = append(s.records, rec)
	if seq >= s.nextSeq {
		s.nextSeq = seq + 1
	}

	if err := s.persistLocked(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// RequestDelete marks id as awaiting confirmation, replacing any earlier
// pending id. Returns model.ErrRecordNotFound without touching the marker if
// no record has that id.
func (s *RecordStore) RequestDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return fmt.Errorf("request delete %q: %w", id, model.ErrRecordNotFound)
	}
	s.pending = id
	return nil
}

// ConfirmDelete removes every record carrying the pending id, persists the
// sequence and clears the marker. It returns the id that was pending and
// whether anything was removed. With nothing pending it is a no-op. A
// persistence failure leaves the records removed in memory and returns an
// error wrapping model.ErrPersist.
func (s *RecordStore) ConfirmDelete(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.pending
	if id == "" {
		return "", false, nil
	}
	s.pending = ""

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r model.Record) bool { return r.ID == id })
	if len(s.records) == before {
		return id, false, nil
	}

	if err := s.persistLocked(ctx); err != nil {
		return id, true, err
	}
	return id, true, nil
}

// CancelDelete clears the pending marker without touching the sequence.
func (s *RecordStore) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = ""
}

// PendingDelete returns the id awaiting confirmation, if any.
func (s *RecordStore) PendingDelete() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != ""
}

// Records returns a copy of the sequence in creation order.
func (s *RecordStore) Records() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Snapshot returns the sequence and the pending marker read together.
func (s *RecordStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Records: slices.Clone(s.records), PendingID: s.pending}
}

// ReadOnly returns the error that made the last Load fail to read an existing
// slot, or nil when writes are allowed.
func (s *RecordStore) ReadOnly() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Check reads the slot without changing the store. A missing slot is healthy.
func (s *RecordStore) Check(ctx context.Context) error {
	if err := s.ReadOnly(); err != nil {
		return fmt.Errorf("record slot %q is read-only: %w", s.slotName, err)
	}

	data, err := s.slots.Read(ctx, s.slotName)
	if errors.Is(err, driven.ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read record slot %q: %w", s.slotName, err)
	}
	if _, err := decodeSlot(data); err != nil {
		return fmt.Errorf("decode record slot %q: %w", s.slotName, err)
	}
	return nil
}

// Now returns the store's current time, which is the clock CreatedAt uses.
func (s *RecordStore) Now() time.Time {
	return s.now()
}

func (s *RecordStore) indexLocked(id string) int {
	return slices.IndexFunc(s.records, func(r model.Record) bool { return r.ID == id })
}

// persistLocked rewrites the whole slot. Callers must hold s.mu.
func (s *RecordStore) persistLocked(ctx context.Context) error {
	if s.readErr != nil {
		return fmt.Errorf("%w: slot %q was not readable at load: %w", model.ErrPersist, s.slotName, s.readErr)
	}

	data, err := encodeSlot(s.records, s.nextSeq)
	if err != nil {
		s.logger.Error("failed to encode record slot", "slot", s.slotName, "error", err)
		return fmt.Errorf("%w: %w", model.ErrPersist, err)
	}

	if err := s.slots.Write(ctx, s.slotName, data); err != nil {
		s.logger.Error("failed to persist record slot", "slot", s.slotName, "count", len(s.records), "error", err)
		return fmt.Errorf("%w: %w", model.ErrPersist, err)
	}
	return nil
}
