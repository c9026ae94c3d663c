package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/domain/model"
	"github.com/ericfisherdev/keyledger/internal/domain/port/driven"
)

const testSlot = "users"

// mockSlotStore is an in-memory driven.SlotStore.
type mockSlotStore struct {
	slots    map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMockSlotStore() *mockSlotStore {
	return &mockSlotStore{slots: map[string][]byte{}}
}

func (m *mockSlotStore) Read(_ context.Context, name string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.slots[name]
	if !ok {
		return nil, driven.ErrSlotNotFound
	}
	return v, nil
}

func (m *mockSlotStore) Write(_ context.Context, name string, value []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.slots[name] = append([]byte(nil), value...)
	return nil
}

func (m *mockSlotStore) Clear(_ context.Context, name string) error {
	delete(m.slots, name)
	return nil
}

// fixedClock returns a clock frozen at t that can be moved with set.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time {
	return c.t
}

func (c *fixedClock) set(t time.Time) {
	c.t = t
}

func (c *fixedClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

var (
	jan1   = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	silent = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func newStore(t *testing.T, slots *mockSlotStore, scheme model.IDScheme) (*application.RecordStore, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: jan1}
	s := application.NewRecordStore(slots, testSlot, scheme,
		application.WithClock(clock.now),
		application.WithLogger(silent),
	)
	s.Load(context.Background())
	return s, clock
}

func ids(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestRecordStore_EndToEndScenario(t *testing.T) {
	for _, scheme := range []model.IDScheme{model.IDSchemeCounter, model.IDSchemeLength} {
		t.Run(string(scheme), func(t *testing.T) {
			slots := newMockSlotStore()
			s, _ := newStore(t, slots, scheme)
			ctx := context.Background()

			alice, err := s.Create(ctx, "alice", "secretkey123", 7, "")
			require.NoError(t, err)
			assert.Equal(t, "0001", alice.ID)
			assert.Equal(t, jan1, alice.CreatedAt)
			assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), alice.ExpiresAt)

			bob, err := s.Create(ctx, "bob", "key456", 30, "vip")
			require.NoError(t, err)
			assert.Equal(t, "0002", bob.ID)
			assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), bob.ExpiresAt)

			require.NoError(t, s.RequestDelete("0001"))
			id, removed, err := s.ConfirmDelete(ctx)
			require.NoError(t, err)
			assert.True(t, removed)
			assert.Equal(t, "0001", id)

			records := s.Records()
			require.Len(t, records, 1)
			assert.Equal(t, bob, records[0])

			_, pending := s.PendingDelete()
			assert.False(t, pending)
		})
	}
}

func TestRecordStore_CreateAppendsAndPersists(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		before := len(s.Records())
		rec, err := s.Create(ctx, fmt.Sprintf("user%d", i), "k", i, "")
		require.NoError(t, err)

		after := s.Records()
		require.Len(t, after, before+1)
		assert.Equal(t, model.FormatID(before+1), rec.ID)
		assert.Equal(t, rec, after[len(after)-1], "new record is appended at the end")
		assert.Equal(t, i, slots.writes, "each create rewrites the slot once")
	}

	reloaded, _ := newStore(t, slots, model.IDSchemeCounter)
	assert.Equal(t, s.Records(), reloaded.Records())
}

func TestRecordStore_CreateDoesNotTouchOtherRecords(t *testing.T) {
	slots := newMockSlotStore()
	s, clock := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	first, err := s.Create(ctx, "alice", "k1", 1, "a")
	require.NoError(t, err)

	clock.advance(48 * time.Hour)
	_, err = s.Create(ctx, "bob", "k2", 2, "b")
	require.NoError(t, err)

	assert.Equal(t, first, s.Records()[0])
}

func TestRecordStore_CalendarExpiry(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		want      time.Time
	}{
		{"month rollover", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"leap day", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock := newStore(t, newMockSlotStore(), model.IDSchemeCounter)
			clock.set(tt.createdAt)

			rec, err := s.Create(context.Background(), "alice", "k", 1, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.ExpiresAt)
		})
	}
}

func TestRecordStore_CancelDeleteLeavesSequenceUnchanged(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "k1", 1, "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "bob", "k2", 1, "")
	require.NoError(t, err)
	before := s.Records()
	writes := slots.writes

	require.NoError(t, s.RequestDelete("0002"))
	pendingID, ok := s.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, "0002", pendingID)

	s.CancelDelete()

	_, ok = s.PendingDelete()
	assert.False(t, ok)
	assert.Equal(t, before, s.Records())
	assert.Equal(t, writes, slots.writes, "cancel does not persist")

	// Cancelling again is harmless.
	s.CancelDelete()
	assert.Equal(t, before, s.Records())
}

func TestRecordStore_ConfirmDeletePreservesOrder(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := s.Create(ctx, name, "k", 1, "")
		require.NoError(t, err)
	}

	require.NoError(t, s.RequestDelete("0002"))
	_, removed, err := s.ConfirmDelete(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"0001", "0003", "0004"}, ids(s.Records()))

	reloaded, _ := newStore(t, slots, model.IDSchemeCounter)
	assert.Equal(t, []string{"0001", "0003", "0004"}, ids(reloaded.Records()))
}

func TestRecordStore_RequestDeleteReplacesPending(t *testing.T) {
	s, _ := newStore(t, newMockSlotStore(), model.IDSchemeCounter)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "k1", 1, "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "bob", "k2", 1, "")
	require.NoError(t, err)

	require.NoError(t, s.RequestDelete("0001"))
	require.NoError(t, s.RequestDelete("0002"))

	pendingID, _ := s.PendingDelete()
	assert.Equal(t, "0002", pendingID)

	_, _, err = s.ConfirmDelete(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001"}, ids(s.Records()))
}

func TestRecordStore_RequestDeleteUnknownID(t *testing.T) {
	s, _ := newStore(t, newMockSlotStore(), model.IDSchemeCounter)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "k1", 1, "")
	require.NoError(t, err)
	require.NoError(t, s.RequestDelete("0001"))

	err = s.RequestDelete("9999")
	require.ErrorIs(t, err, model.ErrRecordNotFound)

	pendingID, ok := s.PendingDelete()
	assert.True(t, ok)
	assert.Equal(t, "0001", pendingID, "failed request keeps the previous marker")
}

func TestRecordStore_ConfirmWithNothingPending(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)

	_, err := s.Create(context.Background(), "alice", "k1", 1, "")
	require.NoError(t, err)
	writes := slots.writes

	id, removed, err := s.ConfirmDelete(context.Background())
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, id)
	assert.Len(t, s.Records(), 1)
	assert.Equal(t, writes, slots.writes)
}

func TestRecordStore_IDSchemes_AfterDeletion(t *testing.T) {
	create3DeleteSecond := func(t *testing.T, scheme model.IDScheme) (*application.RecordStore, *mockSlotStore) {
		t.Helper()
		slots := newMockSlotStore()
		s, _ := newStore(t, slots, scheme)
		ctx := context.Background()
		for _, name := range []string{"a", "b", "c"} {
			_, err := s.Create(ctx, name, "k", 1, "")
			require.NoError(t, err)
		}
		require.NoError(t, s.RequestDelete("0002"))
		_, _, err := s.ConfirmDelete(ctx)
		require.NoError(t, err)
		return s, slots
	}

	t.Run("counter never reuses ids", func(t *testing.T) {
		s, slots := create3DeleteSecond(t, model.IDSchemeCounter)

		rec, err := s.Create(context.Background(), "d", "k", 1, "")
		require.NoError(t, err)
		assert.Equal(t, "0004", rec.ID)

		// The counter survives a restart.
		reloaded, _ := newStore(t, slots, model.IDSchemeCounter)
		require.NoError(t, reloaded.RequestDelete("0004"))
		_, _, err = reloaded.ConfirmDelete(context.Background())
		require.NoError(t, err)
		rec, err = reloaded.Create(context.Background(), "e", "k", 1, "")
		require.NoError(t, err)
		assert.Equal(t, "0005", rec.ID)
	})

	t.Run("length reproduces len+1", func(t *testing.T) {
		s, _ := create3DeleteSecond(t, model.IDSchemeLength)

		rec, err := s.Create(context.Background(), "d", "k", 1, "")
		require.NoError(t, err)
		assert.Equal(t, "0003", rec.ID)
		assert.Equal(t, []string{"0001", "0003", "0003"}, ids(s.Records()))
	})
}

func TestRecordStore_LengthScheme_ConfirmRemovesEveryMatch(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeLength)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, name, "k", 1, "")
		require.NoError(t, err)
	}
	require.NoError(t, s.RequestDelete("0001"))
	_, _, err := s.ConfirmDelete(ctx)
	require.NoError(t, err)

	rec, err := s.Create(ctx, "d", "k", 1, "")
	require.NoError(t, err)
	assert.Equal(t, "0003", rec.ID)
	assert.Equal(t, []string{"0002", "0003", "0003"}, ids(s.Records()))

	require.NoError(t, s.RequestDelete("0003"))
	id, removed, err := s.ConfirmDelete(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, "0003", id)
	assert.Equal(t, []string{"0002"}, ids(s.Records()))

	reloaded, _ := newStore(t, slots, model.IDSchemeLength)
	assert.Equal(t, []string{"0002"}, ids(reloaded.Records()))
}

func TestRecordStore_PersistFailureIsObservable(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	slots.writeErr = errors.New("disk full")

	rec, err := s.Create(ctx, "alice", "k", 1, "")
	require.ErrorIs(t, err, model.ErrPersist)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "0001", rec.ID)
	assert.Len(t, s.Records(), 1, "record is kept in memory")

	// The store stays usable and the next successful write catches up.
	slots.writeErr = nil
	_, err = s.Create(ctx, "bob", "k", 1, "")
	require.NoError(t, err)

	reloaded, _ := newStore(t, slots, model.IDSchemeCounter)
	assert.Equal(t, []string{"0001", "0002"}, ids(reloaded.Records()))

	slots.writeErr = errors.New("disk full")
	require.NoError(t, s.RequestDelete("0001"))
	_, removed, err := s.ConfirmDelete(ctx)
	require.ErrorIs(t, err, model.ErrPersist)
	assert.True(t, removed)
	assert.Equal(t, []string{"0002"}, ids(s.Records()))
}

func TestRecordStore_LoadFailsSoft(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{"garbage", []byte("not json at all")},
		{"truncated", []byte(`[{"id":"0001","username":"a"`)},
		{"wrong shape", []byte(`"hello"`)},
		{"bad timestamp", []byte(`[{"id":"0001","username":"a","userKey":"k","duration":1,"createdAt":"yesterday","expiresAt":"today"}]`)},
		{"future version", []byte(`{"version":99,"nextSeq":1,"records":[]}`)},
		{"empty", []byte(``)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := newMockSlotStore()
			slots.slots[testSlot] = tt.value

			s, _ := newStore(t, slots, model.IDSchemeCounter)
			assert.Empty(t, s.Records())

			rec, err := s.Create(context.Background(), "alice", "k", 1, "")
			require.NoError(t, err)
			assert.Equal(t, "0001", rec.ID)
		})
	}
}

func TestRecordStore_LoadReadErrorFailsSoft(t *testing.T) {
	slots := newMockSlotStore()
	slots.readErr = errors.New("io error")

	s, _ := newStore(t, slots, model.IDSchemeCounter)
	assert.Empty(t, s.Records())
	assert.Error(t, s.ReadOnly())
}

func TestRecordStore_UnreadableSlotIsNeverOverwritten(t *testing.T) {
	tests := []struct {
		name    string
		readErr error
	}{
		{name: "wrong encryption key", readErr: fmt.Errorf("open slot: %w", driven.ErrEncryptionKeyInvalid)},
		{name: "io error", readErr: errors.New("disk I/O error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := newMockSlotStore()
			sealed := []byte("enc:v1:c2VhbGVk")
			slots.slots[testSlot] = sealed
			slots.readErr = tt.readErr

			s, _ := newStore(t, slots, model.IDSchemeCounter)
			ctx := context.Background()
			require.ErrorIs(t, s.ReadOnly(), tt.readErr)

			rec, err := s.Create(ctx, "carol", "k", 1, "")
			require.ErrorIs(t, err, model.ErrPersist)
			assert.ErrorIs(t, err, tt.readErr)
			assert.Equal(t, "0001", rec.ID)
			assert.Len(t, s.Records(), 1, "record kept in memory")

			require.NoError(t, s.RequestDelete("0001"))
			_, _, err = s.ConfirmDelete(ctx)
			require.ErrorIs(t, err, model.ErrPersist)

			assert.Equal(t, 0, slots.writes)
			assert.Equal(t, sealed, slots.slots[testSlot])
			assert.Error(t, s.Check(ctx))

			// Once the slot reads again, a reload lifts the restriction.
			slots.readErr = nil
			slots.slots[testSlot] = []byte(`{"version":1,"nextSeq":3,"records":[]}`)
			s.Load(ctx)
			require.NoError(t, s.ReadOnly())
			require.NoError(t, s.Check(ctx))
			rec, err = s.Create(ctx, "dave", "k", 1, "")
			require.NoError(t, err)
			assert.Equal(t, "0003", rec.ID)
			assert.Equal(t, 1, slots.writes)
		})
	}
}

func TestRecordStore_Check(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	ctx := context.Background()

	require.NoError(t, s.Check(ctx), "missing slot is healthy")

	_, err := s.Create(ctx, "alice", "k", 1, "")
	require.NoError(t, err)
	require.NoError(t, s.Check(ctx))

	slots.slots[testSlot] = []byte("{not json")
	assert.Error(t, s.Check(ctx))
}

func TestRecordStore_LoadLegacySlot(t *testing.T) {
	slots := newMockSlotStore()
	slots.slots[testSlot] = []byte(`[
		{"id":"0001","username":"alice","userKey":"secretkey123","duration":7,"additionalInfo":"","createdAt":"2025-01-01T00:00:00.000Z","expiresAt":"2025-01-08T00:00:00.000Z"},
		{"id":"0003","username":"carol","userKey":"k3","duration":1,"additionalInfo":"note","createdAt":"2025-01-02T10:00:00.000Z","expiresAt":"2025-01-03T10:00:00.000Z"}
	]`)

	s, _ := newStore(t, slots, model.IDSchemeCounter)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "secretkey123", records[0].Key)
	assert.Equal(t, 7, records[0].DurationDays)
	assert.Equal(t, "note", records[1].Notes)
	assert.True(t, records[0].ExpiresAt.Equal(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)))

	rec, err := s.Create(context.Background(), "dave", "k4", 1, "")
	require.NoError(t, err)
	assert.Equal(t, "0004", rec.ID, "counter continues after the highest legacy id")
}

func TestRecordStore_SnapshotIsACopy(t *testing.T) {
	s, _ := newStore(t, newMockSlotStore(), model.IDSchemeCounter)
	_, err := s.Create(context.Background(), "alice", "k", 1, "")
	require.NoError(t, err)
	require.NoError(t, s.RequestDelete("0001"))

	snap := s.Snapshot()
	assert.True(t, snap.HasPending())
	assert.Equal(t, "0001", snap.PendingID)

	snap.Records[0].Username = "mallory"
	assert.Equal(t, "alice", s.Records()[0].Username)
}

func TestRecordStore_LoadClearsPending(t *testing.T) {
	slots := newMockSlotStore()
	s, _ := newStore(t, slots, model.IDSchemeCounter)
	_, err := s.Create(context.Background(), "alice", "k", 1, "")
	require.NoError(t, err)
	require.NoError(t, s.RequestDelete("0001"))

	s.Load(context.Background())

	_, ok := s.PendingDelete()
	assert.False(t, ok)
	assert.Len(t, s.Records(), 1)
}
