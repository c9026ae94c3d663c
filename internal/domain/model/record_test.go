package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

func TestExpiryDate_CalendarRollover(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		days      int
		want      time.Time
	}{
		{
			name:      "month boundary",
			createdAt: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			days:      1,
			want:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "leap day",
			createdAt: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			days:      1,
			want:      time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non-leap february",
			createdAt: time.Date(2025, 2, 28, 9, 30, 0, 0, time.UTC),
			days:      1,
			want:      time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:      "year boundary",
			createdAt: time.Date(2024, 12, 25, 18, 0, 0, 0, time.UTC),
			days:      10,
			want:      time.Date(2025, 1, 4, 18, 0, 0, 0, time.UTC),
		},
		{
			name:      "one week",
			createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			days:      7,
			want:      time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(model.ExpiryDate(tt.createdAt, tt.days)))
		})
	}
}

func TestExpiryDate_KeepsWallClockAcrossDST(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// 2025-03-30 is the spring-forward date in Paris; a calendar day is 23h.
	createdAt := time.Date(2025, 3, 29, 12, 0, 0, 0, paris)
	got := model.ExpiryDate(createdAt, 1)

	assert.Equal(t, 30, got.Day())
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, 23*time.Hour, got.Sub(createdAt))
}

func TestNewRecord(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := model.NewRecord("0002", "bob", "key456", 30, "vip", createdAt)

	assert.Equal(t, "0002", r.ID)
	assert.Equal(t, "bob", r.Username)
	assert.Equal(t, "key456", r.Key)
	assert.Equal(t, 30, r.DurationDays)
	assert.Equal(t, "vip", r.Notes)
	assert.Equal(t, createdAt, r.CreatedAt)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), r.ExpiresAt)
}

func TestRecord_IsExpired_Strict(t *testing.T) {
	r := model.NewRecord("0001", "alice", "k", 1, "", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.False(t, r.IsExpired(r.ExpiresAt), "expiry instant itself is not expired")
	assert.True(t, r.IsExpired(r.ExpiresAt.Add(time.Second)))
	assert.False(t, r.IsExpired(r.CreatedAt))
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "0001"},
		{42, "0042"},
		{9999, "9999"},
		{10000, "10000"},
		{123456, "123456"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, model.FormatID(tt.seq))
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC), "05 mars 2025"},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "29 février 2024"},
		{time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), "15 août 2025"},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), "01 décembre 2025"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, model.FormatDate(tt.in))
	}
}
