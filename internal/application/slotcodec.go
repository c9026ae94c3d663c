package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// slotVersion is the envelope version written by encodeSlot.
const slotVersion = 1

// slotEnvelope is the current persisted shape: a versioned object wrapping the
// ordered record array and the next id sequence number.
type slotEnvelope struct {
	Version int               `json:"version"`
	NextSeq int               `json:"nextSeq"`
	Records []json.RawMessage `json:"records"`
}

// recordJSON is the shape written for each record.
type recordJSON struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Key          string `json:"key"`
	DurationDays int    `json:"durationDays"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"createdAt"`
	ExpiresAt    string `json:"expiresAt"`
}

// storedRecordJSON accepts both the current field names and the legacy
// unversioned names (userKey, duration, additionalInfo).
type storedRecordJSON struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	Key            *string `json:"key"`
	UserKey        *string `json:"userKey"`
	DurationDays   *int    `json:"durationDays"`
	Duration       *int    `json:"duration"`
	Notes          *string `json:"notes"`
	AdditionalInfo *string `json:"additionalInfo"`
	CreatedAt      *string `json:"createdAt"`
	ExpiresAt      *string `json:"expiresAt"`
}

// decodedSlot is the result of reading a persisted slot.
type decodedSlot struct {
	Records []model.Record
	NextSeq int
}

// encodeSlot serializes records into the versioned envelope.
func encodeSlot(records []model.Record, nextSeq int) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(recordJSON{
			ID:           r.ID,
			Username:     r.Username,
			Key:          r.Key,
			DurationDays: r.DurationDays,
			Notes:        r.Notes,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339Nano),
			ExpiresAt:    r.ExpiresAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal record %q: %w", r.ID, err)
		}
		raw = append(raw, b)
	}

	data, err := json.Marshal(slotEnvelope{Version: slotVersion, NextSeq: nextSeq, Records: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal slot envelope: %w", err)
	}
	return data, nil
}

// decodeSlot parses either the versioned envelope or the legacy bare array.
func decodeSlot(data []byte) (decodedSlot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return decodedSlot{}, errors.New("empty slot value")
	}

	var (
		items   []json.RawMessage
		nextSeq int
	)

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return decodedSlot{}, fmt.Errorf("unmarshal legacy record array: %w", err)
		}
	case '{':
		var env slotEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return decodedSlot{}, fmt.Errorf("unmarshal slot envelope: %w", err)
		}
		if env.Version != slotVersion {
			return decodedSlot{}, fmt.Errorf("unsupported slot version %d", env.Version)
		}
		items = env.Records
		nextSeq = env.NextSeq
	default:
		return decodedSlot{}, fmt.Errorf("unexpected slot value starting with %q", trimmed[0])
	}

	records := make([]model.Record, 0, len(items))
	for i, item := range items {
		r, err := decodeRecord(item)
		if err != nil {
			return decodedSlot{}, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}

	// Never hand out an id at or below one already present.
	if floor := maxSeq(records) + 1; nextSeq < floor {
		nextSeq = floor
	}

	return decodedSlot{Records: records, NextSeq: nextSeq}, nil
}

func decodeRecord(item json.RawMessage) (model.Record, error) {
	var s storedRecordJSON
	if err := json.Unmarshal(item, &s); err != nil {
		return model.Record{}, fmt.Errorf("unmarshal: %w", err)
	}

	if s.ID == "" {
		return model.Record{}, errors.New("missing id")
	}
	if s.CreatedAt == nil || s.ExpiresAt == nil {
		return model.Record{}, fmt.Errorf("record %q: missing timestamps", s.ID)
	}

	createdAt, err := parseTimestamp(*s.CreatedAt)
	if err != nil {
		return model.Record{}, fmt.Errorf("record %q createdAt: %w", s.ID, err)
	}
	expiresAt, err := parseTimestamp(*s.ExpiresAt)
	if err != nil {
		return model.Record{}, fmt.Errorf("record %q expiresAt: %w", s.ID, err)
	}

	return model.Record{
		ID:           s.ID,
		Username:     s.Username,
		Key:          firstString(s.Key, s.UserKey),
		DurationDays: firstInt(s.DurationDays, s.Duration),
		Notes:        firstString(s.Notes, s.AdditionalInfo),
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}, nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds, which
// covers both time.RFC3339Nano output and JavaScript's toISOString(). A value
// without a zone is read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}

// maxSeq returns the largest numeric id among records, ignoring ids that are
// not decimal numbers.
func maxSeq(records []model.Record) int {
	highest := 0
	for _, r := range records {
		if n, err := strconv.Atoi(r.ID); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
