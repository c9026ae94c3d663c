package sqlite

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/keyledger/internal/domain/port/driven"
)

// sealedPrefix marks a slot value encrypted by SlotRepo.
var sealedPrefix = []byte("enc:v1:")

// Compile-time interface satisfaction check.
var _ driven.SlotStore = (*SlotRepo)(nil)

// SlotRepo is the SQLite implementation of the SlotStore port. When built with
// a key, values are sealed with AES-256-GCM before write; plaintext values
// written before a key was configured remain readable.
type SlotRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores plaintext.
}

// NewSlotRepo creates a new SlotRepo. key must be 32 bytes for AES-256-GCM,
// or nil to store slot values unencrypted.
func NewSlotRepo(db *DB, key []byte) *SlotRepo {
	return &SlotRepo{db: db, key: key}
}

// Read returns the current value of the named slot, opening it if sealed.
func (r *SlotRepo) Read(ctx context.Context, name string) ([]byte, error) {
	const query = `SELECT value FROM slots WHERE name = ?`
	var stored []byte
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}

	if !bytes.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}

	plaintext, err := r.open(stored[len(sealedPrefix):])
	if err != nil {
		return nil, fmt.Errorf("open slot %q: %w", name, err)
	}
	return plaintext, nil
}

// Write replaces the value of the named slot in a single statement.
func (r *SlotRepo) Write(ctx context.Context, name string, value []byte) error {
	stored := value
	if r.key != nil {
		sealed, err := r.seal(value)
		if err != nil {
			return fmt.Errorf("seal slot %q: %w", name, err)
		}
		stored = sealed
	}

	const query = `INSERT INTO slots (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, name, stored); err != nil {
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	return nil
}

// Clear removes the named slot.
func (r *SlotRepo) Clear(ctx context.Context, name string) error {
	const query = `DELETE FROM slots WHERE name = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("clear slot %q: %w", name, err)
	}
	return nil
}

// seal encrypts plaintext and returns sealedPrefix followed by the base64
// encoding of nonce || ciphertext || tag.
func (r *SlotRepo) seal(plaintext []byte) ([]byte, error) {
	gcm, err := r.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(ciphertext)))
	copy(out, sealedPrefix)
	base64.StdEncoding.Encode(out[len(sealedPrefix):], ciphertext)
	return out, nil
}

// open reverses seal for the part after sealedPrefix.
func (r *SlotRepo) open(encoded []byte) ([]byte, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyInvalid
	}

	data := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(data, encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	data = data[:n]

	gcm, err := r.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrEncryptionKeyInvalid, err)
	}
	return plaintext, nil
}

func (r *SlotRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
