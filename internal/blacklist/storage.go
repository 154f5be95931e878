package blacklist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Storage is a Store on top of a fiber.Storage backend such as the gofiber postgres or
// mysql storage drivers. Entries survive restarts. The stored value is the expiry as unix
// milliseconds, re-checked on lookup because not every backend purges on read.
type Storage struct {
	kv  fiber.Storage
	now func() time.Time
}

// NewStorage wraps kv as a Store.
func NewStorage(kv fiber.Storage) *Storage {
	return &Storage{kv: kv, now: time.Now}
}

// Add implements Store.
func (s *Storage) Add(_ context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	key := Key(token)

	existing, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if prev, ok := parseExpiry(existing); ok && !expiresAt.After(prev) {
		return nil
	}

	value := []byte(strconv.FormatInt(expiresAt.UnixMilli(), 10))
	if err := s.kv.Set(key, value, ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return nil
}

// Contains implements Store.
func (s *Storage) Contains(_ context.Context, token string) (bool, error) {
	key := Key(token)

	value, err := s.kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if len(value) == 0 {
		return false, nil
	}

	expiresAt, ok := parseExpiry(value)
	if !ok {
		// unreadable rows are treated as revoked until the backend GC drops them
		return true, nil
	}

	if !s.now().Before(expiresAt) {
		if err := s.kv.Delete(key); err != nil {
			return false, fmt.Errorf("%w: %w", ErrBackend, err)
		}

		return false, nil
	}

	return true, nil
}

// Close closes the underlying storage.
func (s *Storage) Close() error {
	return s.kv.Close()
}

func parseExpiry(value []byte) (time.Time, bool) {
	if len(value) == 0 {
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.UnixMilli(ms), true
}
