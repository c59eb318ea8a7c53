// Package tsession caches transparent sessions: shared symmetric keys reused
// across encryptions to the same recipient set within a time window. Entries
// are keyed by a hash of the sorted, de-duplicated recipient list and expire
// after a TTL; stale or future-dated entries read as misses so a fresh
// session gets derived and re-shared.
package tsession

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/storage"
)

// DefaultTTL is how long a cached session stays usable.
const DefaultTTL = 12 * time.Hour

// record layout: createdAt unix seconds (8, big endian) ‖ id (16) ‖ key (32).
const recordSize = 8 + crypto.ResourceIDSize + crypto.SymmetricKeySize

// Session is a shared symmetric key scoped to one recipient set. The ID
// doubles as the resource id the session's ciphertexts reference.
type Session struct {
	ID        []byte
	Key       []byte
	CreatedAt time.Time
}

// NewSession derives a fresh session with a random id and key.
func NewSession() (*Session, error) {
	id, err := crypto.RandomBytes(crypto.ResourceIDSize)
	if err != nil {
		return nil, err
	}
	key, err := crypto.RandomBytes(crypto.SymmetricKeySize)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Key: key}, nil
}

// CacheKey maps a recipient list to its cache key. Recipients are
// de-duplicated and sorted first, so any ordering of the same set yields the
// same key.
func CacheKey(recipients [][]byte) string {
	seen := make(map[string]struct{}, len(recipients))
	unique := make([]string, 0, len(recipients))
	for _, r := range recipients {
		s := string(r)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	sort.Strings(unique)

	var concat []byte
	for _, s := range unique {
		concat = append(concat, s...)
	}
	sum := crypto.GenericHash(concat)
	return hex.EncodeToString(sum)
}

// Cache reads and writes sessions through a storage.Store.
type Cache struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a session cache on top of store. A non-positive ttl
// selects DefaultTTL.
func NewCache(store storage.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// SetClockForTesting overrides the cache's clock.
func (c *Cache) SetClockForTesting(now func() time.Time) {
	c.now = now
}

// Get returns the cached session for the recipient set, or (nil, nil) on a
// miss. Entries past the TTL are misses; so are entries stamped in the
// future, which indicates clock skew or a corrupted record.
func (c *Cache) Get(ctx context.Context, recipients [][]byte) (*Session, error) {
	value, err := c.store.Get(ctx, storage.TableSessions, CacheKey(recipients))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(value) != recordSize {
		return nil, fmt.Errorf("tsession: malformed record of %d bytes", len(value))
	}

	createdAt := time.Unix(int64(binary.BigEndian.Uint64(value)), 0)
	now := c.now()
	if createdAt.After(now) || now.Sub(createdAt) > c.ttl {
		return nil, nil
	}

	s := &Session{
		ID:        append([]byte(nil), value[8:8+crypto.ResourceIDSize]...),
		Key:       append([]byte(nil), value[8+crypto.ResourceIDSize:]...),
		CreatedAt: createdAt,
	}
	return s, nil
}

// Put persists the session for the recipient set, stamped with the current
// time.
func (c *Cache) Put(ctx context.Context, recipients [][]byte, s *Session) error {
	if len(s.ID) != crypto.ResourceIDSize || len(s.Key) != crypto.SymmetricKeySize {
		return fmt.Errorf("tsession: bad session material (id %d, key %d bytes)", len(s.ID), len(s.Key))
	}
	value := make([]byte, 0, recordSize)
	value = binary.BigEndian.AppendUint64(value, uint64(c.now().Unix()))
	value = append(value, s.ID...)
	value = append(value, s.Key...)
	return c.store.Put(ctx, storage.TableSessions, CacheKey(recipients), value)
}
