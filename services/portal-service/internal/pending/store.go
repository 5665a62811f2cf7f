// Package pending parks a client's unfinished booking for a short while, keyed by tenant
// and client.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/redisx"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
)

// DefaultTTL matches how long the booking flow keeps a selection alive.
const DefaultTTL = 10 * time.Minute

var ErrNotFound = errors.New("no pending booking")

type Store struct {
	kv     redisx.KV
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func NewStore(kv redisx.KV, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, ttl: ttl, prefix: "portal:pending", now: time.Now}
}

func (s *Store) key(tenantID, clientID string) (string, error) {
	tenantID, clientID = strings.TrimSpace(tenantID), strings.TrimSpace(clientID)
	if tenantID == "" || clientID == "" {
		return "", errors.New("tenant and client are required")
	}
	return s.prefix + ":" + tenantID + ":" + clientID, nil
}

// Save stores p, replacing any earlier selection of the same client.
func (s *Store) Save(ctx context.Context, p model.PendingBooking) (model.PendingBooking, error) {
	key, err := s.key(p.TenantID, p.ClientID)
	if err != nil {
		return model.PendingBooking{}, err
	}
	p.SavedAt = s.now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return model.PendingBooking{}, err
	}
	if err := s.kv.Set(ctx, key, raw, s.ttl); err != nil {
		return model.PendingBooking{}, err
	}
	return p, nil
}

func (s *Store) Load(ctx context.Context, tenantID, clientID string) (model.PendingBooking, error) {
	key, err := s.key(tenantID, clientID)
	if err != nil {
		return model.PendingBooking{}, err
	}
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, redisx.ErrNotFound) {
		return model.PendingBooking{}, ErrNotFound
	}
	if err != nil {
		return model.PendingBooking{}, err
	}
	var p model.PendingBooking
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.PendingBooking{}, err
	}
	// Expiry is enforced here as well, in case the entry outlived its TTL.
	if s.now().Sub(p.SavedAt) >= s.ttl {
		_ = s.kv.Del(ctx, key)
		return model.PendingBooking{}, ErrNotFound
	}
	return p, nil
}

func (s *Store) Clear(ctx context.Context, tenantID, clientID string) error {
	key, err := s.key(tenantID, clientID)
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, key)
}
