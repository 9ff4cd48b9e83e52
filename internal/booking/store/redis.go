package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"

	"github.com/redis/go-redis/v9"
)

// Redis key layout. Links live under their booking ID with index sets per
// contact plus a global set for sweeps. The active pointer makes the
// one-active-link-per-contact lookup a single GET.
const (
	keyLinkPrefix    = "booking:link:"
	keyAllLinks      = "booking:links"
	keyContactLinks  = "booking:contact:%s:links"
	keyContactActive = "booking:contact:%s:active"
	keyContactHist   = "booking:contact:%s:history"
	keyHistContacts  = "booking:history:contacts"
)

// RedisStore persists links in Redis so link state survives restarts and
// can be shared between the API and worker processes.
type RedisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

var _ LinkStore = (*RedisStore)(nil)

func (s *RedisStore) Put(ctx context.Context, link *domain.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyLinkPrefix+link.BookingID, data, 0)
	pipe.SAdd(ctx, keyAllLinks, link.BookingID)
	pipe.SAdd(ctx, fmt.Sprintf(keyContactLinks, link.ContactKey), link.BookingID)
	activeKey := fmt.Sprintf(keyContactActive, link.ContactKey)
	if link.State == domain.StateActive {
		pipe.Set(ctx, activeKey, link.BookingID, 0)
	} else {
		// Clear the pointer only if it still references this link, so a
		// newer active link is never unlinked by an older record's update.
		pipe.Eval(ctx,
			`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`,
			[]string{activeKey}, link.BookingID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store link: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, bookingID string) (*domain.Link, error) {
	data, err := s.rdb.Get(ctx, keyLinkPrefix+bookingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &link, nil
}

func (s *RedisStore) Delete(ctx context.Context, bookingID string) error {
	link, err := s.Get(ctx, bookingID)
	if errors.Is(err, ErrLinkNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyLinkPrefix+bookingID)
	pipe.SRem(ctx, keyAllLinks, bookingID)
	pipe.SRem(ctx, fmt.Sprintf(keyContactLinks, link.ContactKey), bookingID)
	pipe.Eval(ctx,
		`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`,
		[]string{fmt.Sprintf(keyContactActive, link.ContactKey)}, bookingID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func (s *RedisStore) ActiveByContact(ctx context.Context, contactKey string) (*domain.Link, error) {
	bookingID, err := s.rdb.Get(ctx, fmt.Sprintf(keyContactActive, contactKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load active pointer: %w", err)
	}
	link, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if link.State != domain.StateActive {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func (s *RedisStore) ByContact(ctx context.Context, contactKey string) ([]*domain.Link, error) {
	ids, err := s.rdb.SMembers(ctx, fmt.Sprintf(keyContactLinks, contactKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("load contact links: %w", err)
	}
	return s.loadLinks(ctx, ids)
}

func (s *RedisStore) All(ctx context.Context) ([]*domain.Link, error) {
	ids, err := s.rdb.SMembers(ctx, keyAllLinks).Result()
	if err != nil {
		return nil, fmt.Errorf("load link index: %w", err)
	}
	return s.loadLinks(ctx, ids)
}

func (s *RedisStore) loadLinks(ctx context.Context, ids []string) ([]*domain.Link, error) {
	out := make([]*domain.Link, 0, len(ids))
	for _, id := range ids {
		link, err := s.Get(ctx, id)
		if errors.Is(err, ErrLinkNotFound) {
			// Index entry outlived the record; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	sortLinksNewestFirst(out)
	return out, nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, fmt.Sprintf(keyContactHist, entry.ContactKey), data)
	pipe.SAdd(ctx, keyHistContacts, entry.ContactKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) HistoryByContact(ctx context.Context, contactKey string) ([]domain.HistoryEntry, error) {
	raw, err := s.rdb.LRange(ctx, fmt.Sprintf(keyContactHist, contactKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *RedisStore) HasBooked(ctx context.Context, contactKey string) (bool, error) {
	n, err := s.rdb.LLen(ctx, fmt.Sprintf(keyContactHist, contactKey)).Result()
	if err != nil {
		return false, fmt.Errorf("count history: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) PruneHistory(ctx context.Context, cutoff time.Time) (int, error) {
	if cutoff.IsZero() {
		return 0, nil
	}
	contacts, err := s.rdb.SMembers(ctx, keyHistContacts).Result()
	if err != nil {
		return 0, fmt.Errorf("load history contacts: %w", err)
	}

	pruned := 0
	for _, contactKey := range contacts {
		entries, err := s.HistoryByContact(ctx, contactKey)
		if err != nil {
			return pruned, err
		}
		var kept []domain.HistoryEntry
		for _, entry := range entries {
			if entry.BookedAt.Before(cutoff) {
				pruned++
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == len(entries) {
			continue
		}

		histKey := fmt.Sprintf(keyContactHist, contactKey)
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, histKey)
		for i := len(kept) - 1; i >= 0; i-- {
			data, err := json.Marshal(kept[i])
			if err != nil {
				return pruned, fmt.Errorf("marshal history entry: %w", err)
			}
			pipe.LPush(ctx, histKey, data)
		}
		if len(kept) == 0 {
			pipe.SRem(ctx, keyHistContacts, contactKey)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return pruned, fmt.Errorf("rewrite history: %w", err)
		}
	}
	return pruned, nil
}
