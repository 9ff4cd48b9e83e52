package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStores(t *testing.T) map[string]LinkStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]LinkStore{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(rdb),
	}
}

func testLink(bookingID, contactKey string, state domain.State, createdAt time.Time) *domain.Link {
	return &domain.Link{
		BookingID:  bookingID,
		ContactKey: contactKey,
		Lead:       domain.LeadSnapshot{Name: "Aarav", Phone: contactKey},
		URL:        "https://calendly.com/dream-axis/30min?booking_id=" + bookingID,
		State:      state,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(24 * time.Hour),
		MaxUsage:   1,
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			link := testLink("bk-1", "+919876543210", domain.StateActive, time.Now().UTC().Truncate(time.Second))
			if err := s.Put(ctx, link); err != nil {
				t.Fatalf("put: %v", err)
			}

			got, err := s.Get(ctx, "bk-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ContactKey != link.ContactKey || got.State != domain.StateActive {
				t.Fatalf("round trip mismatch: %+v", got)
			}

			if err := s.Delete(ctx, "bk-1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.Get(ctx, "bk-1"); !errors.Is(err, ErrLinkNotFound) {
				t.Fatalf("expected ErrLinkNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, "bk-1"); err != nil {
				t.Fatalf("deleting a missing link should not error: %v", err)
			}
		})
	}
}

func TestActiveByContact(t *testing.T) {
	ctx := context.Background()
	contactKey := "+919876543210"
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.ActiveByContact(ctx, contactKey); !errors.Is(err, ErrLinkNotFound) {
				t.Fatalf("expected ErrLinkNotFound with no links, got %v", err)
			}

			used := testLink("bk-used", contactKey, domain.StateUsed, time.Now().Add(-time.Hour))
			if err := s.Put(ctx, used); err != nil {
				t.Fatalf("put used: %v", err)
			}
			if _, err := s.ActiveByContact(ctx, contactKey); !errors.Is(err, ErrLinkNotFound) {
				t.Fatalf("used link must not count as active, got %v", err)
			}

			active := testLink("bk-active", contactKey, domain.StateActive, time.Now())
			if err := s.Put(ctx, active); err != nil {
				t.Fatalf("put active: %v", err)
			}
			got, err := s.ActiveByContact(ctx, contactKey)
			if err != nil {
				t.Fatalf("active lookup: %v", err)
			}
			if got.BookingID != "bk-active" {
				t.Fatalf("expected bk-active, got %s", got.BookingID)
			}

			// Deactivating the link clears the active lookup.
			got.Deactivate(domain.StateExpired, time.Now())
			if err := s.Put(ctx, got); err != nil {
				t.Fatalf("put deactivated: %v", err)
			}
			if _, err := s.ActiveByContact(ctx, contactKey); !errors.Is(err, ErrLinkNotFound) {
				t.Fatalf("expected no active link after deactivation, got %v", err)
			}
		})
	}
}

func TestActivePointerNotClobberedByOlderLink(t *testing.T) {
	ctx := context.Background()
	contactKey := "+919876543210"
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			old := testLink("bk-old", contactKey, domain.StateActive, time.Now().Add(-time.Hour))
			if err := s.Put(ctx, old); err != nil {
				t.Fatalf("put old: %v", err)
			}
			old.Deactivate(domain.StateExpired, time.Now())

			replacement := testLink("bk-new", contactKey, domain.StateActive, time.Now())
			if err := s.Put(ctx, replacement); err != nil {
				t.Fatalf("put new: %v", err)
			}
			// Writing the deactivated old link after the replacement must
			// not remove the new link from the active lookup.
			if err := s.Put(ctx, old); err != nil {
				t.Fatalf("put deactivated old: %v", err)
			}

			got, err := s.ActiveByContact(ctx, contactKey)
			if err != nil {
				t.Fatalf("active lookup: %v", err)
			}
			if got.BookingID != "bk-new" {
				t.Fatalf("expected bk-new to stay active, got %s", got.BookingID)
			}
		})
	}
}

func TestByContactAndAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now().UTC().Truncate(time.Second)
			if err := s.Put(ctx, testLink("bk-1", "+919876543210", domain.StateUsed, base.Add(-2*time.Hour))); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put(ctx, testLink("bk-2", "+919876543210", domain.StateActive, base)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put(ctx, testLink("bk-3", "+918888888888", domain.StateActive, base.Add(-time.Hour))); err != nil {
				t.Fatalf("put: %v", err)
			}

			byContact, err := s.ByContact(ctx, "+919876543210")
			if err != nil {
				t.Fatalf("by contact: %v", err)
			}
			if len(byContact) != 2 {
				t.Fatalf("expected 2 links for contact, got %d", len(byContact))
			}
			if byContact[0].BookingID != "bk-2" {
				t.Fatalf("expected newest first, got %s", byContact[0].BookingID)
			}

			all, err := s.All(ctx)
			if err != nil {
				t.Fatalf("all: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 links total, got %d", len(all))
			}
		})
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	contactKey := "+919876543210"
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			booked, err := s.HasBooked(ctx, contactKey)
			if err != nil {
				t.Fatalf("has booked: %v", err)
			}
			if booked {
				t.Fatalf("fresh contact should have no bookings")
			}

			now := time.Now().UTC().Truncate(time.Second)
			first := domain.HistoryEntry{BookingID: "bk-1", ContactKey: contactKey, InviteeEmail: "aarav@example.com", BookedAt: now.Add(-time.Hour)}
			second := domain.HistoryEntry{BookingID: "bk-2", ContactKey: contactKey, BookedAt: now}
			if err := s.AppendHistory(ctx, first); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.AppendHistory(ctx, second); err != nil {
				t.Fatalf("append: %v", err)
			}

			booked, err = s.HasBooked(ctx, contactKey)
			if err != nil {
				t.Fatalf("has booked: %v", err)
			}
			if !booked {
				t.Fatalf("contact with history should report booked")
			}

			entries, err := s.HistoryByContact(ctx, contactKey)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
			if entries[0].BookingID != "bk-2" {
				t.Fatalf("expected newest entry first, got %s", entries[0].BookingID)
			}
		})
	}
}

func TestHistoryOutlivesLink(t *testing.T) {
	ctx := context.Background()
	contactKey := "+919876543210"
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			link := testLink("bk-1", contactKey, domain.StateUsed, time.Now())
			if err := s.Put(ctx, link); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.AppendHistory(ctx, domain.HistoryEntry{BookingID: "bk-1", ContactKey: contactKey, BookedAt: time.Now()}); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.Delete(ctx, "bk-1"); err != nil {
				t.Fatalf("delete: %v", err)
			}

			booked, err := s.HasBooked(ctx, contactKey)
			if err != nil {
				t.Fatalf("has booked: %v", err)
			}
			if !booked {
				t.Fatalf("history must survive link deletion")
			}
		})
	}
}

func TestPruneHistory(t *testing.T) {
	ctx := context.Background()
	contactKey := "+919876543210"
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Second)
			if err := s.AppendHistory(ctx, domain.HistoryEntry{BookingID: "bk-old", ContactKey: contactKey, BookedAt: now.Add(-90 * 24 * time.Hour)}); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.AppendHistory(ctx, domain.HistoryEntry{BookingID: "bk-new", ContactKey: contactKey, BookedAt: now}); err != nil {
				t.Fatalf("append: %v", err)
			}

			pruned, err := s.PruneHistory(ctx, time.Time{})
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if pruned != 0 {
				t.Fatalf("zero cutoff must prune nothing, pruned %d", pruned)
			}

			pruned, err = s.PruneHistory(ctx, now.Add(-30*24*time.Hour))
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if pruned != 1 {
				t.Fatalf("expected 1 pruned entry, got %d", pruned)
			}
			entries, err := s.HistoryByContact(ctx, contactKey)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(entries) != 1 || entries[0].BookingID != "bk-new" {
				t.Fatalf("expected only bk-new to remain, got %+v", entries)
			}
		})
	}
}
