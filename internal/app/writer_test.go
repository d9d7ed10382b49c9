package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"review_inbox/internal/domain"
)

func TestWriter_WriteReview(t *testing.T) {
	store := newMemStore()
	est := store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	w := NewWriter(store, 0, time.Second)
	fixed := time.Date(2026, 5, 4, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	w.now = func() time.Time { return fixed }

	five, author := 5, "Marie"
	id, err := w.WriteReview(context.Background(), est, "m1", Extraction{Text: "Excellent service", Rating: &five, Author: &author})
	if err != nil {
		t.Fatal(err)
	}
	r := store.reviews[0]
	if r.ID != id || r.TenantID != "T1" || r.Source != domain.SourceAutomatedEmail || *r.DedupKey != "m1" {
		t.Fatalf("unexpected row %+v", r)
	}
	if !r.CreatedAt.Equal(fixed) || r.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at = %v", r.CreatedAt)
	}
	if r.RawCapture != nil {
		t.Fatal("extracted reviews carry no raw capture")
	}

	if _, err := w.WriteReview(context.Background(), est, "m1", Extraction{Text: "again"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestWriter_WriteRaw(t *testing.T) {
	store := newMemStore()
	est := store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	w := NewWriter(store, 10, time.Second)

	if _, err := w.WriteRaw(context.Background(), est, "", "  New review ", "  éééééééé  "); err != nil {
		t.Fatal(err)
	}
	r := store.reviews[0]
	if r.Text != "[unparsed] New review" || r.Source != domain.SourceRawFallback {
		t.Fatalf("unexpected row %+v", r)
	}
	if r.RawCapture == nil || *r.RawCapture != "ééééé" {
		t.Fatalf("raw capture = %v", r.RawCapture)
	}
	if r.DedupKey != nil {
		t.Fatal("empty dedup key must be stored as NULL")
	}
	if r.Rating != nil || r.Author != nil {
		t.Fatal("raw rows carry no parsed fields")
	}
}

func TestWriter_DetachedFromCaller(t *testing.T) {
	store := newMemStore()
	est := store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	w := NewWriter(store, 0, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.WriteRaw(ctx, est, "m1", "s", "b"); err != nil {
		t.Fatalf("a cancelled caller must not abort the write: %v", err)
	}
	if store.reviewCount() != 1 {
		t.Fatal("row not written")
	}
}

func TestWriter_OwnershipMismatch(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	w := NewWriter(store, 0, time.Second)

	stale := domain.Establishment{ID: "e1", TenantID: "T2"}
	if _, err := w.WriteReview(context.Background(), stale, "m1", Extraction{Text: strings.Repeat("a", 20)}); !errors.Is(err, domain.ErrOwnershipMismatch) {
		t.Fatalf("want ErrOwnershipMismatch, got %v", err)
	}
	if store.reviewCount() != 0 {
		t.Fatal("mismatched row was written")
	}
}

func TestWriter_FitsColumns(t *testing.T) {
	store := newMemStore()
	est := store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	w := NewWriter(store, 1<<20, time.Second)

	author := strings.Repeat("é", 200) // 400 bytes
	date := strings.Repeat("2026-05-04 ", 20)
	ex := Extraction{Text: strings.Repeat("a", 70000), Author: &author, ReviewDate: &date}
	if _, err := w.WriteReview(context.Background(), est, "m1", ex); err != nil {
		t.Fatal(err)
	}
	r := store.reviews[0]
	if len(r.Text) != maxTextBytes {
		t.Errorf("text len = %d", len(r.Text))
	}
	if len(*r.Author) > maxAuthorBytes || !utf8.ValidString(*r.Author) {
		t.Errorf("author len = %d", len(*r.Author))
	}
	if len(*r.ReviewDate) > maxReviewDateBytes {
		t.Errorf("review date len = %d", len(*r.ReviewDate))
	}
	if author == *r.Author {
		t.Error("caller's value must not be modified in place")
	}

	if _, err := w.WriteRaw(context.Background(), est, "m2", strings.Repeat("s", 70000), strings.Repeat("b", 70000)); err != nil {
		t.Fatal(err)
	}
	raw := store.reviews[1]
	if len(raw.Text) > maxTextBytes || len(*raw.RawCapture) != maxTextBytes {
		t.Errorf("raw text %d, capture %d", len(raw.Text), len(*raw.RawCapture))
	}
}
