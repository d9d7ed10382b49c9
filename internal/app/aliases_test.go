package app

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"review_inbox/internal/domain"
)

// constRand fills every buffer with b, so every generated token is the same.
func constRand(b byte) func([]byte) (int, error) {
	return func(p []byte) (int, error) {
		for i := range p {
			p[i] = b
		}
		return len(p), nil
	}
}

// seqRand hands out one byte value per call in order, then repeats the last.
func seqRand(vals ...byte) func([]byte) (int, error) {
	n := 0
	return func(p []byte) (int, error) {
		v := vals[len(vals)-1]
		if n < len(vals) {
			v = vals[n]
		}
		n++
		for i := range p {
			p[i] = v
		}
		return len(p), nil
	}
}

func TestGenerate_Format(t *testing.T) {
	reg := NewAliasRegistry(newMemStore(), "")
	re := regexp.MustCompile(`^avis-[a-z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		a, err := reg.Generate()
		if err != nil {
			t.Fatal(err)
		}
		if !re.MatchString(a) || !ValidAlias(a) {
			t.Fatalf("bad alias %q", a)
		}
		seen[a] = true
	}
	if len(seen) < 195 {
		t.Fatalf("suspiciously few distinct aliases: %d", len(seen))
	}
}

func TestCreateEstablishment_RetriesOnCollision(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e0", "T1", "avis-aaaaaaaa")
	reg := NewAliasRegistry(store, "avis-")
	reg.rand = seqRand(0, 0, 1)

	e, err := reg.CreateEstablishment(context.Background(), "T1", "Chez Paul", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if e.Alias != "avis-bbbbbbbb" {
		t.Fatalf("alias = %q", e.Alias)
	}
}

func TestCreateEstablishment_WriteConflictCountsAsCollision(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e0", "T1", "avis-aaaaaaaa")
	store.existsLies = true
	reg := NewAliasRegistry(store, "avis-")
	reg.rand = seqRand(0, 2)

	e, err := reg.CreateEstablishment(context.Background(), "T1", "Chez Paul", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if e.Alias != "avis-cccccccc" {
		t.Fatalf("alias = %q", e.Alias)
	}
}

func TestCreateEstablishment_Exhausted(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e0", "T1", "avis-aaaaaaaa")
	reg := NewAliasRegistry(store, "avis-")
	reg.rand = constRand(0)

	_, err := reg.CreateEstablishment(context.Background(), "T1", "Chez Paul", nil, "")
	if !errors.Is(err, domain.ErrAliasExhausted) {
		t.Fatalf("want ErrAliasExhausted, got %v", err)
	}
	if len(store.ests) != 1 {
		t.Fatalf("nothing should have been written, have %d rows", len(store.ests))
	}
}

func TestCreateEstablishment_EntropyFailure(t *testing.T) {
	reg := NewAliasRegistry(newMemStore(), "avis-")
	reg.rand = func([]byte) (int, error) { return 0, errBoom }
	if _, err := reg.CreateEstablishment(context.Background(), "T1", "x", nil, ""); !errors.Is(err, errBoom) {
		t.Fatalf("want wrapped entropy error, got %v", err)
	}
}

func TestGenerate_DiscardsBiasedBytes(t *testing.T) {
	reg := NewAliasRegistry(newMemStore(), "avis-")
	reg.rand = seqRand(255, 252, 35)
	a, err := reg.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if a != "avis-99999999" {
		t.Fatalf("alias = %q", a)
	}

	reg.rand = constRand(253)
	if _, err := reg.Generate(); !errors.Is(err, errEntropyStarved) {
		t.Fatalf("want errEntropyStarved, got %v", err)
	}
}

func TestCreateEstablishment_CustomAlias(t *testing.T) {
	store := newMemStore()
	reg := NewAliasRegistry(store, "avis-")
	ctx := context.Background()

	e, err := reg.CreateEstablishment(ctx, "T1", "Chez Paul", nil, "  Chez-Paul ")
	if err != nil {
		t.Fatal(err)
	}
	if e.Alias != "chez-paul" {
		t.Fatalf("alias not normalized: %q", e.Alias)
	}
	if _, err := reg.CreateEstablishment(ctx, "T2", "Other", nil, "CHEZ-PAUL"); !errors.Is(err, domain.ErrAliasTaken) {
		t.Fatalf("want ErrAliasTaken, got %v", err)
	}
	for _, bad := range []string{"ab", "-lead", "has space", "émoji", "x@y"} {
		if _, err := reg.CreateEstablishment(ctx, "T1", "Bad", nil, bad); !errors.Is(err, domain.ErrInvalidAlias) {
			t.Fatalf("%q: want ErrInvalidAlias, got %v", bad, err)
		}
	}
}

func TestRegenerate_ReplacesAlias(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e1", "T1", "avis-old00000")
	reg := NewAliasRegistry(store, "avis-")
	reg.rand = constRand(3)
	ctx := context.Background()

	a, err := reg.Regenerate(ctx, "T1", "e1")
	if err != nil {
		t.Fatal(err)
	}
	if a != "avis-dddddddd" {
		t.Fatalf("alias = %q", a)
	}
	if _, err := store.FindByAlias(ctx, "avis-old00000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("old alias still resolves")
	}
	if _, err := reg.Regenerate(ctx, "T2", "e1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign tenant must not rotate the alias, got %v", err)
	}
}

func TestSetCustom(t *testing.T) {
	store := newMemStore()
	store.addEstablishment("e1", "T1", "avis-aaaaaaaa")
	store.addEstablishment("e2", "T1", "taken-one")
	reg := NewAliasRegistry(store, "avis-")
	ctx := context.Background()

	if a, err := reg.SetCustom(ctx, "T1", "e1", "Le-Bistrot"); err != nil || a != "le-bistrot" {
		t.Fatalf("got %q, %v", a, err)
	}
	if _, err := reg.SetCustom(ctx, "T1", "e1", "taken-one"); !errors.Is(err, domain.ErrAliasTaken) {
		t.Fatalf("want ErrAliasTaken, got %v", err)
	}
	if _, err := reg.SetCustom(ctx, "T1", "e1", "no"); !errors.Is(err, domain.ErrInvalidAlias) {
		t.Fatalf("want ErrInvalidAlias, got %v", err)
	}
}
