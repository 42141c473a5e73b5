package sync

import (
	"context"
	"testing"

	"sync_server/core/domain"
	"sync_server/pkg/snowflake"

	"github.com/google/uuid"
)

func newTestResolver(t *testing.T, repo *memAddressRepo) *AddressResolver {
	t.Helper()
	gen, err := snowflake.NewGenerator(2)
	if err != nil {
		t.Fatal(err)
	}
	return NewAddressResolver(repo, gen)
}

func TestResolve_DeduplicatesInput(t *testing.T) {
	repo := newMemAddressRepo()
	resolver := newTestResolver(t, repo)
	accountID := uuid.New()

	// Same address in to and cc must touch storage once
	resolved := resolver.Resolve(context.Background(), accountID, []domain.MessageAddress{
		{Address: "a@x.com", Name: "A"},
		{Address: "b@x.com"},
		{Address: "a@x.com", Name: "A again"},
	})

	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved addresses, got %d", len(resolved))
	}
	if repo.gets != 2 {
		t.Errorf("expected 2 lookups for 2 distinct addresses, got %d", repo.gets)
	}
	if repo.count() != 2 {
		t.Errorf("expected 2 rows, got %d", repo.count())
	}
	// Later sighting wins for display metadata
	if resolved["a@x.com"].Name != "A again" {
		t.Errorf("name = %q, want last sighting", resolved["a@x.com"].Name)
	}
}

func TestResolve_UpdatesNameWithoutDuplicating(t *testing.T) {
	repo := newMemAddressRepo()
	accountID := uuid.New()
	ctx := context.Background()

	first := newTestResolver(t, repo)
	before := first.Resolve(ctx, accountID, []domain.MessageAddress{{Address: "a@x.com", Name: "Old Name"}})

	// Fresh resolver: the batch cache must not survive across runs
	second := newTestResolver(t, repo)
	after := second.Resolve(ctx, accountID, []domain.MessageAddress{{Address: "a@x.com", Name: "New Name"}})

	if repo.count() != 1 {
		t.Fatalf("expected 1 row per (account, address), got %d", repo.count())
	}
	if after["a@x.com"].ID != before["a@x.com"].ID {
		t.Error("re-resolution must reuse the existing row id")
	}
	if after["a@x.com"].Name != "New Name" {
		t.Errorf("name = %q, want updated", after["a@x.com"].Name)
	}
}

func TestResolve_SameAddressTwoAccounts(t *testing.T) {
	repo := newMemAddressRepo()
	resolver := newTestResolver(t, repo)
	ctx := context.Background()

	a := resolver.Resolve(ctx, uuid.New(), []domain.MessageAddress{{Address: "a@x.com"}})
	b := newTestResolver(t, repo).Resolve(ctx, uuid.New(), []domain.MessageAddress{{Address: "a@x.com"}})

	if repo.count() != 2 {
		t.Fatalf("same address across two accounts is two rows, got %d", repo.count())
	}
	if a["a@x.com"].ID == b["a@x.com"].ID {
		t.Error("rows for different accounts must have distinct ids")
	}
}

func TestResolve_FailureIsolatedPerAddress(t *testing.T) {
	repo := newMemAddressRepo()
	repo.failOn["bad@x.com"] = true
	resolver := newTestResolver(t, repo)

	resolved := resolver.Resolve(context.Background(), uuid.New(), []domain.MessageAddress{
		{Address: "bad@x.com"},
		{Address: "good@x.com"},
	})

	if _, ok := resolved["bad@x.com"]; ok {
		t.Error("failed address must be absent from the result")
	}
	if _, ok := resolved["good@x.com"]; !ok {
		t.Error("failure of one address must not abort the rest")
	}
}

func TestResolve_CacheHitSkipsStorage(t *testing.T) {
	repo := newMemAddressRepo()
	resolver := newTestResolver(t, repo)
	accountID := uuid.New()
	ctx := context.Background()

	resolver.Resolve(ctx, accountID, []domain.MessageAddress{{Address: "a@x.com"}})
	gets := repo.gets
	resolver.Resolve(ctx, accountID, []domain.MessageAddress{{Address: "a@x.com"}})

	if repo.gets != gets {
		t.Errorf("second resolution within a batch hit storage (%d lookups)", repo.gets-gets)
	}
}

func TestResolve_EmptyAddressIgnored(t *testing.T) {
	repo := newMemAddressRepo()
	resolver := newTestResolver(t, repo)

	resolved := resolver.Resolve(context.Background(), uuid.New(), []domain.MessageAddress{
		{Address: ""},
		{Address: "a@x.com"},
	})

	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved address, got %d", len(resolved))
	}
	if repo.count() != 1 {
		t.Errorf("empty address must not create a row, have %d", repo.count())
	}
}
