package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
	"assetgraph/internal/repository/sqlite"
)

// testClock hands out strictly increasing timestamps so ordering
// assertions are deterministic.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRepo(t *testing.T, opts ...repository.Option) (*repository.Repository, *repository.EventLog) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	events := repository.NewEventLog()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]repository.Option{
		repository.WithEvents(events),
		repository.WithClock(clock.Now),
	}, opts...)
	repo := repository.New(store, opts...)
	t.Cleanup(func() { repo.Close() })
	return repo, events
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEventTypes(t *testing.T, events *repository.EventLog, want ...domain.EventType) []domain.Event {
	t.Helper()
	got := events.Flush()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i].Type, want[i])
		}
	}
	return got
}

func TestCreateAssetIdempotent(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	if first.ID == "" {
		t.Fatal("entity has no id")
	}
	assertEventTypes(t, events, domain.EventEntityInserted)

	second, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	if second.ID != first.ID {
		t.Errorf("resubmission created new entity %s, want %s", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("resubmission changed created_at")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("resubmission did not bump updated_at")
	}
	assertEventTypes(t, events, domain.EventEntityUntouched)

	other, err := repo.CreateAsset(ctx, domain.FQDN{Name: "api.example.com"})
	assertNoError(t, err)
	if other.ID == first.ID {
		t.Error("different content reused the same entity")
	}
}

func TestCreateEntityExplicitID(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateEntity(ctx, &domain.Entity{
		ID:    "fixed-id",
		Asset: domain.FQDN{Name: "www.example.com"},
	})
	assertNoError(t, err)
	if created.ID != "fixed-id" {
		t.Fatalf("id = %s", created.ID)
	}
	assertEventTypes(t, events, domain.EventEntityInserted)

	updated, err := repo.CreateEntity(ctx, &domain.Entity{
		ID:    "fixed-id",
		Asset: domain.FQDN{Name: "api.example.com"},
	})
	assertNoError(t, err)
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("overwrite changed created_at")
	}
	got := assertEventTypes(t, events, domain.EventEntityUpdated)
	if got[0].OldEntity == nil || got[0].OldEntity.Asset.Key() != "www.example.com" {
		t.Error("update event lost the previous record")
	}

	found, err := repo.FindEntityByID(ctx, "fixed-id")
	assertNoError(t, err)
	if found.Asset.Key() != "api.example.com" {
		t.Errorf("stored asset = %s", found.Asset.Key())
	}
}

func TestFindContract(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// Id lookups error, content searches return empty slices.
	if _, err := repo.FindEntityByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindEntityByID = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindEdgeByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindEdgeByID = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindEntityTagByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindEntityTagByID = %v, want ErrNotFound", err)
	}

	entities, err := repo.FindEntitiesByContent(ctx, domain.FQDN{Name: "nowhere.example.com"}, time.Time{})
	assertNoError(t, err)
	if len(entities) != 0 {
		t.Errorf("content search returned %d entities", len(entities))
	}
	entities, err = repo.FindEntitiesByType(ctx, domain.TypeNetblock, time.Time{})
	assertNoError(t, err)
	if len(entities) != 0 {
		t.Errorf("type search returned %d entities", len(entities))
	}
}

func TestCreateEdgeTaxonomyGate(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	netblock, err := repo.CreateAsset(ctx, domain.Netblock{CIDR: "192.0.2.0/24", Type: domain.IPv4})
	assertNoError(t, err)
	events.Flush()

	_, err = repo.CreateRelation(ctx, domain.SimpleRelation{Name: "contains"}, fqdn, netblock)
	if !errors.Is(err, repository.ErrTaxonomyViolation) {
		t.Fatalf("err = %v, want ErrTaxonomyViolation", err)
	}
	if events.Len() != 0 {
		t.Error("rejected edge emitted events")
	}

	outs, err := repo.OutgoingEdges(ctx, fqdn, time.Time{})
	assertNoError(t, err)
	if len(outs) != 0 {
		t.Error("rejected edge was stored")
	}
}

func TestCreateEdgeWithoutTaxonomy(t *testing.T) {
	repo, _ := newTestRepo(t, repository.WithoutTaxonomy())
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	netblock, err := repo.CreateAsset(ctx, domain.Netblock{CIDR: "192.0.2.0/24", Type: domain.IPv4})
	assertNoError(t, err)

	if _, err := repo.CreateRelation(ctx, domain.SimpleRelation{Name: "contains"}, fqdn, netblock); err != nil {
		t.Fatalf("gate disabled but edge rejected: %v", err)
	}
}

func TestCreateEdgeFreshnessMerge(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	events.Flush()

	rel := domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}}
	first, err := repo.CreateRelation(ctx, rel, fqdn, ip)
	assertNoError(t, err)
	assertEventTypes(t, events, domain.EventEdgeInserted)

	// Identical resubmission is a no-op.
	same, err := repo.CreateRelation(ctx, rel, fqdn, ip)
	assertNoError(t, err)
	if same.ID != first.ID {
		t.Errorf("duplicate created edge %s, want %s", same.ID, first.ID)
	}
	assertEventTypes(t, events, domain.EventEdgeUntouched)

	// A changed TTL merges into the stored edge in place.
	fresher := rel
	fresher.Header.TTL = 60
	merged, err := repo.CreateRelation(ctx, fresher, fqdn, ip)
	assertNoError(t, err)
	if merged.ID != first.ID {
		t.Errorf("merge created edge %s, want %s", merged.ID, first.ID)
	}
	if !merged.CreatedAt.Equal(first.CreatedAt) {
		t.Error("merge changed created_at")
	}
	if got := merged.Relation.(domain.BasicDNSRelation).Header.TTL; got != 60 {
		t.Errorf("merged TTL = %d, want 60", got)
	}
	got := assertEventTypes(t, events, domain.EventEdgeUpdated)
	if got[0].OldEdge == nil || got[0].OldEdge.Relation.(domain.BasicDNSRelation).Header.TTL != 300 {
		t.Error("update event lost the previous relation")
	}

	outs, err := repo.OutgoingEdges(ctx, fqdn, time.Time{})
	assertNoError(t, err)
	if len(outs) != 1 {
		t.Fatalf("adjacency has %d edges, want 1", len(outs))
	}
}

func TestAdjacencyHydrationAndFilters(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	svc, err := repo.CreateAsset(ctx, domain.Service{Identifier: "https-443"})
	assertNoError(t, err)

	_, err = repo.CreateRelation(ctx,
		domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}},
		fqdn, ip)
	assertNoError(t, err)
	_, err = repo.CreateRelation(ctx,
		domain.PortRelation{Name: "port", PortNumber: 443, Protocol: "tcp"},
		fqdn, svc)
	assertNoError(t, err)

	outs, err := repo.OutgoingEdges(ctx, fqdn, time.Time{})
	assertNoError(t, err)
	if len(outs) != 2 {
		t.Fatalf("outgoing = %d, want 2", len(outs))
	}
	for _, e := range outs {
		if e.FromEntity == nil || e.ToEntity == nil || e.ToEntity.Asset == nil {
			t.Fatal("edge endpoints not hydrated")
		}
	}

	// Label filter is case-insensitive.
	ports, err := repo.OutgoingEdges(ctx, fqdn, time.Time{}, "PORT")
	assertNoError(t, err)
	if len(ports) != 1 || ports[0].ToEntity.ID != svc.ID {
		t.Errorf("label filter = %+v", ports)
	}

	ins, err := repo.IncomingEdges(ctx, ip, time.Time{})
	assertNoError(t, err)
	if len(ins) != 1 || ins[0].FromEntity.ID != fqdn.ID {
		t.Errorf("incoming = %+v", ins)
	}
}

func TestDeleteEntityCascades(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	edge, err := repo.CreateRelation(ctx,
		domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}},
		fqdn, ip)
	assertNoError(t, err)
	_, err = repo.CreateEdgeProperty(ctx, edge, domain.SourceProperty{Source: "crawler", Confidence: 50})
	assertNoError(t, err)
	events.Flush()

	deleted, err := repo.DeleteEntity(ctx, ip.ID)
	assertNoError(t, err)
	if deleted.Asset.Key() != "192.0.2.10" {
		t.Errorf("deleted record = %s", deleted.Asset.Key())
	}
	assertEventTypes(t, events, domain.EventEntityDeleted)

	if _, err := repo.FindEntityByID(ctx, ip.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("entity survived delete: %v", err)
	}
	if _, err := repo.FindEdgeByID(ctx, edge.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("edge survived entity delete: %v", err)
	}
	if _, err := repo.DeleteEntity(ctx, ip.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestEntityTagLifecycle(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	entity, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	events.Flush()

	tag, err := repo.CreateEntityProperty(ctx, entity, domain.SourceProperty{Source: "crawler", Confidence: 50})
	assertNoError(t, err)
	assertEventTypes(t, events, domain.EventEntityTagInserted)

	// Lower confidence from the same source leaves the tag alone.
	same, err := repo.CreateEntityProperty(ctx, entity, domain.SourceProperty{Source: "crawler", Confidence: 30})
	assertNoError(t, err)
	if same.ID != tag.ID {
		t.Errorf("duplicate created tag %s, want %s", same.ID, tag.ID)
	}
	if got := same.Property.(domain.SourceProperty).Confidence; got != 50 {
		t.Errorf("confidence = %d, want 50", got)
	}
	assertEventTypes(t, events, domain.EventEntityTagUntouched)

	// Higher confidence merges in place.
	upgraded, err := repo.CreateEntityProperty(ctx, entity, domain.SourceProperty{Source: "crawler", Confidence: 80})
	assertNoError(t, err)
	if upgraded.ID != tag.ID {
		t.Errorf("merge created tag %s, want %s", upgraded.ID, tag.ID)
	}
	if got := upgraded.Property.(domain.SourceProperty).Confidence; got != 80 {
		t.Errorf("merged confidence = %d, want 80", got)
	}
	got := assertEventTypes(t, events, domain.EventEntityTagUpdated)
	if got[0].OldEntityTag == nil || got[0].OldEntityTag.Property.(domain.SourceProperty).Confidence != 50 {
		t.Error("update event lost the previous tag")
	}

	deleted, err := repo.DeleteEntityTag(ctx, tag.ID)
	assertNoError(t, err)
	if deleted.ID != tag.ID {
		t.Errorf("deleted tag = %s", deleted.ID)
	}
	assertEventTypes(t, events, domain.EventEntityTagDeleted)
	if _, err := repo.FindEntityTagByID(ctx, tag.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("tag survived delete: %v", err)
	}
}

func TestEntityTagScopedToOwner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateAsset(ctx, domain.FQDN{Name: "a.example.com"})
	assertNoError(t, err)
	b, err := repo.CreateAsset(ctx, domain.FQDN{Name: "b.example.com"})
	assertNoError(t, err)

	prop := domain.SourceProperty{Source: "crawler", Confidence: 50}
	tagA, err := repo.CreateEntityProperty(ctx, a, prop)
	assertNoError(t, err)
	tagB, err := repo.CreateEntityProperty(ctx, b, prop)
	assertNoError(t, err)
	if tagA.ID == tagB.ID {
		t.Fatal("tags on different owners were merged")
	}

	// Content search spans owners.
	all, err := repo.FindEntityTagsByContent(ctx, prop, time.Time{})
	assertNoError(t, err)
	if len(all) != 2 {
		t.Errorf("content search = %d tags, want 2", len(all))
	}
}

func TestFindEntityTagsNameFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	entity, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	_, err = repo.CreateEntityProperty(ctx, entity, domain.SimpleProperty{PropertyName: "banner", PropertyValue: "nginx"})
	assertNoError(t, err)
	_, err = repo.CreateEntityProperty(ctx, entity, domain.SourceProperty{Source: "crawler", Confidence: 50})
	assertNoError(t, err)

	all, err := repo.FindEntityTags(ctx, entity, time.Time{})
	assertNoError(t, err)
	if len(all) != 2 {
		t.Fatalf("unfiltered = %d tags, want 2", len(all))
	}

	banners, err := repo.FindEntityTags(ctx, entity, time.Time{}, "banner")
	assertNoError(t, err)
	if len(banners) != 1 || banners[0].Property.Name() != "banner" {
		t.Errorf("name filter = %+v", banners)
	}

	// Unlike edge labels, property names match case-sensitively.
	none, err := repo.FindEntityTags(ctx, entity, time.Time{}, "Banner")
	assertNoError(t, err)
	if len(none) != 0 {
		t.Errorf("case-mismatched name matched %d tags", len(none))
	}
}

func TestEntityTagExplicitIDTypeMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	entity, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	tag, err := repo.CreateEntityProperty(ctx, entity, domain.SourceProperty{Source: "crawler", Confidence: 50})
	assertNoError(t, err)

	_, err = repo.CreateEntityTag(ctx, &domain.EntityTag{
		ID:       tag.ID,
		Entity:   entity,
		Property: domain.SimpleProperty{PropertyName: "banner", PropertyValue: "nginx"},
	})
	if !errors.Is(err, repository.ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestEdgeTagLifecycle(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	edge, err := repo.CreateRelation(ctx,
		domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}},
		fqdn, ip)
	assertNoError(t, err)
	events.Flush()

	tag, err := repo.CreateEdgeProperty(ctx, edge, domain.DNSRecordProperty{
		PropertyName: "a_record",
		Header:       domain.RRHeader{RRType: 1, Class: 1, TTL: 300},
		Data:         "192.0.2.10",
	})
	assertNoError(t, err)
	if tag.Edge == nil || tag.Edge.ID != edge.ID {
		t.Fatal("edge tag not bound to its owner")
	}
	assertEventTypes(t, events, domain.EventEdgeTagInserted)

	found, err := repo.FindEdgeTags(ctx, edge, time.Time{})
	assertNoError(t, err)
	if len(found) != 1 || found[0].ID != tag.ID {
		t.Errorf("FindEdgeTags = %+v", found)
	}

	hydrated, err := repo.FindEdgeTagByID(ctx, tag.ID)
	assertNoError(t, err)
	if hydrated.Edge == nil || hydrated.Edge.FromEntity == nil || hydrated.Edge.FromEntity.ID != fqdn.ID {
		t.Error("owner edge not hydrated with endpoints")
	}

	_, err = repo.DeleteEdgeTag(ctx, tag.ID)
	assertNoError(t, err)
	assertEventTypes(t, events, domain.EventEdgeTagDeleted)

	// Deleting the edge takes its remaining tags along.
	tag2, err := repo.CreateEdgeProperty(ctx, edge, domain.SourceProperty{Source: "resolver", Confidence: 60})
	assertNoError(t, err)
	_, err = repo.DeleteEdge(ctx, edge.ID)
	assertNoError(t, err)
	if _, err := repo.FindEdgeTagByID(ctx, tag2.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("edge tag survived edge delete: %v", err)
	}
}

func TestSinceFilters(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	early, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	late, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.11", Type: domain.IPv4})
	assertNoError(t, err)

	cutoff := late.UpdatedAt
	recent, err := repo.FindEntitiesByType(ctx, domain.TypeIPAddress, cutoff)
	assertNoError(t, err)
	if len(recent) != 1 || recent[0].ID != late.ID {
		t.Errorf("since filter = %+v", recent)
	}
	if !early.UpdatedAt.Before(cutoff) {
		t.Fatal("test setup: early entity is not older than the cutoff")
	}

	all, err := repo.FindEntitiesByType(ctx, domain.TypeIPAddress, time.Time{})
	assertNoError(t, err)
	if len(all) != 2 {
		t.Errorf("zero since = %d entities, want 2", len(all))
	}
}

func TestFlushEventsDrains(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)
	_, err = repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)

	got := repo.FlushEvents()
	if len(got) != 2 {
		t.Fatalf("flushed %d events, want 2", len(got))
	}
	if got[0].Type != domain.EventEntityInserted || got[1].Type != domain.EventEntityUntouched {
		t.Errorf("event order = %s, %s", got[0].Type, got[1].Type)
	}
	if events.Len() != 0 {
		t.Error("flush did not clear the log")
	}
	if len(repo.FlushEvents()) != 0 {
		t.Error("second flush returned events")
	}
}

func TestResolutionLifecycle(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "test.example.com"})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.168.1.1", Type: domain.IPv4})
	assertNoError(t, err)
	events.Flush()

	rel := domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}}
	edge, err := repo.CreateRelation(ctx, rel, fqdn, ip)
	assertNoError(t, err)
	assertEventTypes(t, events, domain.EventEdgeInserted)

	resubmitted, err := repo.CreateRelation(ctx, rel, fqdn, ip)
	assertNoError(t, err)
	if resubmitted.ID != edge.ID {
		t.Fatalf("resubmission created edge %s, want %s", resubmitted.ID, edge.ID)
	}
	assertEventTypes(t, events, domain.EventEdgeUntouched)

	tag, err := repo.CreateEdgeProperty(ctx, edge, domain.SourceProperty{Source: "myscript", Confidence: 100})
	assertNoError(t, err)
	assertEventTypes(t, events, domain.EventEdgeTagInserted)

	_, err = repo.DeleteEdgeTag(ctx, tag.ID)
	assertNoError(t, err)
	got := assertEventTypes(t, events, domain.EventEdgeTagDeleted)
	if got[0].OldEdgeTag == nil || got[0].OldEdgeTag.ID != tag.ID {
		t.Error("delete event lost the removed tag")
	}
}

// The discovery walk: an FQDN resolves to an address inside an announced
// netblock, with provenance recorded at every step.
func TestDiscoveryScenario(t *testing.T) {
	repo, events := newTestRepo(t)
	ctx := context.Background()

	as, err := repo.CreateAsset(ctx, domain.AutonomousSystem{Number: 64501})
	assertNoError(t, err)
	netblock, err := repo.CreateAsset(ctx, domain.Netblock{CIDR: "192.0.2.0/24", Type: domain.IPv4})
	assertNoError(t, err)
	ip, err := repo.CreateAsset(ctx, domain.IPAddress{Address: "192.0.2.10", Type: domain.IPv4})
	assertNoError(t, err)
	fqdn, err := repo.CreateAsset(ctx, domain.FQDN{Name: "www.example.com"})
	assertNoError(t, err)

	_, err = repo.CreateRelation(ctx, domain.SimpleRelation{Name: "announces"}, as, netblock)
	assertNoError(t, err)
	_, err = repo.CreateRelation(ctx, domain.SimpleRelation{Name: "contains"}, netblock, ip)
	assertNoError(t, err)
	resolved, err := repo.CreateRelation(ctx,
		domain.BasicDNSRelation{Name: "dns_record", Header: domain.RRHeader{RRType: 1, Class: 1, TTL: 300}},
		fqdn, ip)
	assertNoError(t, err)

	_, err = repo.CreateEntityProperty(ctx, fqdn, domain.SourceProperty{Source: "crawler", Confidence: 50})
	assertNoError(t, err)
	_, err = repo.CreateEdgeProperty(ctx, resolved, domain.SourceProperty{Source: "resolver", Confidence: 80})
	assertNoError(t, err)

	// Walk down from the AS to the address.
	announced, err := repo.OutgoingEdges(ctx, as, time.Time{}, "announces")
	assertNoError(t, err)
	if len(announced) != 1 || announced[0].ToEntity.ID != netblock.ID {
		t.Fatalf("announces = %+v", announced)
	}
	contained, err := repo.OutgoingEdges(ctx, announced[0].ToEntity, time.Time{}, "contains")
	assertNoError(t, err)
	if len(contained) != 1 || contained[0].ToEntity.ID != ip.ID {
		t.Fatalf("contains = %+v", contained)
	}

	// And back up from the address to the name.
	resolvers, err := repo.IncomingEdges(ctx, ip, time.Time{}, "dns_record")
	assertNoError(t, err)
	if len(resolvers) != 1 || resolvers[0].FromEntity.ID != fqdn.ID {
		t.Fatalf("dns_record = %+v", resolvers)
	}

	if got := events.Len(); got != 9 {
		t.Errorf("event trail = %d events, want 9", got)
	}
}
