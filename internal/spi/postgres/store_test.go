package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"itemstate/internal/spi"
	"itemstate/internal/spi/postgres"
	"itemstate/internal/spi/spitest"
	"itemstate/pkg/domain"
)

func newTestService(t *testing.T) *postgres.Service {
	t.Helper()
	db := newStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	svc, err := postgres.NewService(context.Background(), "stub")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceConformance(t *testing.T) {
	ctx := context.Background()
	spitest.RunConformance(t,
		func() spi.RepositoryService { return newTestService(t) },
		func(svc spi.RepositoryService, rec spi.NodeRecord, children []spi.ChildRecord) {
			if err := svc.(*postgres.Service).PutNode(ctx, rec, children); err != nil {
				t.Fatalf("PutNode: %v", err)
			}
		},
		func(svc spi.RepositoryService, rec spi.PropertyRecord) {
			if err := svc.(*postgres.Service).PutProperty(ctx, rec); err != nil {
				t.Fatalf("PutProperty: %v", err)
			}
		},
	)
}

func TestServiceSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	db := newStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	first, err := postgres.NewService(ctx, "stub")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	id := domain.NewUUIDNodeID(uuid.New())
	if err := first.PutNode(ctx, spi.NodeRecord{ID: id, PrimaryType: domain.NewQName("", "nt:base")}, nil); err != nil {
		t.Fatalf("PutNode: %v", err)
	}

	second, err := postgres.NewService(ctx, "stub")
	if err != nil {
		t.Fatalf("reopen NewService: %v", err)
	}
	got, err := second.FetchNode(ctx, id)
	if err != nil {
		t.Fatalf("FetchNode after reopen: %v", err)
	}
	if !got.ID.Equal(id) {
		t.Fatalf("id mismatch after reopen: %v", got.ID)
	}
}
