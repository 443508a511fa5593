package state

import (
	"context"
	"testing"

	"itemstate/pkg/domain"
)

type recordingCommitPort struct {
	logs []domain.ChangeLog
	fail error
}

func (p *recordingCommitPort) Commit(ctx context.Context, log domain.ChangeLog) error {
	if p.fail != nil {
		return p.fail
	}
	p.logs = append(p.logs, log)
	return nil
}

func TestSessionSaveDrivesPostCommitStatuses(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	existing, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := existing.SetStatus(domain.StatusExistingModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newID := domain.UUIDIDFactory{}.NewNodeID()
	fresh := session.NewTransientNode(newID, domain.NewQName("", "nt:unstructured"), nil)

	port := &recordingCommitPort{}
	if err := session.Save(ctx, port); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(port.logs) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(port.logs))
	}
	log := port.logs[0]
	if len(log.Added) != 1 || len(log.Modified) != 1 {
		t.Fatalf("change log = %+v, want 1 added and 1 modified", log)
	}

	if got := existing.Status(); got != domain.StatusExisting {
		t.Fatalf("existing status after commit = %s, want EXISTING", got)
	}
	if got := fresh.Status(); got != domain.StatusExisting {
		t.Fatalf("fresh status after commit = %s, want EXISTING", got)
	}
}

func TestSessionSaveLeavesStatusUnchangedOnFailure(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	existing, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := existing.SetStatus(domain.StatusExistingModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	port := &recordingCommitPort{fail: domain.NewRepositoryError("transport down")}
	if err := session.Save(ctx, port); err == nil {
		t.Fatalf("expected an error from a failing commit port")
	}
	if got := existing.Status(); got != domain.StatusExistingModified {
		t.Fatalf("status after failed commit = %s, want unchanged EXISTING_MODIFIED", got)
	}
}

func TestSessionRevertDropsTransientNodesAndResyncsModified(t *testing.T) {
	ctx := context.Background()
	id := domain.UUIDIDFactory{}.NewNodeID()
	m := newTestManager(t, id)
	session := NewSession(m)

	existing, err := session.GetNodeState(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := existing.SetStatus(domain.StatusExistingModified); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newID := domain.UUIDIDFactory{}.NewNodeID()
	fresh := session.NewTransientNode(newID, domain.NewQName("", "nt:unstructured"), nil)

	session.Revert()

	if got := existing.Status(); got != domain.StatusExisting {
		t.Fatalf("existing status after revert = %s, want EXISTING", got)
	}
	if got := fresh.Status(); got != domain.StatusNew {
		t.Fatalf("a dropped transient node's own status should be left as-is, got %s", got)
	}

	log := session.CollectTransientStates()
	if len(log.Added) != 0 {
		t.Fatalf("expected the dropped transient node to no longer be collected, got %d added", len(log.Added))
	}
}
