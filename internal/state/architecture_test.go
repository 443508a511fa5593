package state_test

import (
	"strings"
	"testing"

	"itemstate/testutil"
)

// TestCoreNeverImportsCollaborators makes the core/collaborator boundary an
// executable invariant: internal/state must never import the transport,
// blob, or metrics collaborators it is only ever handed narrow interfaces
// for (ItemStateFactory, CommitPort, Resolver).
func TestCoreNeverImportsCollaborators(t *testing.T) {
	forbidden := func(path string) bool {
		return strings.Contains(path, "itemstate/internal/spi") ||
			strings.Contains(path, "itemstate/internal/blob") ||
			strings.Contains(path, "itemstate/internal/metrics")
	}
	testutil.AssertNoDirectImports(t, ".", forbidden,
		"internal/state is the core and must depend only on pkg/domain, never on a transport/blob/metrics collaborator")
	testutil.AssertNoTransitiveDependency(t, "itemstate/internal/state", forbidden,
		"internal/state's full dependency closure must stay free of transport/blob/metrics collaborators")
}
