package reconstruct

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

func deltasFromStatements(statements ...string) []models.Delta {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deltas := make([]models.Delta, 0, len(statements))
	for i, stmt := range statements {
		deltas = append(deltas, models.Delta{
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			ToolCallIndex: i,
			CypherQuery:   stmt,
			ToolCallID:    fmt.Sprintf("call-%d", i),
			StepNumber:    i + 1,
			Changes:       ParseStatement(stmt),
		})
	}
	return deltas
}

func TestBuildStates_CreateAndRelate(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (r:Requirement {rid: 'R-1', name: 'Login'})`,
		`MERGE (b:BusinessObject {boid: 'BO-9'})`,
		`MATCH (a:Requirement {rid:'R-1'}), (c:BusinessObject {boid:'BO-9'}) MERGE (a)-[:TRACES_TO]->(c)`,
	))

	require.Contains(t, state.Nodes, "R-1")
	require.Contains(t, state.Nodes, "BO-9")
	assert.True(t, state.Nodes["R-1"].Visible)
	assert.Equal(t, 0, state.Nodes["R-1"].CreatedAtIndex)

	require.Contains(t, state.Relationships, "R-1-TRACES_TO-BO-9")
	rel := state.Relationships["R-1-TRACES_TO-BO-9"]
	assert.Equal(t, "R-1", rel.SourceID)
	assert.Equal(t, "BO-9", rel.TargetID)
	assert.Equal(t, 2, rel.CreatedAtIndex)
	assert.True(t, rel.Visible)
}

func TestBuildStates_DetachDeleteCascades(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (r:Requirement {rid: 'R-1'})`,
		`CREATE (b:BusinessObject {boid: 'BO-9'})`,
		`MATCH (a:Requirement {rid:'R-1'}), (c:BusinessObject {boid:'BO-9'}) MERGE (a)-[:TRACES_TO]->(c)`,
		`MATCH (n:Requirement {rid:'R-1'}) DETACH DELETE n`,
	))

	node := state.Nodes["R-1"]
	require.NotNil(t, node)
	assert.False(t, node.Visible)
	require.NotNil(t, node.DeletedAtIndex)
	assert.Equal(t, 3, *node.DeletedAtIndex)

	rel := state.Relationships["R-1-TRACES_TO-BO-9"]
	require.NotNil(t, rel)
	assert.False(t, rel.Visible)
	require.NotNil(t, rel.DeletedAtIndex)
	assert.Equal(t, *node.DeletedAtIndex, *rel.DeletedAtIndex)

	// The other endpoint survives.
	assert.True(t, state.Nodes["BO-9"].Visible)
}

func TestBuildStates_VisibilityIsMonotonic(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (r:Requirement {rid: 'R-1'})`,
		`MATCH (n:Requirement {rid:'R-1'}) DETACH DELETE n`,
		`CREATE (r:Requirement {rid: 'R-1'})`,
	))

	node := state.Nodes["R-1"]
	require.NotNil(t, node)
	assert.False(t, node.Visible, "a soft-deleted node must never resurrect")
	require.NotNil(t, node.DeletedAtIndex)
	assert.Equal(t, 1, *node.DeletedAtIndex)
}

func TestBuildStates_PropertyOps(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (r:Requirement {rid: 'R-1', status: 'draft'})`,
		`MATCH (n:Requirement {rid:'R-1'}) SET n.status = 'approved', n.reviewed = true`,
		`MATCH (n:Requirement {rid:'R-1'}) REMOVE n.reviewed`,
	))

	node := state.Nodes["R-1"]
	require.NotNil(t, node)
	assert.Equal(t, "approved", node.Properties["status"])
	assert.NotContains(t, node.Properties, "reviewed")
	assert.Equal(t, 2, node.ModifiedAtIndex)
}

func TestBuildStates_RelationshipIdempotentIdentity(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (a:Requirement {rid: 'R-1'})`,
		`CREATE (b:BusinessObject {boid: 'BO-9'})`,
		`MATCH (a:Requirement {rid:'R-1'}), (b:BusinessObject {boid:'BO-9'}) MERGE (a)-[:TRACES_TO {weight: 1}]->(b)`,
		`MATCH (a:Requirement {rid:'R-1'}), (b:BusinessObject {boid:'BO-9'}) MERGE (a)-[:TRACES_TO {weight: 2}]->(b)`,
	))

	require.Len(t, state.Relationships, 1)
	rel := state.Relationships["R-1-TRACES_TO-BO-9"]
	assert.Equal(t, int64(2), rel.Properties["weight"])
	assert.Equal(t, 2, rel.CreatedAtIndex)
}

func TestBuildStates_UnresolvedEndpointSkipsRelationship(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (a:Requirement {rid: 'R-1'})`,
		`MERGE (a)-[:TRACES_TO]->(ghost)`,
	))

	assert.Empty(t, state.Relationships, "no node may be fabricated for a dangling endpoint")
	assert.Len(t, state.Nodes, 1)
}

func TestBuildStates_RelationshipDeleteBySubstring(t *testing.T) {
	_, state := BuildStates(deltasFromStatements(
		`CREATE (a:Requirement {rid: 'R-1'})`,
		`CREATE (b:BusinessObject {boid: 'BO-9'})`,
		`MATCH (a:Requirement {rid:'R-1'}), (b:BusinessObject {boid:'BO-9'}) MERGE (a)-[:TRACES_TO]->(b)`,
		`MATCH (x)-[TRACES_TO:TRACES_TO]->(y) DELETE TRACES_TO`,
	))

	rel := state.Relationships["R-1-TRACES_TO-BO-9"]
	require.NotNil(t, rel)
	assert.False(t, rel.Visible)
	require.NotNil(t, rel.DeletedAtIndex)
	assert.Equal(t, 3, *rel.DeletedAtIndex)
}

func TestBuildStates_Deterministic(t *testing.T) {
	statements := []string{
		`CREATE (a:Requirement {rid: 'R-1'})`,
		`CREATE (b:Requirement {rid: 'R-2'})`,
		`MATCH (a:Requirement {rid:'R-1'}), (b:Requirement {rid:'R-2'}) MERGE (a)-[:DEPENDS_ON]->(b)`,
		`MATCH (n:Requirement {rid:'R-2'}) SET n.status = 'done'`,
		`MATCH (n:Requirement {rid:'R-1'}) DETACH DELETE n`,
	}

	snapshotsA, stateA := BuildStates(deltasFromStatements(statements...))
	snapshotsB, stateB := BuildStates(deltasFromStatements(statements...))

	assert.Equal(t, stateA.Nodes, stateB.Nodes)
	assert.Equal(t, stateA.Relationships, stateB.Relationships)
	assert.Equal(t, snapshotsA, snapshotsB)
}

func TestBuildStates_SnapshotsDoNotAliasLiveState(t *testing.T) {
	snapshots, state := BuildStates(deltasFromStatements(
		`CREATE (r:Requirement {rid: 'R-1', status: 'draft'})`,
		`MATCH (n:Requirement {rid:'R-1'}) SET n.status = 'approved'`,
	))

	require.NotEmpty(t, snapshots)
	first := snapshots[0]
	assert.Equal(t, 0, first.ToolCallIndex)
	assert.Equal(t, "draft", first.Nodes["R-1"].Properties["status"])
	assert.Equal(t, "approved", state.Nodes["R-1"].Properties["status"])
}

func TestSnapshotInterval_Clamped(t *testing.T) {
	assert.Equal(t, 50, SnapshotInterval(0))
	assert.Equal(t, 50, SnapshotInterval(237))
	assert.Equal(t, 50, SnapshotInterval(2500))
	assert.Equal(t, 60, SnapshotInterval(3600))
	assert.Equal(t, 100, SnapshotInterval(10000))
	assert.Equal(t, 100, SnapshotInterval(1000000))
}

func TestBuildStates_PeriodicSnapshots(t *testing.T) {
	statements := make([]string, 237)
	for i := range statements {
		statements[i] = fmt.Sprintf(`CREATE (:Requirement {rid: 'R-%d'})`, i)
	}
	snapshots, state := BuildStates(deltasFromStatements(statements...))

	assert.Len(t, state.Nodes, 237)

	indices := make([]int, 0, len(snapshots))
	for _, snap := range snapshots {
		indices = append(indices, snap.ToolCallIndex)
	}
	assert.Equal(t, []int{0, 49, 99, 149, 199, 236}, indices)

	// No two consecutive snapshots further apart than the gap bound.
	for i := 1; i < len(indices); i++ {
		assert.LessOrEqual(t, indices[i]-indices[i-1], 50)
	}

	// The last snapshot carries the complete final state.
	last := snapshots[len(snapshots)-1]
	assert.Len(t, last.Nodes, 237)
}

func TestBuildStates_BulkOperationSnapshot(t *testing.T) {
	// A delta creating more than 50 nodes forces an extra snapshot.
	var bulk models.Changes
	for i := 0; i < 51; i++ {
		bulk.NodesCreated = append(bulk.NodesCreated, models.NodeCreate{
			Label:      "Item",
			Properties: map[string]any{"rid": fmt.Sprintf("I-%d", i)},
		})
	}
	deltas := []models.Delta{
		{ToolCallIndex: 0, Changes: ParseStatement(`CREATE (:Item {rid: 'seed'})`)},
		{ToolCallIndex: 1, Changes: bulk},
		{ToolCallIndex: 2, Changes: ParseStatement(`CREATE (:Item {rid: 'tail'})`)},
	}

	snapshots, _ := BuildStates(deltas)
	indices := make([]int, 0, len(snapshots))
	for _, snap := range snapshots {
		indices = append(indices, snap.ToolCallIndex)
	}
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestBuildStates_Empty(t *testing.T) {
	snapshots, state := BuildStates(nil)
	assert.Empty(t, snapshots)
	assert.Empty(t, state.Nodes)
	assert.Empty(t, state.Relationships)
}
