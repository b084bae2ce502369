package reconstruct

import (
	"math"
	"sort"
	"strings"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

const (
	// maxSnapshotGap bounds how many deltas a UI seek may have to replay
	// on top of the nearest snapshot.
	maxSnapshotGap = 50

	// bulkOpThreshold forces a snapshot right after a delta that touches
	// an unusually large number of nodes at once.
	bulkOpThreshold = 50

	minSnapshotInterval = 50
	maxSnapshotInterval = 100
)

// ReplayState is the accumulating graph state threaded through the replay.
// It is a plain value type so individual phases can be tested in
// isolation; nothing in here is shared between requests.
type ReplayState struct {
	Nodes         map[string]*models.NodeState
	Relationships map[string]*models.RelationshipState
	VarToID       map[string]string
}

// NewReplayState returns an empty state ready for a replay.
func NewReplayState() *ReplayState {
	return &ReplayState{
		Nodes:         make(map[string]*models.NodeState),
		Relationships: make(map[string]*models.RelationshipState),
		VarToID:       make(map[string]string),
	}
}

// SnapshotInterval picks the periodic snapshot interval for a replay of n
// deltas: round(sqrt(n)) clamped to [50, 100]. Snapshot count then grows
// roughly with sqrt(n) while seek distance stays bounded.
func SnapshotInterval(n int) int {
	interval := int(math.Round(math.Sqrt(float64(n))))
	if interval < minSnapshotInterval {
		interval = minSnapshotInterval
	}
	if interval > maxSnapshotInterval {
		interval = maxSnapshotInterval
	}
	return interval
}

// BuildStates replays the ordered deltas against an empty state and
// returns the periodic snapshots plus the final state. Replay is
// deterministic: the same delta list always produces identical state and
// identical snapshot contents.
func BuildStates(deltas []models.Delta) ([]models.Snapshot, *ReplayState) {
	state := NewReplayState()
	snapshots := make([]models.Snapshot, 0)
	if len(deltas) == 0 {
		return snapshots, state
	}

	interval := SnapshotInterval(len(deltas))
	lastSnapshot := -1

	for i, delta := range deltas {
		state.Apply(i, &delta.Changes)

		if shouldSnapshot(i, len(deltas), interval, lastSnapshot, &delta.Changes) {
			snapshots = append(snapshots, models.Snapshot{
				Timestamp:     delta.Timestamp,
				ToolCallIndex: i,
				Nodes:         copyNodes(state.Nodes),
				Relationships: copyRelationships(state.Relationships),
			})
			lastSnapshot = i
		}
	}
	return snapshots, state
}

func shouldSnapshot(i, total, interval, lastSnapshot int, changes *models.Changes) bool {
	switch {
	case i == 0:
		return true
	case (i+1)%interval == 0:
		return true
	case i == total-1:
		return true
	case i-lastSnapshot >= maxSnapshotGap:
		return true
	case len(changes.NodesCreated) > bulkOpThreshold:
		return true
	case len(changes.NodesDeleted) > bulkOpThreshold:
		return true
	}
	return false
}

// Apply folds one delta's operations into the state. The phase order is
// fixed: reference bindings, node creates, node deletes (with cascade),
// property changes, relationship creates, relationship deletes. Any
// operation whose variable cannot be resolved is skipped; a node is never
// fabricated for a dangling reference.
func (s *ReplayState) Apply(index int, changes *models.Changes) {
	for i := range changes.MatchedRefs {
		s.registerRef(&changes.MatchedRefs[i])
	}
	for i := range changes.NodesCreated {
		s.applyNodeCreate(index, &changes.NodesCreated[i])
	}
	for i := range changes.NodesDeleted {
		s.applyNodeDelete(index, &changes.NodesDeleted[i])
	}
	for i := range changes.PropertiesSet {
		op := &changes.PropertiesSet[i]
		if node := s.resolveNode(op.Variable); node != nil {
			node.Properties[op.Property] = op.Value
			node.ModifiedAtIndex = index
		}
	}
	for i := range changes.PropertiesRemoved {
		op := &changes.PropertiesRemoved[i]
		if node := s.resolveNode(op.Variable); node != nil {
			delete(node.Properties, op.Property)
			node.ModifiedAtIndex = index
		}
	}
	for i := range changes.LabelsRemoved {
		op := &changes.LabelsRemoved[i]
		if node := s.resolveNode(op.Variable); node != nil {
			node.Labels = removeString(node.Labels, op.Label)
			node.ModifiedAtIndex = index
		}
	}
	for i := range changes.RelationshipsCreated {
		s.applyRelCreate(index, &changes.RelationshipsCreated[i])
	}
	for i := range changes.RelationshipsDeleted {
		s.applyRelDelete(index, &changes.RelationshipsDeleted[i])
	}
}

// registerRef binds a matched pattern's variable to a node id. A mapping
// that already points at a live node is never overwritten by one that
// does not resolve to a live node.
func (s *ReplayState) registerRef(ref *models.MatchedRef) {
	id := DeriveNodeID(ref.Label, ref.Variable, ref.Properties)
	if _, live := s.Nodes[id]; !live {
		if resolved, ok := ResolveVariable(ref.Variable, s.VarToID, s.Nodes); ok {
			id = resolved
		}
	}
	if current, ok := s.VarToID[ref.Variable]; ok {
		_, currentLive := s.Nodes[current]
		_, candidateLive := s.Nodes[id]
		if currentLive && !candidateLive {
			return
		}
	}
	s.VarToID[ref.Variable] = id
}

func (s *ReplayState) applyNodeCreate(index int, op *models.NodeCreate) {
	id := DeriveNodeID(op.Label, op.Variable, op.Properties)
	if op.Variable != "" {
		s.VarToID[op.Variable] = id
	}

	if node, ok := s.Nodes[id]; ok {
		// MERGE onto an existing node: fold properties in and keep the
		// original creation index. A soft-deleted node stays deleted.
		for k, v := range op.Properties {
			node.Properties[k] = v
		}
		node.Labels = addString(node.Labels, op.Label)
		node.ModifiedAtIndex = index
		return
	}

	props := make(map[string]any, len(op.Properties))
	for k, v := range op.Properties {
		props[k] = v
	}
	s.Nodes[id] = &models.NodeState{
		ID:              id,
		Labels:          []string{op.Label},
		Properties:      props,
		CreatedAtIndex:  index,
		ModifiedAtIndex: index,
		Visible:         true,
	}
}

func (s *ReplayState) applyNodeDelete(index int, op *models.NodeDelete) {
	id, ok := ResolveVariable(op.Variable, s.VarToID, s.Nodes)
	if !ok {
		return
	}
	node, ok := s.Nodes[id]
	if !ok {
		return
	}
	if node.Visible {
		deletedAt := index
		node.Visible = false
		node.DeletedAtIndex = &deletedAt
	}

	// Cascade: every relationship touching the deleted node goes with it,
	// at the same index, whether or not DETACH was spelled out.
	for _, relID := range sortedRelIDs(s.Relationships) {
		rel := s.Relationships[relID]
		if !rel.Visible {
			continue
		}
		if rel.SourceID == id || rel.TargetID == id {
			deletedAt := index
			rel.Visible = false
			rel.DeletedAtIndex = &deletedAt
		}
	}
}

func (s *ReplayState) applyRelCreate(index int, op *models.RelCreate) {
	sourceID, ok := ResolveVariable(op.SourceVar, s.VarToID, s.Nodes)
	if !ok {
		return
	}
	targetID, ok := ResolveVariable(op.TargetVar, s.VarToID, s.Nodes)
	if !ok {
		return
	}

	id := sourceID + "-" + op.Type + "-" + targetID
	if rel, ok := s.Relationships[id]; ok {
		// Idempotent identity: the same triple maps to the same record,
		// so a repeat create updates properties instead of duplicating.
		for k, v := range op.Properties {
			rel.Properties[k] = v
		}
		return
	}

	props := make(map[string]any, len(op.Properties))
	for k, v := range op.Properties {
		props[k] = v
	}
	s.Relationships[id] = &models.RelationshipState{
		ID:             id,
		Type:           op.Type,
		SourceID:       sourceID,
		TargetID:       targetID,
		Properties:     props,
		CreatedAtIndex: index,
		Visible:        true,
	}
}

// applyRelDelete soft-deletes every visible relationship whose id contains
// the variable token. Relationship variables are not tracked as precisely
// as node variables, so this stays a substring match; that imprecision is
// a documented limitation of the reconstruction, not something to tighten.
func (s *ReplayState) applyRelDelete(index int, op *models.RelDelete) {
	if op.Variable == "" {
		return
	}
	for _, relID := range sortedRelIDs(s.Relationships) {
		rel := s.Relationships[relID]
		if !rel.Visible {
			continue
		}
		if containsToken(relID, op.Variable) {
			deletedAt := index
			rel.Visible = false
			rel.DeletedAtIndex = &deletedAt
		}
	}
}

func (s *ReplayState) resolveNode(variable string) *models.NodeState {
	id, ok := ResolveVariable(variable, s.VarToID, s.Nodes)
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

func sortedRelIDs(rels map[string]*models.RelationshipState) []string {
	ids := make([]string, 0, len(rels))
	for id := range rels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func copyNodes(nodes map[string]*models.NodeState) map[string]*models.NodeState {
	out := make(map[string]*models.NodeState, len(nodes))
	for id, node := range nodes {
		clone := *node
		clone.Labels = append([]string(nil), node.Labels...)
		clone.Properties = make(map[string]any, len(node.Properties))
		for k, v := range node.Properties {
			clone.Properties[k] = v
		}
		if node.DeletedAtIndex != nil {
			deletedAt := *node.DeletedAtIndex
			clone.DeletedAtIndex = &deletedAt
		}
		out[id] = &clone
	}
	return out
}

func copyRelationships(rels map[string]*models.RelationshipState) map[string]*models.RelationshipState {
	out := make(map[string]*models.RelationshipState, len(rels))
	for id, rel := range rels {
		clone := *rel
		clone.Properties = make(map[string]any, len(rel.Properties))
		for k, v := range rel.Properties {
			clone.Properties[k] = v
		}
		if rel.DeletedAtIndex != nil {
			deletedAt := *rel.DeletedAtIndex
			clone.DeletedAtIndex = &deletedAt
		}
		out[id] = &clone
	}
	return out
}

func addString(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func containsToken(id, token string) bool {
	return token != "" && strings.Contains(id, token)
}
