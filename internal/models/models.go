package models

import (
	"time"
)

// AuditRecord is one tool-call step from the agent audit trail.
// Records are immutable and produced upstream by the agent runtime;
// this service only ever reads them.
type AuditRecord struct {
	ID         string    `json:"id" db:"id"`
	JobID      string    `json:"job_id" db:"job_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	StepNumber int       `json:"step_number" db:"step_number"`
	ToolName   string    `json:"tool_name" db:"tool_name"`
	RawQuery   string    `json:"raw_query" db:"raw_query"`
}

// GraphToolName is the tool whose calls carry Cypher mutation statements.
// Every other tool call is counted but never parsed.
const GraphToolName = "execute_cypher_query"

// NodeCreate is a CREATE/MERGE of a single node pattern.
type NodeCreate struct {
	Variable   string         `json:"variable"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
	IsMerge    bool           `json:"isMerge"`
}

// NodeDelete is a DELETE (optionally DETACH) of a node variable.
type NodeDelete struct {
	Variable string `json:"variable"`
	Detach   bool   `json:"detach"`
}

// RelCreate is a CREATE/MERGE of a directed relationship pattern.
// Only left-to-right arrows are recognized by the parser.
type RelCreate struct {
	SourceVar  string         `json:"sourceVariable"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	TargetVar  string         `json:"targetVariable"`
	IsMerge    bool           `json:"isMerge"`
}

// RelDelete is a DELETE of a variable bound to a relationship pattern.
type RelDelete struct {
	Variable string `json:"variable"`
}

// PropertySet is one `SET var.prop = value` assignment. Bulk map
// assignments are expanded into one PropertySet per key.
type PropertySet struct {
	Variable string `json:"variable"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

// PropertyRemove is a `REMOVE var.prop` clause.
type PropertyRemove struct {
	Variable string `json:"variable"`
	Property string `json:"property"`
}

// LabelRemove is a `REMOVE var:Label` clause.
type LabelRemove struct {
	Variable string `json:"variable"`
	Label    string `json:"label"`
}

// MatchedRef is a read-only `(var:Label {props})` pattern binding.
// It never mutates state; it only feeds identity resolution so that
// MATCH-then-mutate statements can find nodes created earlier.
type MatchedRef struct {
	Variable   string         `json:"variable"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Changes groups the operations extracted from one statement, by category.
type Changes struct {
	NodesCreated         []NodeCreate     `json:"nodesCreated"`
	NodesDeleted         []NodeDelete     `json:"nodesDeleted"`
	RelationshipsCreated []RelCreate      `json:"relationshipsCreated"`
	RelationshipsDeleted []RelDelete      `json:"relationshipsDeleted"`
	PropertiesSet        []PropertySet    `json:"propertiesSet"`
	PropertiesRemoved    []PropertyRemove `json:"propertiesRemoved"`
	LabelsRemoved        []LabelRemove    `json:"labelsRemoved"`
	MatchedRefs          []MatchedRef     `json:"matchedReferences"`
}

// IsEmpty reports whether the statement yielded no operations at all.
func (c Changes) IsEmpty() bool {
	return len(c.NodesCreated) == 0 && len(c.NodesDeleted) == 0 &&
		len(c.RelationshipsCreated) == 0 && len(c.RelationshipsDeleted) == 0 &&
		len(c.PropertiesSet) == 0 && len(c.PropertiesRemoved) == 0 &&
		len(c.LabelsRemoved) == 0 && len(c.MatchedRefs) == 0
}

// Delta is one graph-mutating statement's worth of operations, positioned
// on the job timeline. ToolCallIndex counts graph statements only.
type Delta struct {
	Timestamp     time.Time `json:"timestamp"`
	ToolCallIndex int       `json:"toolCallIndex"`
	CypherQuery   string    `json:"cypherQuery"`
	ToolCallID    string    `json:"toolCallId"`
	StepNumber    int       `json:"stepNumber"`
	Changes       Changes   `json:"changes"`
}

// NodeState is the accumulated state of one logical node during replay.
// Visibility is monotonic: once false it never flips back to true.
type NodeState struct {
	ID              string         `json:"id"`
	Labels          []string       `json:"labels"`
	Properties      map[string]any `json:"properties"`
	CreatedAtIndex  int            `json:"createdAtIndex"`
	ModifiedAtIndex int            `json:"modifiedAtIndex"`
	DeletedAtIndex  *int           `json:"deletedAtIndex,omitempty"`
	Visible         bool           `json:"visible"`
}

// RelationshipState is the accumulated state of one relationship.
// ID is always sourceID + "-" + type + "-" + targetID, so re-creating
// the same triple updates the existing record instead of duplicating it.
type RelationshipState struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	SourceID       string         `json:"sourceId"`
	TargetID       string         `json:"targetId"`
	Properties     map[string]any `json:"properties"`
	CreatedAtIndex int            `json:"createdAtIndex"`
	DeletedAtIndex *int           `json:"deletedAtIndex,omitempty"`
	Visible        bool           `json:"visible"`
}

// Snapshot is a full value-copy of the accumulated graph state after the
// delta at ToolCallIndex was applied. Snapshots never alias the live maps.
type Snapshot struct {
	Timestamp     time.Time                     `json:"timestamp"`
	ToolCallIndex int                           `json:"toolCallIndex"`
	Nodes         map[string]*NodeState         `json:"nodes"`
	Relationships map[string]*RelationshipState `json:"relationships"`
}

// Summary aggregates change counts over a whole job.
type Summary struct {
	TotalToolCalls       int `json:"totalToolCalls"`
	GraphToolCalls       int `json:"graphToolCalls"`
	NodesCreated         int `json:"nodesCreated"`
	NodesDeleted         int `json:"nodesDeleted"`
	NodesModified        int `json:"nodesModified"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	RelationshipsDeleted int `json:"relationshipsDeleted"`
}

// TimeRange spans the first and last graph statement of a job.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Reconstruction is the full payload returned for one job: the parsed
// timeline plus periodic snapshots for random-access seeking in the UI.
type Reconstruction struct {
	JobID     string     `json:"jobId"`
	TimeRange *TimeRange `json:"timeRange"`
	Summary   Summary    `json:"summary"`
	Snapshots []Snapshot `json:"snapshots"`
	Deltas    []Delta    `json:"deltas"`
}

// Job is a row in the relational job-tracking store.
type Job struct {
	ID          string     `json:"id" db:"id"`
	Status      string     `json:"status" db:"status"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Job status values tracked by the pipeline.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// GraphStats is the aggregate shape of the live graph, used by the
// cockpit's live-vs-reconstructed comparison view.
type GraphStats struct {
	Nodes         int64            `json:"nodes"`
	Relationships int64            `json:"relationships"`
	Labels        map[string]int64 `json:"labels"`
}
