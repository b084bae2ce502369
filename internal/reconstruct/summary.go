package reconstruct

import (
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// Summarize reduces the delta list into aggregate change counts.
// TotalToolCalls covers every tool call in the job, not just the graph
// ones, so it is supplied by the caller. A node modification is any
// property set, property removal, or label removal.
func Summarize(totalToolCalls int, deltas []models.Delta) models.Summary {
	summary := models.Summary{
		TotalToolCalls: totalToolCalls,
		GraphToolCalls: len(deltas),
	}
	for i := range deltas {
		c := &deltas[i].Changes
		summary.NodesCreated += len(c.NodesCreated)
		summary.NodesDeleted += len(c.NodesDeleted)
		summary.NodesModified += len(c.PropertiesSet) + len(c.PropertiesRemoved) + len(c.LabelsRemoved)
		summary.RelationshipsCreated += len(c.RelationshipsCreated)
		summary.RelationshipsDeleted += len(c.RelationshipsDeleted)
	}
	return summary
}
