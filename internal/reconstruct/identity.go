package reconstruct

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// idPriority is the ordered list of property keys a node id is derived
// from. The first present, non-nil key wins. Derivation happens once, at
// creation time, and the resulting id stays stable for the whole replay
// even when statement-local variable names are reused.
var idPriority = []string{"rid", "boid", "mid", "sid", "id", "uuid", "ID", "name", "title", "key"}

// DeriveNodeID derives the stable logical id for a node from its declared
// properties, falling back to "Label_variable" when none of the priority
// keys are present. Pure: the same label/properties pair always yields
// the same id.
func DeriveNodeID(label, variable string, properties map[string]any) string {
	for _, key := range idPriority {
		if v, ok := properties[key]; ok && v != nil {
			return stringify(v)
		}
	}
	return label + "_" + variable
}

// ResolveVariable maps an in-statement variable name to a known node id.
// The layered fallback exists because the upstream agents do not reliably
// re-declare full properties on every reference, so exact-id matching
// alone misses nodes. Resolution stops at the first hit:
//
//  1. an existing mapping for the variable in this replay
//  2. a live node id ending in "_variable" (structural fallback ids)
//  3. a live node id that contains, or is contained in, the variable token
//  4. a live node with any property value stringifying to the variable token
//
// Returns ("", false) when nothing matches; the caller must then skip the
// dependent operation rather than fabricate a node.
func ResolveVariable(variable string, varToID map[string]string, nodes map[string]*models.NodeState) (string, bool) {
	if variable == "" {
		return "", false
	}
	if id, ok := varToID[variable]; ok {
		return id, true
	}

	// Map iteration order is randomized, so fallback scans walk node ids
	// in sorted order to keep replays deterministic.
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if strings.HasSuffix(id, "_"+variable) {
			return id, true
		}
	}
	for _, id := range ids {
		if strings.Contains(id, variable) || strings.Contains(variable, id) {
			return id, true
		}
	}
	for _, id := range ids {
		for _, v := range nodes[id].Properties {
			if v != nil && stringify(v) == variable {
				return id, true
			}
		}
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Trim the ".0" that fmt.Sprint would keep for whole floats so
		// ids derived from numeric properties stay readable.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
