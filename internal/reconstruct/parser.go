package reconstruct

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// The mutation statements are machine-generated by the upstream agents, so
// a handful of anchored regexes covers the dialect in practice. This is a
// best-effort structural extractor, not a Cypher grammar: fragments that
// match nothing are dropped and never abort a statement.
//
// The precedence order below is load-bearing: reference bindings are
// extracted before CREATE/MERGE so that MATCH-then-mutate statements can
// pre-resolve identities, and the relationship-bracket check decides
// whether a DELETE is a node or relationship delete.
var (
	// (var:Label {props}) with a non-empty property block
	refPattern = regexp.MustCompile("\\(\\s*(\\w+)\\s*:\\s*`?(\\w+)`?\\s*\\{([^{}]+)\\}\\s*\\)")

	// CREATE/MERGE (var:Label {props}?)
	nodeCreatePattern = regexp.MustCompile("(?i)\\b(CREATE|MERGE)\\s*\\(\\s*(\\w*)\\s*:\\s*`?(\\w+)`?(?:\\s*\\{([^{}]*)\\})?\\s*\\)")

	// CREATE/MERGE (a ...)-[r?:TYPE {props}?]->(b ...), left-to-right only
	relCreatePattern = regexp.MustCompile("(?i)\\b(CREATE|MERGE)\\s*\\(\\s*(\\w+)[^()]*\\)\\s*-\\s*\\[\\s*\\w*\\s*:\\s*`?(\\w+)`?(?:\\s*\\{([^{}]*)\\})?\\s*\\]\\s*->\\s*\\(\\s*(\\w+)")

	// [DETACH] DELETE a[, b, ...]
	deletePattern = regexp.MustCompile(`(?i)\b(DETACH\s+)?DELETE\s+(\w+(?:\s*,\s*\w+)*)`)

	// top-level clause keywords, used to bound SET/REMOVE clause bodies
	clausePattern = regexp.MustCompile(`(?i)\b(MATCH|CREATE|MERGE|SET|REMOVE|DELETE|DETACH|RETURN|WITH|WHERE|UNWIND)\b`)

	bulkSetPattern    = regexp.MustCompile(`^(\w+)\s*\+?=\s*\{(.*)\}$`)
	singleSetPattern  = regexp.MustCompile(`^(\w+)\.(\w+)\s*=\s*(.+)$`)
	propRemovePattern = regexp.MustCompile(`^(\w+)\.(\w+)$`)
	labelRemovePattern = regexp.MustCompile("^(\\w+)\\s*:\\s*`?(\\w+)`?$")
)

// ParseStatement extracts the typed operations from one raw mutation
// statement. All categories are applied independently to the same input,
// so a single statement may contribute operations to several of them.
// Malformed input yields an empty Changes, never an error.
func ParseStatement(stmt string) models.Changes {
	var changes models.Changes
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return changes
	}

	// 1. Reference bindings, before any mutation matching.
	for _, m := range refPattern.FindAllStringSubmatch(stmt, -1) {
		changes.MatchedRefs = append(changes.MatchedRefs, models.MatchedRef{
			Variable:   m[1],
			Label:      m[2],
			Properties: ParsePropertyBlock(m[3]),
		})
	}

	// 2. Node creation.
	for _, m := range nodeCreatePattern.FindAllStringSubmatch(stmt, -1) {
		changes.NodesCreated = append(changes.NodesCreated, models.NodeCreate{
			Variable:   m[2],
			Label:      m[3],
			Properties: ParsePropertyBlock(m[4]),
			IsMerge:    strings.EqualFold(m[1], "MERGE"),
		})
	}

	// 3. Deletion, with the relationship-bracket reclassification pass:
	// a DELETE whose variable also appears as `[var]` or `[var:Type]`
	// anywhere in the statement targets a relationship, not a node.
	for _, m := range deletePattern.FindAllStringSubmatch(stmt, -1) {
		detach := strings.TrimSpace(m[1]) != ""
		for _, v := range strings.Split(m[2], ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if isRelationshipVariable(stmt, v) {
				changes.RelationshipsDeleted = append(changes.RelationshipsDeleted,
					models.RelDelete{Variable: v})
			} else {
				changes.NodesDeleted = append(changes.NodesDeleted,
					models.NodeDelete{Variable: v, Detach: detach})
			}
		}
	}

	// 4. Relationship creation (directed, left-to-right only).
	for _, m := range relCreatePattern.FindAllStringSubmatch(stmt, -1) {
		changes.RelationshipsCreated = append(changes.RelationshipsCreated, models.RelCreate{
			SourceVar:  m[2],
			Type:       m[3],
			Properties: ParsePropertyBlock(m[4]),
			TargetVar:  m[5],
			IsMerge:    strings.EqualFold(m[1], "MERGE"),
		})
	}

	// 5 & 6. Property set and property/label removal, per clause.
	for _, clause := range splitClauses(stmt) {
		switch clause.keyword {
		case "SET":
			parseSetClause(clause.body, &changes)
		case "REMOVE":
			parseRemoveClause(clause.body, &changes)
		}
	}

	return changes
}

// isRelationshipVariable reports whether a literal `[var` bracket pattern
// appears in the statement. Intentionally loose: it can misfire when
// several relationship variables reuse letters, and that looseness is part
// of the contract with existing generated traces.
func isRelationshipVariable(stmt, variable string) bool {
	re := regexp.MustCompile(`\[\s*` + regexp.QuoteMeta(variable) + `\s*[:\]]`)
	return re.MatchString(stmt)
}

type clause struct {
	keyword string
	body    string
}

// splitClauses segments a statement at top-level keyword boundaries so
// that a SET or REMOVE body ends where the next clause starts. Keyword
// hits inside quoted string literals are not boundaries; a property value
// like 'set by merge' must stay inside its clause body.
func splitClauses(stmt string) []clause {
	stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	quoted := quotedRegions(stmt)
	locs := make([][]int, 0)
	for _, loc := range clausePattern.FindAllStringSubmatchIndex(stmt, -1) {
		if !insideRegion(quoted, loc[0]) {
			locs = append(locs, loc)
		}
	}
	clauses := make([]clause, 0, len(locs))
	for i, loc := range locs {
		end := len(stmt)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		clauses = append(clauses, clause{
			keyword: strings.ToUpper(stmt[loc[2]:loc[3]]),
			body:    strings.TrimSpace(stmt[loc[3]:end]),
		})
	}
	return clauses
}

// quotedRegions returns the [start, end) spans of single- and double-quoted
// string literals, honoring backslash escapes. An unterminated literal runs
// to the end of the statement.
func quotedRegions(s string) [][2]int {
	var spans [][2]int
	var quote byte
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote == 0 {
			if c == '\'' || c == '"' {
				quote = c
				start = i
			}
			continue
		}
		if c == '\\' {
			i++
			continue
		}
		if c == quote {
			spans = append(spans, [2]int{start, i + 1})
			quote = 0
		}
	}
	if quote != 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

func insideRegion(spans [][2]int, pos int) bool {
	for _, span := range spans {
		if pos >= span[0] && pos < span[1] {
			return true
		}
	}
	return false
}

func parseSetClause(body string, changes *models.Changes) {
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		// Bulk form: SET var = {..} or SET var += {..}, expanded to one
		// PropertySet per key. Keys are sorted so repeated parses of the
		// same statement emit the same operation order.
		if m := bulkSetPattern.FindStringSubmatch(item); m != nil {
			props := ParsePropertyBlock(m[2])
			keys := make([]string, 0, len(props))
			for k := range props {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				changes.PropertiesSet = append(changes.PropertiesSet, models.PropertySet{
					Variable: m[1],
					Property: k,
					Value:    props[k],
				})
			}
			continue
		}
		if m := singleSetPattern.FindStringSubmatch(item); m != nil {
			changes.PropertiesSet = append(changes.PropertiesSet, models.PropertySet{
				Variable: m[1],
				Property: m[2],
				Value:    parseValue(m[3]),
			})
		}
	}
}

func parseRemoveClause(body string, changes *models.Changes) {
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if m := propRemovePattern.FindStringSubmatch(item); m != nil {
			changes.PropertiesRemoved = append(changes.PropertiesRemoved, models.PropertyRemove{
				Variable: m[1],
				Property: m[2],
			})
			continue
		}
		if m := labelRemovePattern.FindStringSubmatch(item); m != nil {
			changes.LabelsRemoved = append(changes.LabelsRemoved, models.LabelRemove{
				Variable: m[1],
				Label:    m[2],
			})
		}
	}
}
