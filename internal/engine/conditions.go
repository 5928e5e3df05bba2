package engine

import (
	"fmt"
	"strings"

	"campaign-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign conditions arrive as a raw map of dot-separated event paths to
// either a literal value (equality) or an operator document with any of
// exists, equals, gt, lt. CompileConditions turns the raw form into a
// predicate list evaluated with implicit AND; malformed entries degrade to
// non-matching predicates, never errors.

type predicate interface {
	// matches is called with the resolved value and whether the path
	// resolved at all, so exists:false can tell absence apart from the
	// other operators.
	matches(value any, found bool) bool
}

type conditionTerm struct {
	path string
	pred predicate
}

// ConditionSet is the compiled predicate tree of one campaign.
type ConditionSet struct {
	terms []conditionTerm
}

func CompileConditions(raw map[string]any) ConditionSet {
	var cs ConditionSet
	for path, value := range raw {
		if ops, ok := asDocument(value); ok && isOperatorDoc(ops) {
			if v, ok := ops["exists"]; ok {
				want, _ := v.(bool)
				cs.terms = append(cs.terms, conditionTerm{path, existsPredicate{want}})
			}
			if v, ok := ops["equals"]; ok {
				cs.terms = append(cs.terms, conditionTerm{path, equalsPredicate{v}})
			}
			if v, ok := ops["gt"]; ok {
				cs.terms = append(cs.terms, conditionTerm{path, comparePredicate{v, false}})
			}
			if v, ok := ops["lt"]; ok {
				cs.terms = append(cs.terms, conditionTerm{path, comparePredicate{v, true}})
			}
			continue
		}
		cs.terms = append(cs.terms, conditionTerm{path, equalsPredicate{value}})
	}
	return cs
}

// Matches reports whether the event satisfies every term. An empty condition
// set always matches.
func (cs ConditionSet) Matches(event *models.Event) bool {
	doc := eventDocument(event)
	for _, term := range cs.terms {
		value, found := resolvePath(doc, term.path)
		if !term.pred.matches(value, found) {
			return false
		}
	}
	return true
}

func isOperatorDoc(m map[string]any) bool {
	for _, key := range []string{"exists", "equals", "gt", "lt"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

// eventDocument exposes the event's evaluatable fields for path resolution.
func eventDocument(event *models.Event) map[string]any {
	return map[string]any{
		"id":         event.ID,
		"user_id":    event.UserID,
		"event_type": event.EventType,
		"timestamp":  event.Timestamp,
		"metadata":   event.Metadata,
	}
}

// resolvePath descends nested documents along a dot-separated path. The
// second return distinguishes an absent path from a present nil value.
func resolvePath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, segment := range segments {
		m, ok := asDocument(current)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// asDocument normalizes the map shapes the Mongo driver hands back when
// decoding into interface{} fields.
func asDocument(value any) (map[string]any, bool) {
	switch doc := value.(type) {
	case map[string]any:
		return doc, true
	case primitive.M:
		return doc, true
	case primitive.D:
		m := make(map[string]any, len(doc))
		for _, e := range doc {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

type existsPredicate struct {
	want bool
}

func (p existsPredicate) matches(value any, found bool) bool {
	present := found && !isEmpty(value)
	return present == p.want
}

type equalsPredicate struct {
	want any
}

func (p equalsPredicate) matches(value any, found bool) bool {
	if !found {
		return false
	}
	if a, okA := toFloat(value); okA {
		if b, okB := toFloat(p.want); okB {
			return a == b
		}
	}
	return fmt.Sprint(value) == fmt.Sprint(p.want)
}

// comparePredicate covers gt and lt; less flips the direction.
type comparePredicate struct {
	threshold any
	less      bool
}

func (p comparePredicate) matches(value any, found bool) bool {
	if !found {
		return false
	}
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	t, ok := toFloat(p.threshold)
	if !ok {
		return false
	}
	if p.less {
		return v < t
	}
	return v > t
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
