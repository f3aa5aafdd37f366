package inference

// IDSet is a collapsed set of symptom or syndrome ids.
type IDSet map[string]struct{}

// NewIDSet collapses duplicates and drops empty ids.
func NewIDSet(ids []string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Verdict is the outcome of applying constraints to a candidate set.
type Verdict struct {
	Dropped   map[string]bool
	Questions []Question
}

// Holds reports whether the condition is true for the observed set.
// Unknown operators always hold.
func (c RuleCondition) Holds(observed IDSet) bool {
	switch c.Operator {
	case OpPresent:
		return observed.Has(c.SymptomID)
	case OpAbsent:
		return !observed.Has(c.SymptomID)
	default:
		return true
	}
}

// Satisfied reports whether every condition holds. An empty condition list is satisfied.
func (rc RuleConstraint) Satisfied(observed IDSet) bool {
	for _, cond := range rc.Conditions {
		if !cond.Holds(observed) {
			return false
		}
	}
	return true
}

// EvaluateConstraints applies exclude, incompatibility and required
// policies. Exclude and incompatibility drop their syndrome when
// satisfied. Required never drops; when unsatisfied it asks for each
// missing present-symptom. Questions follow constraint order, then
// condition order.
func EvaluateConstraints(constraints []RuleConstraint, observed IDSet) Verdict {
	v := Verdict{
		Dropped:   make(map[string]bool),
		Questions: []Question{},
	}

	for _, rc := range constraints {
		ok := rc.Satisfied(observed)

		switch rc.RuleType {
		case RuleExclude, RuleIncompatibility:
			if ok {
				v.Dropped[rc.SyndromeID] = true
			}
		case RuleRequired:
			if ok {
				continue
			}
			msg := rc.Message
			if msg == "" {
				msg = DefaultRequiredMessage
			}
			for _, cond := range rc.Conditions {
				if cond.Operator != OpPresent || observed.Has(cond.SymptomID) {
					continue
				}
				v.Questions = append(v.Questions, Question{
					Type:       QuestionMissingRequired,
					Message:    msg,
					SyndromeID: rc.SyndromeID,
					SymptomID:  cond.SymptomID,
				})
			}
		}
	}

	return v
}
