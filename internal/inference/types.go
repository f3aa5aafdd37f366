package inference

import "context"

// MaxCandidates bounds the ranked candidate set.
const MaxCandidates = 5

// Polarity says whether a link supports or contradicts a syndrome.
type Polarity string

const (
	Support Polarity = "support"
	Contra  Polarity = "contra"
)

// ParsePolarity maps a stored polarity. Anything other than "contra" counts as support.
func ParsePolarity(s string) Polarity {
	if s == string(Contra) {
		return Contra
	}
	return Support
}

// RuleType is the policy applied by a RuleConstraint.
type RuleType string

const (
	RuleExclude         RuleType = "exclude"
	RuleRequired        RuleType = "required"
	RuleIncompatibility RuleType = "incompatibility"
)

// Operator is the test a RuleCondition applies to the observed symptoms.
type Operator string

const (
	OpPresent Operator = "present"
	OpAbsent  Operator = "absent"
)

// QuestionType classifies an advisory question.
type QuestionType string

const (
	QuestionNeedMoreInfo    QuestionType = "need_more_info"
	QuestionNoMatch         QuestionType = "no_match"
	QuestionMissingRequired QuestionType = "missing_required"
)

// Static question templates.
const (
	NeedMoreInfoMessage    = "Chưa có triệu chứng đã chuẩn hoá."
	NoMatchMessage         = "Không có mapping hội chứng–triệu chứng phù hợp."
	DefaultRequiredMessage = "Cần bổ sung triệu chứng để củng cố hội chứng."
	UnknownSyndromeName    = "Unknown"
)

type Syndrome struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Link is a weighted symptom-syndrome association.
type Link struct {
	SyndromeID string   `json:"syndrome_id"`
	SymptomID  string   `json:"symptom_id"`
	Weight     float64  `json:"weight"`
	Polarity   Polarity `json:"polarity"`
}

// Delta returns the signed contribution of the link to its syndrome's score.
func (l Link) Delta() float64 {
	if l.Polarity == Contra {
		return -l.Weight
	}
	return l.Weight
}

type RuleCondition struct {
	SymptomID string   `json:"symptom_id"`
	Operator  Operator `json:"operator"`
}

type RuleConstraint struct {
	ID         string          `json:"id"`
	SyndromeID string          `json:"syndrome_id"`
	RuleType   RuleType        `json:"rule_type"`
	Message    string          `json:"message"`
	Conditions []RuleCondition `json:"conditions"`
}

// Case is the input of one inference call.
type Case struct {
	EncounterID        string         `json:"encounterId,omitempty"`
	ObservedSymptomIDs []string       `json:"symptomIds"`
	Meta               map[string]any `json:"meta,omitempty"`
}

// Candidate is a scored syndrome. Syndrome is nil until the candidate is enriched.
type Candidate struct {
	SyndromeID string    `json:"syndrome_id"`
	Score      float64   `json:"score"`
	Evidence   []Link    `json:"evidence"`
	Syndrome   *Syndrome `json:"syndrome,omitempty"`
}

type Question struct {
	Type       QuestionType `json:"type"`
	Message    string       `json:"message"`
	SyndromeID string       `json:"syndrome_id,omitempty"`
	SymptomID  string       `json:"symptom_id,omitempty"`
}

// Result is the envelope returned by Engine.Infer.
type Result struct {
	Best       *Candidate  `json:"best"`
	Candidates []Candidate `json:"candidates"`
	Evidence   []Link      `json:"evidence"`
	Questions  []Question  `json:"questions"`
}

// ReferenceStore is the read side of the reference data the engine scores against.
type ReferenceStore interface {
	// FetchLinks returns every link whose symptom id is in symptomIDs.
	FetchLinks(ctx context.Context, symptomIDs []string) ([]Link, error)
	// FetchConstraints returns every constraint on the given syndromes with its ordered conditions.
	FetchConstraints(ctx context.Context, syndromeIDs []string) ([]RuleConstraint, error)
	// FetchSyndromes returns display metadata for the given syndromes.
	FetchSyndromes(ctx context.Context, syndromeIDs []string) ([]Syndrome, error)
}
