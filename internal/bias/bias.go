// Package bias detects gender-biased framing in user queries and produces a
// neutral, fact-seeking reframing that preserves the information need.
//
// Detection is layered: an ordered list of lexical rules runs first, then a
// semantic check against a bank of known biased-question exemplars catches
// paraphrases the rules miss. Both layers assign a category from a fixed
// taxonomy used downstream to pick the reframing template and the
// empowerment facts injected into the prompt.
package bias

// Bias categories.
const (
	// CategoryCapabilityDoubt covers queries presupposing women lack ability
	// in a field.
	CategoryCapabilityDoubt = "capability-doubt"

	// CategoryRoleRestriction covers queries confining women to particular
	// roles or to domestic work.
	CategoryRoleRestriction = "role-restriction"

	// CategoryHiringJustification covers "why hire women" framing.
	CategoryHiringJustification = "hiring-justification"

	// CategoryLeadershipDoubt covers queries doubting women's fitness to lead.
	CategoryLeadershipDoubt = "leadership-doubt"

	// CategoryStereotype covers trait stereotyping and gender comparisons.
	CategoryStereotype = "stereotype"
)

// Assessment is the verdict for one query. Produced per turn and consumed
// immediately by the retriever and the prompt assembler.
type Assessment struct {
	Biased   bool
	Category string // One of the Category constants; empty when not biased
	Severity string // "high", "medium" or "low"; empty when not biased

	Original string
	Reframed string // Neutral substitute; equals Original when not biased
	Rationale string

	// ReframeUncertain is set when bias was detected but no confident
	// reframing could be built. The reframed query falls back to the
	// original and the prompt assembler leans on the directive instead.
	ReframeUncertain bool

	// Layer records which check fired: "lexical", "semantic" or "".
	Layer string
}
