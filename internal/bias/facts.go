package bias

// empowermentFacts are research-backed statements injected into the prompt's
// bias directive, keyed by category. The "general" set backs categories with
// no dedicated facts.
var empowermentFacts = map[string][]string{
	CategoryCapabilityDoubt: {
		"Research shows that women excel across fields including STEM, leadership and entrepreneurship.",
		"Companies with gender-diverse teams are 25% more likely to achieve above-average profitability according to McKinsey research.",
		"Women-led startups have been shown to generate 10% more revenue over a five-year period than male-led startups.",
	},
	CategoryStereotype: {
		"Harvard Business Review research shows women leaders often score higher than men in most leadership skill evaluations.",
		"Studies show that diverse teams make better decisions 87% of the time compared to individual decision-makers.",
		"Balancing analytical and emotional intelligence is increasingly recognized as crucial for effective leadership.",
	},
	CategoryRoleRestriction: {
		"Women now constitute a majority of the college-educated workforce in many countries.",
		"Women have succeeded in every career field, including traditionally male-dominated industries.",
		"Flexible work arrangements benefit all employees and improve overall productivity and job satisfaction.",
	},
	CategoryHiringJustification: {
		"The most successful organizations have diverse leadership teams that include people of all genders.",
		"Research indicates that balanced gender representation leads to more innovative solutions and better financial performance.",
		"Gender-diverse teams are more innovative and better at solving complex problems.",
	},
	CategoryLeadershipDoubt: {
		"Organizations with women in leadership positions have been shown to navigate crisis situations more effectively.",
		"Women hold CEO positions in major global companies across all sectors including technology, finance and manufacturing.",
		"Different perspectives and approaches to problem-solving enhance team performance and innovation.",
	},
}

var generalFacts = []string{
	"Studies consistently show that diverse teams outperform homogeneous ones on complex tasks.",
	"Organizations with balanced gender representation report higher employee satisfaction and lower turnover.",
	"Mentorship and sponsorship programs significantly advance women's careers in all fields.",
}

// Facts returns the empowerment facts for a category, falling back to the
// general set for unknown or empty categories.
func Facts(category string) []string {
	if facts, ok := empowermentFacts[category]; ok {
		return facts
	}
	return generalFacts
}
