package bias

// exemplar is a known biased question used by the semantic fallback layer.
// Queries that paraphrase one of these closely enough are classified with the
// exemplar's category even when no lexical rule fired.
type exemplar struct {
	text     string
	category string
}

var exemplars = []exemplar{
	{"why should we even hire women for technical positions", CategoryHiringJustification},
	{"what is the point of recruiting women into engineering", CategoryHiringJustification},
	{"is it worth employing women in demanding jobs", CategoryHiringJustification},
	{"are women capable of doing serious technical work", CategoryCapabilityDoubt},
	{"can women really handle difficult engineering problems", CategoryCapabilityDoubt},
	{"women are not smart enough for data science", CategoryCapabilityDoubt},
	{"should women just take care of the household instead of working", CategoryRoleRestriction},
	{"which easy jobs are okay for women to do", CategoryRoleRestriction},
	{"women belong in caregiving professions only", CategoryRoleRestriction},
	{"can a woman actually run a large company", CategoryLeadershipDoubt},
	{"are women too soft to be effective managers", CategoryLeadershipDoubt},
	{"do women make worse bosses than men", CategoryLeadershipDoubt},
	{"women are too emotional to make rational decisions at work", CategoryStereotype},
	{"men are naturally better at logical thinking than women", CategoryStereotype},
	{"female employees are always too sensitive to criticism", CategoryStereotype},
}
