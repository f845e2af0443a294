package bias

import (
	"fmt"
	"regexp"
	"strings"
)

// rule is one lexical bias pattern. Rules are evaluated in order and the
// first match wins, so higher-severity patterns go first.
type rule struct {
	pattern  *regexp.Regexp
	category string
	severity string
}

// Patterns match against the lowercased query.
var rules = []rule{
	{
		pattern:  regexp.MustCompile(`wom[ae]n\s+(can't|cannot|can not|aren't able to|are not able to|not good at)`),
		category: CategoryCapabilityDoubt,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`wom[ae]n\s+should\s+(stay|be|remain|focus on)\b.*\b(home|kitchen|family)`),
		category: CategoryRoleRestriction,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`why\s+(should|would|do|does|bother)\b.*\b(hire|employ|recruit)\b.*\bwom[ae]n`),
		category: CategoryHiringJustification,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`\b(hire|employ)\s+wom[ae]n\s+at all\b`),
		category: CategoryHiringJustification,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`\b(female|wom[ae]n)s?\b.*\b(emotional|irrational|too sensitive|hysterical)`),
		category: CategoryStereotype,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`\b(male|men)\b.*\b(better|stronger|smarter|more capable|more suited)`),
		category: CategoryStereotype,
		severity: "high",
	},
	{
		pattern:  regexp.MustCompile(`(can|are|do)\s+wom[ae]n\s+(really\s+)?\w*\s*(lead|leaders|leadership|manage)`),
		category: CategoryLeadershipDoubt,
		severity: "medium",
	},
	{
		pattern:  regexp.MustCompile(`(suitable|appropriate|best)\s+(jobs|roles|positions|careers)\s+for\s+wom[ae]n`),
		category: CategoryRoleRestriction,
		severity: "medium",
	},
}

// matchRules runs the ordered lexical layer. Returns the zero rule and false
// when nothing matched.
func matchRules(query string) (rule, bool) {
	lower := strings.ToLower(query)
	for _, r := range rules {
		if r.pattern.MatchString(lower) {
			return r, true
		}
	}
	return rule{}, false
}

// topicStopwords are trailing filler words stripped from an extracted topic.
var topicStopwords = map[string]bool{
	"roles": true, "role": true, "jobs": true, "job": true,
	"positions": true, "position": true, "teams": true, "team": true,
	"work": true, "fields": true, "field": true, "the": true, "a": true,
}

// excludedTopics are captures that restate the biased premise and therefore
// cannot anchor a reframing.
var excludedTopics = map[string]bool{
	"home": true, "kitchen": true, "family": true, "women": true, "men": true,
}

var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfor\s+([a-z][a-z -]*?)[\s]*[?.!]*$`),
	regexp.MustCompile(`\b(?:in|at)\s+([a-z][a-z -]*?)[\s]*[?.!]*$`),
	regexp.MustCompile(`\bgood at\s+([a-z][a-z -]*?)[\s]*[?.!]*$`),
}

// extractTopic pulls the domain the query is actually about ("tech",
// "engineering", "sales leadership") out of the biased phrasing. Returns ""
// when no usable topic is present.
func extractTopic(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, p := range topicPatterns {
		m := p.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		words := strings.Fields(m[1])
		for len(words) > 0 && topicStopwords[words[len(words)-1]] {
			words = words[:len(words)-1]
		}
		// A long or premise-restating capture is not a usable topic.
		if len(words) == 0 || len(words) > 3 {
			continue
		}
		usable := true
		for _, w := range words {
			if excludedTopics[w] {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		return strings.Join(words, " ")
	}
	return ""
}

// reframe builds the neutral substitute query for a category. The second
// return value reports whether the reframing is confident; callers fall back
// to the original query when it is not.
func reframe(category, topic string) (string, bool) {
	switch category {
	case CategoryHiringJustification:
		if topic == "" {
			return "", false
		}
		return fmt.Sprintf("What are the performance benefits of gender-diverse %s teams?", topic), true
	case CategoryCapabilityDoubt:
		if topic == "" {
			return "", false
		}
		return fmt.Sprintf("What achievements have women made in %s?", topic), true
	case CategoryRoleRestriction:
		if topic == "" {
			return "What career opportunities are women pursuing across industries?", true
		}
		return fmt.Sprintf("What career opportunities do women pursue in %s?", topic), true
	case CategoryLeadershipDoubt:
		if topic == "" {
			return "What does research show about women's effectiveness in leadership roles?", true
		}
		return fmt.Sprintf("What does research show about women's effectiveness in %s leadership?", topic), true
	case CategoryStereotype:
		if topic == "" {
			return "What does research show about gender diversity and team performance?", true
		}
		return fmt.Sprintf("What does research show about gender diversity and performance in %s?", topic), true
	}
	return "", false
}
