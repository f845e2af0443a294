// Package prompt deterministically composes the generation request: persona,
// conditional bias directive, retrieved context, recent history and the
// current query, under a configurable character budget.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/retrieval"
)

// persona is the static system instruction block. Never trimmed.
const persona = `You are Asha, a supportive career assistant for a women-focused professional community.
You help users discover job opportunities, community events and mentorship sessions, and you give practical career guidance.
Ground every factual claim in the provided context; when the context does not cover the question, say so honestly instead of inventing listings or dates.
Always communicate respectfully and inclusively, and promote gender equity in the workplace.`

// snippetLength bounds the rendered portion of each document.
const snippetLength = 200

// Input collects everything one turn contributes to the prompt.
type Input struct {
	Query      string
	Intent     intent.Intent
	Assessment bias.Assessment
	Retrieval  retrieval.Result
	History    []conversation.Turn
}

// Payload is the assembled generation request.
type Payload struct {
	System string
	User   string

	// DocumentsUsed counts the context documents that survived the budget.
	DocumentsUsed int

	// Sources lists the IDs of documents rendered into the prompt.
	Sources []string

	// Truncated is set when the budget forced dropping context or history.
	Truncated bool
}

// Assembler builds prompt payloads. Stateless; safe for concurrent use.
type Assembler struct {
	budget int // total character budget for the user prompt
}

// NewAssembler creates an Assembler with the given character budget.
func NewAssembler(budget int) *Assembler {
	if budget < 1 {
		budget = 8000
	}
	return &Assembler{budget: budget}
}

// Assemble composes the payload. The persona and, when bias was detected,
// the bias directive are always included whole; retrieved documents are
// trimmed lowest-rank-first on overflow, then history oldest-first.
func (a *Assembler) Assemble(in Input) Payload {
	p := Payload{System: persona}

	var fixed strings.Builder
	if in.Assessment.Biased {
		writeBiasDirective(&fixed, in.Assessment)
	}

	query := in.Query
	if in.Assessment.Biased && !in.Assessment.ReframeUncertain {
		query = in.Assessment.Reframed
	}
	queryBlock := "User question: " + query + "\n"

	// Budget remaining for context and history after the untrimmable parts.
	remaining := a.budget - fixed.Len() - len(queryBlock)

	contextBlock, used, sources, contextTruncated := renderContext(in, remaining)
	remaining -= len(contextBlock)

	historyBlock, historyTruncated := renderHistory(in.History, remaining)

	var b strings.Builder
	b.WriteString(fixed.String())
	b.WriteString(contextBlock)
	b.WriteString(historyBlock)
	b.WriteString(queryBlock)

	p.User = b.String()
	p.DocumentsUsed = used
	p.Sources = sources
	p.Truncated = contextTruncated || historyTruncated
	return p
}

// writeBiasDirective renders the redirect instructions for a biased query,
// including the empowerment facts for its category.
func writeBiasDirective(b *strings.Builder, a bias.Assessment) {
	b.WriteString("Bias handling: the user's question contained a gendered assumption (category: ")
	b.WriteString(a.Category)
	b.WriteString("). Do not answer the biased premise literally. Redirect constructively using these facts:\n")
	for _, fact := range bias.Facts(a.Category) {
		b.WriteString("- ")
		b.WriteString(fact)
		b.WriteString("\n")
	}
	if a.ReframeUncertain {
		b.WriteString("Address the underlying information need respectfully without repeating the assumption.\n")
	}
	b.WriteString("\n")
}

// renderContext renders retrieved documents as compact fact lines, dropping
// lower-ranked documents first when the budget cannot fit them all.
func renderContext(in Input, budget int) (block string, used int, sources []string, truncated bool) {
	switch {
	case in.Intent == intent.OutOfScope:
		return "Context: the question is outside the assistant's knowledge sources; no supporting information is available.\n\n", 0, nil, false
	case in.Retrieval.Degraded:
		return "Context: the knowledge index is temporarily unavailable. Answer from general guidance and acknowledge that specific listings cannot be shown right now.\n\n", 0, nil, false
	case len(in.Retrieval.Hits) == 0:
		return "Context: no sufficiently relevant entries were found for this question.\n\n", 0, nil, false
	}

	const header = "Context from indexed sources:\n"
	var b strings.Builder
	b.WriteString(header)

	for _, hit := range in.Retrieval.Hits {
		line := renderHit(hit)
		if b.Len()+len(line)+1 > budget {
			truncated = true
			break
		}
		b.WriteString(line)
		sources = append(sources, hit.Document.ID)
		used++
	}
	if used == 0 {
		// Not even the top document fit; report no context rather than
		// emitting a bare header.
		return "Context: omitted due to prompt size limits.\n\n", 0, nil, true
	}
	b.WriteString("\n")
	return b.String(), used, sources, truncated
}

// renderHit renders one document as a single fact line.
func renderHit(hit retrieval.Hit) string {
	doc := hit.Document
	var fields []string
	switch doc.SourceType {
	case knowledge.SourceTypeJob:
		for _, key := range []string{"job_title", "company", "location", "job_type"} {
			if v := doc.Metadata[key]; v != "" {
				fields = append(fields, v)
			}
		}
	case knowledge.SourceTypeEvent:
		for _, key := range []string{"title", "date", "mode"} {
			if v := doc.Metadata[key]; v != "" {
				fields = append(fields, v)
			}
		}
	}

	snippet := doc.Content
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength] + "..."
	}

	if len(fields) > 0 {
		return fmt.Sprintf("- [%s] %s: %s\n", doc.SourceType, strings.Join(fields, ", "), snippet)
	}
	return fmt.Sprintf("- [%s] %s\n", doc.SourceType, snippet)
}

// renderHistory renders the bounded window role-tagged, dropping oldest
// turns first when the budget is tight.
func renderHistory(turns []conversation.Turn, budget int) (string, bool) {
	if len(turns) == 0 {
		return "", false
	}

	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s\n", t.Role, t.Text)
	}

	const header = "Recent conversation:\n"
	total := len(header) + 1
	start := len(lines)
	for start > 0 && total+len(lines[start-1]) <= budget {
		total += len(lines[start-1])
		start--
	}
	if start == len(lines) {
		return "", true
	}

	var b strings.Builder
	b.WriteString(header)
	for _, line := range lines[start:] {
		b.WriteString(line)
	}
	b.WriteString("\n")
	return b.String(), start > 0
}
