package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ashaai/asha/internal/bias"
	"github.com/ashaai/asha/internal/conversation"
	"github.com/ashaai/asha/internal/intent"
	"github.com/ashaai/asha/internal/knowledge"
	"github.com/ashaai/asha/internal/retrieval"
)

func jobHit(id, title, company string, score float32) retrieval.Hit {
	return retrieval.Hit{
		Document: knowledge.Document{
			ID:         id,
			SourceType: knowledge.SourceTypeJob,
			Content:    fmt.Sprintf("%s at %s, building products", title, company),
			Metadata:   map[string]string{"job_title": title, "company": company},
		},
		Score: score,
	}
}

func TestAssembleGroundedJobQuery(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	in := Input{
		Query:  "List job openings in marketing",
		Intent: intent.JobSearch,
		Assessment: bias.Assessment{
			Original: "List job openings in marketing",
			Reframed: "List job openings in marketing",
		},
		Retrieval: retrieval.Result{Hits: []retrieval.Hit{
			jobHit("job-1", "Marketing Manager", "BrightWave", 0.9),
			jobHit("job-2", "Brand Strategist", "Lumina", 0.8),
		}},
	}

	p := a.Assemble(in)

	if !strings.Contains(p.System, "Asha") {
		t.Error("system prompt missing persona")
	}
	if !strings.Contains(p.User, "Marketing Manager") || !strings.Contains(p.User, "BrightWave") {
		t.Error("rendered context missing job facts")
	}
	if strings.Contains(p.User, "Bias handling") {
		t.Error("bias directive included for an unbiased query")
	}
	if p.DocumentsUsed != 2 {
		t.Errorf("DocumentsUsed = %d, want 2", p.DocumentsUsed)
	}
	if len(p.Sources) != 2 || p.Sources[0] != "job-1" {
		t.Errorf("Sources = %v, want [job-1 job-2]", p.Sources)
	}
	if !strings.Contains(p.User, "User question: List job openings in marketing") {
		t.Error("prompt missing the original query")
	}
	if p.Truncated {
		t.Error("unexpected truncation under a generous budget")
	}
}

func TestAssembleBiasedQueryUsesReframed(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	in := Input{
		Query:  "Why should we even hire women for tech roles?",
		Intent: intent.General,
		Assessment: bias.Assessment{
			Biased:   true,
			Category: bias.CategoryHiringJustification,
			Original: "Why should we even hire women for tech roles?",
			Reframed: "What are the performance benefits of gender-diverse tech teams?",
		},
	}

	p := a.Assemble(in)

	if !strings.Contains(p.User, "Bias handling") {
		t.Fatal("bias directive missing")
	}
	if !strings.Contains(p.User, bias.CategoryHiringJustification) {
		t.Error("bias directive missing category")
	}
	if !strings.Contains(p.User, "User question: What are the performance benefits") {
		t.Error("prompt should carry the reframed query")
	}
	if strings.Contains(p.User, "User question: Why should we even hire") {
		t.Error("prompt must not carry the biased original as the question")
	}
}

func TestAssembleUncertainReframeKeepsOriginal(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	in := Input{
		Query: "why do companies hire women",
		Assessment: bias.Assessment{
			Biased:           true,
			Category:         bias.CategoryHiringJustification,
			Original:         "why do companies hire women",
			Reframed:         "why do companies hire women",
			ReframeUncertain: true,
		},
	}

	p := a.Assemble(in)

	if !strings.Contains(p.User, "User question: why do companies hire women") {
		t.Error("uncertain reframe should keep the original query")
	}
	if !strings.Contains(p.User, "without repeating the assumption") {
		t.Error("uncertain reframe should add the extra directive line")
	}
}

func TestAssembleOutOfScope(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	p := a.Assemble(Input{
		Query:      "what is the weather",
		Intent:     intent.OutOfScope,
		Assessment: bias.Assessment{Original: "what is the weather", Reframed: "what is the weather"},
	})

	if !strings.Contains(p.User, "outside the assistant's knowledge sources") {
		t.Error("out-of-scope prompt missing the no-context marker")
	}
	if p.DocumentsUsed != 0 {
		t.Errorf("DocumentsUsed = %d, want 0", p.DocumentsUsed)
	}
}

func TestAssembleDegraded(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	p := a.Assemble(Input{
		Query:      "marketing jobs",
		Intent:     intent.JobSearch,
		Assessment: bias.Assessment{Original: "marketing jobs", Reframed: "marketing jobs"},
		Retrieval:  retrieval.Result{Degraded: true},
	})

	if !strings.Contains(p.User, "temporarily unavailable") {
		t.Error("degraded prompt missing the acknowledgement instruction")
	}
}

func TestAssembleTrimsLowestRankedFirst(t *testing.T) {
	t.Parallel()

	var hits []retrieval.Hit
	for i := range 10 {
		hits = append(hits, jobHit(
			fmt.Sprintf("job-%d", i),
			strings.Repeat("x", 150),
			"Co",
			0.9-float32(i)*0.01))
	}

	// Budget fits only a few rendered documents.
	a := NewAssembler(1200)
	p := a.Assemble(Input{
		Query:      "jobs",
		Intent:     intent.JobSearch,
		Assessment: bias.Assessment{Original: "jobs", Reframed: "jobs"},
		Retrieval:  retrieval.Result{Hits: hits},
	})

	if !p.Truncated {
		t.Fatal("expected truncation")
	}
	if p.DocumentsUsed == 0 || p.DocumentsUsed >= 10 {
		t.Fatalf("DocumentsUsed = %d, want partial", p.DocumentsUsed)
	}
	// Survivors must be the highest-ranked prefix.
	for i, src := range p.Sources {
		if want := fmt.Sprintf("job-%d", i); src != want {
			t.Errorf("Sources[%d] = %q, want %q", i, src, want)
		}
	}
	if len(p.User) > 1200+len("User question: jobs\n") {
		t.Errorf("prompt length %d exceeds budget slack", len(p.User))
	}
}

func TestAssembleHistoryRendered(t *testing.T) {
	t.Parallel()

	a := NewAssembler(8000)
	p := a.Assemble(Input{
		Query:      "more about the second one",
		Assessment: bias.Assessment{Original: "q", Reframed: "q"},
		History: []conversation.Turn{
			{Role: conversation.RoleUser, Text: "find marketing jobs"},
			{Role: conversation.RoleAssistant, Text: "here are two openings"},
		},
	})

	if !strings.Contains(p.User, "user: find marketing jobs") {
		t.Error("history missing user turn")
	}
	if !strings.Contains(p.User, "assistant: here are two openings") {
		t.Error("history missing assistant turn")
	}
}

func TestAssembleHistoryTrimsOldestFirst(t *testing.T) {
	t.Parallel()

	var turns []conversation.Turn
	for i := range 30 {
		turns = append(turns, conversation.Turn{
			Role: conversation.RoleUser,
			Text: fmt.Sprintf("message number %d %s", i, strings.Repeat("y", 100)),
		})
	}

	a := NewAssembler(1000)
	p := a.Assemble(Input{
		Query:      "q",
		Assessment: bias.Assessment{Original: "q", Reframed: "q"},
		History:    turns,
	})

	if !p.Truncated {
		t.Fatal("expected history truncation")
	}
	if strings.Contains(p.User, "message number 0 ") {
		t.Error("oldest turn survived trimming")
	}
	if !strings.Contains(p.User, "message number 29 ") {
		t.Error("newest turn was trimmed")
	}
}
