// Package moderation implements the pre-storage moderation gate.
// An external analyzer produces a signal; a deterministic policy turns the
// signal into an allow, warn, or block decision. When the analyzer is slow
// or failing the gate falls back to a configured decision instead of erroring.
package moderation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/warden/pkg/faults"
)

// WarningUnavailable is attached to every fallback decision.
const WarningUnavailable = "moderation_unavailable"

// Request is the content submitted for evaluation.
type Request struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Validate rejects requests with no text.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return faults.Validation("text required")
	}
	return nil
}

// ModerationDetail is the analyzer's per-category assessment. Scores are in [0,1].
type ModerationDetail struct {
	Flagged    bool               `json:"flagged"`
	Categories map[string]float64 `json:"categories,omitempty"`
}

// PlagiarismDetail is the analyzer's similarity assessment. Score is in [0,1].
type PlagiarismDetail struct {
	Score   float64  `json:"score"`
	Sources []string `json:"sources,omitempty"`
}

// Signal is the raw analyzer output.
type Signal struct {
	ShouldBlock bool             `json:"should_block"`
	Warnings    []string         `json:"warnings,omitempty"`
	Moderation  ModerationDetail `json:"moderation"`
	Plagiarism  PlagiarismDetail `json:"plagiarism"`
}

// Decision is the gate's verdict for one piece of content.
type Decision struct {
	ShouldBlock bool             `json:"should_block"`
	Warnings    []string         `json:"warnings"`
	Severity    float64          `json:"severity"`
	Moderation  ModerationDetail `json:"moderation_detail"`
	Plagiarism  PlagiarismDetail `json:"plagiarism_detail"`
	Degraded    bool             `json:"degraded"`
	Signal      *Signal          `json:"signal,omitempty"`
}

// Policy holds the thresholds that turn a Signal into a Decision.
type Policy struct {
	BlockThreshold           float64
	WarnThreshold            float64
	PlagiarismBlockThreshold float64
	PlagiarismWarnThreshold  float64
	IgnoreAnalyzerBlock      bool
}

// Apply evaluates sig. It is a pure function: identical signals yield identical decisions.
func (p Policy) Apply(sig Signal) Decision {
	d := Decision{
		Moderation: sig.Moderation,
		Plagiarism: sig.Plagiarism,
		Signal:     &sig,
	}

	warnings := make([]string, 0, len(sig.Warnings)+2)
	for _, w := range sig.Warnings {
		if w = strings.TrimSpace(w); w != "" {
			warnings = append(warnings, w)
		}
	}

	for category, score := range sig.Moderation.Categories {
		d.Severity = max(d.Severity, score)
		switch {
		case score >= p.BlockThreshold:
			warnings = append(warnings, "blocked: "+category)
		case score >= p.WarnThreshold:
			warnings = append(warnings, "flagged: "+category)
		}
	}

	switch {
	case sig.Plagiarism.Score >= p.PlagiarismBlockThreshold:
		warnings = append(warnings, fmt.Sprintf("blocked: plagiarism %.2f", sig.Plagiarism.Score))
	case sig.Plagiarism.Score >= p.PlagiarismWarnThreshold:
		warnings = append(warnings, fmt.Sprintf("possible plagiarism %.2f", sig.Plagiarism.Score))
	}

	d.ShouldBlock = d.Severity >= p.BlockThreshold ||
		sig.Plagiarism.Score >= p.PlagiarismBlockThreshold ||
		(sig.ShouldBlock && !p.IgnoreAnalyzerBlock)

	slices.Sort(warnings)
	d.Warnings = slices.Compact(warnings)
	return d
}

// Fallback is the decision used when the analyzer cannot answer.
func Fallback(failClosed bool) Decision {
	return Decision{
		ShouldBlock: failClosed,
		Warnings:    []string{WarningUnavailable},
		Degraded:    true,
	}
}

// Allowed reports whether the decision permits storage.
func (d Decision) Allowed() bool {
	return !d.ShouldBlock
}

// Outcome labels the decision for metrics and logs.
func (d Decision) Outcome() string {
	switch {
	case d.ShouldBlock:
		return "block"
	case len(d.Warnings) > 0:
		return "warn"
	}
	return "allow"
}
