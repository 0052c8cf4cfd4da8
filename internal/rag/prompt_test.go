package rag

import (
	"strings"
	"testing"
)

func TestBuildContext_TagsAndSeparates(t *testing.T) {
	got := buildContext([]matchForPrompt{
		{DocumentName: "guide.pdf", Content: "Premier extrait."},
		{DocumentName: "faq.txt", Content: "Deuxième extrait."},
	})

	want := "[Source: guide.pdf]\nPremier extrait.\n\n---\n\n[Source: faq.txt]\nDeuxième extrait."
	if got != want {
		t.Errorf("buildContext() = %q, want %q", got, want)
	}
}

func TestBuildPrompt_FillsBothSlots(t *testing.T) {
	prompt := buildPrompt("LE CONTEXTE", "LA QUESTION")

	if strings.Contains(prompt, "{context}") || strings.Contains(prompt, "{question}") {
		t.Errorf("unfilled slots remain: %q", prompt)
	}
	if !strings.Contains(prompt, "LE CONTEXTE") {
		t.Error("context not injected")
	}
	if !strings.Contains(prompt, "LA QUESTION") {
		t.Error("question not injected")
	}
	if !strings.Contains(prompt, "Tu es Aimé") {
		t.Error("persona preamble missing")
	}
	// Context must come before the question, as in the template.
	if strings.Index(prompt, "LE CONTEXTE") > strings.Index(prompt, "LA QUESTION") {
		t.Error("context and question out of order")
	}
}

func TestBuildPrompt_LiteralSlotTextInContent(t *testing.T) {
	// A document containing the literal placeholder must not eat the
	// question slot.
	prompt := buildPrompt("contexte avec {question} dedans", "Quelle heure est-il ?")
	if !strings.Contains(prompt, "Quelle heure est-il ?") {
		t.Errorf("question lost: %q", prompt)
	}
}
