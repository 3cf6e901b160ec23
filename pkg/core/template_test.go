package core

import (
	"strings"
	"testing"

	"bankcrew/pkg/errors"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate(
		"Provide advice about {topic} as of {current_year}.",
		map[string]string{"topic": "Personal Banking", "current_year": "2026"},
	)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want := "Provide advice about Personal Banking as of 2026."
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
	if strings.Contains(out, "{") {
		t.Fatalf("rendered output must not contain unresolved tokens: %q", out)
	}
}

func TestRenderTemplateMissingBinding(t *testing.T) {
	_, err := RenderTemplate("Report on {topic} for {current_year}.",
		map[string]string{"topic": "Loans"})
	if err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
	ce := errors.AsCrewError(err)
	if ce.Code != errors.CodeTemplate {
		t.Fatalf("expected CodeTemplate, got %v", ce.Code)
	}
	if !strings.Contains(err.Error(), "current_year") {
		t.Fatalf("expected error to name the missing token, got %v", err)
	}
}

func TestRenderTemplateRepeatedToken(t *testing.T) {
	out, err := RenderTemplate("{topic} and again {topic}", map[string]string{"topic": "CDs"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "CDs and again CDs" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	out, err := RenderTemplate("no tokens here", nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "no tokens here" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{topic} in {current_year}; {topic} again")
	if len(got) != 2 || got[0] != "topic" || got[1] != "current_year" {
		t.Fatalf("unexpected placeholders %v", got)
	}
}
