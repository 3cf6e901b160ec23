package guardrails

import (
	"context"
	"strings"
	"testing"
)

func TestPIIFilterMasksFinancialIdentifiers(t *testing.T) {
	f := NewPIIFilter(FilterMask)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"credit card dashed", "Card 4111-1111-1111-1111 on file", "[CREDIT_CARD]"},
		{"credit card plain", "Pay with 4111111111111111 today", "[CREDIT_CARD]"},
		{"ssn", "SSN 123-45-6789 provided", "[SSN]"},
		{"iban", "Transfer to DE89370400440532013000 now", "[IBAN]"},
		{"labeled account", "Your account number: 12345678 is active", "[ACCOUNT_NUMBER]"},
		{"email", "Reach me at jane.doe@example.com please", "[EMAIL]"},
		{"phone", "Call 555-123-4567 for support", "[PHONE]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Filter(ctx, tt.input)
			if !result.Modified {
				t.Fatalf("expected %q to be modified", tt.input)
			}
			if !strings.Contains(result.Content, tt.want) {
				t.Errorf("expected %q in %q", tt.want, result.Content)
			}
		})
	}
}

func TestPIIFilterLeavesCleanTextAlone(t *testing.T) {
	f := NewPIIFilter(FilterMask)
	input := "A savings account earns 4.5 percent interest per year."
	result := f.Filter(context.Background(), input)
	if result.Modified {
		t.Errorf("expected clean text untouched, got %q", result.Content)
	}
	if result.Content != input {
		t.Errorf("content changed: %q", result.Content)
	}
}

func TestPIIFilterUnlabeledNumbersSurvive(t *testing.T) {
	f := NewPIIFilter(FilterMask)
	input := "The bank holds 12345678 in reserves."
	result := f.Filter(context.Background(), input)
	if strings.Contains(result.Content, "[ACCOUNT_NUMBER]") {
		t.Errorf("unlabeled number should not be masked: %q", result.Content)
	}
}

func TestPIIFilterRedactMode(t *testing.T) {
	f := NewPIIFilter(FilterRedact)
	result := f.Filter(context.Background(), "Email jane@example.com now")
	if strings.Contains(result.Content, "jane@example.com") {
		t.Errorf("expected email removed, got %q", result.Content)
	}
	if strings.Contains(result.Content, "[EMAIL]") {
		t.Errorf("redact mode should not leave a placeholder: %q", result.Content)
	}
}

func TestPIIFilterWithTypes(t *testing.T) {
	f := NewPIIFilter(FilterMask, WithTypes(PIITypeEmail))
	result := f.Filter(context.Background(), "SSN 123-45-6789 and jane@example.com")
	if strings.Contains(result.Content, "[SSN]") {
		t.Errorf("ssn filtering should be disabled: %q", result.Content)
	}
	if !strings.Contains(result.Content, "[EMAIL]") {
		t.Errorf("email filtering should be enabled: %q", result.Content)
	}
}

func TestPIIFilterRedactionLogOmitsOriginal(t *testing.T) {
	f := NewPIIFilter(FilterMask)
	result := f.Filter(context.Background(), "SSN 123-45-6789")
	if len(result.Redactions) == 0 {
		t.Fatal("expected a redaction record")
	}
	for _, r := range result.Redactions {
		if strings.Contains(r.Replacement, "6789") {
			t.Error("redaction record must not carry the original value")
		}
	}
}
