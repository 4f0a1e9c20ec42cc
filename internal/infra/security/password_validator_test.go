package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidator(t *testing.T) {
	validator := DefaultPasswordValidator()

	if err := validator.Validate("qwertyuop"); err != nil {
		t.Fatalf("nine-character password should pass the default policy: %v", err)
	}
	if err := validator.Validate("short"); err == nil {
		t.Fatal("five-character password should fail the default policy")
	}
}

func TestMinLengthRuleCountsRunes(t *testing.T) {
	rule := MinLengthRule(7)

	if err := rule.Validate("pässwörd"); err != nil {
		t.Fatalf("eight runes should satisfy min length 7: %v", err)
	}

	var policyErr *PasswordValidationError
	err := rule.Validate("abc")
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
	if policyErr.Code != "min_length" {
		t.Fatalf("unexpected violation code %q", policyErr.Code)
	}
}

func TestStrengthRule(t *testing.T) {
	if err := StrengthRule(0).Validate("password"); err != nil {
		t.Fatalf("non-positive score disables the rule: %v", err)
	}

	if err := StrengthRule(3).Validate("password"); err == nil {
		t.Fatal("a dictionary word should not score 3")
	}

	if err := StrengthRule(2).Validate("correct horse battery staple"); err != nil {
		t.Fatalf("long passphrase should score at least 2: %v", err)
	}
}
