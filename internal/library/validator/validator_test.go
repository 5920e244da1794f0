package validator

import (
	"errors"
	"strings"
	"testing"

	"library/pkg/logger"
	"library/pkg/model"
)

func ptr(s string) *string { return &s }

func TestValidateBook(t *testing.T) {
	v := NewEntityValidator(logger.Discard())

	tests := []struct {
		name      string
		book      model.Book
		wantField string
	}{
		{"valid", model.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593"}, ""},
		{"missing title", model.Book{Author: "Frank Herbert", ISBN: "1"}, "title"},
		{"title too long", model.Book{Title: strings.Repeat("a", 101), Author: "x", ISBN: "1"}, "title"},
		{"missing isbn", model.Book{Title: "Dune", Author: "x"}, "isbn"},
		{"description too long", model.Book{Title: "Dune", Author: "x", ISBN: "1", Description: ptr(strings.Repeat("d", 201))}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBook(&tt.book)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if _, ok := verrs.Details()[tt.wantField]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidateMember(t *testing.T) {
	v := NewEntityValidator(logger.Discard())

	tests := []struct {
		name      string
		member    model.Member
		wantField string
	}{
		{"valid minimal", model.Member{Email: "ann@example.com"}, ""},
		{"valid full", model.Member{Name: ptr("Ann"), Email: "ann@example.com", Phone: ptr("0123456789")}, ""},
		{"bad email", model.Member{Email: "not-an-email"}, "email"},
		{"short phone", model.Member{Email: "ann@example.com", Phone: ptr("12345")}, "phone"},
		{"letters in phone", model.Member{Email: "ann@example.com", Phone: ptr("01234abcde")}, "phone"},
		{"name too long", model.Member{Name: ptr(strings.Repeat("n", 51)), Email: "ann@example.com"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMember(&tt.member)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if _, ok := verrs.Details()[tt.wantField]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantField, verrs)
			}
		})
	}
}
