package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBorrowing_DerivedFields(t *testing.T) {
	borrowedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b := Borrowing{ID: 1, BookID: 2, MemberID: 3, BorrowedAt: borrowedAt}

	if got, want := b.DueAt(), borrowedAt.AddDate(0, 0, 14); !got.Equal(want) {
		t.Errorf("DueAt() = %v, want %v", got, want)
	}
	if b.Status() != StatusBorrowed {
		t.Errorf("Status() = %s, want %s", b.Status(), StatusBorrowed)
	}
	if !b.IsActive() {
		t.Errorf("expected active borrowing")
	}

	returned := borrowedAt.Add(48 * time.Hour)
	b.ReturnedAt = &returned
	if b.Status() != StatusReturned {
		t.Errorf("Status() = %s, want %s", b.Status(), StatusReturned)
	}
	if b.IsActive() {
		t.Errorf("returned borrowing must not be active")
	}
}

func TestBorrowingDetail_JSONRoundTripKeepsDerivedFields(t *testing.T) {
	borrowedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := BorrowingDetail{
		Borrowing: Borrowing{ID: 5, BookID: 1, MemberID: 2, BorrowedAt: borrowedAt},
		Book:      Book{ID: 1, Title: "Dune"},
		Member:    Member{ID: 2, Email: "a@b.co"},
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["status"] != string(StatusBorrowed) {
		t.Errorf("status = %v, want BORROWED", raw["status"])
	}
	if raw["due_date"] != "2024-03-15T10:00:00Z" {
		t.Errorf("due_date = %v", raw["due_date"])
	}
	if book, ok := raw["book"].(map[string]any); !ok || book["title"] != "Dune" {
		t.Errorf("book not embedded: %v", raw["book"])
	}

	var back BorrowingDetail
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if back.ID != 5 || back.Book.Title != "Dune" || back.Member.Email != "a@b.co" {
		t.Errorf("round trip lost fields: %+v", back)
	}
	if !back.BorrowedAt.Equal(borrowedAt) {
		t.Errorf("borrowed_date lost: %v", back.BorrowedAt)
	}
}

func TestBookPatch_ApplyOnlyPresentFields(t *testing.T) {
	desc := "old"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := Book{Title: "Old", Author: "Someone", Description: &desc, IsAvailable: true, UpdatedAt: created}

	var patch BookPatch
	if err := json.Unmarshal([]byte(`{"title":"New","description":null}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if patch.Author.Set {
		t.Errorf("author was absent and must not be set")
	}

	now := created.Add(time.Hour)
	patch.ApplyTo(&b, now)

	if b.Title != "New" {
		t.Errorf("title = %q, want New", b.Title)
	}
	if b.Author != "Someone" {
		t.Errorf("author changed to %q", b.Author)
	}
	if b.Description != nil {
		t.Errorf("explicit null should clear description, got %q", *b.Description)
	}
	if !b.UpdatedAt.Equal(now) {
		t.Errorf("updated_at not refreshed")
	}
	if !b.IsAvailable {
		t.Errorf("availability must not be touched by a patch")
	}
}

func TestBookPatch_IgnoresAvailability(t *testing.T) {
	var patch BookPatch
	if err := json.Unmarshal([]byte(`{"is_available":false}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if !patch.IsEmpty() {
		t.Errorf("is_available is not patchable, patch should be empty")
	}
}

func TestMemberPatch_ApplyTo(t *testing.T) {
	name := "Ann"
	m := Member{Name: &name, Email: "ann@example.com"}

	phone := "0123456789"
	MemberPatch{Phone: Some(&phone)}.ApplyTo(&m, time.Now())

	if m.PhoneNumber() != phone {
		t.Errorf("phone = %q, want %q", m.PhoneNumber(), phone)
	}
	if m.DisplayName() != "Ann" || m.Email != "ann@example.com" {
		t.Errorf("unrelated fields changed: %+v", m)
	}
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Limit: DefaultPageLimit}},
		{Page{Limit: -3, Offset: -1}, Page{Limit: DefaultPageLimit}},
		{Page{Limit: 500, Offset: 20}, Page{Limit: MaxPageLimit, Offset: 20}},
		{Page{Limit: 25, Offset: 5}, Page{Limit: 25, Offset: 5}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
