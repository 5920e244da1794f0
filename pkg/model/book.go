package model

import (
	"time"
)

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title" validate:"required,min=1,max=100"`
	Author      string    `json:"author" validate:"required,min=1,max=100"`
	ISBN        string    `json:"isbn" validate:"required,min=1,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=200"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookPatch holds a partial update. ISBN is immutable and availability is
// owned by borrow/return, so neither is patchable.
type BookPatch struct {
	Title       Optional[string]  `json:"title"`
	Author      Optional[string]  `json:"author"`
	Description Optional[*string] `json:"description"`
}

func (p BookPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Author.Set && !p.Description.Set
}

func (p BookPatch) ApplyTo(b *Book, now time.Time) {
	if p.Title.Set {
		b.Title = p.Title.Value
	}
	if p.Author.Set {
		b.Author = p.Author.Value
	}
	if p.Description.Set {
		b.Description = p.Description.Value
	}
	b.UpdatedAt = now
}

// BookFilter narrows book listings by case-insensitive substring.
type BookFilter struct {
	Title  string
	Author string
}
