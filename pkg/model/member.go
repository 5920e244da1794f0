package model

import "time"

type Member struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name" validate:"omitempty,min=1,max=50"`
	Email     string    `json:"email" validate:"required,email,max=120"`
	Phone     *string   `json:"phone" validate:"omitempty,len=10,numeric"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MemberPatch struct {
	Name  Optional[*string] `json:"name"`
	Email Optional[string]  `json:"email"`
	Phone Optional[*string] `json:"phone"`
}

func (p MemberPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Phone.Set
}

func (p MemberPatch) ApplyTo(m *Member, now time.Time) {
	if p.Name.Set {
		m.Name = p.Name.Value
	}
	if p.Email.Set {
		m.Email = p.Email.Value
	}
	if p.Phone.Set {
		m.Phone = p.Phone.Value
	}
	m.UpdatedAt = now
}

// DisplayName returns the member's name or an empty string when unset.
func (m *Member) DisplayName() string {
	if m.Name == nil {
		return ""
	}
	return *m.Name
}

func (m *Member) PhoneNumber() string {
	if m.Phone == nil {
		return ""
	}
	return *m.Phone
}
