package service

import (
	"context"
	"errors"

	libraryerrors "library/internal/library/errors"
	"library/internal/library/repository"
	"library/pkg/cache"
	apperrors "library/pkg/errors"
	"library/pkg/model"
	"library/pkg/sanitizer"
)

const (
	msgEmailInUse          = "Email already in use."
	msgPhoneInUse          = "Phone already in use."
	msgDeleteMemberHistory = "Cannot delete member with borrowing history."
)

func (s *coordinator) GetMembers(ctx context.Context, page model.Page) ([]*model.Member, error) {
	page = page.Normalize()
	return cache.ReadThrough(ctx, s.cache, cache.MemberListKey(page), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) ([]*model.Member, error) {
			members, err := s.store.Members().FindAll(ctx, page)
			if err != nil {
				return nil, s.storeError(err, "Failed to retrieve members")
			}
			return members, nil
		})
}

func (s *coordinator) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	if err := requirePositive("member_id", id); err != nil {
		return nil, err
	}
	return cache.ReadThrough(ctx, s.cache, cache.MemberKey(id), s.cfg.CacheDefaultTTL,
		func(ctx context.Context) (*model.Member, error) {
			return s.findMember(ctx, s.store, id, repository.LockNone)
		})
}

func (s *coordinator) CreateMember(ctx context.Context, member *model.Member) (*model.Member, error) {
	s.sanitizeMember(member)
	if err := s.validator.ValidateMember(member); err != nil {
		s.cfg.Log.Warn("Member validation failed", "error", err)
		return nil, s.validationError("Member validation failed", err)
	}

	now := s.timestamp()
	member.ID = 0
	member.CreatedAt = now
	member.UpdatedAt = now

	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		if err := s.verifyMemberUniqueness(ctx, q, member); err != nil {
			return err
		}
		if err := q.Members().Create(ctx, member); err != nil {
			if errors.Is(err, libraryerrors.ErrDuplicate) {
				return duplicateMemberError(err)
			}
			return s.storeError(err, "Failed to create member")
		}
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to create member")
	}

	s.cache.InvalidatePrefix(ctx, cache.MemberListPrefix)

	s.cfg.Log.Info("Member created successfully", "id", member.ID)
	return member, nil
}

func (s *coordinator) UpdateMember(ctx context.Context, id int64, patch model.MemberPatch) (*model.Member, error) {
	if err := requirePositive("member_id", id); err != nil {
		return nil, err
	}

	var member *model.Member
	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		member, err = s.findMember(ctx, q, id, repository.LockExclusive)
		if err != nil {
			return err
		}

		patch.ApplyTo(member, s.timestamp())
		s.sanitizeMember(member)
		if err := s.validator.ValidateMember(member); err != nil {
			s.cfg.Log.Warn("Member update validation failed", "id", id, "error", err)
			return s.validationError("Member validation failed", err)
		}

		if err := s.verifyMemberUniqueness(ctx, q, member); err != nil {
			return err
		}
		if err := q.Members().Update(ctx, member); err != nil {
			if errors.Is(err, libraryerrors.ErrDuplicate) {
				return duplicateMemberError(err)
			}
			return s.storeError(err, "Failed to update member")
		}
		return nil
	})
	if err != nil {
		return nil, s.storeError(err, "Failed to update member")
	}

	s.cache.Delete(ctx, cache.MemberKey(id))
	s.cache.InvalidatePrefix(ctx, cache.MemberListPrefix, cache.BorrowingsPrefix)

	s.cfg.Log.Info("Member updated successfully", "id", id)
	return member, nil
}

func (s *coordinator) DeleteMember(ctx context.Context, id int64) error {
	if err := requirePositive("member_id", id); err != nil {
		return err
	}

	err := s.store.ExecuteTransaction(ctx, func(ctx context.Context, q repository.Queries) error {
		if _, err := s.findMember(ctx, q, id, repository.LockExclusive); err != nil {
			return err
		}

		hasHistory, err := q.Borrowings().ExistsForMember(ctx, id)
		if err != nil {
			return s.storeError(err, "Failed to check borrowing history")
		}
		if hasHistory {
			return apperrors.ActionForbidden(msgDeleteMemberHistory)
		}

		if err := q.Members().Delete(ctx, id); err != nil {
			return s.storeError(err, "Failed to delete member")
		}
		return nil
	})
	if err != nil {
		return s.storeError(err, "Failed to delete member")
	}

	s.cache.Delete(ctx, cache.MemberKey(id))
	s.cache.InvalidatePrefix(ctx, cache.MemberListPrefix)

	s.cfg.Log.Info("Member deleted successfully", "id", id)
	return nil
}

// verifyMemberUniqueness rejects an email or phone held by another member.
// Both lookups are case-insensitive.
func (s *coordinator) verifyMemberUniqueness(ctx context.Context, q repository.Queries, member *model.Member) error {
	existing, err := q.Members().FindByEmail(ctx, member.Email)
	switch {
	case err == nil && existing.ID != member.ID:
		return apperrors.AlreadyExists(msgEmailInUse)
	case err != nil && !errors.Is(err, libraryerrors.ErrNotFound):
		return s.storeError(err, "Failed to check email")
	}

	if member.Phone == nil {
		return nil
	}
	existing, err = q.Members().FindByPhone(ctx, *member.Phone)
	switch {
	case err == nil && existing.ID != member.ID:
		return apperrors.AlreadyExists(msgPhoneInUse)
	case err != nil && !errors.Is(err, libraryerrors.ErrNotFound):
		return s.storeError(err, "Failed to check phone")
	}
	return nil
}

func (s *coordinator) sanitizeMember(m *model.Member) {
	m.Name = sanitizer.SanitizeOptional(m.Name, sanitizer.SanitizeText)
	m.Email = sanitizer.SanitizeEmail(m.Email)
	m.Phone = sanitizer.SanitizeOptional(m.Phone, sanitizer.SanitizeIdentifier)
}

// duplicateMemberError names the field behind a unique violation that raced
// past the uniqueness pre-check.
func duplicateMemberError(err error) error {
	if errors.Is(err, libraryerrors.ErrDuplicatePhone) {
		return apperrors.AlreadyExists(msgPhoneInUse)
	}
	return apperrors.AlreadyExists(msgEmailInUse)
}
