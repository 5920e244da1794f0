package repository

import (
	"context"

	"library/pkg/model"

	"github.com/jackc/pgx/v5"
)

type pgMemberRepository struct {
	q *pgQueries
}

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *pgMemberRepository) FindByID(ctx context.Context, id int64, lock LockMode) (*model.Member, error) {
	if err := r.q.checkLock(lock); err != nil {
		return nil, err
	}
	query, err := selectMemberByIDQuery(id, lock)
	return queryOne(ctx, r.q, "find member", query, err, scanMember)
}

// FindByEmail matches case-insensitively.
func (r *pgMemberRepository) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	query, err := selectMemberByEmailQuery(email)
	return queryOne(ctx, r.q, "find member by email", query, err, scanMember)
}

func (r *pgMemberRepository) FindByPhone(ctx context.Context, phone string) (*model.Member, error) {
	query, err := selectMemberByPhoneQuery(phone)
	return queryOne(ctx, r.q, "find member by phone", query, err, scanMember)
}

func (r *pgMemberRepository) FindAll(ctx context.Context, page model.Page) ([]*model.Member, error) {
	query, err := selectMembersQuery(page)
	return queryAll(ctx, r.q, "list members", query, err, scanMember)
}

func (r *pgMemberRepository) Create(ctx context.Context, member *model.Member) error {
	query, err := insertMemberQuery(member)
	id, err := r.q.insert(ctx, "create member", query, err)
	if err != nil {
		return err
	}
	member.ID = id
	return nil
}

func (r *pgMemberRepository) Update(ctx context.Context, member *model.Member) error {
	query, err := updateMemberQuery(member)
	return r.q.exec(ctx, "update member", query, err)
}

func (r *pgMemberRepository) Delete(ctx context.Context, id int64) error {
	query, err := deleteMemberQuery(id)
	return r.q.exec(ctx, "delete member", query, err)
}
