package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/observability"
	"github.com/projecthub-dev/projecthub/internal/utils"
)

type MembershipsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMembershipsRepo(pool *pgxpool.Pool, prom *observability.Prom) *MembershipsRepo {
	return &MembershipsRepo{pool: pool, prom: prom}
}

func (r *MembershipsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *MembershipsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// Add inserts the membership and lets the composite unique index carry the
// uniqueness invariant: no check-then-insert, two concurrent adds for the
// same pair cannot both commit.
func (r *MembershipsRepo) Add(ctx context.Context, m membership.Membership) error {
	err := r.observe("memberships.add", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO project_memberships (id, project_id, user_id, assigned_by, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, m.ID, m.ProjectID, m.UserID, m.AssignedBy, m.CreatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "project_memberships_project_user_uniq" {
			return membership.ErrDuplicate
		}
		return err
	}
	return nil
}

// AddTx is Add inside a caller-owned transaction, so a notification job can
// be enqueued atomically with the insert.
func (r *MembershipsRepo) AddTx(ctx context.Context, tx pgx.Tx, m membership.Membership) error {
	err := r.observe("memberships.add_tx", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO project_memberships (id, project_id, user_id, assigned_by, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, m.ID, m.ProjectID, m.UserID, m.AssignedBy, m.CreatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "project_memberships_project_user_uniq" {
			return membership.ErrDuplicate
		}
		return err
	}
	return nil
}

// Remove deletes the pair if present. Zero rows affected is not an error:
// removal of an absent membership is defined as a no-op.
func (r *MembershipsRepo) Remove(ctx context.Context, projectID, userID string) error {
	return r.observe("memberships.remove", func() error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM project_memberships WHERE project_id = $1 AND user_id = $2`,
			projectID, userID)
		return err
	})
}

func (r *MembershipsRepo) ListByProject(ctx context.Context, projectID string) (members []membership.Membership, err error) {
	var rows pgx.Rows

	err = r.observe("memberships.list_by_project", func() error {
		rows, err = r.pool.Query(ctx, `
		SELECT id, project_id, user_id, assigned_by, created_at
		FROM project_memberships
		WHERE project_id = $1
		ORDER BY created_at ASC, id ASC
	`, projectID)
		return err
	})

	if err != nil {
		return
	}
	defer rows.Close()

	members = make([]membership.Membership, 0)

	for rows.Next() {
		var m membership.Membership
		if e := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.AssignedBy, &m.CreatedAt); e != nil {
			err = e
			return
		}
		members = append(members, m)
	}

	err = rows.Err()
	return
}

func (r *MembershipsRepo) ListByUser(ctx context.Context, userID string) (members []membership.Membership, err error) {
	var rows pgx.Rows

	err = r.observe("memberships.list_by_user", func() error {
		rows, err = r.pool.Query(ctx, `
		SELECT id, project_id, user_id, assigned_by, created_at
		FROM project_memberships
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
		return err
	})

	if err != nil {
		return
	}
	defer rows.Close()

	members = make([]membership.Membership, 0)

	for rows.Next() {
		var m membership.Membership
		if e := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.AssignedBy, &m.CreatedAt); e != nil {
			err = e
			return
		}
		members = append(members, m)
	}

	err = rows.Err()
	return
}

// ListByProjectCursor pages through a project's members in (created_at, id)
// order, returning an opaque cursor when more rows remain.
func (r *MembershipsRepo) ListByProjectCursor(
	ctx context.Context,
	projectID string,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) (items []membership.Membership, nextCursor *string, hasMore bool, err error) {
	op := "memberships.list_by_project_cursor"

	q := `
		SELECT id, project_id, user_id, assigned_by, created_at
		FROM project_memberships
		WHERE project_id = $1
		  AND (created_at, id) > ($2, $3)
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`
	limitPlusOne := limit + 1

	var rows pgx.Rows
	err = r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, q, projectID, afterCreatedAt, afterID, limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]membership.Membership, 0, limit)

	for rows.Next() {
		var m membership.Membership
		if scanErr := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.AssignedBy, &m.CreatedAt); scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeMemberCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}
