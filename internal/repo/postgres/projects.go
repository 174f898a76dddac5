package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/observability"
)

type ProjectsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProjectsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProjectsRepo {
	return &ProjectsRepo{pool: pool, prom: prom}
}

func (r *ProjectsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const projectColumns = `id, name, description, status, deadline, created_by, project_lead_id, created_at, updated_at`

func scanProject(row pgx.Row) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Deadline, &p.CreatedBy, &p.ProjectLeadID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProjectsRepo) Create(ctx context.Context, req project.CreateProjectRequest, createdBy string) (p project.Project, err error) {
	now := time.Now().UTC()

	status := project.Status(req.Status)
	if req.Status == "" {
		status = project.StatusActive
	}

	p = project.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Deadline:    req.Deadline,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.observe("projects.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO projects (id, name, description, status, deadline, created_by, project_lead_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.Name, p.Description, string(p.Status), p.Deadline, p.CreatedBy, p.ProjectLeadID, p.CreatedAt, p.UpdatedAt)
		return e
	})

	return
}

func (r *ProjectsRepo) GetByID(ctx context.Context, id string) (project.Project, error) {
	var p project.Project
	var err error

	err = r.observe("projects.get_by_id", func() error {
		p, err = scanProject(r.pool.QueryRow(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

func (r *ProjectsRepo) List(ctx context.Context) (projects []project.Project, err error) {
	var rows pgx.Rows

	err = r.observe("projects.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return
	}
	defer rows.Close()

	projects = make([]project.Project, 0)

	for rows.Next() {
		p, e := scanProject(rows)
		if e != nil {
			err = e
			return
		}
		projects = append(projects, p)
	}

	err = rows.Err()
	return
}

func (r *ProjectsRepo) ListByMember(ctx context.Context, userID string) (projects []project.Project, err error) {
	var rows pgx.Rows

	err = r.observe("projects.list_by_member", func() error {
		rows, err = r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_memberships m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at ASC, p.id ASC
	`, userID)
		return err
	})

	if err != nil {
		return
	}
	defer rows.Close()

	projects = make([]project.Project, 0)

	for rows.Next() {
		p, e := scanProject(rows)
		if e != nil {
			err = e
			return
		}
		projects = append(projects, p)
	}

	err = rows.Err()
	return
}

func (r *ProjectsRepo) Update(ctx context.Context, id string, req project.UpdateProjectRequest) (project.Project, error) {
	var p project.Project
	var err error

	err = r.observe("projects.update", func() error {
		p, err = scanProject(r.pool.QueryRow(ctx, `
		UPDATE projects
		SET name = $2, description = $3, status = $4, deadline = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns, id, req.Name, req.Description, req.Status, req.Deadline))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

func (r *ProjectsRepo) SetLead(ctx context.Context, projectID string, leadID *string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("projects.set_lead", func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE projects
		SET project_lead_id = $2, updated_at = NOW()
		WHERE id = $1
	`, projectID, leadID)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return project.ErrNotFound
	}
	return nil
}

// Delete removes the project; memberships and documents ride the FK
// cascades, so the whole removal commits or none of it does.
func (r *ProjectsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("projects.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return project.ErrNotFound
	}
	return nil
}
