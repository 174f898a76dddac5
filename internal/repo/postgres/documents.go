package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projecthub-dev/projecthub/internal/domain/document"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/observability"
)

type DocumentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDocumentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DocumentsRepo {
	return &DocumentsRepo{pool: pool, prom: prom}
}

func (r *DocumentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const documentColumns = `id, project_id, name, size_bytes, mime_type, uploaded_by, created_at`

func scanDocument(row pgx.Row) (document.Document, error) {
	var d document.Document
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.SizeBytes, &d.MimeType, &d.UploadedBy, &d.CreatedAt)
	return d, err
}

func (r *DocumentsRepo) Create(ctx context.Context, req document.CreateDocumentRequest, projectID, uploadedBy string) (d document.Document, err error) {
	d = document.Document{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Name:       req.Name,
		SizeBytes:  req.SizeBytes,
		MimeType:   req.MimeType,
		UploadedBy: uploadedBy,
		CreatedAt:  time.Now().UTC(),
	}

	err = r.observe("documents.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO documents (id, project_id, name, size_bytes, mime_type, uploaded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, d.ID, d.ProjectID, d.Name, d.SizeBytes, d.MimeType, d.UploadedBy, d.CreatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == "documents_project_id_fkey" {
			err = project.ErrNotFound
		}
		return
	}
	return
}

func (r *DocumentsRepo) GetByID(ctx context.Context, id string) (document.Document, error) {
	var d document.Document
	var err error

	err = r.observe("documents.get_by_id", func() error {
		d, err = scanDocument(r.pool.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return document.Document{}, document.ErrNotFound
		}
		return document.Document{}, err
	}
	return d, nil
}

func (r *DocumentsRepo) ListByProject(ctx context.Context, projectID string) (docs []document.Document, err error) {
	var rows pgx.Rows

	err = r.observe("documents.list_by_project", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE project_id = $1 ORDER BY created_at ASC, id ASC`,
			projectID)
		return err
	})

	if err != nil {
		return
	}
	defer rows.Close()

	docs = make([]document.Document, 0)

	for rows.Next() {
		d, e := scanDocument(rows)
		if e != nil {
			err = e
			return
		}
		docs = append(docs, d)
	}

	err = rows.Err()
	return
}

func (r *DocumentsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("documents.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return document.ErrNotFound
	}
	return nil
}

// CountByProjects sums documents over the given project set in one query.
func (r *DocumentsRepo) CountByProjects(ctx context.Context, projectIDs []string) (int, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	var n int
	err := r.observe("documents.count_by_projects", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE project_id = ANY($1)`,
			projectIDs).Scan(&n)
	})

	if err != nil {
		return 0, err
	}
	return n, nil
}
