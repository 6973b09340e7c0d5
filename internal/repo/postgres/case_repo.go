package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexhaven/firmportal/internal/domain"
)

type CaseRepository interface {
	Create(ctx context.Context, userID int64, req *domain.CaseRequest) (*domain.Case, error)
	FindByID(ctx context.Context, userID, id int64) (*domain.Case, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Case, error)
	Update(ctx context.Context, userID, id int64, req *domain.CaseRequest) (*domain.Case, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseCols = `id, user_id, client_name, client_contact, case_type, involved_parties,
	case_description, filing_deadline, court_date, senior_lawyer, junior_lawyer,
	documents, created_at, updated_at`

func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	err := row.Scan(
		&c.ID, &c.UserID, &c.ClientName, &c.ClientContact, &c.CaseType, &c.InvolvedParties,
		&c.CaseDescription, &c.FilingDeadline, &c.CourtDate, &c.SeniorLawyer, &c.JuniorLawyer,
		&c.Documents, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Documents == nil {
		c.Documents = []string{}
	}
	return &c, nil
}

func (r *caseRepository) Create(ctx context.Context, userID int64, req *domain.CaseRequest) (*domain.Case, error) {
	const q = `
		INSERT INTO cases (user_id, client_name, client_contact, case_type, involved_parties,
			case_description, filing_deadline, court_date, senior_lawyer, junior_lawyer, documents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + caseCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanCase(r.pool.QueryRow(ctx, q,
		userID, req.ClientName, req.ClientContact, req.CaseType, req.InvolvedParties,
		req.CaseDescription, req.ParsedFilingDeadline, req.ParsedCourtDate,
		req.SeniorLawyer, req.JuniorLawyer, req.Documents,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *caseRepository) FindByID(ctx context.Context, userID, id int64) (*domain.Case, error) {
	const q = `SELECT ` + caseCols + ` FROM cases WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanCase(r.pool.QueryRow(ctx, q, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *caseRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Case, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + caseCols + `
		FROM cases
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, mapError(err)
		}
		cases = append(cases, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return cases, nil
}

func (r *caseRepository) Update(ctx context.Context, userID, id int64, req *domain.CaseRequest) (*domain.Case, error) {
	const q = `
		UPDATE cases
		SET client_name = $3,
			client_contact = $4,
			case_type = $5,
			involved_parties = $6,
			case_description = $7,
			filing_deadline = $8,
			court_date = $9,
			senior_lawyer = $10,
			junior_lawyer = $11,
			documents = $12,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + caseCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanCase(r.pool.QueryRow(ctx, q,
		id, userID, req.ClientName, req.ClientContact, req.CaseType, req.InvolvedParties,
		req.CaseDescription, req.ParsedFilingDeadline, req.ParsedCourtDate,
		req.SeniorLawyer, req.JuniorLawyer, req.Documents,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *caseRepository) Delete(ctx context.Context, userID, id int64) (bool, error) {
	const q = `DELETE FROM cases WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, mapError(err)
	}
	return result.RowsAffected() > 0, nil
}
