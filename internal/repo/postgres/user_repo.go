package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexhaven/firmportal/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, req *domain.Step1Request, passwordHash string, emailVerified bool) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	FirmNameExists(ctx context.Context, name string, excludeUserID int64) (bool, error)
	LicenseExists(ctx context.Context, license string, excludeUserID int64) (bool, error)
	UpsertFirmDetails(ctx context.Context, userID int64, req *domain.Step2Request) (*domain.FirmDetails, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// userCols joins law_firms so a single lookup yields the full identity
// record including firm details once step 2 has completed.
const userCols = `
	u.id, u.username, u.email, u.phone_number, u.password_hash, u.email_verified,
	u.created_at, u.updated_at,
	lf.firm_name, lf.firm_address, lf.license_number, lf.registration_status`

const userFrom = ` FROM users u LEFT JOIN law_firms lf ON lf.user_id = u.id `

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user                            domain.User
		firmName, firmAddr, license, st *string
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PhoneNumber, &user.PasswordHash,
		&user.EmailVerified, &user.CreatedAt, &user.UpdatedAt,
		&firmName, &firmAddr, &license, &st,
	)
	if err != nil {
		return nil, err
	}
	if firmName != nil {
		user.FirmDetails = &domain.FirmDetails{
			FirmName:           *firmName,
			FirmAddress:        deref(firmAddr),
			LicenseNumber:      deref(license),
			RegistrationStatus: deref(st),
		}
	}
	return &user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *userRepository) Create(ctx context.Context, req *domain.Step1Request, passwordHash string, emailVerified bool) (*domain.User, error) {
	const q = `
		INSERT INTO users (username, email, phone_number, password_hash, email_verified)
		VALUES ($1, lower($2), $3, $4, $5)
		RETURNING id, username, email, phone_number, password_hash, email_verified, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, req.Username, req.Email, req.PhoneNumber, passwordHash, emailVerified).Scan(
		&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT` + userCols + userFrom + `WHERE lower(u.email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT` + userCols + userFrom + `WHERE u.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email)
}

func (r *userRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone_number = $1)`, phone)
}

// FirmNameExists reports whether another user already registered the firm
// name. excludeUserID 0 means no exclusion (the public availability check);
// step 2 passes the authenticated user's id so an idempotent resubmission
// does not collide with its own record.
func (r *userRepository) FirmNameExists(ctx context.Context, name string, excludeUserID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM law_firms WHERE lower(firm_name) = lower($1) AND user_id <> $2)`,
		name, excludeUserID)
}

func (r *userRepository) LicenseExists(ctx context.Context, license string, excludeUserID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM law_firms WHERE license_number = $1 AND user_id <> $2)`,
		license, excludeUserID)
}

func (r *userRepository) exists(ctx context.Context, q string, args ...interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

// UpsertFirmDetails writes the firm record for step 2. A resubmission
// overwrites the previous values (last write wins); registration_status is
// 'completed' once this returns.
func (r *userRepository) UpsertFirmDetails(ctx context.Context, userID int64, req *domain.Step2Request) (*domain.FirmDetails, error) {
	const q = `
		INSERT INTO law_firms (user_id, firm_name, firm_address, license_number, registration_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			firm_name = EXCLUDED.firm_name,
			firm_address = EXCLUDED.firm_address,
			license_number = EXCLUDED.license_number,
			updated_at = now()
		RETURNING firm_name, firm_address, license_number, registration_status`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var fd domain.FirmDetails
	err := r.pool.QueryRow(ctx, q, userID, req.FirmName, req.FirmAddress, req.LicenseNumber, domain.RegistrationStatusCompleted).Scan(
		&fd.FirmName, &fd.FirmAddress, &fd.LicenseNumber, &fd.RegistrationStatus,
	)
	if err != nil {
		return nil, mapError(err)
	}

	// Keep the owning user's updated_at in step with the firm mutation.
	_, _ = r.pool.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID)

	return &fd, nil
}
