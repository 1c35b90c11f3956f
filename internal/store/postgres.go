package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

const userColumns = `id, username, email, full_name, avatar_public_id, avatar_url,
	cover_public_id, cover_url, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(64) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			full_name VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			avatar_public_id VARCHAR(255) NOT NULL,
			avatar_url TEXT NOT NULL,
			cover_public_id VARCHAR(255),
			cover_url TEXT,
			refresh_token TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init users table: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, withSecrets bool) (*models.User, error) {
	var (
		u                 models.User
		coverID, coverURL sql.NullString
		password, refresh sql.NullString
	)
	dest := []any{
		&u.ID, &u.Username, &u.Email, &u.FullName,
		&u.Avatar.PublicID, &u.Avatar.URL,
		&coverID, &coverURL, &u.CreatedAt, &u.UpdatedAt,
	}
	if withSecrets {
		dest = append(dest, &password, &refresh)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if coverID.Valid || coverURL.Valid {
		u.CoverImage = &models.MediaAsset{PublicID: coverID.String, URL: coverURL.String}
	}
	u.Password = password.String
	u.RefreshToken = refresh.String
	return &u, nil
}

func (s *PostgresStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) (string, error) {
	var coverID, coverURL sql.NullString
	if u.CoverImage != nil {
		coverID = sql.NullString{String: u.CoverImage.PublicID, Valid: true}
		coverURL = sql.NullString{String: u.CoverImage.URL, Valid: true}
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, full_name, password_hash,
			avatar_public_id, avatar_url, cover_public_id, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		u.Username, u.Email, u.FullName, u.Password,
		u.Avatar.PublicID, u.Avatar.URL, coverID, coverURL,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanByID(row, false)
}

func (s *PostgresStore) FindByIDWithSecrets(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash, refresh_token FROM users WHERE id = $1`, id)
	return s.scanByID(row, true)
}

// scanByID treats a malformed uuid (22P02) like a missing row.
func (s *PostgresStore) scanByID(row *sql.Row, withSecrets bool) (*models.User, error) {
	u, err := scanUser(row, withSecrets)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var (
		conds []string
		args  []any
	)
	if username != "" {
		args = append(args, username)
		conds = append(conds, fmt.Sprintf("username = $%d", len(args)))
	}
	if email != "" {
		args = append(args, email)
		conds = append(conds, fmt.Sprintf("email = $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil, ErrNotFound
	}

	q := `SELECT ` + userColumns + `, password_hash, refresh_token FROM users WHERE ` +
		strings.Join(conds, " OR ") + ` LIMIT 1`
	return scanUser(s.db.QueryRowContext(ctx, q, args...), true)
}

func (s *PostgresStore) SetRefreshToken(ctx context.Context, id, token string) error {
	return s.exec(ctx, `UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		id, token, time.Now().UTC())
}

func (s *PostgresStore) ClearRefreshToken(ctx context.Context, id string) error {
	return s.exec(ctx, `UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
}

func (s *PostgresStore) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return ErrNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.User, error) {
	return s.updateReturning(ctx,
		`UPDATE users SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1 RETURNING `+userColumns,
		id, fullName, email, time.Now().UTC())
}

func (s *PostgresStore) UpdateAvatar(ctx context.Context, id string, avatar models.MediaAsset) (*models.User, error) {
	return s.updateReturning(ctx,
		`UPDATE users SET avatar_public_id = $2, avatar_url = $3, updated_at = $4 WHERE id = $1 RETURNING `+userColumns,
		id, avatar.PublicID, avatar.URL, time.Now().UTC())
}

func (s *PostgresStore) UpdateCoverImage(ctx context.Context, id string, cover *models.MediaAsset) (*models.User, error) {
	var coverID, coverURL sql.NullString
	if cover != nil {
		coverID = sql.NullString{String: cover.PublicID, Valid: true}
		coverURL = sql.NullString{String: cover.URL, Valid: true}
	}
	return s.updateReturning(ctx,
		`UPDATE users SET cover_public_id = $2, cover_url = $3, updated_at = $4 WHERE id = $1 RETURNING `+userColumns,
		id, coverID, coverURL, time.Now().UTC())
}

func (s *PostgresStore) updateReturning(ctx context.Context, q string, args ...any) (*models.User, error) {
	u, err := s.scanByID(s.db.QueryRowContext(ctx, q, args...), false)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return u, err
}
