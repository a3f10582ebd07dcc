package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smart-email/internal/model"
	"smart-email/internal/repository"

	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE postgres reports for unique constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, google_id, email, name, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET google_id=$1, email=$2, name=$3, updated_at=NOW() WHERE id=$4`
	res, err := r.db.ExecContext(ctx, query, user.GoogleID, user.Email, user.Name, user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type PostgresCredentialRepository struct {
	db *sql.DB
}

func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

func (r *PostgresCredentialRepository) Upsert(ctx context.Context, cred *model.OAuthCredential) error {
	query := `
		INSERT INTO oauth_credentials (id, owner_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		cred.ID, cred.OwnerID, cred.Provider, cred.AccessToken, cred.RefreshToken,
		cred.ExpiresAt, cred.CreatedAt, cred.UpdatedAt).Scan(&cred.ID)
}

func (r *PostgresCredentialRepository) FindByOwner(ctx context.Context, ownerID string) (*model.OAuthCredential, error) {
	query := `SELECT id, owner_id, provider, access_token, refresh_token, expires_at, created_at, updated_at
		FROM oauth_credentials WHERE owner_id = $1`
	cred := &model.OAuthCredential{}
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&cred.ID, &cred.OwnerID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken,
		&cred.ExpiresAt, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return cred, nil
}

func (r *PostgresCredentialRepository) UpdateTokens(ctx context.Context, cred *model.OAuthCredential) error {
	query := `UPDATE oauth_credentials SET access_token=$1, refresh_token=$2, expires_at=$3, updated_at=NOW() WHERE id=$4`
	res, err := r.db.ExecContext(ctx, query, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type PostgresEmailRepository struct {
	db *sql.DB
}

func NewPostgresEmailRepository(db *sql.DB) *PostgresEmailRepository {
	return &PostgresEmailRepository{db: db}
}

const emailColumns = `id, user_id, remote_id, thread_id, sender, subject, snippet, received_at,
	category, urgency, summary, suggested_reply, archived_at, created_at`

func scanEmail(row interface{ Scan(...interface{}) error }) (*model.ClassifiedEmail, error) {
	email := &model.ClassifiedEmail{}
	var reply sql.NullString
	var archivedAt sql.NullTime
	err := row.Scan(
		&email.ID, &email.UserID, &email.RemoteID, &email.ThreadID, &email.Sender, &email.Subject,
		&email.Snippet, &email.ReceivedAt, &email.Category, &email.Urgency, &email.Summary,
		&reply, &archivedAt, &email.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reply.Valid {
		email.SuggestedReply = &reply.String
	}
	if archivedAt.Valid {
		email.ArchivedAt = &archivedAt.Time
	}
	return email, nil
}

func (r *PostgresEmailRepository) Create(ctx context.Context, email *model.ClassifiedEmail) error {
	query := `
		INSERT INTO classified_emails (` + emailColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query,
		email.ID, email.UserID, email.RemoteID, email.ThreadID, email.Sender, email.Subject,
		email.Snippet, email.ReceivedAt, email.Category, email.Urgency, email.Summary,
		email.SuggestedReply, email.ArchivedAt, email.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *PostgresEmailRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.ClassifiedEmail, error) {
	email, err := scanEmail(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return email, nil
}

func (r *PostgresEmailRepository) FindByID(ctx context.Context, id string) (*model.ClassifiedEmail, error) {
	return r.findOne(ctx, `SELECT `+emailColumns+` FROM classified_emails WHERE id = $1`, id)
}

func (r *PostgresEmailRepository) FindByRemoteID(ctx context.Context, userID, remoteID string) (*model.ClassifiedEmail, error) {
	return r.findOne(ctx,
		`SELECT `+emailColumns+` FROM classified_emails WHERE user_id = $1 AND remote_id = $2`,
		userID, remoteID)
}

func (r *PostgresEmailRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.ClassifiedEmail, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM classified_emails WHERE user_id = $1 AND archived_at IS NULL`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + emailColumns + ` FROM classified_emails
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, repository.Offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	emails := []*model.ClassifiedEmail{}
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, 0, err
		}
		emails = append(emails, email)
	}
	return emails, total, rows.Err()
}

func (r *PostgresEmailRepository) Archive(ctx context.Context, userID, id string) error {
	query := `UPDATE classified_emails SET archived_at = COALESCE(archived_at, NOW()) WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS oauth_credentials (
			id VARCHAR(255) PRIMARY KEY,
			owner_id VARCHAR(255) UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider VARCHAR(32) NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS classified_emails (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			remote_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255) NOT NULL DEFAULT '',
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			snippet TEXT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			category VARCHAR(16) NOT NULL,
			urgency SMALLINT NOT NULL CHECK (urgency BETWEEN 0 AND 10),
			summary TEXT NOT NULL,
			suggested_reply TEXT,
			archived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, remote_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_classified_emails_inbox
			ON classified_emails (user_id, received_at DESC) WHERE archived_at IS NULL`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
