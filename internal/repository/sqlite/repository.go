package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart-email/internal/model"
	"smart-email/internal/repository"
)

// Timestamps are stored in UTC so that text ordering matches time ordering.

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
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

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	row := *user
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, google_id, email, name, created_at, updated_at)
		VALUES (:id, :google_id, :email, :name, :created_at, :updated_at)`, &row)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE `+where+` = ?`, arg)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, "google_id", googleID)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = ?, email = ?, name = ?, updated_at = ? WHERE id = ?`,
		user.GoogleID, user.Email, user.Name, time.Now().UTC(), user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

type CredentialRepository struct {
	db *DB
}

func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Upsert(ctx context.Context, cred *model.OAuthCredential) error {
	row := *cred
	row.ExpiresAt = row.ExpiresAt.UTC()
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO oauth_credentials (id, owner_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (:id, :owner_id, :provider, :access_token, :refresh_token, :expires_at, :created_at, :updated_at)
		ON CONFLICT (owner_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`, &row)
	if err != nil {
		return err
	}
	return r.db.GetContext(ctx, &cred.ID, `SELECT id FROM oauth_credentials WHERE owner_id = ?`, cred.OwnerID)
}

func (r *CredentialRepository) FindByOwner(ctx context.Context, ownerID string) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	if err := r.db.GetContext(ctx, &cred, `SELECT * FROM oauth_credentials WHERE owner_id = ?`, ownerID); err != nil {
		return nil, notFound(err)
	}
	return &cred, nil
}

func (r *CredentialRepository) UpdateTokens(ctx context.Context, cred *model.OAuthCredential) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE oauth_credentials SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ? WHERE id = ?`,
		cred.AccessToken, cred.RefreshToken, cred.ExpiresAt.UTC(), time.Now().UTC(), cred.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type EmailRepository struct {
	db *DB
}

func NewEmailRepository(db *DB) *EmailRepository {
	return &EmailRepository{db: db}
}

const emailColumns = `id, user_id, remote_id, thread_id, sender, subject, snippet, received_at,
	category, urgency, summary, suggested_reply, archived_at, created_at`

func (r *EmailRepository) Create(ctx context.Context, email *model.ClassifiedEmail) error {
	row := *email
	row.ReceivedAt = row.ReceivedAt.UTC()
	row.CreatedAt = row.CreatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO classified_emails (`+emailColumns+`)
		VALUES (:id, :user_id, :remote_id, :thread_id, :sender, :subject, :snippet, :received_at,
			:category, :urgency, :summary, :suggested_reply, :archived_at, :created_at)`, &row)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *EmailRepository) FindByID(ctx context.Context, id string) (*model.ClassifiedEmail, error) {
	var email model.ClassifiedEmail
	err := r.db.GetContext(ctx, &email, `SELECT `+emailColumns+` FROM classified_emails WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &email, nil
}

func (r *EmailRepository) FindByRemoteID(ctx context.Context, userID, remoteID string) (*model.ClassifiedEmail, error) {
	var email model.ClassifiedEmail
	err := r.db.GetContext(ctx, &email,
		`SELECT `+emailColumns+` FROM classified_emails WHERE user_id = ? AND remote_id = ?`, userID, remoteID)
	if err != nil {
		return nil, notFound(err)
	}
	return &email, nil
}

func (r *EmailRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.ClassifiedEmail, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM classified_emails WHERE user_id = ? AND archived_at IS NULL`, userID)
	if err != nil {
		return nil, 0, err
	}

	emails := []*model.ClassifiedEmail{}
	err = r.db.SelectContext(ctx, &emails, `
		SELECT `+emailColumns+` FROM classified_emails
		WHERE user_id = ? AND archived_at IS NULL
		ORDER BY received_at DESC
		LIMIT ? OFFSET ?`, userID, pageSize, repository.Offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

func (r *EmailRepository) Archive(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE classified_emails SET archived_at = COALESCE(archived_at, ?) WHERE id = ? AND user_id = ?`,
		time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
