package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"talkmate/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByAuth(ctx context.Context, provider, subject string) (domain.User, error)
	LinkOAuth(ctx context.Context, userID, provider, subject string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, email, username, display_name, phone_country, phone_country_code, phone_number,
		auth_provider, auth_subject, password_hash, created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var country, code, number *string
	if user.Phone != nil {
		country, code, number = &user.Phone.Country, &user.Phone.CountryCode, &user.Phone.Number
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.DisplayName,
		country,
		code,
		number,
		user.AuthProvider,
		user.AuthSubject,
		user.PasswordHash,
		user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (r *PgUserRepository) GetByAuth(ctx context.Context, provider, subject string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE auth_provider = $1 AND auth_subject = $2`, provider, subject)
}

func (r *PgUserRepository) LinkOAuth(ctx context.Context, userID, provider, subject string) error {
	const query = `
		UPDATE users
		SET auth_provider = $2, auth_subject = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, provider, subject)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) getOne(ctx context.Context, query string, args ...any) (domain.User, error) {
	var (
		u                     domain.User
		country, code, number *string
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.DisplayName,
		&country,
		&code,
		&number,
		&u.AuthProvider,
		&u.AuthSubject,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	if number != nil && *number != "" {
		u.Phone = &domain.Phone{Number: *number}
		if country != nil {
			u.Phone.Country = *country
		}
		if code != nil {
			u.Phone.CountryCode = *code
		}
	}
	return u, nil
}

// MemoryUserRepository se usa cuando no hay DATABASE_URL y en tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == user.ID || u.Email == user.Email || strings.EqualFold(u.Username, user.Username) {
			return ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *MemoryUserRepository) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	return r.find(func(u domain.User) bool {
		return subject != "" && u.AuthProvider == provider && u.AuthSubject == subject
	})
}

func (r *MemoryUserRepository) LinkOAuth(_ context.Context, userID, provider, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.AuthProvider = provider
	u.AuthSubject = subject
	r.users[userID] = u
	return nil
}

func (r *MemoryUserRepository) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}
