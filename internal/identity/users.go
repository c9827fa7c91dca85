package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is a stored account.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. Emails are matched case-insensitively.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
}

// PostgresUsers stores accounts in the users table.
type PostgresUsers struct {
	pool *pgxpool.Pool
}

func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool}
}

func (s *PostgresUsers) CreateUser(ctx context.Context, email, passwordHash string) (UserRecord, error) {
	const query = `
        INSERT INTO users (id, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id::text, email, password_hash, created_at
    `
	var u UserRecord
	err := s.pool.QueryRow(ctx, query, uuid.New(), email, passwordHash).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserRecord{}, ErrEmailInUse
		}
		return UserRecord{}, err
	}
	return u, nil
}

func (s *PostgresUsers) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	const query = `
        SELECT id::text, email, password_hash, created_at
        FROM users
        WHERE lower(email) = lower($1)
        LIMIT 1
    `
	return s.scanOne(ctx, query, strings.TrimSpace(email))
}

func (s *PostgresUsers) FindByID(ctx context.Context, id string) (UserRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UserRecord{}, ErrUserNotFound
	}
	const query = `
        SELECT id::text, email, password_hash, created_at
        FROM users
        WHERE id = $1::uuid
    `
	return s.scanOne(ctx, query, id)
}

func (s *PostgresUsers) scanOne(ctx context.Context, query string, arg string) (UserRecord, error) {
	var u UserRecord
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, err
	}
	return u, nil
}

// MemoryUsers keeps accounts in process memory.
type MemoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]UserRecord
	byID    map[string]UserRecord
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: make(map[string]UserRecord), byID: make(map[string]UserRecord)}
}

func (s *MemoryUsers) CreateUser(_ context.Context, email, passwordHash string) (UserRecord, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return UserRecord{}, ErrEmailInUse
	}
	u := UserRecord{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	s.byEmail[key] = u
	s.byID[u.ID] = u
	return u, nil
}

func (s *MemoryUsers) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryUsers) FindByID(_ context.Context, id string) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}
