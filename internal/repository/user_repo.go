package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository - интерфейс для работы с пользователями.
type UserRepository interface {
	GetUser(ctx context.Context, userId string) (*models.User, error)
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	HasAssignedOrders(ctx context.Context, userId string) (bool, error)
	DeleteUser(ctx context.Context, userId string) error
}

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresUserRepository создает новый экземпляр PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, name, email, role, company_name, token_hash, created_at`

// GetUser получает пользователя по ID.
func (r *PostgresUserRepository) GetUser(ctx context.Context, userId string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.DB).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userId).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CompanyName,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByTokenHash получает пользователя по хэшу токена доступа.
func (r *PostgresUserRepository) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.DB).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE token_hash = $1`, tokenHash).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CompanyName,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ListUsers возвращает всех пользователей.
func (r *PostgresUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.CompanyName,
			&user.TokenHash,
			&user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpsertUser создает пользователя или обновляет существующего с тем же email.
func (r *PostgresUserRepository) UpsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, name, email, role, company_name, token_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role, company_name = EXCLUDED.company_name, token_hash = EXCLUDED.token_hash
		RETURNING id, created_at`
	err := conn(ctx, r.DB).QueryRow(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.CompanyName,
		user.TokenHash,
		user.CreatedAt).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	return err
}

// UpdateUser сохраняет имя, email, компанию и хэш токена пользователя.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := conn(ctx, r.DB).Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, company_name = $4, token_hash = $5
		WHERE id = $1`,
		user.ID,
		user.Name,
		user.Email,
		user.CompanyName,
		user.TokenHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasAssignedOrders проверяет, назначен ли пользователь исполнителем чужого заказа.
func (r *PostgresUserRepository) HasAssignedOrders(ctx context.Context, userId string) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE manufacturer_id = $1 AND user_id <> $1)`,
		userId).Scan(&exists)
	if err != nil {
		return false, notFound(err)
	}
	return exists, nil
}

// DeleteUser удаляет пользователя, его предложения и его заказы.
// Предложения по удаленным заказам удаляются каскадом.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, userId string) error {
	q := conn(ctx, r.DB)
	if _, err := q.Exec(ctx, `DELETE FROM bids WHERE manufacturer_id = $1`, userId); err != nil {
		return fmt.Errorf("failed to delete bids of user %s: %w", userId, notFound(err))
	}
	if _, err := q.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, userId); err != nil {
		return fmt.Errorf("failed to delete orders of user %s: %w", userId, err)
	}
	tag, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, userId)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userId, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
