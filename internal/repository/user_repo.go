package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/armin-rsh/FitLinkApp/internal/models"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, display_name, avatar_url, password_hash, role, coach_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.Role,
		&user.CoachID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, display_name, avatar_url, password_hash, role, coach_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		user.Email,
		user.Username,
		user.DisplayName,
		user.AvatarURL,
		user.PasswordHash,
		user.Role,
		user.CoachID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

// GetAdmin returns the single admin account.
func (r *UserRepository) GetAdmin(ctx context.Context) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'admin' ORDER BY id LIMIT 1`
	return scanUser(r.db.QueryRow(ctx, query))
}

// GetCoachOf returns the coach assigned to a plain user, or pgx.ErrNoRows
// when the user has no coach.
func (r *UserRepository) GetCoachOf(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT c.id, c.email, c.username, c.display_name, c.avatar_url, c.password_hash, c.role, c.coach_id, c.created_at, c.updated_at
		FROM users u
		JOIN users c ON c.id = u.coach_id
		WHERE u.id = $1
	`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// ListClients returns the plain users assigned to a coach.
func (r *UserRepository) ListClients(ctx context.Context, coachID int64) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE coach_id = $1 AND role = 'user' ORDER BY display_name`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *user)
	}
	return clients, rows.Err()
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, avatarURL)
	return err
}

// PublicUsers converts persisted rows into their wire shape.
func PublicUsers(users []models.User) []model.User {
	out := make([]model.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}
