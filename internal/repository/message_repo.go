package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, sender_id, receiver_id, message, image, is_read, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Message,
		&msg.Image,
		&msg.IsRead,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) Create(ctx context.Context, msg model.Message) (*model.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, message, image, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING ` + messageColumns + `
	`
	return scanMessage(r.db.QueryRow(ctx, query, msg.SenderID, msg.ReceiverID, msg.Message, msg.Image))
}

// ListBetween returns the full conversation between the two participants,
// newest first, the order the history endpoint serves it in.
func (r *MessageRepository) ListBetween(ctx context.Context, a, b int64) ([]model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, id))
}

func (r *MessageRepository) UpdateText(ctx context.Context, id int64, text string) (*model.Message, error) {
	query := `
		UPDATE messages
		SET message = $2
		WHERE id = $1
		RETURNING ` + messageColumns + `
	`
	return scanMessage(r.db.QueryRow(ctx, query, id, text))
}

func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

// MarkPairRead flags everything the reader received in this conversation as
// read. Called when the reader fetches the history.
func (r *MessageRepository) MarkPairRead(ctx context.Context, readerID, peerID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE sender_id = $2
		  AND receiver_id = $1
		  AND is_read = FALSE
	`, readerID, peerID)
	return err
}
