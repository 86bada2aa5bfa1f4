package paymentrepo

import (
	"context"
	"database/sql"

	"github.com/Koliesnichenko/library-service/model"
)

type Repo interface {
	Insert(ctx context.Context, p *model.Payment) error
	ByID(ctx context.Context, id int64) (*model.Payment, error)
	BySessionID(ctx context.Context, sessionID string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	ListAll(ctx context.Context) ([]model.Payment, error)

	// ByBorrowing returns the most recent payment of the given type for a
	// borrowing; sql.ErrNoRows when none exists yet.
	ByBorrowing(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error)

	// MarkStatus flips a PENDING payment; returns false if it was already
	// settled, so webhook retries stay idempotent.
	MarkStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, p *model.Payment) error {
	const q = `
		INSERT INTO payments (user_id, borrowing_id, status, type, amount, session_url, session_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		p.UserID, p.BorrowingID, p.Status, p.Type, p.Amount, p.SessionURL, p.SessionID,
	).Scan(&p.ID, &p.CreatedAt)
}

const selectPayment = `
	SELECT id, user_id, borrowing_id, status, type, amount, session_url, session_id, created_at
	FROM payments`

func (r *repo) ByID(ctx context.Context, id int64) (*model.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, selectPayment+` WHERE id = $1`, id))
}

func (r *repo) BySessionID(ctx context.Context, sessionID string) (*model.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, selectPayment+` WHERE session_id = $1`, sessionID))
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+` WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repo) ListAll(ctx context.Context) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+` ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repo) ByBorrowing(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		selectPayment+` WHERE borrowing_id = $1 AND type = $2 ORDER BY id DESC LIMIT 1`,
		borrowingID, typ,
	))
}

func (r *repo) MarkStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	const q = `
		UPDATE payments
		SET status = $2
		WHERE id = $1
		AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func scanPayment(row *sql.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.BorrowingID, &p.Status, &p.Type,
		&p.Amount, &p.SessionURL, &p.SessionID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collect(rows *sql.Rows) ([]model.Payment, error) {
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.BorrowingID, &p.Status, &p.Type,
			&p.Amount, &p.SessionURL, &p.SessionID, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
