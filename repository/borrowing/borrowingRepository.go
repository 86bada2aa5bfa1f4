// repository/borrowing/borrowingRepository.go
package borrowing

import (
	"context"
	"database/sql"
	"time"

	"github.com/Koliesnichenko/library-service/model"
)

// ActiveRow joins an active borrowing with the pieces the reminder worker
// needs to build a message.
type ActiveRow struct {
	Borrowing model.Borrowing
	BookTitle string
	UserEmail string
}

// OverdueRow is a returned-late borrowing that has no FINE payment yet.
type OverdueRow struct {
	Borrowing model.Borrowing
	BookTitle string
	DailyFee  float64
}

type Filter struct {
	UserID   *int64
	IsActive *bool
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error
	ByID(ctx context.Context, id int64) (*model.Borrowing, error)
	ByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) (bool, error)
	List(ctx context.Context, f Filter) ([]model.Borrowing, error)

	ListActive(ctx context.Context) ([]ActiveRow, error)
	ListReturnedOverdueWithoutFine(ctx context.Context) ([]OverdueRow, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error {
	const q = `
		INSERT INTO borrowings (user_id, book_id, status, borrow_date, expected_return_date)
		VALUES ($1, $2, 'ACTIVE', $3, $4)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, b.UserID, b.BookID, b.BorrowDate, b.ExpectedReturnDate).Scan(&b.ID)
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, status, borrow_date, expected_return_date, actual_return_date
		FROM borrowings
		WHERE id = $1`
	return scanBorrowing(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, status, borrow_date, expected_return_date, actual_return_date
		FROM borrowings
		WHERE id = $1
		FOR UPDATE`
	return scanBorrowing(tx.QueryRowContext(ctx, q, id))
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) (bool, error) {
	// Guard on status so a racing second return affects zero rows.
	const q = `
		UPDATE borrowings
		SET status = 'RETURNED',
			actual_return_date = $2
		WHERE id = $1
		AND status = 'ACTIVE'`
	res, err := tx.ExecContext(ctx, q, id, returnedAt)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (r *repo) List(ctx context.Context, f Filter) ([]model.Borrowing, error) {
	q := `
		SELECT id, user_id, book_id, status, borrow_date, expected_return_date, actual_return_date
		FROM borrowings
		WHERE 1=1`
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += ` AND user_id = $1`
	}
	if f.IsActive != nil {
		if *f.IsActive {
			q += ` AND status = 'ACTIVE'`
		} else {
			q += ` AND status = 'RETURNED'`
		}
	}
	q += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Borrowing
	for rows.Next() {
		var b model.Borrowing
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.BookID, &b.Status,
			&b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) ListActive(ctx context.Context) ([]ActiveRow, error) {
	const q = `
		SELECT br.id, br.user_id, br.book_id, br.status,
			br.borrow_date, br.expected_return_date, br.actual_return_date,
			b.title, u.email
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.status = 'ACTIVE'
		ORDER BY br.expected_return_date`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveRow
	for rows.Next() {
		var a ActiveRow
		if err := rows.Scan(
			&a.Borrowing.ID, &a.Borrowing.UserID, &a.Borrowing.BookID, &a.Borrowing.Status,
			&a.Borrowing.BorrowDate, &a.Borrowing.ExpectedReturnDate, &a.Borrowing.ActualReturnDate,
			&a.BookTitle, &a.UserEmail,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repo) ListReturnedOverdueWithoutFine(ctx context.Context) ([]OverdueRow, error) {
	const q = `
		SELECT br.id, br.user_id, br.book_id, br.status,
			br.borrow_date, br.expected_return_date, br.actual_return_date,
			b.title, b.daily_fee
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		WHERE br.status = 'RETURNED'
		AND br.actual_return_date > br.expected_return_date
		AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.borrowing_id = br.id AND p.type = 'FINE'
		)
		ORDER BY br.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueRow
	for rows.Next() {
		var o OverdueRow
		if err := rows.Scan(
			&o.Borrowing.ID, &o.Borrowing.UserID, &o.Borrowing.BookID, &o.Borrowing.Status,
			&o.Borrowing.BorrowDate, &o.Borrowing.ExpectedReturnDate, &o.Borrowing.ActualReturnDate,
			&o.BookTitle, &o.DailyFee,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanBorrowing(row *sql.Row) (*model.Borrowing, error) {
	var b model.Borrowing
	err := row.Scan(
		&b.ID, &b.UserID, &b.BookID, &b.Status,
		&b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
