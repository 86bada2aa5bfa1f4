package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Koliesnichenko/library-service/model"
	brepo "github.com/Koliesnichenko/library-service/repository/borrowing"
	"github.com/Koliesnichenko/library-service/util/database"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrBookUnavailable ErrCode = "BOOK_UNAVAILABLE"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrBadInput        ErrCode = "BAD_INPUT"
	ErrGateway         ErrCode = "GATEWAY"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type Created struct {
	Borrowing   *model.Borrowing
	PaymentLink string
}

type ListQuery struct {
	IsActive *bool
	UserID   *int64
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error
	ByID(ctx context.Context, id int64) (*model.Borrowing, error)
	ByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedAt time.Time) (bool, error)
	List(ctx context.Context, f brepo.Filter) ([]model.Borrowing, error)
}

type Books interface {
	ByID(ctx context.Context, id int64) (*model.Book, error)
	DecrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error)
	IncrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) error
}

// Charger records payment obligations against the gateway.
type Charger interface {
	RecordRentalFee(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64) (*model.Payment, error)
	RecordFine(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64, daysOverdue int) (*model.Payment, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Service interface {
	// Create: borrow one copy and open a rental-fee payment session.
	Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error)

	// Return: close an ACTIVE borrowing, free the copy, record a fine if late.
	Return(ctx context.Context, borrowingID, actingUserID int64, staff bool) (*model.Borrowing, error)

	Get(ctx context.Context, id, actingUserID int64, staff bool) (*model.Borrowing, error)
	List(ctx context.Context, actingUserID int64, staff bool, q ListQuery) ([]model.Borrowing, error)
}

// ----- Service implementation -----

type service struct {
	tx       database.TxRunner
	r        Repo
	b        Books
	charger  Charger
	notifier Notifier
	log      *slog.Logger
}

func New(tx database.TxRunner, r Repo, b Books, charger Charger, notifier Notifier, log *slog.Logger) Service {
	return &service{tx: tx, r: r, b: b, charger: charger, notifier: notifier, log: log}
}

func (s *service) Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error) {
	today := dateOnly(time.Now().UTC())
	expectedReturn = dateOnly(expectedReturn)
	if !expectedReturn.After(today) {
		return nil, makeErr(ErrBadInput)
	}

	book, err := s.b.ByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	if book.Inventory < 1 {
		return nil, makeErr(ErrBookUnavailable)
	}

	bw := &model.Borrowing{
		UserID:             userID,
		BookID:             bookID,
		Status:             model.BorrowingActive,
		BorrowDate:         today,
		ExpectedReturnDate: expectedReturn,
	}

	// Inventory decrement and borrowing insert commit together. The guarded
	// decrement is the authoritative availability check: with one copy left,
	// concurrent borrows resolve to a single winner.
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.b.DecrementInventory(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrBookUnavailable)
		}
		return s.r.Insert(ctx, tx, bw)
	})
	if err != nil {
		return nil, err
	}

	// The rental-fee session is created after the borrowing is durable; a
	// gateway failure leaves a retryable borrowing, never a phantom one.
	out := &Created{Borrowing: bw}
	payment, chargeErr := s.charger.RecordRentalFee(ctx, bw, book.Title, book.DailyFee)
	if chargeErr != nil {
		s.log.Error("rental fee session failed", "borrowing_id", bw.ID, "err", chargeErr)
	} else {
		out.PaymentLink = payment.SessionURL
	}

	s.notify(ctx, fmt.Sprintf(
		"<b>New Borrowing</b>\nBook: %s\nBorrowed: %s\nReturn by: %s",
		book.Title, bw.BorrowDate.Format(time.DateOnly), bw.ExpectedReturnDate.Format(time.DateOnly),
	))

	if chargeErr != nil {
		return out, makeErr(ErrGateway)
	}
	return out, nil
}

func (s *service) Return(ctx context.Context, borrowingID, actingUserID int64, staff bool) (*model.Borrowing, error) {
	today := dateOnly(time.Now().UTC())

	var bw *model.Borrowing
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		bw, err = s.r.ByIDForUpdate(ctx, tx, borrowingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if bw.UserID != actingUserID && !staff {
			return makeErr(ErrNotOwner)
		}
		if !bw.IsActive() {
			return makeErr(ErrAlreadyReturned)
		}

		ok, err := s.r.MarkReturned(ctx, tx, borrowingID, today)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race despite the row lock; never increment twice.
			return makeErr(ErrAlreadyReturned)
		}
		return s.b.IncrementInventory(ctx, tx, bw.BookID)
	})
	if err != nil {
		return nil, err
	}

	bw.Status = model.BorrowingReturned
	bw.ActualReturnDate = &today

	book, err := s.b.ByID(ctx, bw.BookID)
	if err != nil {
		// The return is already committed; report it as such and let
		// the reminder worker pick up any missing fine.
		s.log.Error("book lookup after return failed", "borrowing_id", bw.ID, "book_id", bw.BookID, "err", err)
		return bw, nil
	}

	// Fine recording is post-commit and best effort; the reminder worker
	// reconciles any fine that failed to record here.
	if daysOverdue := daysBetween(bw.ExpectedReturnDate, today); daysOverdue > 0 {
		if _, err := s.charger.RecordFine(ctx, bw, book.Title, book.DailyFee, daysOverdue); err != nil {
			s.log.Error("fine recording failed", "borrowing_id", bw.ID, "days_overdue", daysOverdue, "err", err)
		}
	}

	s.notify(ctx, fmt.Sprintf(
		"<b>Book Returned</b>\nBook: %s\nBorrowed: %s\nReturned: %s",
		book.Title, bw.BorrowDate.Format(time.DateOnly), today.Format(time.DateOnly),
	))

	return bw, nil
}

func (s *service) Get(ctx context.Context, id, actingUserID int64, staff bool) (*model.Borrowing, error) {
	bw, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if bw.UserID != actingUserID && !staff {
		return nil, makeErr(ErrNotFound)
	}
	return bw, nil
}

func (s *service) List(ctx context.Context, actingUserID int64, staff bool, q ListQuery) ([]model.Borrowing, error) {
	f := brepo.Filter{IsActive: q.IsActive}
	if staff {
		f.UserID = q.UserID
	} else {
		// user_id filter is staff-only; everyone else sees their own.
		f.UserID = &actingUserID
	}
	return s.r.List(ctx, f)
}

func (s *service) notify(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		s.log.Warn("notification failed", "err", err)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}
