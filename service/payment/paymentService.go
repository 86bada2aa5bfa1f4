package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Koliesnichenko/library-service/model"
	striperepo "github.com/Koliesnichenko/library-service/repository/stripe"
)

// Overdue fines charge double the daily fee. Business policy, not derived.
const FineMultiplier = 2

type ErrCode string

const (
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrBorrowingNotFound ErrCode = "BORROWING_NOT_FOUND"
	ErrGateway           ErrCode = "GATEWAY"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	Insert(ctx context.Context, p *model.Payment) error
	ByID(ctx context.Context, id int64) (*model.Payment, error)
	BySessionID(ctx context.Context, sessionID string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	ListAll(ctx context.Context) ([]model.Payment, error)
	ByBorrowing(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error)
	MarkStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
}

type Borrowings interface {
	ByID(ctx context.Context, id int64) (*model.Borrowing, error)
}

type Books interface {
	ByID(ctx context.Context, id int64) (*model.Book, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Service interface {
	List(ctx context.Context, userID int64, staff bool) ([]model.Payment, error)
	Get(ctx context.Context, id, userID int64, staff bool) (*model.Payment, error)

	// CreateForBorrowing opens a fresh checkout session for a borrowing's
	// rental fee; safe to call again after a gateway failure.
	CreateForBorrowing(ctx context.Context, userID int64, staff bool, borrowingID int64) (*model.Payment, error)

	// HandleSuccess settles the payment the gateway redirected back for.
	HandleSuccess(ctx context.Context, sessionID string) (*model.Payment, bool, error)
	HandleCancel(ctx context.Context)

	// Reconciler side, called by the borrowing lifecycle and the worker.
	RecordRentalFee(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64) (*model.Payment, error)
	RecordFine(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64, daysOverdue int) (*model.Payment, error)
}

type service struct {
	r        Repo
	br       Borrowings
	bk       Books
	gateway  striperepo.Repo
	notifier Notifier
	baseURL  string
	log      *slog.Logger
}

func New(r Repo, br Borrowings, bk Books, gateway striperepo.Repo, notifier Notifier, baseURL string, log *slog.Logger) Service {
	return &service{r: r, br: br, bk: bk, gateway: gateway, notifier: notifier, baseURL: baseURL, log: log}
}

func (s *service) List(ctx context.Context, userID int64, staff bool) ([]model.Payment, error) {
	if staff {
		return s.r.ListAll(ctx)
	}
	return s.r.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, id, userID int64, staff bool) (*model.Payment, error) {
	p, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && p.UserID != userID {
		return nil, makeErr(ErrNotFound)
	}
	return p, nil
}

func (s *service) CreateForBorrowing(ctx context.Context, userID int64, staff bool, borrowingID int64) (*model.Payment, error) {
	bw, err := s.br.ByID(ctx, borrowingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBorrowingNotFound)
		}
		return nil, err
	}
	if !staff && bw.UserID != userID {
		return nil, makeErr(ErrBorrowingNotFound)
	}
	book, err := s.bk.ByID(ctx, bw.BookID)
	if err != nil {
		return nil, err
	}
	return s.RecordRentalFee(ctx, bw, book.Title, book.DailyFee)
}

func (s *service) RecordRentalFee(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64) (*model.Payment, error) {
	days := daysBetween(b.BorrowDate, b.ExpectedReturnDate)
	amount := dailyFee * float64(days)
	return s.record(ctx, b, model.TypePayment, amount, fmt.Sprintf("Book borrowing - %s", bookTitle))
}

func (s *service) RecordFine(ctx context.Context, b *model.Borrowing, bookTitle string, dailyFee float64, daysOverdue int) (*model.Payment, error) {
	amount := float64(daysOverdue) * dailyFee * FineMultiplier
	return s.record(ctx, b, model.TypeFine, amount, fmt.Sprintf("Overdue fine - %s", bookTitle))
}

// record opens a checkout session and stores the pending payment. At most
// one payment of each type exists per borrowing: a repeat call while one is
// pending (or already paid) hands back that row instead of opening another
// session. Only a FAILED or EXPIRED session gets replaced.
func (s *service) record(ctx context.Context, b *model.Borrowing, typ model.PaymentType, amount float64, desc string) (*model.Payment, error) {
	existing, err := s.r.ByBorrowing(ctx, b.ID, typ)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil && existing.Status != model.PaymentFailed && existing.Status != model.PaymentExpired {
		return existing, nil
	}

	sess, err := s.gateway.CreateSession(ctx, striperepo.CreateSessionReq{
		Amount:      amount,
		Description: desc,
		SuccessURL:  s.baseURL + "/v1/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.baseURL + "/v1/payments/cancel",
	})
	if err != nil {
		s.log.Error("checkout session failed", "borrowing_id", b.ID, "type", typ, "err", err)
		return nil, makeErr(ErrGateway)
	}

	p := &model.Payment{
		UserID:      b.UserID,
		BorrowingID: b.ID,
		Status:      model.PaymentPending,
		Type:        typ,
		Amount:      amount,
		SessionURL:  sess.SessionURL,
		SessionID:   sess.SessionID,
	}
	if err := s.r.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) HandleSuccess(ctx context.Context, sessionID string) (*model.Payment, bool, error) {
	st, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, false, makeErr(ErrGateway)
	}
	if !st.Paid {
		return nil, false, nil
	}

	p, err := s.r.BySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, makeErr(ErrNotFound)
		}
		return nil, false, err
	}
	if ok, err := s.r.MarkStatus(ctx, p.ID, model.PaymentPaid); err != nil {
		return nil, false, err
	} else if ok {
		p.Status = model.PaymentPaid
		s.notify(ctx, fmt.Sprintf("Payment for Borrowing ID %d has been successfully processed.", p.BorrowingID))
	}
	return p, true, nil
}

func (s *service) HandleCancel(ctx context.Context) {
	s.notify(ctx, "Payment was canceled. Please try again later.")
}

func (s *service) notify(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		s.log.Warn("notification failed", "err", err)
	}
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
