package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Koliesnichenko/library-service/model"
	striperepo "github.com/Koliesnichenko/library-service/repository/stripe"
)

// --- mocks ---

type repoMock struct {
	insertFn      func(ctx context.Context, p *model.Payment) error
	byIDFn        func(ctx context.Context, id int64) (*model.Payment, error)
	bySessionFn   func(ctx context.Context, sessionID string) (*model.Payment, error)
	byBorrowingFn func(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error)
	markStatusFn  func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
	listByUserFn  func(ctx context.Context, userID int64) ([]model.Payment, error)
	listAllFn     func(ctx context.Context) ([]model.Payment, error)

	inserted []*model.Payment
}

func (m *repoMock) Insert(ctx context.Context, p *model.Payment) error {
	m.inserted = append(m.inserted, p)
	if m.insertFn == nil {
		p.ID = int64(len(m.inserted))
		return nil
	}
	return m.insertFn(ctx, p)
}
func (m *repoMock) ByID(ctx context.Context, id int64) (*model.Payment, error) {
	return m.byIDFn(ctx, id)
}
func (m *repoMock) BySessionID(ctx context.Context, sessionID string) (*model.Payment, error) {
	return m.bySessionFn(ctx, sessionID)
}
func (m *repoMock) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return m.listByUserFn(ctx, userID)
}
func (m *repoMock) ListAll(ctx context.Context) ([]model.Payment, error) {
	return m.listAllFn(ctx)
}
func (m *repoMock) ByBorrowing(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error) {
	if m.byBorrowingFn == nil {
		return nil, sql.ErrNoRows
	}
	return m.byBorrowingFn(ctx, borrowingID, typ)
}
func (m *repoMock) MarkStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	if m.markStatusFn == nil {
		return true, nil
	}
	return m.markStatusFn(ctx, id, status)
}

type borrowingsMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.Borrowing, error)
}

func (m *borrowingsMock) ByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	return m.byIDFn(ctx, id)
}

type booksMock struct {
	byIDFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *booksMock) ByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.byIDFn(ctx, id)
}

type gatewayMock struct {
	createFn   func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error)
	retrieveFn func(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error)

	created []striperepo.CreateSessionReq
}

func (m *gatewayMock) CreateSession(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
	m.created = append(m.created, req)
	if m.createFn == nil {
		return &striperepo.Session{SessionID: "cs_test_1", SessionURL: "https://checkout.example/cs_test_1"}, nil
	}
	return m.createFn(ctx, req)
}
func (m *gatewayMock) RetrieveSession(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error) {
	return m.retrieveFn(ctx, sessionID)
}

type notifierMock struct{ sent []string }

func (m *notifierMock) Send(ctx context.Context, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func newSvc(r *repoMock, br *borrowingsMock, bk *booksMock, gw *gatewayMock, n *notifierMock) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(r, br, bk, gw, n, "http://127.0.0.1:8080", log)
}

func day(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// --- fines ---

func TestRecordFine_Amount(t *testing.T) {
	r := &repoMock{}
	gw := &gatewayMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	bw := &model.Borrowing{ID: 7, UserID: 5}
	p, err := svc.RecordFine(context.Background(), bw, "Kobzar", 2.00, 5)
	require.NoError(t, err)
	require.NotNil(t, p)

	// 5 days overdue x 2.00 daily fee x 2 multiplier
	require.Equal(t, 20.00, p.Amount)
	require.Equal(t, model.TypeFine, p.Type)
	require.Equal(t, model.PaymentPending, p.Status)
	require.Equal(t, "cs_test_1", p.SessionID)
	require.Equal(t, "https://checkout.example/cs_test_1", p.SessionURL)
	require.Len(t, gw.created, 1)
	require.Equal(t, 20.00, gw.created[0].Amount)
	require.Len(t, r.inserted, 1)
}

func TestRecordFine_AtMostOnePerBorrowing(t *testing.T) {
	r := &repoMock{
		byBorrowingFn: func(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error) {
			require.Equal(t, model.TypeFine, typ)
			return &model.Payment{ID: 3, BorrowingID: borrowingID, Type: typ, Status: model.PaymentPending}, nil
		},
	}
	gw := &gatewayMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	p, err := svc.RecordFine(context.Background(), &model.Borrowing{ID: 7}, "Kobzar", 2.00, 5)
	require.NoError(t, err)
	require.Equal(t, int64(3), p.ID)
	require.Empty(t, gw.created, "existing fine must not open another session")
	require.Empty(t, r.inserted)
}

// --- rental fee ---

func TestRecordRentalFee_Amount(t *testing.T) {
	r := &repoMock{}
	gw := &gatewayMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	bw := &model.Borrowing{ID: 7, UserID: 5, BorrowDate: day(0), ExpectedReturnDate: day(7)}
	p, err := svc.RecordRentalFee(context.Background(), bw, "Kobzar", 1.50)
	require.NoError(t, err)
	require.Equal(t, 10.50, p.Amount)
	require.Equal(t, model.TypePayment, p.Type)
	require.Equal(t, model.PaymentPending, p.Status)
}

func TestRecordRentalFee_AtMostOnePerBorrowing(t *testing.T) {
	r := &repoMock{}
	r.byBorrowingFn = func(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error) {
		for _, p := range r.inserted {
			if p.BorrowingID == borrowingID && p.Type == typ {
				return p, nil
			}
		}
		return nil, sql.ErrNoRows
	}
	gw := &gatewayMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	bw := &model.Borrowing{ID: 7, UserID: 5, BorrowDate: day(0), ExpectedReturnDate: day(7)}
	first, err := svc.RecordRentalFee(context.Background(), bw, "Kobzar", 1.50)
	require.NoError(t, err)
	second, err := svc.RecordRentalFee(context.Background(), bw, "Kobzar", 1.50)
	require.NoError(t, err)

	require.Len(t, r.inserted, 1, "retry must not insert a second pending payment")
	require.Len(t, gw.created, 1, "retry must not open a second session")
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.SessionID, second.SessionID)
}

func TestRecordRentalFee_ExpiredSessionReplaced(t *testing.T) {
	r := &repoMock{
		byBorrowingFn: func(ctx context.Context, borrowingID int64, typ model.PaymentType) (*model.Payment, error) {
			return &model.Payment{ID: 3, BorrowingID: borrowingID, Type: typ, Status: model.PaymentExpired}, nil
		},
	}
	gw := &gatewayMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	bw := &model.Borrowing{ID: 7, UserID: 5, BorrowDate: day(0), ExpectedReturnDate: day(7)}
	p, err := svc.RecordRentalFee(context.Background(), bw, "Kobzar", 1.50)
	require.NoError(t, err)
	require.Len(t, gw.created, 1, "expired session gets replaced with a fresh one")
	require.Len(t, r.inserted, 1)
	require.Equal(t, model.PaymentPending, p.Status)
}

func TestRecordRentalFee_GatewayError(t *testing.T) {
	r := &repoMock{}
	gw := &gatewayMock{
		createFn: func(ctx context.Context, req striperepo.CreateSessionReq) (*striperepo.Session, error) {
			return nil, errors.New("503 from stripe")
		},
	}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	bw := &model.Borrowing{ID: 7, BorrowDate: day(0), ExpectedReturnDate: day(3)}
	_, err := svc.RecordRentalFee(context.Background(), bw, "Kobzar", 1.50)
	require.Equal(t, ErrGateway, Code(err))
	require.Empty(t, r.inserted, "no payment row without a session")
}

// --- success / cancel ---

func TestHandleSuccess_Paid(t *testing.T) {
	marked := false
	r := &repoMock{
		bySessionFn: func(ctx context.Context, sessionID string) (*model.Payment, error) {
			return &model.Payment{ID: 3, BorrowingID: 7, Status: model.PaymentPending}, nil
		},
		markStatusFn: func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
			marked = true
			require.Equal(t, model.PaymentPaid, status)
			return true, nil
		},
	}
	gw := &gatewayMock{
		retrieveFn: func(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error) {
			return &striperepo.SessionStatus{SessionID: sessionID, Paid: true}, nil
		},
	}
	n := &notifierMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, n)

	p, paid, err := svc.HandleSuccess(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.True(t, paid)
	require.True(t, marked)
	require.Equal(t, model.PaymentPaid, p.Status)
	require.Len(t, n.sent, 1)
}

func TestHandleSuccess_NotPaid(t *testing.T) {
	gw := &gatewayMock{
		retrieveFn: func(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error) {
			return &striperepo.SessionStatus{SessionID: sessionID, Paid: false}, nil
		},
	}
	svc := newSvc(&repoMock{}, &borrowingsMock{}, &booksMock{}, gw, &notifierMock{})

	p, paid, err := svc.HandleSuccess(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.False(t, paid)
	require.Nil(t, p)
}

func TestHandleSuccess_AlreadySettledIsIdempotent(t *testing.T) {
	r := &repoMock{
		bySessionFn: func(ctx context.Context, sessionID string) (*model.Payment, error) {
			return &model.Payment{ID: 3, BorrowingID: 7, Status: model.PaymentPaid}, nil
		},
		markStatusFn: func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
			return false, nil
		},
	}
	gw := &gatewayMock{
		retrieveFn: func(ctx context.Context, sessionID string) (*striperepo.SessionStatus, error) {
			return &striperepo.SessionStatus{SessionID: sessionID, Paid: true}, nil
		},
	}
	n := &notifierMock{}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, gw, n)

	_, paid, err := svc.HandleSuccess(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.True(t, paid)
	require.Empty(t, n.sent, "no duplicate notification on webhook retry")
}

// --- scoping ---

func TestGet_NonStaffCannotSeeOthers(t *testing.T) {
	r := &repoMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Payment, error) {
			return &model.Payment{ID: id, UserID: 99}, nil
		},
	}
	svc := newSvc(r, &borrowingsMock{}, &booksMock{}, &gatewayMock{}, &notifierMock{})

	_, err := svc.Get(context.Background(), 3, 5, false)
	require.Equal(t, ErrNotFound, Code(err))

	p, err := svc.Get(context.Background(), 3, 5, true)
	require.NoError(t, err)
	require.Equal(t, int64(99), p.UserID)
}

func TestCreateForBorrowing_NotOwner(t *testing.T) {
	br := &borrowingsMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: id, UserID: 99, BookID: 10, BorrowDate: day(0), ExpectedReturnDate: day(5)}, nil
		},
	}
	bk := &booksMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, Title: "Kobzar", DailyFee: 2}, nil
		},
	}
	svc := newSvc(&repoMock{}, br, bk, &gatewayMock{}, &notifierMock{})

	_, err := svc.CreateForBorrowing(context.Background(), 5, false, 7)
	require.Equal(t, ErrBorrowingNotFound, Code(err))

	p, err := svc.CreateForBorrowing(context.Background(), 5, true, 7)
	require.NoError(t, err)
	require.Equal(t, 10.00, p.Amount)
}

func TestCreateForBorrowing_Missing(t *testing.T) {
	br := &borrowingsMock{
		byIDFn: func(ctx context.Context, id int64) (*model.Borrowing, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := newSvc(&repoMock{}, br, &booksMock{}, &gatewayMock{}, &notifierMock{})

	_, err := svc.CreateForBorrowing(context.Background(), 5, false, 7)
	require.Equal(t, ErrBorrowingNotFound, Code(err))
}
