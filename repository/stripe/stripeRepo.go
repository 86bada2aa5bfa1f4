package striperepo

import "context"

type CreateSessionReq struct {
	Amount      float64
	Description string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	SessionID  string
	SessionURL string
}

type SessionStatus struct {
	SessionID string
	Paid      bool
}

type Repo interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}
