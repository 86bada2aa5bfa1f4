package borrowing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	brepo "github.com/Koliesnichenko/library-service/repository/borrowing"
)

// ReminderRepo is the slice of the borrowing repository the worker needs.
type ReminderRepo interface {
	ListActive(ctx context.Context) ([]brepo.ActiveRow, error)
	ListReturnedOverdueWithoutFine(ctx context.Context) ([]brepo.OverdueRow, error)
}

// Reminder periodically notifies holders of due and overdue books, and
// records any fine the return path failed to record.
type Reminder struct {
	r        ReminderRepo
	charger  Charger
	notifier Notifier
	log      *slog.Logger
	interval time.Duration
}

func NewReminder(r ReminderRepo, charger Charger, notifier Notifier, log *slog.Logger) *Reminder {
	return &Reminder{r: r, charger: charger, notifier: notifier, log: log, interval: 24 * time.Hour}
}

func (w *Reminder) Start(ctx context.Context) {
	go func() {
		w.Check(ctx)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Check(ctx)
			}
		}
	}()
}

func (w *Reminder) Check(ctx context.Context) {
	w.log.Info("reminder: checking borrowings")
	now := time.Now().UTC()

	rows, err := w.r.ListActive(ctx)
	if err != nil {
		w.log.Error("reminder: list active failed", "err", err)
		return
	}
	for _, row := range rows {
		due := row.Borrowing.ExpectedReturnDate
		if daysLate := daysBetween(due, now); daysLate > 0 {
			w.send(ctx, fmt.Sprintf(
				"<b>Overdue</b>\nUser: %s\nBook: '%s' is %d day(s) late. Please return it.",
				row.UserEmail, row.BookTitle, daysLate,
			))
		} else if until := due.Sub(now); until > 0 && until < 24*time.Hour {
			w.send(ctx, fmt.Sprintf(
				"<b>Reminder</b>\nUser: %s\nBook: '%s' is due back on %s.",
				row.UserEmail, row.BookTitle, due.Format(time.DateOnly),
			))
		}
	}

	// Reconciliation: returns whose fine recording failed at return time.
	missing, err := w.r.ListReturnedOverdueWithoutFine(ctx)
	if err != nil {
		w.log.Error("reminder: list missing fines failed", "err", err)
		return
	}
	for _, row := range missing {
		daysOverdue := daysBetween(row.Borrowing.ExpectedReturnDate, *row.Borrowing.ActualReturnDate)
		if daysOverdue < 1 {
			continue
		}
		if _, err := w.charger.RecordFine(ctx, &row.Borrowing, row.BookTitle, row.DailyFee, daysOverdue); err != nil {
			w.log.Error("reminder: fine reconciliation failed", "borrowing_id", row.Borrowing.ID, "err", err)
			continue
		}
		w.log.Info("reminder: recorded missing fine", "borrowing_id", row.Borrowing.ID, "days_overdue", daysOverdue)
	}
}

func (w *Reminder) send(ctx context.Context, text string) {
	if err := w.notifier.Send(ctx, text); err != nil {
		w.log.Warn("reminder: notification failed", "err", err)
	}
}
