package booksvc

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Koliesnichenko/library-service/model"
)

var (
	ErrBadInput = errors.New("bad input")
	ErrNotFound = errors.New("book not found")
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) (int64, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Book, error)
	ByID(ctx context.Context, id int64) (*model.Book, error)
}

type Service interface {
	Create(ctx context.Context, b model.Book) (int64, error)
	Update(ctx context.Context, b model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func validate(b model.Book) error {
	if b.Title == "" || b.Author == "" {
		return ErrBadInput
	}
	if b.Cover != model.CoverHard && b.Cover != model.CoverSoft {
		return ErrBadInput
	}
	if b.Inventory < 0 {
		return ErrBadInput
	}
	if b.DailyFee < 0.01 {
		return ErrBadInput
	}
	return nil
}

func (s *service) Create(ctx context.Context, b model.Book) (int64, error) {
	if err := validate(b); err != nil {
		return 0, err
	}
	return s.r.Create(ctx, &b)
}

func (s *service) Update(ctx context.Context, b model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	if err := s.r.Update(ctx, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.r.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]model.Book, error) { return s.r.List(ctx) }

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}
