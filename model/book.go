// model/book.go
package model

type BookCover string

const (
	CoverHard BookCover = "HARD"
	CoverSoft BookCover = "SOFT"
)

type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Cover     BookCover `json:"cover"`
	Inventory int64     `json:"inventory"`
	DailyFee  float64   `json:"daily_fee"`
}
