package library

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date form used for every date in the data file.
const DateLayout = "2006-01-02"

// Book is a title held by the library and its current availability.
type Book struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	AvailableCopies int    `json:"availableCopies"`
	TotalCopies     int    `json:"totalCopies"`
}

func (b Book) String() string {
	return fmt.Sprintf("ID:%d | %s by %s | Avail:%d/%d", b.ID, b.Title, b.Author, b.AvailableCopies, b.TotalCopies)
}

// decrementAvailable and incrementAvailable are no-ops at the boundary.
func (b *Book) decrementAvailable() {
	if b.AvailableCopies > 0 {
		b.AvailableCopies--
	}
}

func (b *Book) incrementAvailable() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
}

// normalize clamps copy counts so that 0 <= AvailableCopies <= TotalCopies.
func (b *Book) normalize() {
	if b.TotalCopies < 0 {
		b.TotalCopies = 0
	}
	if b.AvailableCopies < 0 {
		b.AvailableCopies = 0
	}
	if b.AvailableCopies > b.TotalCopies {
		b.AvailableCopies = b.TotalCopies
	}
}

// User is a registered borrower. A nil Email means no address was given.
type User struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

func (u User) String() string {
	email := ""
	if u.Email != nil {
		email = *u.Email
	}
	return fmt.Sprintf("UserID:%d | %s | %s", u.ID, u.Name, email)
}

// clone copies u without sharing Email.
func (u User) clone() User {
	if u.Email != nil {
		e := *u.Email
		u.Email = &e
	}
	return u
}

// LoanRecord is one issue of a book to a user. ReturnDate stays nil while
// the book is out.
type LoanRecord struct {
	ID         int
	BookID     int
	UserID     int
	IssueDate  time.Time
	DueDate    time.Time
	ReturnDate *time.Time
}

// Outstanding reports whether the book has not been returned yet.
func (r LoanRecord) Outstanding() bool { return r.ReturnDate == nil }

// OverdueAt reports whether the loan is still out and was due before today.
func (r LoanRecord) OverdueAt(today time.Time) bool {
	return r.Outstanding() && r.DueDate.Before(civilDate(today))
}

// clone copies r without sharing ReturnDate.
func (r LoanRecord) clone() LoanRecord {
	if r.ReturnDate != nil {
		d := *r.ReturnDate
		r.ReturnDate = &d
	}
	return r
}

func (r LoanRecord) String() string {
	returned := "-"
	if r.ReturnDate != nil {
		returned = r.ReturnDate.Format(DateLayout)
	}
	return fmt.Sprintf("IssuedID:%d | BookID:%d | UserID:%d | Issued:%s | Due:%s | Returned:%s",
		r.ID, r.BookID, r.UserID, r.IssueDate.Format(DateLayout), r.DueDate.Format(DateLayout), returned)
}

// civilDate drops the clock part of t, keeping its calendar date as UTC midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
