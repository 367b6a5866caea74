package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Errors returned by circulation operations. A failed operation leaves the
// store unchanged.
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrLoanNotFound      = errors.New("loan record not found")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrAlreadyReturned   = errors.New("loan already returned")
)

// Library owns the books, users and loan records and the counters that
// assign their IDs. It is not safe for concurrent use.
type Library struct {
	books []Book
	users []User
	loans []LoanRecord

	nextBookID int
	nextUserID int
	nextLoanID int

	lastIssueDue *time.Time

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithClock sets the source of "today" for issue, return and overdue checks.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// New returns an empty library with every counter at 1.
func New(opts ...Option) *Library {
	l := &Library{
		nextBookID: 1,
		nextUserID: 1,
		nextLoanID: 1,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromSnapshot builds a library from s. Counters are repaired against the
// records in s before use.
func FromSnapshot(s Snapshot, opts ...Option) *Library {
	s.repairCounters()
	l := New(opts...)
	l.books = slices.Clone(s.Books)
	l.users = cloneAll(s.Users, User.clone)
	l.loans = cloneAll(s.Loans, LoanRecord.clone)
	l.nextBookID = s.NextBookID
	l.nextUserID = s.NextUserID
	l.nextLoanID = s.NextLoanID
	return l
}

// Snapshot returns a copy of the full state.
func (l *Library) Snapshot() Snapshot {
	return Snapshot{
		NextBookID: l.nextBookID,
		NextUserID: l.nextUserID,
		NextLoanID: l.nextLoanID,
		Books:      l.Books(),
		Users:      l.Users(),
		Loans:      l.Loans(),
	}
}

// Load reads the data file at path. A missing file yields an empty library
// and no error. If the file cannot be read the empty library is returned
// together with the error.
func Load(path string, opts ...Option) (*Library, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		l := New(opts...)
		l.logger.Debug("data file not found, starting empty", zap.String("path", path))
		return l, nil
	}
	if err != nil {
		return New(opts...), fmt.Errorf("read data file: %w", err)
	}

	s, dropped := DecodeSnapshot(string(data))
	l := FromSnapshot(s, opts...)
	for _, e := range dropped {
		l.logger.Warn("dropped unreadable record", zap.String("path", path), zap.Error(e))
	}
	l.logger.Debug("loaded data file",
		zap.String("path", path),
		zap.Int("books", len(l.books)),
		zap.Int("users", len(l.users)),
		zap.Int("loans", len(l.loans)))
	return l, nil
}

// Save overwrites the data file at path with the whole document. The write
// goes to a temporary file in the same directory which then replaces path.
func (l *Library) Save(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.WriteString(EncodeSnapshot(l.Snapshot())); err != nil {
		tmp.Close()
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	l.logger.Debug("saved data file", zap.String("path", path))
	return nil
}

func (l *Library) today() time.Time { return civilDate(l.now()) }

// ------------------ Books and users ------------------

// AddBook registers a title with copies available and total copies.
// Negative counts are treated as zero.
func (l *Library) AddBook(title, author string, copies int) Book {
	b := Book{ID: l.nextBookID, Title: title, Author: author, AvailableCopies: copies, TotalCopies: copies}
	b.normalize()
	l.nextBookID++
	l.books = append(l.books, b)
	return b
}

// AddUser registers a borrower. Pass a nil email when none was given.
func (l *Library) AddUser(name string, email *string) User {
	u := User{ID: l.nextUserID, Name: name}
	if email != nil {
		e := *email
		u.Email = &e
	}
	l.nextUserID++
	l.users = append(l.users, u)
	return u.clone()
}

func (l *Library) bookIndex(id int) int {
	return slices.IndexFunc(l.books, func(b Book) bool { return b.ID == id })
}

func (l *Library) userIndex(id int) int {
	return slices.IndexFunc(l.users, func(u User) bool { return u.ID == id })
}

func (l *Library) loanIndex(id int) int {
	return slices.IndexFunc(l.loans, func(r LoanRecord) bool { return r.ID == id })
}

// Book looks up a book by ID.
func (l *Library) Book(id int) (Book, bool) {
	if i := l.bookIndex(id); i >= 0 {
		return l.books[i], true
	}
	return Book{}, false
}

// User looks up a user by ID.
func (l *Library) User(id int) (User, bool) {
	if i := l.userIndex(id); i >= 0 {
		return l.users[i].clone(), true
	}
	return User{}, false
}

// Loan looks up a loan record by ID.
func (l *Library) Loan(id int) (LoanRecord, bool) {
	if i := l.loanIndex(id); i >= 0 {
		return l.loans[i].clone(), true
	}
	return LoanRecord{}, false
}

// Books returns the books in insertion order.
func (l *Library) Books() []Book { return slices.Clone(l.books) }

// Users returns the users in insertion order.
func (l *Library) Users() []User { return cloneAll(l.users, User.clone) }

// Loans returns the loan records in insertion order.
func (l *Library) Loans() []LoanRecord { return cloneAll(l.loans, LoanRecord.clone) }

// cloneAll deep-copies records so callers never hold pointers into the store.
func cloneAll[T any](items []T, clone func(T) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, v := range items {
		out[i] = clone(v)
	}
	return out
}

// SearchByTitle returns the books whose title contains kw, ignoring case.
func (l *Library) SearchByTitle(kw string) []Book {
	k := strings.ToLower(kw)
	var out []Book
	for _, b := range l.books {
		if strings.Contains(strings.ToLower(b.Title), k) {
			out = append(out, b)
		}
	}
	return out
}

// ------------------ Circulation ------------------

// IssueBook lends one copy of a book to a user for days days, due on
// today + days.
func (l *Library) IssueBook(bookID, userID, days int) (LoanRecord, error) {
	bi := l.bookIndex(bookID)
	if bi < 0 {
		return LoanRecord{}, fmt.Errorf("issue book %d: %w", bookID, ErrBookNotFound)
	}
	if l.userIndex(userID) < 0 {
		return LoanRecord{}, fmt.Errorf("issue book %d: user %d: %w", bookID, userID, ErrUserNotFound)
	}
	if l.books[bi].AvailableCopies <= 0 {
		return LoanRecord{}, fmt.Errorf("issue book %d: %w", bookID, ErrNoCopiesAvailable)
	}

	l.books[bi].decrementAvailable()
	issued := l.today()
	due := issued.AddDate(0, 0, days)
	r := LoanRecord{
		ID:        l.nextLoanID,
		BookID:    bookID,
		UserID:    userID,
		IssueDate: issued,
		DueDate:   due,
	}
	l.nextLoanID++
	l.loans = append(l.loans, r)
	l.lastIssueDue = &due
	return r, nil
}

// LastIssueDue returns the due date computed by the most recent successful
// IssueBook.
func (l *Library) LastIssueDue() (time.Time, bool) {
	if l.lastIssueDue == nil {
		return time.Time{}, false
	}
	return *l.lastIssueDue, true
}

// ReturnBook closes a loan and puts the copy back. A loan can be returned
// only once.
func (l *Library) ReturnBook(loanID int) (LoanRecord, error) {
	i := l.loanIndex(loanID)
	if i < 0 {
		return LoanRecord{}, fmt.Errorf("return loan %d: %w", loanID, ErrLoanNotFound)
	}
	if !l.loans[i].Outstanding() {
		return LoanRecord{}, fmt.Errorf("return loan %d: %w", loanID, ErrAlreadyReturned)
	}

	returned := l.today()
	l.loans[i].ReturnDate = &returned
	if bi := l.bookIndex(l.loans[i].BookID); bi >= 0 {
		l.books[bi].incrementAvailable()
	}
	return l.loans[i].clone(), nil
}

// Overdue returns the outstanding loans whose due date is before today.
func (l *Library) Overdue() []LoanRecord {
	today := l.today()
	var out []LoanRecord
	for _, r := range l.loans {
		if r.OverdueAt(today) {
			out = append(out, r)
		}
	}
	return out
}
