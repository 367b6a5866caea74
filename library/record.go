package library

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// missing is returned by field extraction when a required integer is absent
// or unparsable.
const missing = -1

// ErrMissingID is returned when an object has no usable "id" field.
var ErrMissingID = errors.New("record has no id")

// FieldError describes a field whose value is present but malformed.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: bad value %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// quotedBody matches the inside of a quoted string, allowing escaped characters.
const quotedBody = `((?:[^"\\]|\\.)*)`

// fieldPatterns caches the compiled extraction pattern per field name and kind.
type fieldPatterns struct {
	ints, strs, opts map[string]*regexp.Regexp
}

var patterns = newFieldPatterns(
	[]string{"id", "availableCopies", "totalCopies", "bookId", "userId", "nextBookId", "nextUserId", "nextIssuedId"},
	[]string{"title", "author", "name", "issueDate", "dueDate"},
	[]string{"email", "returnDate"},
)

func newFieldPatterns(ints, strs, opts []string) fieldPatterns {
	p := fieldPatterns{
		ints: make(map[string]*regexp.Regexp, len(ints)),
		strs: make(map[string]*regexp.Regexp, len(strs)),
		opts: make(map[string]*regexp.Regexp, len(opts)),
	}
	for _, f := range ints {
		p.ints[f] = regexp.MustCompile(`(?s)"` + f + `"\s*:\s*(\d+)`)
	}
	for _, f := range strs {
		p.strs[f] = regexp.MustCompile(`(?s)"` + f + `"\s*:\s*"` + quotedBody + `"`)
	}
	for _, f := range opts {
		p.opts[f] = regexp.MustCompile(`(?s)"` + f + `"\s*:\s*(null|"` + quotedBody + `")`)
	}
	return p
}

// extractInt returns the first integer value of field, or fallback.
func extractInt(text, field string, fallback int) int {
	m := patterns.ints[field].FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	// Stored IDs and counters are 32-bit; anything wider is treated as absent.
	n, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return fallback
	}
	return int(n)
}

// extractString returns the unescaped value of a string field, or "".
func extractString(text, field string) string {
	m := patterns.strs[field].FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return Unescape(m[1])
}

// extractOptional returns nil for a null or absent field; the two are not
// distinguished.
func extractOptional(text, field string) *string {
	m := patterns.opts[field].FindStringSubmatch(text)
	if m == nil || m[1] == "null" {
		return nil
	}
	s := Unescape(m[2])
	return &s
}

func extractDate(text, field string) (time.Time, error) {
	raw := extractString(text, field)
	d, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Value: raw, Err: err}
	}
	return d, nil
}

func extractOptionalDate(text, field string) (*time.Time, error) {
	raw := extractOptional(text, field)
	if raw == nil {
		return nil, nil
	}
	d, err := ParseDate(*raw)
	if err != nil {
		return nil, &FieldError{Field: field, Value: *raw, Err: err}
	}
	return &d, nil
}

// objectWriter emits one `"field": value` line per call, comma-separated.
type objectWriter struct {
	sb     strings.Builder
	fields int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.sb.WriteString("{\n")
	return w
}

func (w *objectWriter) raw(field, value string) {
	if w.fields > 0 {
		w.sb.WriteString(",\n")
	}
	w.fields++
	fmt.Fprintf(&w.sb, "  %q: %s", field, value)
}

func (w *objectWriter) int(field string, v int) { w.raw(field, strconv.Itoa(v)) }

func (w *objectWriter) str(field, v string) { w.raw(field, `"`+Escape(v)+`"`) }

func (w *objectWriter) optional(field string, v *string) {
	if v == nil {
		w.raw(field, "null")
		return
	}
	w.str(field, *v)
}

func (w *objectWriter) date(field string, d time.Time) { w.str(field, d.Format(DateLayout)) }

func (w *objectWriter) optionalDate(field string, d *time.Time) {
	if d == nil {
		w.raw(field, "null")
		return
	}
	w.date(field, *d)
}

func (w *objectWriter) String() string {
	return w.sb.String() + "\n}"
}

// EncodeBook renders a book as a multi-line object without a trailing newline.
func EncodeBook(b Book) string {
	w := newObjectWriter()
	w.int("id", b.ID)
	w.str("title", b.Title)
	w.str("author", b.Author)
	w.int("availableCopies", b.AvailableCopies)
	w.int("totalCopies", b.TotalCopies)
	return w.String()
}

// EncodeUser renders a user; a nil email is written as null.
func EncodeUser(u User) string {
	w := newObjectWriter()
	w.int("id", u.ID)
	w.str("name", u.Name)
	w.optional("email", u.Email)
	return w.String()
}

// EncodeLoan renders a loan record; an outstanding loan has a null returnDate.
func EncodeLoan(r LoanRecord) string {
	w := newObjectWriter()
	w.int("id", r.ID)
	w.int("bookId", r.BookID)
	w.int("userId", r.UserID)
	w.date("issueDate", r.IssueDate)
	w.date("dueDate", r.DueDate)
	w.optionalDate("returnDate", r.ReturnDate)
	return w.String()
}

// DecodeBook parses one book object. Missing copy counts are clamped to zero.
func DecodeBook(text string) (Book, error) {
	id := extractInt(text, "id", missing)
	if id == missing {
		return Book{}, ErrMissingID
	}
	b := Book{
		ID:              id,
		Title:           extractString(text, "title"),
		Author:          extractString(text, "author"),
		AvailableCopies: extractInt(text, "availableCopies", missing),
		TotalCopies:     extractInt(text, "totalCopies", missing),
	}
	b.normalize()
	return b, nil
}

// DecodeUser parses one user object.
func DecodeUser(text string) (User, error) {
	id := extractInt(text, "id", missing)
	if id == missing {
		return User{}, ErrMissingID
	}
	return User{
		ID:    id,
		Name:  extractString(text, "name"),
		Email: extractOptional(text, "email"),
	}, nil
}

// DecodeLoan parses one loan object. Unknown book or user IDs are kept as-is.
func DecodeLoan(text string) (LoanRecord, error) {
	id := extractInt(text, "id", missing)
	if id == missing {
		return LoanRecord{}, ErrMissingID
	}
	issue, err := extractDate(text, "issueDate")
	if err != nil {
		return LoanRecord{}, err
	}
	due, err := extractDate(text, "dueDate")
	if err != nil {
		return LoanRecord{}, err
	}
	returned, err := extractOptionalDate(text, "returnDate")
	if err != nil {
		return LoanRecord{}, err
	}
	return LoanRecord{
		ID:         id,
		BookID:     extractInt(text, "bookId", missing),
		UserID:     extractInt(text, "userId", missing),
		IssueDate:  issue,
		DueDate:    due,
		ReturnDate: returned,
	}, nil
}
