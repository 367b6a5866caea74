package library

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T { return &v }

func TestEncodeBookLayout(t *testing.T) {
	got := EncodeBook(Book{ID: 3, Title: `The "Big" Book`, Author: "Anon", AvailableCopies: 1, TotalCopies: 2})
	want := "{\n" +
		"  \"id\": 3,\n" +
		"  \"title\": \"The \\\"Big\\\" Book\",\n" +
		"  \"author\": \"Anon\",\n" +
		"  \"availableCopies\": 1,\n" +
		"  \"totalCopies\": 2\n" +
		"}"
	assert.Equal(t, want, got)
}

func TestEncodeUserNullEmail(t *testing.T) {
	got := EncodeUser(User{ID: 1, Name: "Ann"})
	assert.Equal(t, "{\n  \"id\": 1,\n  \"name\": \"Ann\",\n  \"email\": null\n}", got)
}

func TestEncodeLoanLayout(t *testing.T) {
	r := LoanRecord{
		ID: 7, BookID: 1, UserID: 2,
		IssueDate: date(t, "2024-01-01"),
		DueDate:   date(t, "2024-01-15"),
	}
	want := "{\n" +
		"  \"id\": 7,\n" +
		"  \"bookId\": 1,\n" +
		"  \"userId\": 2,\n" +
		"  \"issueDate\": \"2024-01-01\",\n" +
		"  \"dueDate\": \"2024-01-15\",\n" +
		"  \"returnDate\": null\n" +
		"}"
	assert.Equal(t, want, EncodeLoan(r))
}

func TestRecordRoundTrip(t *testing.T) {
	t.Run("books", func(t *testing.T) {
		for _, b := range []Book{
			{ID: 1, Title: "Dune", Author: "Herbert", AvailableCopies: 2, TotalCopies: 2},
			{ID: 40, Title: "a \"b\" \\ c\nd", Author: "", AvailableCopies: 0, TotalCopies: 5},
			{ID: 2, Title: "Brackets ] } { [", Author: `x\ny`},
		} {
			got, err := DecodeBook(EncodeBook(b))
			require.NoError(t, err)
			if diff := cmp.Diff(b, got); diff != "" {
				t.Errorf("book mismatch (-want +got):\n%s", diff)
			}
		}
	})

	t.Run("users", func(t *testing.T) {
		for _, u := range []User{
			{ID: 1, Name: "Ann", Email: ptr("ann@example.com")},
			{ID: 2, Name: "Bob"},
			{ID: 3, Name: "", Email: ptr("")},
			{ID: 4, Name: `Quote "Q"`, Email: ptr(`odd"mail\`)},
		} {
			got, err := DecodeUser(EncodeUser(u))
			require.NoError(t, err)
			if diff := cmp.Diff(u, got); diff != "" {
				t.Errorf("user mismatch (-want +got):\n%s", diff)
			}
		}
	})

	t.Run("loans", func(t *testing.T) {
		for _, r := range []LoanRecord{
			{ID: 1, BookID: 1, UserID: 1, IssueDate: date(t, "2024-02-28"), DueDate: date(t, "2024-03-13")},
			{ID: 9, BookID: 99, UserID: 98, IssueDate: date(t, "2023-12-31"), DueDate: date(t, "2024-01-14"),
				ReturnDate: ptr(date(t, "2024-01-02"))},
		} {
			got, err := DecodeLoan(EncodeLoan(r))
			require.NoError(t, err)
			if diff := cmp.Diff(r, got); diff != "" {
				t.Errorf("loan mismatch (-want +got):\n%s", diff)
			}
		}
	})
}

func TestDecodeIgnoresFieldOrder(t *testing.T) {
	b, err := DecodeBook(`{"totalCopies": 4, "author": "Le Guin", "availableCopies": 3, "title": "Earthsea", "id": 12}`)
	require.NoError(t, err)
	assert.Equal(t, Book{ID: 12, Title: "Earthsea", Author: "Le Guin", AvailableCopies: 3, TotalCopies: 4}, b)
}

func TestDecodeMissingID(t *testing.T) {
	_, err := DecodeBook(`{"title": "No id", "totalCopies": 1}`)
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = DecodeUser(`{"id": "seven", "name": "x"}`)
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = DecodeLoan(`{"bookId": 1, "userId": 1, "issueDate": "2024-01-01", "dueDate": "2024-01-02"}`)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestDecodeBookDefaults(t *testing.T) {
	b, err := DecodeBook(`{"id": 5}`)
	require.NoError(t, err)
	assert.Equal(t, Book{ID: 5}, b)

	b, err = DecodeBook(`{"id": 6, "availableCopies": 9, "totalCopies": 2}`)
	require.NoError(t, err)
	assert.Equal(t, 2, b.AvailableCopies, "available is clamped to total")
}

func TestDecodeUserNullAndAbsentEmail(t *testing.T) {
	for _, text := range []string{
		`{"id": 1, "name": "A", "email": null}`,
		`{"id": 1, "name": "A"}`,
	} {
		u, err := DecodeUser(text)
		require.NoError(t, err)
		assert.Nil(t, u.Email, text)
	}
}

func TestDecodeLoanMalformedDate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"bad issue date", `{"id": 1, "issueDate": "2024-13-01", "dueDate": "2024-01-02", "returnDate": null}`, "issueDate"},
		{"missing due date", `{"id": 1, "issueDate": "2024-01-01", "returnDate": null}`, "dueDate"},
		{"bad return date", `{"id": 1, "issueDate": "2024-01-01", "dueDate": "2024-01-02", "returnDate": "yesterday"}`, "returnDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLoan(tt.text)
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestDecodeLoanKeepsUnknownReferences(t *testing.T) {
	r, err := DecodeLoan(`{"id": 3, "issueDate": "2024-01-01", "dueDate": "2024-01-08", "returnDate": null}`)
	require.NoError(t, err)
	assert.Equal(t, -1, r.BookID)
	assert.Equal(t, -1, r.UserID)
	assert.True(t, r.Outstanding())
}
