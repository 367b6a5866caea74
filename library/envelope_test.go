package library

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshotEmpty(t *testing.T) {
	want := `{
  "nextBookId": 1,
  "nextUserId": 1,
  "nextIssuedId": 1,
  "books": [
  ],
  "users": [
  ],
  "issued": [
  ]
}
`
	assert.Equal(t, want, EncodeSnapshot(Snapshot{NextBookID: 1, NextUserID: 1, NextLoanID: 1}))
}

func TestEncodeSnapshotLayout(t *testing.T) {
	s := Snapshot{
		NextBookID: 2, NextUserID: 2, NextLoanID: 1,
		Books: []Book{{ID: 1, Title: "Dune", Author: "Herbert", AvailableCopies: 2, TotalCopies: 2}},
		Users: []User{{ID: 1, Name: "Ann"}},
	}
	want := `{
  "nextBookId": 2,
  "nextUserId": 2,
  "nextIssuedId": 1,
  "books": [
    {
      "id": 1,
      "title": "Dune",
      "author": "Herbert",
      "availableCopies": 2,
      "totalCopies": 2
    }
  ],
  "users": [
    {
      "id": 1,
      "name": "Ann",
      "email": null
    }
  ],
  "issued": [
  ]
}
`
	assert.Equal(t, want, EncodeSnapshot(s))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := Snapshot{
		NextBookID: 3, NextUserID: 3, NextLoanID: 3,
		Books: []Book{
			{ID: 1, Title: "Dune", Author: "Herbert", AvailableCopies: 1, TotalCopies: 2},
			{ID: 2, Title: `Odd "]}" title`, Author: "A\nB", AvailableCopies: 0, TotalCopies: 0},
		},
		Users: []User{
			{ID: 1, Name: "Ann", Email: ptr("ann@example.com")},
			{ID: 2, Name: "Bob"},
		},
		Loans: []LoanRecord{
			{ID: 1, BookID: 1, UserID: 1, IssueDate: date(t, "2024-01-01"), DueDate: date(t, "2024-01-15"),
				ReturnDate: ptr(date(t, "2024-01-10"))},
			{ID: 2, BookID: 1, UserID: 2, IssueDate: date(t, "2024-02-01"), DueDate: date(t, "2024-02-15")},
		},
	}
	got, dropped := DecodeSnapshot(EncodeSnapshot(s))
	require.Empty(t, dropped)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSnapshotRepairsCounters(t *testing.T) {
	doc := `{
  "nextBookId": 1,
  "nextUserId": 50,
  "books": [
    {"id": 40, "title": "Forty", "author": "", "availableCopies": 1, "totalCopies": 1}
  ],
  "users": [ {"id": 7, "name": "Seven", "email": null} ],
  "issued": [
    {"id": 12, "bookId": 40, "userId": 7, "issueDate": "2024-01-01", "dueDate": "2024-01-02", "returnDate": null}
  ]
}`
	s, dropped := DecodeSnapshot(doc)
	require.Empty(t, dropped)
	assert.GreaterOrEqual(t, s.NextBookID, 41)
	assert.Equal(t, 50, s.NextUserID, "a counter above the max id is kept")
	assert.Equal(t, 13, s.NextLoanID, "an absent counter defaults to 1 then is repaired")
}

func TestDecodeSnapshotOversizedIDs(t *testing.T) {
	doc := `{
  "nextBookId": 99999999999999999999,
  "books": [
    {"id": 9223372036854775807, "title": "Too big", "author": "", "availableCopies": 1, "totalCopies": 1},
    {"id": 2147483647, "title": "Largest", "author": "", "availableCopies": 1, "totalCopies": 1}
  ]
}`
	s, dropped := DecodeSnapshot(doc)
	require.Len(t, dropped, 1)
	assert.ErrorIs(t, dropped[0], ErrMissingID)
	require.Len(t, s.Books, 1)
	assert.Equal(t, "Largest", s.Books[0].Title)
	assert.Equal(t, 2147483648, s.NextBookID)

	lib := FromSnapshot(s)
	b := lib.AddBook("Next", "", 1)
	assert.Greater(t, b.ID, s.Books[0].ID)
}

func TestDecodeSnapshotEmptyAndGarbage(t *testing.T) {
	s, dropped := DecodeSnapshot("not a document at all")
	assert.Empty(t, dropped)
	assert.Equal(t, Snapshot{NextBookID: 1, NextUserID: 1, NextLoanID: 1}, s)
}

func TestDecodeSnapshotDropsBadLoanOnly(t *testing.T) {
	doc := EncodeSnapshot(Snapshot{
		NextBookID: 1, NextUserID: 1, NextLoanID: 1,
		Loans: []LoanRecord{
			{ID: 1, BookID: 1, UserID: 1, IssueDate: date(t, "2024-01-01"), DueDate: date(t, "2024-01-02")},
			{ID: 2, BookID: 1, UserID: 1, IssueDate: date(t, "2024-01-01"), DueDate: date(t, "2024-01-02")},
		},
	})
	doc = strings.Replace(doc, `"dueDate": "2024-01-02"`, `"dueDate": "someday"`, 1)

	s, dropped := DecodeSnapshot(doc)
	require.Len(t, dropped, 1)
	require.Len(t, s.Loans, 1)
	assert.Equal(t, 2, s.Loans[0].ID)
	assert.Equal(t, 3, s.NextLoanID)
}
