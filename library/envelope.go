package library

import (
	"fmt"
	"strings"
)

// Snapshot is the whole persisted state: three counters and three ordered
// collections.
type Snapshot struct {
	NextBookID int
	NextUserID int
	NextLoanID int
	Books      []Book
	Users      []User
	Loans      []LoanRecord
}

func encodeAll[T any](items []T, encode func(T) string) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = encode(v)
	}
	return out
}

// EncodeSnapshot renders the data file document.
func EncodeSnapshot(s Snapshot) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  \"nextBookId\": %d,\n", s.NextBookID)
	fmt.Fprintf(&sb, "  \"nextUserId\": %d,\n", s.NextUserID)
	fmt.Fprintf(&sb, "  \"nextIssuedId\": %d,\n", s.NextLoanID)
	fmt.Fprintf(&sb, "  \"books\": %s,\n", encodeArray(encodeAll(s.Books, EncodeBook), 4))
	fmt.Fprintf(&sb, "  \"users\": %s,\n", encodeArray(encodeAll(s.Users, EncodeUser), 4))
	fmt.Fprintf(&sb, "  \"issued\": %s\n", encodeArray(encodeAll(s.Loans, EncodeLoan), 4))
	sb.WriteString("}\n")
	return sb.String()
}

// DecodeSnapshot parses a data file document. Records that cannot be decoded
// are dropped and reported; the counters are repaired so that each is above
// the highest ID loaded.
func DecodeSnapshot(doc string) (Snapshot, []error) {
	s := Snapshot{
		NextBookID: extractInt(doc, "nextBookId", 1),
		NextUserID: extractInt(doc, "nextUserId", 1),
		NextLoanID: extractInt(doc, "nextIssuedId", 1),
	}
	var dropped, errs []error
	s.Books, errs = decodeArray(doc, "books", DecodeBook)
	dropped = append(dropped, errs...)
	s.Users, errs = decodeArray(doc, "users", DecodeUser)
	dropped = append(dropped, errs...)
	s.Loans, errs = decodeArray(doc, "issued", DecodeLoan)
	dropped = append(dropped, errs...)
	s.repairCounters()
	return s, dropped
}

// repairCounters raises each counter to at least one past the largest ID held.
func (s *Snapshot) repairCounters() {
	s.NextBookID = max(s.NextBookID, 1)
	s.NextUserID = max(s.NextUserID, 1)
	s.NextLoanID = max(s.NextLoanID, 1)
	for _, b := range s.Books {
		s.NextBookID = max(s.NextBookID, b.ID+1)
	}
	for _, u := range s.Users {
		s.NextUserID = max(s.NextUserID, u.ID+1)
	}
	for _, r := range s.Loans {
		s.NextLoanID = max(s.NextLoanID, r.ID+1)
	}
}
