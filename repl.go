package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-ledger/library"

	"golang.org/x/term"
)

// session is one run of the interactive menu.
type session struct {
	sc          *bufio.Scanner
	out         io.Writer
	app         *app
	interactive bool
}

// isTerminal reports whether r is a terminal; prompts are shown only then.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runInteractive(in io.Reader, out io.Writer, a *app) error {
	s := &session{
		sc:          bufio.NewScanner(in),
		out:         out,
		app:         a,
		interactive: isTerminal(in),
	}

	fmt.Fprintln(out, "=== Library (JSON) ===")
	for {
		if s.interactive {
			s.printMenu()
		}
		if !s.sc.Scan() {
			// Input closed without "0": keep what was entered.
			a.save(out)
			return s.sc.Err()
		}
		switch strings.TrimSpace(s.sc.Text()) {
		case "1":
			s.handleAddBook()
		case "2":
			s.handleListBooks()
		case "3":
			s.handleSearchBook()
		case "4":
			s.handleRegisterUser()
		case "5":
			s.handleListUsers()
		case "6":
			s.handleIssueBook()
		case "7":
			s.handleReturnBook()
		case "8":
			s.handleListIssued()
		case "9":
			s.handleListOverdue()
		case "0":
			if a.save(out) {
				fmt.Fprintln(out, "Saved. Exiting.")
			}
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(out, "Invalid option.")
		}
		fmt.Fprintln(out)
	}
}

func (s *session) printMenu() {
	fmt.Fprintln(s.out, "Menu:")
	fmt.Fprintln(s.out, "1) Add book")
	fmt.Fprintln(s.out, "2) List books")
	fmt.Fprintln(s.out, "3) Search book (id/title)")
	fmt.Fprintln(s.out, "4) Register user")
	fmt.Fprintln(s.out, "5) List users")
	fmt.Fprintln(s.out, "6) Issue book")
	fmt.Fprintln(s.out, "7) Return book")
	fmt.Fprintln(s.out, "8) List issued records")
	fmt.Fprintln(s.out, "9) List overdue books")
	fmt.Fprintln(s.out, "0) Save & Exit")
	fmt.Fprint(s.out, "Choose: ")
}

func (s *session) prompt(p string) {
	if s.interactive {
		fmt.Fprint(s.out, p)
	}
}

// readLine returns the next trimmed line; false means input ended.
func (s *session) readLine(p string) (string, bool) {
	s.prompt(p)
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

// readInt re-prompts until it gets an integer >= atLeast or input ends.
func (s *session) readInt(p string, atLeast int) (int, bool) {
	return s.readIntOr(p, atLeast, nil)
}

// readIntOr is readInt where an empty line yields *def when def is set.
func (s *session) readIntOr(p string, atLeast int, def *int) (int, bool) {
	for {
		line, ok := s.readLine(p)
		if !ok {
			return 0, false
		}
		if line == "" && def != nil {
			return *def, true
		}
		v, err := strconv.Atoi(line)
		switch {
		case err != nil:
			fmt.Fprintln(s.out, "Invalid number.")
		case v < atLeast:
			fmt.Fprintf(s.out, "Enter >= %d\n", atLeast)
		default:
			return v, true
		}
	}
}

func (s *session) handleAddBook() {
	title, ok := s.readLine("Title: ")
	if !ok {
		return
	}
	author, ok := s.readLine("Author: ")
	if !ok {
		return
	}
	copies, ok := s.readInt("Copies: ", 1)
	if !ok {
		return
	}
	b := s.app.lib.AddBook(title, author, copies)
	fmt.Fprintf(s.out, "Added: %s\n", b)
	s.app.save(s.out)
}

func (s *session) handleListBooks() {
	books := s.app.lib.Books()
	if len(books) == 0 {
		fmt.Fprintln(s.out, "No books.")
		return
	}
	for _, b := range books {
		fmt.Fprintln(s.out, b)
	}
}

func (s *session) handleSearchBook() {
	opt, ok := s.readLine("Search by (1) id or (2) title? ")
	if !ok {
		return
	}
	if opt == "1" {
		id, ok := s.readInt("Book ID: ", 1)
		if !ok {
			return
		}
		if b, found := s.app.lib.Book(id); found {
			fmt.Fprintln(s.out, b)
		} else {
			fmt.Fprintln(s.out, "Not found.")
		}
		return
	}
	kw, ok := s.readLine("Keyword: ")
	if !ok {
		return
	}
	res := s.app.lib.SearchByTitle(kw)
	if len(res) == 0 {
		fmt.Fprintln(s.out, "No matches.")
		return
	}
	for _, b := range res {
		fmt.Fprintln(s.out, b)
	}
}

func (s *session) handleRegisterUser() {
	name, ok := s.readLine("Name: ")
	if !ok {
		return
	}
	email, ok := s.readLine("Email (optional): ")
	if !ok {
		return
	}
	u := s.app.lib.AddUser(name, optionalString(email))
	fmt.Fprintf(s.out, "Registered: %s\n", u)
	s.app.save(s.out)
}

func (s *session) handleListUsers() {
	users := s.app.lib.Users()
	if len(users) == 0 {
		fmt.Fprintln(s.out, "No users.")
		return
	}
	for _, u := range users {
		fmt.Fprintln(s.out, u)
	}
}

func (s *session) handleIssueBook() {
	bookID, ok := s.readInt("Book ID: ", 1)
	if !ok {
		return
	}
	userID, ok := s.readInt("User ID: ", 1)
	if !ok {
		return
	}
	days, ok := s.readIntOr(fmt.Sprintf("Loan days [%d]: ", s.app.cfg.LoanDays), 1, &s.app.cfg.LoanDays)
	if !ok {
		return
	}
	if _, err := s.app.lib.IssueBook(bookID, userID, days); err != nil {
		fmt.Fprintf(s.out, "Failed to issue: %v\n", err)
		return
	}
	due, _ := s.app.lib.LastIssueDue()
	fmt.Fprintf(s.out, "Issued. Due: %s\n", due.Format(library.DateLayout))
	s.app.save(s.out)
}

func (s *session) handleReturnBook() {
	loanID, ok := s.readInt("Issued record ID: ", 1)
	if !ok {
		return
	}
	if _, err := s.app.lib.ReturnBook(loanID); err != nil {
		fmt.Fprintf(s.out, "Return failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Returned.")
	s.app.save(s.out)
}

func (s *session) handleListIssued() {
	loans := s.app.lib.Loans()
	if len(loans) == 0 {
		fmt.Fprintln(s.out, "No issued records.")
		return
	}
	for _, r := range loans {
		fmt.Fprintln(s.out, r)
	}
}

func (s *session) handleListOverdue() {
	overdue := s.app.lib.Overdue()
	if len(overdue) == 0 {
		fmt.Fprintln(s.out, "No overdue books.")
		return
	}
	for _, r := range overdue {
		fmt.Fprintln(s.out, overdueLine(s.app.lib, r))
	}
}

// overdueLine names the book and borrower of r, or "?" when either is gone.
func overdueLine(lib *library.Library, r library.LoanRecord) string {
	title, borrower := "?", "?"
	if b, ok := lib.Book(r.BookID); ok {
		title = b.Title
	}
	if u, ok := lib.User(r.UserID); ok {
		borrower = u.Name
	}
	return fmt.Sprintf("IssuedID:%d | Book:%s | Borrower:%s | Due:%s",
		r.ID, title, borrower, r.DueDate.Format(library.DateLayout))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
