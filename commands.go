package main

import (
	"fmt"
	"io"
	"strconv"

	"library-ledger/library"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonLoan is the --output json shape of a loan record; dates are calendar
// strings rather than timestamps.
type jsonLoan struct {
	ID         int     `json:"id"`
	BookID     int     `json:"bookId"`
	UserID     int     `json:"userId"`
	IssueDate  string  `json:"issueDate"`
	DueDate    string  `json:"dueDate"`
	ReturnDate *string `json:"returnDate"`
}

func toJSONLoans(loans []library.LoanRecord) []jsonLoan {
	out := make([]jsonLoan, len(loans))
	for i, r := range loans {
		out[i] = jsonLoan{
			ID:        r.ID,
			BookID:    r.BookID,
			UserID:    r.UserID,
			IssueDate: r.IssueDate.Format(library.DateLayout),
			DueDate:   r.DueDate.Format(library.DateLayout),
		}
		if r.ReturnDate != nil {
			d := r.ReturnDate.Format(library.DateLayout)
			out[i].ReturnDate = &d
		}
	}
	return out
}

// printList writes items one per line, or as a JSON array when format is "json".
func printList[T fmt.Stringer](out io.Writer, format, empty string, items []T, asJSON any) error {
	switch format {
	case "json":
		data, err := jsonAPI.MarshalIndent(asJSON, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "text":
		if len(items) == 0 {
			fmt.Fprintln(out, empty)
			return nil
		}
		for _, it := range items {
			fmt.Fprintln(out, it)
		}
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", format)
	}
	return nil
}

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", "text", "Output format: text or json")
}

func newBooksCmd(a *app) *cobra.Command {
	var format, search string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List books, optionally filtered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books := a.lib.Books()
			if search != "" {
				books = a.lib.SearchByTitle(search)
			}
			if books == nil {
				books = []library.Book{}
			}
			return printList(cmd.OutOrStdout(), format, "No books.", books, books)
		},
	}
	addOutputFlag(cmd, &format)
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive title keyword")
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := a.lib.Users()
			if users == nil {
				users = []library.User{}
			}
			return printList(cmd.OutOrStdout(), format, "No users.", users, users)
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newLoansCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List issued records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loans := a.lib.Loans()
			return printList(cmd.OutOrStdout(), format, "No issued records.", loans, toJSONLoans(loans))
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

// overdueEntry is one preformatted line of the overdue report.
type overdueEntry struct {
	line string
}

func (e overdueEntry) String() string { return e.line }

func newOverdueCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List outstanding loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loans := a.lib.Overdue()
			lines := make([]overdueEntry, len(loans))
			for i, r := range loans {
				lines[i] = overdueEntry{line: overdueLine(a.lib, r)}
			}
			return printList(cmd.OutOrStdout(), format, "No overdue books.", lines, toJSONLoans(loans))
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newAddBookCmd(a *app) *cobra.Command {
	var (
		title, author string
		copies        int
	)
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if copies < 1 {
				return fmt.Errorf("--copies must be at least 1")
			}
			b := a.lib.AddBook(title, author, copies)
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", b)
			a.save(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().IntVar(&copies, "copies", 1, "Number of copies")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAddUserCmd(a *app) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.lib.AddUser(name, optionalString(email))
			fmt.Fprintf(cmd.OutOrStdout(), "Registered: %s\n", u)
			a.save(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "User name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (optional)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		ids[i] = n
	}
	return ids, nil
}

func newIssueCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "issue <book-id> <user-id>",
		Short: "Lend a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if days == 0 {
				days = a.cfg.LoanDays
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			r, err := a.lib.IssueBook(ids[0], ids[1], days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issued record %d. Due: %s\n", r.ID, r.DueDate.Format(library.DateLayout))
			a.save(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Loan length in days (default from config)")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <issued-id>",
		Short: "Return a loaned book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if _, err := a.lib.ReturnBook(ids[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Returned.")
			a.save(cmd.OutOrStdout())
			return nil
		},
	}
}

func newExportSQLiteCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-sqlite",
		Short: "Copy the data file into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.SQLiteFile
			}
			db, err := library.NewDatabase(out)
			if err != nil {
				return err
			}
			defer db.Close()

			s := a.lib.Snapshot()
			if err := db.WriteSnapshot(s); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			a.logger.Info("exported to sqlite", zap.String("path", out), zap.Int("books", len(s.Books)))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d books, %d users, %d issued records to %s\n",
				len(s.Books), len(s.Users), len(s.Loans), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "SQLite file (default from config)")
	return cmd
}
