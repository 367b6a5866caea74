package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"library-ledger/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// manifestBook is one entry of the import manifest.
type manifestBook struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Copies int    `yaml:"copies"`
}

type manifest struct {
	Books []manifestBook `yaml:"books"`
}

func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// importBooks adds every valid manifest entry to lib. Entries without a title
// are skipped; a missing copy count means one copy.
func importBooks(lib *library.Library, m *manifest, logger *zap.Logger) (added []library.Book, skipped int) {
	for i, mb := range m.Books {
		title := strings.TrimSpace(mb.Title)
		if title == "" {
			logger.Warn("skipping manifest entry without title", zap.Int("index", i))
			skipped++
			continue
		}
		copies := mb.Copies
		if copies == 0 {
			copies = 1
		}
		if copies < 0 {
			logger.Warn("skipping manifest entry with negative copies", zap.Int("index", i), zap.String("title", title))
			skipped++
			continue
		}
		added = append(added, lib.AddBook(title, strings.TrimSpace(mb.Author), copies))
	}
	return added, skipped
}

func newImportCmd() *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "import_books <manifest.yaml>",
		Short: "Add the books listed in a YAML manifest to the data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			m, err := readManifest(args[0])
			if err != nil {
				return err
			}
			lib, err := library.Load(dataFile, library.WithLogger(logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			added, skipped := importBooks(lib, m, logger)
			if err := lib.Save(dataFile); err != nil {
				return err
			}

			fmt.Fprintf(out, "Import complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", len(added))
			fmt.Fprintf(out, "Skipped: %d\n", skipped)
			if len(added) > 0 {
				fmt.Fprintf(out, "\n%-5s %-50s %-30s %s\n", "ID", "Title", "Author", "Copies")
				fmt.Fprintln(out, strings.Repeat("-", 95))
				for _, b := range added {
					fmt.Fprintf(out, "%-5d %-50s %-30s %d\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30), b.TotalCopies)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataFile, "data", "d", "library.json", "Data file to add the books to")
	return cmd
}

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
