package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"bookman/internal/catalog"
	"bookman/internal/model"
	"bookman/internal/util"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	priceStyle = cellStyle.Align(lipgloss.Right)
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List every book in service order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			books, err := client.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), books)
			}
			printBookTable(cmd.OutOrStdout(), books)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return c
}

func newGetCmd(a *app) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "get <isbn>",
		Short: "Show one book",
		Example: `  bookman get 978-0134190440
  bookman get 978-0134190440 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			isbn := util.NormalizeKey(args[0])
			book, err := client.GetByKey(cmd.Context(), isbn)
			if err != nil {
				if catalog.IsNotFound(err) {
					return fmt.Errorf("book %q not found", isbn)
				}
				return fmt.Errorf("get book: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), book)
			}
			printBookDetails(cmd.OutOrStdout(), book)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return c
}

func newAddCmd(a *app) *cobra.Command {
	var d model.Draft
	c := &cobra.Command{
		Use:     "add",
		Short:   "Add a book",
		Example: `  bookman add --isbn 978-0134190440 --title "The Go Programming Language" --author Donovan --price 39.99`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := model.BuildSubmission(model.FormAdd, d)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			created, err := client.Create(cmd.Context(), *sub.Book)
			if err != nil {
				return fmt.Errorf("add book: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book added successfully.")
			printBookDetails(cmd.OutOrStdout(), created)
			return nil
		},
	}
	c.Flags().StringVar(&d.ISBN, model.FieldISBN, "", "ISBN, the unique key")
	c.Flags().StringVar(&d.Title, model.FieldTitle, "", "title")
	c.Flags().StringVar(&d.Author, model.FieldAuthor, "", "author")
	c.Flags().StringVar(&d.Price, model.FieldPrice, "", "price, e.g. 39.99")
	return c
}

func newUpdateCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "update <isbn>",
		Short: "Change the title, author or price of a book",
		Long: `Update fetches the book, applies the given flags and sends the result.
Fields without a flag keep their current value. The ISBN cannot change.`,
		Example: `  bookman update 978-0134190440 --price 35`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			isbn := util.NormalizeKey(args[0])

			d, err := draftFromFlags(cmd, model.Draft{ISBN: isbn}, func() (model.Draft, error) {
				current, err := client.GetByKey(cmd.Context(), isbn)
				if err != nil {
					if catalog.IsNotFound(err) {
						return model.Draft{}, fmt.Errorf("book %q not found", isbn)
					}
					return model.Draft{}, fmt.Errorf("get book: %w", err)
				}
				return model.DraftFromBook(current), nil
			})
			if err != nil {
				return err
			}

			sub, err := model.BuildSubmission(model.FormEdit, d)
			if err != nil {
				return err
			}
			updated, err := client.Update(cmd.Context(), sub.ISBN, *sub.Changes)
			if err != nil {
				return fmt.Errorf("update book: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book updated successfully.")
			printBookDetails(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	c.Flags().String(model.FieldTitle, "", "new title")
	c.Flags().String(model.FieldAuthor, "", "new author")
	c.Flags().String(model.FieldPrice, "", "new price")
	return c
}

// draftFromFlags overlays the changed --title, --author and --price flags on the current entry.
// The current entry is only fetched when at least one flag is set.
func draftFromFlags(cmd *cobra.Command, d model.Draft, current func() (model.Draft, error)) (model.Draft, error) {
	var changed []string
	for _, name := range model.Fields[1:] {
		if cmd.Flags().Changed(name) {
			changed = append(changed, name)
		}
	}
	if len(changed) == 0 {
		return d, fmt.Errorf("nothing to update: pass --%s, --%s or --%s", model.FieldTitle, model.FieldAuthor, model.FieldPrice)
	}

	base, err := current()
	if err != nil {
		return d, err
	}
	for _, name := range changed {
		value, _ := cmd.Flags().GetString(name)
		base = base.With(name, value)
	}
	return base, nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <isbn>",
		Aliases: []string{"rm"},
		Short:   "Delete a book",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.Remove(cmd.Context(), util.NormalizeKey(args[0])); err != nil {
				return fmt.Errorf("delete book: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book deleted successfully.")
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func printBookTable(w io.Writer, books []model.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "The catalog is empty.")
		return
	}

	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{b.ISBN, b.Title, b.Author, util.FormatPrice(b.Price)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ISBN", "TITLE", "AUTHOR", "PRICE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 3 {
				return priceStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
}

func printBookDetails(w io.Writer, b model.Book) {
	fmt.Fprintf(w, "ISBN:   %s\n", b.ISBN)
	fmt.Fprintf(w, "Title:  %s\n", b.Title)
	fmt.Fprintf(w, "Author: %s\n", b.Author)
	fmt.Fprintf(w, "Price:  %s\n", util.FormatPrice(b.Price))
}
