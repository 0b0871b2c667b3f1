package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/electr1fy0/scribe/storage"
)

var (
	listJSON   bool
	newContent string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHeadless(cmd.Context(), consoleLogger())
		if err != nil {
			return err
		}
		defer closeRepo()

		notes, err := repo.LoadNotes(cmd.Context())
		if err != nil {
			return fmt.Errorf("load notes: %w", err)
		}
		return printNotes(cmd.OutOrStdout(), notes, listJSON)
	},
}

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a note and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHeadless(cmd.Context(), consoleLogger())
		if err != nil {
			return err
		}
		defer closeRepo()

		content := newContent
		if content == "-" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = string(b)
		}
		n, err := repo.CreateNote(cmd.Context(), args[0], content)
		if err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n.ID)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHeadless(cmd.Context(), consoleLogger())
		if err != nil {
			return err
		}
		defer closeRepo()

		if err := repo.DeleteNote(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		return nil
	},
}

func printNotes(w io.Writer, notes []storage.Note, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if notes == nil {
			notes = []storage.Note{}
		}
		return enc.Encode(notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return nil
	}
	for _, n := range notes {
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s  %-14s  %s\n", n.ID, humanize.Time(time.Unix(n.Timestamp, 0)), title)
	}
	return nil
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	newCmd.Flags().StringVarP(&newContent, "content", "c", "", "note content ('-' reads stdin)")
	rootCmd.AddCommand(listCmd, newCmd, rmCmd)
}
