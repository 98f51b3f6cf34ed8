package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [agreement-id]",
		Short: "Show stored agreements",
		Long: `Show agreements stored in the database.

Without an id, lists every agreement with its signer and field counts.
With an id, prints the agreement's signers in step order and its fields.

Examples:
  signflow show --db ./signflow.db
  signflow show --db ./signflow.db 0190f1c2-...
  signflow show --format json 0190f1c2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	path := opts.Database
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	if id == "" {
		list, err := st.ListAgreements(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list agreements", err)
		}
		if opts.Format == "json" {
			return out.Success(list)
		}
		writeSummaries(cmd.OutOrStdout(), list)
		return nil
	}

	a, err := st.GetAgreement(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if opts.Format == "json" {
			_ = out.Error(CodeNotFound, "agreement not found", map[string]string{"id": id})
		}
		return WrapExitError(ExitFailure, "agreement not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read agreement", err)
	}
	if opts.Format == "json" {
		return out.Success(a)
	}
	writeAgreement(cmd.OutOrStdout(), a)
	return nil
}

func writeSummaries(w io.Writer, list []store.Summary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No agreements.")
		return
	}
	for _, s := range list {
		fmt.Fprintf(w, "%s  %-30q pages=%d signers=%d fields=%d\n", s.ID, s.Title, s.PageCount, s.Signers, s.Fields)
	}
}

func writeAgreement(w io.Writer, a *remote.Agreement) {
	fmt.Fprintf(w, "Agreement: %s\n", a.Metadata.ID)
	fmt.Fprintf(w, "Title:     %s\n", a.Metadata.Title)
	fmt.Fprintf(w, "Pages:     %d\n", a.PageCount)
	if a.Metadata.Dates.Sequence {
		fmt.Fprintln(w, "Sequence:  signers sign in order")
	}
	if d := a.Metadata.Dates.EndDate; d != nil {
		fmt.Fprintf(w, "Ends:      %s\n", d.Format("2006-01-02"))
	}
	if d := a.Metadata.Dates.SignBefore; d != nil {
		fmt.Fprintf(w, "Sign by:   %s\n", d.Format("2006-01-02"))
	}

	fmt.Fprintf(w, "\nSigners (%d):\n", len(a.Signers))
	for _, s := range a.Signers {
		fmt.Fprintf(w, "  %d. %s <%s> %s [%s]\n", s.Step, s.Name, s.Email, s.Role, s.UID)
	}

	fmt.Fprintf(w, "\nFields (%d):\n", len(a.InputFields))
	for _, f := range a.InputFields {
		fmt.Fprintf(w, "  %-9s page %d at (%d, %d) for %s\n", f.Type, f.Page, f.X, f.Y, f.SignerRef)
	}
}
