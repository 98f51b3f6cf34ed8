package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/signflow/internal/editor"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/profile"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/syncer"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	*RootOptions
	URL string

	// service overrides the HTTP client (for testing).
	service remote.Service
}

// MoveResult is the outcome of a move.
type MoveResult struct {
	AgreementID string         `json:"agreement_id"`
	Changed     bool           `json:"changed"`
	Signers     []model.Signer `json:"signers"`
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move <agreement-id> <signer-uid> <position>",
		Short: "Move a signer to a new step and save",
		Long: `Move a signer to a 1-based position in the signing order, then
confirm and save the new order through the persistence service.

The signer list is validated before saving; rows with a missing name or a
malformed email are reported and nothing is sent.

Examples:
  signflow move 0190f1c2-... 5b1e... 1
  signflow move --url http://127.0.0.1:9090 0190f1c2-... 5b1e... 3 --format json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[2])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid position %q", args[2]))
			}
			return runMove(opts, args[0], model.UID(args[1]), position, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "persistence service URL (default from config)")

	return cmd
}

func runMove(opts *MoveOptions, id string, uid model.UID, position int, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	svc := opts.service
	if svc == nil {
		url := opts.URL
		if url == "" {
			url = cfg.Remote.BaseURL
		}
		out.VerboseLog("using service %s", url)
		svc = remote.NewClient(url, remote.WithTimeout(cfg.Remote.Timeout))
	}

	var failure error
	sessOpts := []editor.Option{
		editor.WithLogger(opts.logger(cmd.ErrOrStderr())),
		editor.WithDebounce(cfg.Editor.Debounce),
		editor.WithLauncher(func(f func()) { f() }),
		editor.WithNotifier(func(n editor.Notice) {
			if n.Kind == editor.NoticeNetwork || n.Kind == editor.NoticeMismatch {
				failure = errors.New(n.Message)
			}
		}),
	}
	if cfg.Editor.Profile != "" {
		p, err := profile.LoadFile(cfg.Editor.Profile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load profile", err)
		}
		sessOpts = append(sessOpts, editor.WithRowHeight(p.RowHeight()))
	}

	sess, err := editor.Open(ctx, svc, id, nil, sessOpts...)
	if err != nil {
		if editor.IsNotFound(err) {
			_ = out.Error(CodeNotFound, "agreement not found", map[string]string{"id": id})
			return WrapExitError(ExitFailure, "agreement not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to load agreement", err)
	}

	moved, err := sess.Apply(ctx, editor.MoveSigner{UID: uid, Position: position})
	if err != nil {
		_ = out.Error(CodeEdit, err.Error(), nil)
		return WrapExitError(ExitFailure, "move rejected", err)
	}

	if _, err := sess.Apply(ctx, editor.Confirm{}); err != nil {
		var details any
		var ee *editor.Error
		if errors.As(err, &ee) {
			details = ee.Issues
		}
		_ = out.Error(CodeEdit, err.Error(), details)
		return WrapExitError(ExitFailure, "confirm rejected", err)
	}
	sess.Drain(ctx)

	if failure != nil {
		return WrapExitError(ExitCommandError, "failed to save signers", failure)
	}
	if sess.StreamState(syncer.StreamSigners) != syncer.StateArmed {
		return NewExitError(ExitCommandError, "signers were not saved")
	}

	result := MoveResult{AgreementID: id, Changed: moved.Changed, Signers: sess.Signers()}
	if opts.Format == "json" {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	if !result.Changed {
		fmt.Fprintf(w, "%s is already at step %d.\n", uid, position)
	}
	for _, s := range result.Signers {
		fmt.Fprintf(w, "  %d. %s <%s> [%s]\n", s.Step, s.Name, s.Email, s.UID)
	}
	return nil
}
