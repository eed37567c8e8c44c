package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"fastclick/internal/dto"
	"fastclick/internal/handler"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	"github.com/spf13/cobra"
)

// NewSessionCommand groups the sale session subcommands. A running server
// picks up changes on its next gate refresh.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect, open or close the sale session",
	}
	cmd.AddCommand(newSessionStatusCommand(rootOpts))
	cmd.AddCommand(newSessionOpenCommand(rootOpts))
	cmd.AddCommand(newSessionCloseCommand(rootOpts))
	return cmd
}

// loadGate returns a gate loaded from the sessions table. The caller closes env.
func loadGate(cmd *cobra.Command, rootOpts *RootOptions) (*service.SessionGate, *Env, error) {
	env, err := rootOpts.open(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	gate := service.NewSessionGate(repository.NewSessionRepository(env.DB), time.Now)
	if err := gate.Load(cmd.Context()); err != nil {
		env.Close()
		return nil, nil, err
	}
	return gate, env, nil
}

func printStatus(cmd *cobra.Command, rootOpts *RootOptions, status dto.SessionStatusResponse) error {
	return rootOpts.printer(cmd.OutOrStdout()).Print(status, func(w io.Writer) error {
		if !status.Open {
			_, err := fmt.Fprintln(w, "No session is open.")
			return err
		}
		_, err := fmt.Fprintf(w, "Session %s (%s) open until %s\nTime remaining: %s\n",
			*status.SessionID, *status.Event, status.EndsAt.Local().Format(time.RFC3339), status.Remaining)
		return err
	})
}

func newSessionStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the open session and time remaining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, env, err := loadGate(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			return printStatus(cmd, rootOpts, handler.SessionStatusFromSnapshot(gate.Snapshot()))
		},
	}
}

func newSessionOpenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		event  string
		endsAt string
		length time.Duration
	)
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a sale session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var end time.Time
			switch {
			case endsAt != "":
				t, err := time.Parse(time.RFC3339, endsAt)
				if err != nil {
					return fmt.Errorf("--ends-at: %w", err)
				}
				end = t
			case length > 0:
				end = time.Now().Add(length)
			default:
				return errors.New("one of --ends-at or --for is required")
			}

			gate, env, err := loadGate(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			if _, err := gate.Open(cmd.Context(), event, end, nil); err != nil {
				return err
			}
			return printStatus(cmd, rootOpts, handler.SessionStatusFromSnapshot(gate.Snapshot()))
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event name (required)")
	cmd.Flags().StringVar(&endsAt, "ends-at", "", "end time, RFC 3339")
	cmd.Flags().DurationVar(&length, "for", 0, "session length, e.g. 4h")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func newSessionCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the open session now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, env, err := loadGate(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := gate.Close(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd, rootOpts, handler.SessionStatusFromSnapshot(gate.Snapshot()))
		},
	}
}
