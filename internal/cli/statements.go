package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"fastclick/internal/handler"
	"fastclick/internal/infra"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewStatementsCommand groups the financial statement subcommands. Each takes
// --session; without it the scope is every session.
func NewStatementsCommand(rootOpts *RootOptions) *cobra.Command {
	var sessionFlag string
	cmd := &cobra.Command{
		Use:   "statements",
		Short: "Recompute, show or export financial statements",
	}
	cmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session UUID (default: all sessions)")

	scope := func() (*uuid.UUID, error) {
		if sessionFlag == "" {
			return nil, nil
		}
		id, err := uuid.Parse(sessionFlag)
		if err != nil {
			return nil, fmt.Errorf("--session: %w", err)
		}
		return &id, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "recompute",
		Short: "Rebuild statements from the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := scope()
			if err != nil {
				return err
			}
			svc, env, err := financialService(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			set, err := svc.Recompute(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			resp := handler.StatementSetToResponse(set)
			return rootOpts.printer(cmd.OutOrStdout()).Print(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "recomputed scope %s: %d sellers, %d games sold\n",
					resp.House.Scope, len(resp.Sellers), resp.House.GamesSold)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the house and seller statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := scope()
			if err != nil {
				return err
			}
			svc, env, err := financialService(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			if rootOpts.Format == "text" {
				return svc.WriteReport(cmd.Context(), sessionID, cmd.OutOrStdout())
			}
			set, err := svc.Get(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd.OutOrStdout()).Print(handler.StatementSetToResponse(set), nil)
		},
	})

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write statements to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := scope()
			if err != nil {
				return err
			}
			svc, env, err := financialService(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := svc.ExportXLSX(cmd.Context(), sessionID, f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			return rootOpts.printer(cmd.OutOrStdout()).Print(map[string]string{"file": out}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "wrote %s\n", out)
				return err
			})
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "statements.xlsx", "output file")
	cmd.AddCommand(export)

	return cmd
}

func financialService(cmd *cobra.Command, rootOpts *RootOptions) (service.FinancialService, *Env, error) {
	env, err := rootOpts.open(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	var locker service.Locker
	if env.Redis != nil {
		locker = infra.NewRedisLocker(env.Redis)
	}
	db := env.DB
	svc := service.NewFinancialService(
		repository.NewTransactionRepository(db),
		repository.NewInventoryRepository(db),
		repository.NewStatementRepository(db),
		repository.NewUserRepository(db),
		locker,
		env.Config.CashRatioDecimal(),
		time.Now,
	)
	return svc, env, nil
}
