package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"fastclick/internal/model"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// SeedUserOptions are the flags of seed-user.
type SeedUserOptions struct {
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

// NewSeedUserCommand creates or updates an account. Re-running it resets the
// password and role.
func NewSeedUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedUserOptions{}
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or update a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedUser(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "admin@fastclick.local", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&opts.Role, "role", model.RoleAdmin, "admin | cashier | seller")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runSeedUser(cmd *cobra.Command, rootOpts *RootOptions, opts *SeedUserOptions) error {
	switch opts.Role {
	case model.RoleAdmin, model.RoleCashier, model.RoleSeller:
	default:
		return fmt.Errorf("invalid role %q", opts.Role)
	}
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" {
		return errors.New("email is required")
	}

	ctx := cmd.Context()
	env, err := rootOpts.open(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	hash, err := service.HashPassword(opts.Password)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(env.DB)
	user, err := users.FindByEmail(ctx, email)
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.User{Email: email, FirstName: opts.FirstName, LastName: opts.LastName, Role: opts.Role, Active: true}
		user.PasswordHash = &hash
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = true
	case err != nil:
		return err
	default:
		user.PasswordHash = &hash
		user.Role = opts.Role
		user.Active = true
		if opts.FirstName != "" {
			user.FirstName = opts.FirstName
		}
		if opts.LastName != "" {
			user.LastName = opts.LastName
		}
		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}

	resp := service.UserToResponse(user)
	return rootOpts.printer(cmd.OutOrStdout()).Print(resp, func(w io.Writer) error {
		verb := "updated"
		if created {
			verb = "created"
		}
		_, err := fmt.Fprintf(w, "user %s %s (%s)\n", resp.Email, verb, resp.Role)
		return err
	})
}

// NewHashPasswordCommand prints a bcrypt hash for manual inserts.
func NewHashPasswordCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd.OutOrStdout()).Print(map[string]string{"hash": hash}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, hash)
				return err
			})
		},
	}
}
