package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appModels "github.com/yigit/applytrack/internal/app/models"
	appRepos "github.com/yigit/applytrack/internal/app/repositories"
	"github.com/yigit/applytrack/internal/pkg/apperrors"
)

func initCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create indexes and seed the default admin on an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd, opts)
			if err != nil {
				return err
			}
			defer deps.Close(cmd.Context())

			if err := deps.Connector.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store initialized (driver: %s)\n", deps.Config.Database.Driver)
			return nil
		},
	}
}

// statsReport is the output of the stats command. Count covers every
// application unless Status is set.
type statsReport struct {
	Status       string                     `json:"status,omitempty" yaml:"status,omitempty"`
	Count        int64                      `json:"count" yaml:"count"`
	Enrollment   map[string]int64           `json:"enrollment" yaml:"enrollment"`
	Universities []appRepos.UniversityCount `json:"universities" yaml:"universities"`
}

func statsCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		status string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print enrollment and university statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd, opts)
			if err != nil {
				return err
			}
			defer deps.Close(cmd.Context())

			ctx := cmd.Context()
			apps := deps.Repos.ApplicationRepository

			report := statsReport{Status: status}
			if report.Count, err = apps.CountByEnrollmentStatus(ctx, appModels.EnrollmentStatus(status)); err != nil {
				return err
			}
			if report.Enrollment, err = apps.EnrollmentStatistics(ctx); err != nil {
				return err
			}
			if report.Universities, err = apps.UniversityStatistics(ctx); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, report)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format (yaml, json)")
	cmd.Flags().StringVar(&status, "status", "", "Restrict the count to one enrollment status")
	return cmd
}

func accountsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and manage accounts",
	}
	cmd.AddCommand(accountsListCmd(opts), accountsVerifyCmd(opts), accountsDeleteCmd(opts))
	return cmd
}

func accountsListCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts (password hashes are never printed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd, opts)
			if err != nil {
				return err
			}
			defer deps.Close(cmd.Context())

			accounts, err := deps.Repos.AccountRepository.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]map[string]any, 0, len(accounts))
			for _, a := range accounts {
				out = append(out, a.ToMap())
			}
			return writeOutput(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}

func accountsVerifyCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an email and password against the stored hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd, opts)
			if err != nil {
				return err
			}
			defer deps.Close(cmd.Context())

			account, err := deps.Repos.AccountRepository.FindByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if account == nil || !account.CheckPassword(deps.Hasher, password) {
				return apperrors.ErrInvalidCredentials
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credentials valid for %s (admin: %t)\n", account.Email, account.IsAdmin)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Plain password to check")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func accountsDeleteCmd(opts *globalOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account with its applications and files",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDependencies(cmd, opts)
			if err != nil {
				return err
			}
			defer deps.Close(cmd.Context())

			ctx := cmd.Context()
			account, err := deps.Repos.AccountRepository.FindByEmail(ctx, email)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account %q: %w", email, apperrors.ErrResourceNotFound)
			}
			if _, err := deps.Repos.AccountRepository.Delete(ctx, account); err != nil {
				return err
			}
			deps.Logger.Info().Str("accountID", account.ID).Str("email", email).Msg("Account deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
