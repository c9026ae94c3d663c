package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

func newAddCmd(a *app) *cobra.Command {
	var in application.CreateInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
		Example: `  keyledgerctl add --username alice --key secretkey123 --days 7
  keyledgerctl add --username bob --key key456 --days 30 --notes vip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fieldErrs := in.Validate(); fieldErrs != nil {
				return fmt.Errorf("invalid record: %s", describeFieldErrors(fieldErrs))
			}

			rec, err := a.store.Create(cmd.Context(), in.Username, in.Key, in.DurationDays, in.Notes)
			if err != nil {
				if errors.Is(err, model.ErrPersist) {
					return fmt.Errorf("record %s was not saved: %w", rec.ID, err)
				}
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created #%s - %s, expires %s\n",
				rec.ID, rec.Username, rec.ExpiresAt.Format("2006-01-02"))
			return err
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&in.Key, "key", "", "user key (required)")
	cmd.Flags().IntVar(&in.DurationDays, "days", 0, "validity in days, at least 1 (required)")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")

	return cmd
}

func describeFieldErrors(fe application.FieldErrors) string {
	parts := make([]string, 0, len(fe))
	for _, field := range fe.Fields() {
		parts = append(parts, field+": "+fe[field])
	}
	return strings.Join(parts, "; ")
}
