package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// isTerminal reports whether r is an interactive terminal.
var isTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var errNotInteractive = errors.New("refusing to delete without --yes: stdin is not a terminal")

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Long: `Delete a record by id. An interactive terminal is asked to confirm;
pass --yes to skip the prompt in scripts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := a.store.RequestDelete(id); err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(cmd, a, id)
				if err != nil || !ok {
					a.store.CancelDelete()
					if err == nil {
						_, err = fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					}
					return err
				}
			}

			_, removed, err := a.store.ConfirmDelete(cmd.Context())
			if err != nil {
				if errors.Is(err, model.ErrPersist) {
					return fmt.Errorf("deletion of #%s was not saved: %w", id, err)
				}
				return err
			}
			if !removed {
				return fmt.Errorf("record %s: %w", id, model.ErrRecordNotFound)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted #%s\n", id)
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking for confirmation")

	return cmd
}

// confirm prompts on the command's output and reads a y/N answer.
func confirm(cmd *cobra.Command, a *app, id string) (bool, error) {
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return false, errNotInteractive
	}

	label := "#" + id
	for _, r := range a.store.Records() {
		if r.ID == id {
			label += " - " + r.Username
			break
		}
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? [y/N] ", label); err != nil {
		return false, err
	}

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "o", "oui":
		return true, nil
	default:
		return false, nil
	}
}
