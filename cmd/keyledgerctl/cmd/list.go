package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// listItem is the --json representation of a record.
type listItem struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Key           string `json:"key"`
	DurationDays  int    `json:"duration_days"`
	Notes         string `json:"notes"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with their expiry status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records := a.store.Records()
			now := a.store.Now()

			if asJSON {
				return printRecordsJSON(cmd.OutOrStdout(), records, now, a.soonWindow)
			}
			return printRecordsTable(cmd.OutOrStdout(), records, now, a.soonWindow)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")

	return cmd
}

func printRecordsJSON(w io.Writer, records []model.Record, now time.Time, soonWindow time.Duration) error {
	items := make([]listItem, 0, len(records))
	for _, r := range records {
		status := model.ComputeExpiryStatus(r, now, soonWindow)
		items = append(items, listItem{
			ID:            r.ID,
			Username:      r.Username,
			Key:           r.Key,
			DurationDays:  r.DurationDays,
			Notes:         r.Notes,
			CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt:     r.ExpiresAt.UTC().Format(time.RFC3339),
			Status:        string(status.Status),
			DaysRemaining: status.DaysRemaining,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// printRecordsTable aligns the rows first and colours whole lines after, so
// escape codes do not skew the column widths.
func printRecordsTable(w io.Writer, records []model.Record, now time.Time, soonWindow time.Duration) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tCREATED\tEXPIRES\tSTATUS\tDAYS LEFT")

	statuses := make([]model.Status, 0, len(records))
	for _, r := range records {
		status := model.ComputeExpiryStatus(r, now, soonWindow)
		statuses = append(statuses, status.Status)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID,
			truncate(r.Username, 24),
			r.CreatedAt.Format("2006-01-02"),
			r.ExpiresAt.Format("2006-01-02"),
			status.Status,
			status.DaysRemaining,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if _, err := fmt.Fprintln(w, lines[0]); err != nil {
		return err
	}
	for i, line := range lines[1:] {
		if _, err := statusColor(statuses[i]).Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%d record(s)\n", len(records))
	return err
}

func statusColor(s model.Status) *color.Color {
	switch s {
	case model.StatusExpired:
		return color.New(color.FgRed)
	case model.StatusExpiringSoon:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
