package alerting

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"rxstock/m/domain"
)

// Digest lists the alerts still open from the last DigestWindow.
type Digest struct {
	Since  time.Time      `json:"since"`
	Alerts []domain.Alert `json:"alerts"`
}

func (m *Monitor) Digest(ctx context.Context) (Digest, error) {
	since := m.now().Add(-DigestWindow)
	alerts, err := m.store.ListUnresolvedSince(ctx, since)
	if err != nil {
		return Digest{}, fmt.Errorf("building digest: %w", err)
	}
	return Digest{Since: since, Alerts: alerts}, nil
}

// Write renders the digest as a plain text table.
func (d Digest) Write(w io.Writer) error {
	if len(d.Alerts) == 0 {
		_, err := fmt.Fprintf(w, "No unresolved alerts since %s.\n", d.Since.Format(time.RFC3339))
		return err
	}
	fmt.Fprintf(w, "%d unresolved alerts since %s\n\n", len(d.Alerts), d.Since.Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIORITY\tTYPE\tSTATUS\tTITLE")
	for _, a := range d.Alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Priority, a.Type, a.Status, a.Title)
	}
	return tw.Flush()
}
