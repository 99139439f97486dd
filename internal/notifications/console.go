package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mozawave/market-watch/internal/models"
)

// Console prints alerts and digests for local runs
type Console struct {
	w io.Writer
}

var (
	_ Sink         = (*Console)(nil)
	_ DigestSender = (*Console)(nil)
)

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) SendAlert(ctx context.Context, alert models.Alert) error {
	_, err := fmt.Fprintf(c.w, "🚨 [%s] %s\n   %s\n", strings.ToUpper(string(alert.Severity)), alert.Title, alert.Message)
	return err
}

func (c *Console) SendDigest(ctx context.Context, digest *models.Digest) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "📊 MARKET WATCH %s DIGEST\n", strings.ToUpper(digest.Period))
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "🕒 Generated: %s\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "📈 Changes: %d | 🚨 Active alerts: %d\n", digest.TotalChanges, digest.ActiveAlerts)
	if p := digest.Previous; p != nil {
		fmt.Fprintf(&b, "↕️  %+d vs previous digest (%d changes)\n", p.Delta, p.TotalChanges)
	}

	impact := impactSummary(digest)
	if len(impact) > 0 {
		b.WriteString("\n📍 By impact:\n")
		for _, level := range sortedKeys(impact) {
			fmt.Fprintf(&b, "   • %-10s %d\n", level+":", impact[level])
		}
	}

	for i, change := range digest.Changes {
		if i >= 5 {
			fmt.Fprintf(&b, "   ... and %d more changes\n", len(digest.Changes)-5)
			break
		}
		fmt.Fprintf(&b, "\n   %d. [%s] %s\n      %s\n", i+1, change.Impact, change.Title, change.Description)
	}

	_, err := io.WriteString(c.w, b.String())
	return err
}
