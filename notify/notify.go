// Package notify renders period summaries into a report and delivers it.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"acumensync/summary"
	"acumensync/worklog"
)

// Notifier is the capability contract for delivering a run's report.
type Notifier interface {
	Send(ctx context.Context, recipient string, summaries []summary.PeriodSummary) error
}

// Render formats summaries as the plain-text report body.
func Render(summaries []summary.PeriodSummary) string {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s %s %s - %s:", s.EmployeeID, s.PeriodType,
			s.PeriodStart.Format("2006-01-02"), s.PeriodEnd.Format("2006-01-02"))
		for _, code := range worklog.ServiceCodes {
			fmt.Fprintf(&b, " %s=%s", code, worklog.FormatMinutes(s.TotalsByCode[code]))
		}
		fmt.Fprintf(&b, " total=%s\n", worklog.FormatMinutes(s.TotalMinutes))
	}
	return b.String()
}

// ConsoleNotifier writes the report to stdout. Used for dry runs and when no
// mail host is configured.
type ConsoleNotifier struct{}

func (n *ConsoleNotifier) Send(_ context.Context, recipient string, summaries []summary.PeriodSummary) error {
	if recipient != "" {
		fmt.Fprintf(os.Stdout, "Report for %s:\n", recipient)
	}
	fmt.Fprint(os.Stdout, Render(summaries))
	return nil
}

// SMTPNotifier mails the report.
type SMTPNotifier struct {
	Host string
	Port int
	From string
	Auth smtp.Auth
}

func (n *SMTPNotifier) Send(_ context.Context, recipient string, summaries []summary.PeriodSummary) error {
	if recipient == "" {
		return fmt.Errorf("no recipient configured")
	}

	body := Render(summaries)
	msg := strings.Join([]string{
		"From: " + n.From,
		"To: " + recipient,
		"Subject: Work hours report",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.Host, n.Port)
	if err := smtp.SendMail(addr, n.Auth, n.From, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("send report to %s: %w", recipient, err)
	}
	return nil
}
