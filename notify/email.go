package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/ParraLuca/AlertMe/config"
	"github.com/ParraLuca/AlertMe/models"
)

// SMTPNotifier sends one multipart/alternative mail per target with
// new listings: a plain-text part for safety, an HTML part for humans.
type SMTPNotifier struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// NewSMTPNotifier builds a notifier from config, or falls back to the
// log notifier when mailing is disabled or incomplete.
func NewSMTPNotifier(cfg config.Config) Notifier {
	if !cfg.SendEmail || cfg.SMTPHost == "" || cfg.FromEmail == "" {
		return LogNotifier{}
	}
	return &SMTPNotifier{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, result models.TargetResult, activeFilters []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("[AlertMe][%s] %d new listing(s)", result.Site, len(result.NewItems))
	msg, err := buildMessage(n.From, result.Email, subject, result, activeFilters)
	if err != nil {
		return err
	}
	return n.send(result.Email, msg)
}

func (n *SMTPNotifier) send(to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", n.Host, n.Port)
	var auth smtp.Auth
	if n.User != "" {
		auth = smtp.PlainAuth("", n.User, n.Password, n.Host)
	}

	// Port 465 is implicit TLS; anything else upgrades via STARTTLS.
	if n.Port == 465 {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.Host})
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, n.Host)
		if err != nil {
			return fmt.Errorf("smtp handshake: %w", err)
		}
		defer client.Close()
		return submit(client, auth, n.From, to, msg)
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return submit(client, auth, n.From, to, msg)
}

func submit(client *smtp.Client, auth smtp.Auth, from, to string, msg []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject string, result models.TargetResult, activeFilters []string) ([]byte, error) {
	var body strings.Builder
	mw := multipart.NewWriter(&body)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n"+
		"Content-Type: multipart/alternative; boundary=%q\r\n\r\n",
		from, to, subject, mw.Boundary())

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, fmt.Errorf("build text part: %w", err)
	}
	fmt.Fprint(text, textBody(result, activeFilters))

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"}})
	if err != nil {
		return nil, fmt.Errorf("build html part: %w", err)
	}
	fmt.Fprint(htmlPart, htmlBody(result, activeFilters))

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mime message: %w", err)
	}
	return []byte(headers + body.String()), nil
}

func textBody(result models.TargetResult, activeFilters []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new listing(s) on %s\n%s\n\n", len(result.NewItems), result.Site, result.CanonicalURL)
	if len(activeFilters) > 0 {
		fmt.Fprintf(&b, "Active filters: %s\n\n", strings.Join(activeFilters, "; "))
	}
	renotified := map[string]bool{}
	for _, id := range result.Renotified {
		renotified[id] = true
	}
	for _, it := range result.NewItems {
		marker := ""
		if renotified[it.ID] {
			marker = " (republished)"
		}
		fmt.Fprintf(&b, "- %s%s · %s · %s\n  %s\n", title(it), marker, priceLabel(it.Price), it.Location, it.URL)
	}
	return b.String()
}

func htmlBody(result models.TargetResult, activeFilters []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%d new listing(s) on %s</h2>", len(result.NewItems), html.EscapeString(result.Site))
	fmt.Fprintf(&b, `<p><a href="%s">Open the search</a></p>`, html.EscapeString(result.CanonicalURL))
	if len(activeFilters) > 0 {
		fmt.Fprintf(&b, "<p><em>%s</em></p>", html.EscapeString(strings.Join(activeFilters, " · ")))
	}
	b.WriteString("<ul>")
	for _, it := range result.NewItems {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a> — %s`,
			html.EscapeString(it.URL), html.EscapeString(title(it)), html.EscapeString(priceLabel(it.Price)))
		if it.Location != "" {
			fmt.Fprintf(&b, " — %s", html.EscapeString(it.Location))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func title(it models.ListingItem) string {
	if strings.TrimSpace(it.Title) != "" {
		return it.Title
	}
	return "Listing " + it.ID
}

// formatEUR renders 249000 as "249 000 €".
func formatEUR(v int) string {
	s := strconv.Itoa(v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, " ") + " €"
}
