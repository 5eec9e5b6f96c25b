// Package email sends run summaries and digests as plain-text + HTML
// alternative messages over an encrypted SMTP transport.
package email

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newspop/internal/config"
	"newspop/internal/core"
)

// Mailer sends mail using credentials taken from the environment. A mailer
// without credentials degrades every Send into a logged no-op.
type Mailer struct {
	cfg      config.Email
	username string
	password string
	log      zerolog.Logger
}

// NewMailer reads MAIL_USERNAME / MAIL_PASSWORD from the environment.
func NewMailer(cfg config.Email, log zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:      cfg,
		username: os.Getenv(config.EnvMailUsername),
		password: os.Getenv(config.EnvMailPassword),
		log:      log,
	}
}

// Enabled reports whether transport credentials are present.
func (m *Mailer) Enabled() bool {
	return m.username != "" && m.password != ""
}

// Send delivers one message. Missing credentials skip the send with a
// warning instead of failing the run.
func (m *Mailer) Send(to, subject, textBody, htmlBody string) error {
	if !m.Enabled() {
		m.log.Warn().Msg("MAIL_USERNAME / MAIL_PASSWORD not set, skipping email")
		return nil
	}
	if to == "" {
		to = m.cfg.To
	}
	if to == "" {
		m.log.Warn().Msg("no email recipient configured, skipping email")
		return nil
	}

	msg := BuildMessage(m.fromHeader(), to, subject, textBody, htmlBody)

	addr := net.JoinHostPort(m.cfg.SMTPHost, fmt.Sprint(m.cfg.SMTPPort))
	client, err := m.dial(addr)
	if err != nil {
		return fmt.Errorf("smtp connect: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.username, m.password, m.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.username); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// dial opens an implicit-TLS session on port 465, STARTTLS otherwise.
func (m *Mailer) dial(addr string) (*smtp.Client, error) {
	host := m.cfg.SMTPHost
	if m.cfg.SMTPPort == 465 {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
		if err != nil {
			return nil, fmt.Errorf("tls dial %s: %w", addr, err)
		}
		client, err := smtp.NewClient(conn, host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		client.Close()
		return nil, fmt.Errorf("starttls: %w", err)
	}
	return client, nil
}

func (m *Mailer) fromHeader() string {
	name := m.cfg.FromName
	if name == "" {
		name = "newspop-bot"
	}
	return fmt.Sprintf("%s <%s>", encodeRFC2047(name), m.username)
}

// BuildMessage assembles a multipart/alternative MIME message with a
// plain-text part and an HTML part.
func BuildMessage(from, to, subject, textBody, htmlBody string) []byte {
	const boundary = "=_newspop_alt_boundary"

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + encodeRFC2047(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + boundary + "\"\r\n")
	b.WriteString("\r\n")

	writePart := func(contentType, body string) {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString("\r\n")
		b.WriteString(wrapBase64(body))
		b.WriteString("\r\n")
	}
	writePart("text/plain", textBody)
	writePart("text/html", htmlBody)
	b.WriteString("--" + boundary + "--\r\n")

	return []byte(b.String())
}

// Subject builds the standard subject line with article count and range.
func Subject(tag string, articles int, dateFrom, dateTo string) string {
	if dateFrom != "" && dateTo != "" {
		return fmt.Sprintf("[newspop/%s] %d articoli — %s / %s", tag, articles, dateFrom, dateTo)
	}
	return fmt.Sprintf("[newspop/%s] %d articoli", tag, articles)
}

// RunSummaryBodies renders the per-run collection summary: one snippet per
// article with full text, as plain text and as an HTML alternative.
func RunSummaryBodies(table core.Table, when time.Time) (textBody, htmlBody string) {
	withText := table.WithFullText()

	var tb strings.Builder
	fmt.Fprintf(&tb, "Raccolta articoli — %s\n", when.UTC().Format("2006-01-02"))
	fmt.Fprintf(&tb, "Articoli trovati: %d  |  Con full text: %d\n", len(table), len(withText))
	tb.WriteString(strings.Repeat("=", 60) + "\n")

	var hb strings.Builder
	hb.WriteString("<html><body>")
	fmt.Fprintf(&hb, "<h2>Raccolta articoli — %s</h2>", when.UTC().Format("2006-01-02"))
	fmt.Fprintf(&hb, "<p>Articoli trovati: %d &mdash; con full text: %d</p>", len(table), len(withText))

	for _, a := range withText {
		snippet := snippetOf(a.Text(), 300)
		fmt.Fprintf(&tb, "\n[%s]\n%s\n%s...\n", a.Source, a.URL, snippet)
		fmt.Fprintf(&hb, "<p><b>[%s]</b><br/><a href=%q>%s</a><br/>%s&hellip;</p>",
			html.EscapeString(a.Source), a.URL, html.EscapeString(a.URL), html.EscapeString(snippet))
	}
	hb.WriteString("</body></html>")

	return tb.String(), hb.String()
}

func snippetOf(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if runes := []rune(flat); len(runes) > n {
		flat = string(runes[:n])
	}
	return strings.TrimSpace(flat)
}

func encodeRFC2047(s string) string {
	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
}

func wrapBase64(s string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	return b.String()
}
