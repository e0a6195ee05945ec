// Package notification delivers transactional emails to account
// holders and beneficiaries.
package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/currencypkg"
)

// Sender delivers one email message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers email over SMTP with implicit TLS (port 465).
type SMTPSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
}

// NewSMTPSender returns an SMTPSender for the given server and credentials.
func NewSMTPSender(host, port, username, password string) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: username,
		password: password,
	}
}

// Send implements Sender.
func (s *SMTPSender) Send(to, subject, body string) error {
	from := s.username
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" + // required for HTML
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	serverAddr := s.smtpHost + ":" + s.smtpPort

	tlsConfig := &tls.Config{
		ServerName: s.smtpHost,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return nil
}

// EmailNotifier implements ledgerservice.Notifier on top of a Sender.
type EmailNotifier struct {
	sender Sender
}

// NewEmailNotifier returns an EmailNotifier using the given sender.
func NewEmailNotifier(sender Sender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

// WithdrawalProcessed emails the account holder a withdrawal receipt.
func (n *EmailNotifier) WithdrawalProcessed(ctx context.Context, to, holder string, amountCents, balanceAfterCents int64, beneficiary domain.Beneficiary) error {
	subject := "Withdrawal processed"

	body := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>Your withdrawal of <b>%s</b> to %s (%s, account %s) has been processed.</p>"+
			"<p>Your new balance is <b>%s</b>.</p>",
		holder,
		currencypkg.Format(amountCents),
		beneficiary.Name,
		beneficiary.Bank,
		beneficiary.Account,
		currencypkg.Format(balanceAfterCents),
	)

	return n.sender.Send(to, subject, body)
}

// ExternalTransferSent emails the beneficiary that a cross-bank
// transfer is on its way.
func (n *EmailNotifier) ExternalTransferSent(ctx context.Context, to, holder string, amountCents int64, beneficiary domain.Beneficiary) error {
	subject := "You have received a transfer"

	body := fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>%s has sent you <b>%s</b>. The funds are on the way to your account %s at %s.</p>",
		beneficiary.Name,
		holder,
		currencypkg.Format(amountCents),
		beneficiary.Account,
		beneficiary.Bank,
	)

	return n.sender.Send(to, subject, body)
}
