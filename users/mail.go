package users

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/gograph/gograph/log"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>A password reset was requested for this address.</p>
<p><a href="{{.Link}}">Click here to choose a new password.</a></p>
<p>If you did not request this, you can ignore this email.</p>
</body>
</html>`))

// SMTPNotifier sends password-reset emails through a plain smtp relay.
type SMTPNotifier struct {
	from     string
	password string
	host     string
	addr     string
}

func NewSMTPNotifier(from, password, host, addr string) *SMTPNotifier {
	return &SMTPNotifier{
		from:     from,
		password: password,
		host:     host,
		addr:     addr,
	}
}

func (n *SMTPNotifier) SendPasswordReset(email, link string) error {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Link string }{Link: link}); err != nil {
		return err
	}

	headers := fmt.Sprintf(
		"From: %s\nTo: %s\nSubject: Reset your password\nMIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n",
		n.from, email,
	)
	msg := append([]byte(headers), body.Bytes()...)

	auth := smtp.PlainAuth("", n.from, n.password, n.host)
	return smtp.SendMail(n.addr, auth, n.from, []string{email}, msg)
}

// LogNotifier stands in for the smtp relay in dev environments: it only logs
// the link it would have mailed.
type LogNotifier struct {
	Logger log.Logger
}

func (n LogNotifier) SendPasswordReset(email, link string) error {
	n.Logger.Printf("password reset for %s: %s", email, link)
	return nil
}
