package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	_ = ctx
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

var receiptTemplate = template.Must(template.New("donation_receipt").Parse(`<html>
<body>
<p>Thank you for your donation!</p>
<p>Your contribution of <strong>{{.Amount}} {{.Currency}}</strong> towards
<strong>{{.Purpose}}</strong> has been confirmed.</p>
{{if .CryptoAmount}}<p>Received: {{.CryptoAmount}} {{.CryptoCurrency}}</p>{{end}}
<p>Order reference: {{.OrderID}}</p>
</body>
</html>`))

// ReceiptData fills the donation receipt template.
type ReceiptData struct {
	Amount         string
	Currency       string
	Purpose        string
	CryptoAmount   string
	CryptoCurrency string
	OrderID        string
}

// RenderReceipt produces the confirmation email body for a completed
// donation.
func RenderReceipt(data ReceiptData) (string, error) {
	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}
