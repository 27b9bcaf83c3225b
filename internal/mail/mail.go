// mail описывает почтового коллаборатора сервиса и его SMTP-реализацию.
//
// Сервису важен только контракт Mailer: доставка писем — внешняя забота,
// внутри домена от неё зависит лишь откат ожидающего сброса пароля при
// неудачной отправке ссылки.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Message — письмо, передаваемое коллаборатору.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer — контракт доставки писем.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer отправляет письма через net/smtp без аутентификации либо
// с PLAIN-аутентификацией, если заданы логин и пароль.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTP создаёт SMTP-коллаборатора. auth может быть nil.
func NewSMTP(addr, from string, auth smtp.Auth) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

// Send отправляет одно письмо. Контекст проверяется до начала сетевой сессии:
// net/smtp не принимает context, поэтому отмена после установления соединения
// доехать до сервера уже не может.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	const op = "mail.smtp.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var _ Mailer = (*SMTPMailer)(nil)

// ResetLinkHTML — тело письма со ссылкой на сброс пароля.
func ResetLinkHTML(resetURL string, expiry string) string {
	return fmt.Sprintf(`
        <h1>You have requested to change your password</h1>
        <p>Please click on the following link, or paste it in your browser to complete the password reset.</p>
        <p><a href=%q clicktracking=off>%s</a></p>
        <p><em>If you did not request this, you can safely ignore this email, and your password will remain unchanged.</em></p>
        <p><strong>DO NOT share this link with anyone else!</strong><br/>
        <small><em>This password reset link will <strong>expire after %s.</strong></em></small></p>
    `, resetURL, resetURL, expiry)
}

// PasswordChangedHTML — тело уведомления о смене пароля.
func PasswordChangedHTML() string {
	return `<h3>This is a confirmation that you have changed Password for your account.</h3>`
}
