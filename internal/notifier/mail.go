// Пакет notifier — отправка email-уведомлений администратору через SMTP.
// Доставка best-effort: сбой отправки логируется вызывающим кодом и не
// откатывает сохранённую заявку (audit-запись важнее уведомления).
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// MailNotifier — SMTP-нотификатор на основе wneessen/go-mail.
type MailNotifier struct {
	client *mail.Client
	from   string
	to     string
	logger *slog.Logger
}

// New создаёт SMTP-нотификатор.
// from — адрес отправителя, to — адрес администратора, получающего заявки.
func New(host string, port int, username, password, from, to string, logger *slog.Logger) (*MailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание SMTP-клиента: %w", err)
	}

	return &MailNotifier{
		client: client,
		from:   from,
		to:     to,
		logger: logger.With(slog.String("component", "mail_notifier")),
	}, nil
}

// Send отправляет письмо администратору с указанной темой и текстом.
func (n *MailNotifier) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("некорректный адрес отправителя %q: %w", n.from, err)
	}
	if err := msg.To(n.to); err != nil {
		return fmt.Errorf("некорректный адрес получателя %q: %w", n.to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("отправка письма: %w", err)
	}

	n.logger.Debug("Уведомление отправлено", slog.String("subject", subject))
	return nil
}
