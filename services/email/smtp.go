package emailsvc

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/emisoft/buzon/core"
)

// smtpService delivers through a plain SMTP relay (host/port/credentials
// from config) for deployments without a SendGrid account.
type smtpService struct {
	addr             string
	auth             smtp.Auth
	defaultFromEmail mail.Address
	subjPrefix       string
	queue            *core.MailQueue
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(logger core.Logger) core.EmailService {
	conf := core.Conf.Mail
	var auth smtp.Auth
	if conf.Username != "" {
		auth = smtp.PlainAuth("", conf.Username, conf.Password, conf.Host)
	}
	svc := &smtpService{
		addr:             conf.Host + ":" + strconv.Itoa(conf.Port),
		auth:             auth,
		defaultFromEmail: core.Conf.DefaultFromEmail,
		subjPrefix:       "[" + core.Conf.AppName + "] ",
	}
	svc.queue = core.NewMailQueue(svc, logger, conf.QueueSize)
	return svc
}

func (svc *smtpService) SendMessages(messages ...*core.EmailMessage) {
	svc.queue.Enqueue(messages...)
}

func (svc *smtpService) SendMessagesSync(messages ...*core.EmailMessage) error {
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			return errors.Wrap(err, "rendering email")
		}
		if msg.HasRecipients() && msg.HasContent() {
			if err := svc.send(*msg); err != nil {
				return errors.Wrap(err, "sending email")
			}
		}
	}
	return nil
}

func (svc *smtpService) send(msg core.EmailMessage) error {
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprint(body, "Content-Type: text/plain; charset=utf-8\r\n")
	_, _ = fmt.Fprint(body, "\r\n")
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.TextContent)

	rcpts := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, lst := range [][]mail.Address{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range lst {
			rcpts = append(rcpts, a.Address)
		}
	}
	return smtp.SendMail(svc.addr, svc.auth, svc.defaultFromEmail.Address, rcpts, []byte(body.String()))
}
