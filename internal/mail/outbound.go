package mail

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// NewOutbound picks how notification copies leave the process: through the
// broker when AMQP is configured, otherwise straight to SMTP. Either way the
// caller only enqueues; delivery runs in the background.
// It returns a nil Mailer when mail is disabled. The returned func releases it.
func NewOutbound(mailCfg config.MailConfig, queueCfg config.QueueConfig, logger *zap.Logger) (Mailer, func()) {
	switch {
	case !mailCfg.Enabled:
		return nil, func() {}
	case queueCfg.URL != "":
		publisher := NewQueuePublisher(queueCfg.URL, queueCfg.MailQueue, logger)
		async := NewAsyncMailer(publisher, 0, logger)
		return async, func() {
			async.Close()
			publisher.Close()
		}
	default:
		async := NewAsyncMailer(NewSMTPMailer(mailCfg), 0, logger)
		return async, async.Close
	}
}
