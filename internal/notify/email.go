package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/metrics"
)

const queueKey = "vtu:notifications"

const popTimeout = 5 * time.Second

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	FromName string
}

// EmailNotifier кладет уведомления в очередь redis, фоновый консьюмер
// отправляет их по SMTP. Очередь разрывает сагу и медленный SMTP.
type EmailNotifier struct {
	redis *redis.Client
	smtp  SMTPConfig
	l     *logrus.Entry
}

func NewEmailNotifier(redisAddr string, smtpConf SMTPConfig, l *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		redis: redis.NewClient(&redis.Options{Addr: redisAddr}),
		smtp:  smtpConf,
		l: l.WithFields(logrus.Fields{
			"component": "notify",
			"module":    "email",
		}),
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) {
	data, marshalErr := json.Marshal(n)
	if marshalErr != nil {
		e.l.WithError(marshalErr).Error("marshal notification")
		return
	}
	if pushErr := e.redis.LPush(ctx, queueKey, data).Err(); pushErr != nil {
		e.l.WithError(pushErr).WithField("kind", n.Kind).Error("queue notification")
		return
	}
	e.l.WithFields(logrus.Fields{"kind": n.Kind, "transID": n.TransID}).Debug("notification queued")
}

// Run запускает консьюмер очереди до отмены контекста.
func (e *EmailNotifier) Run(ctx context.Context) {
	e.l.Info("Starting")
	for {
		select {
		case <-ctx.Done():
			e.l.Info("Got stop signal, exiting...")
			return
		default:
			res, popErr := e.redis.BRPop(ctx, popTimeout, queueKey).Result()
			if popErr != nil {
				if popErr == redis.Nil || ctx.Err() != nil {
					continue
				}
				e.l.WithError(popErr).Error("pop notification")
				time.Sleep(time.Second)
				continue
			}
			// BRPop возвращает пару [ключ, значение]
			if len(res) != 2 { //nolint:mnd
				continue
			}
			e.deliver(res[1])
		}
	}
}

func (e *EmailNotifier) deliver(payload string) {
	var n Notification
	if jsonErr := json.Unmarshal([]byte(payload), &n); jsonErr != nil {
		e.l.WithError(jsonErr).Error("unmarshal notification")
		return
	}
	if n.Email == "" {
		return
	}

	subject, body := composeEmail(n)
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		e.smtp.FromName, e.smtp.From, n.Email, subject, body)

	addr := e.smtp.Host + ":" + e.smtp.Port
	auth := smtp.PlainAuth("", e.smtp.User, e.smtp.Password, e.smtp.Host)

	if sendErr := smtp.SendMail(addr, auth, e.smtp.From, []string{n.Email}, []byte(msg)); sendErr != nil {
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "error").Inc()
		e.l.WithError(sendErr).WithField("kind", n.Kind).Error("send email")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
	e.l.WithFields(logrus.Fields{"kind": n.Kind, "transID": n.TransID}).Info("email sent")
}

func composeEmail(n Notification) (string, string) {
	switch n.Kind {
	case KindPurchaseSuccess:
		return "Purchase successful",
			fmt.Sprintf("Dear %s,\n\nYour purchase of %s NGN was successful.\nTransaction: %s\n%s\n",
				n.Name, n.Amount.StringFixed(2), n.TransID, n.Detail)
	case KindPurchaseFailed:
		return "Purchase failed",
			fmt.Sprintf("Dear %s,\n\nYour purchase of %s NGN failed.\nTransaction: %s\nReason: %s\n",
				n.Name, n.Amount.StringFixed(2), n.TransID, n.Detail)
	case KindRefundIssued:
		return "Refund issued",
			fmt.Sprintf("Dear %s,\n\nWe refunded %s NGN to your wallet.\nReference: %s\n",
				n.Name, n.Amount.StringFixed(2), n.Reference)
	case KindWalletFunded:
		return "Wallet funded",
			fmt.Sprintf("Dear %s,\n\nYour wallet was funded with %s NGN.\nReference: %s\n",
				n.Name, n.Amount.StringFixed(2), n.Reference)
	default:
		return "Notification", n.Detail
	}
}
