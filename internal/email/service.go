package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"makerspace/internal/events"
	"makerspace/internal/logger"
	"makerspace/internal/metrics"
)

const (
	queueKey  = "emails"
	failedKey = "emails:failed"
	maxTries  = 3
)

const (
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingPending   = "booking_pending"
	TypeCancellation     = "cancellation"
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Options struct {
	From      string
	FromName  string
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	RedisAddr string
	// Location is used to render slot times in messages.
	Location *time.Location
}

// Service queues outgoing mail in Redis and delivers it from Start.
type Service struct {
	redis      *redis.Client
	opts       Options
	retryDelay time.Duration
	send       func(job EmailJob) error
}

func New(opts Options) *Service {
	return newService(redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), opts)
}

func newService(rdb *redis.Client, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &Service{
		redis:      rdb,
		opts:       opts,
		retryDelay: 5 * time.Second,
	}
	s.send = s.sendSMTP
	return s
}

// Ping reports whether the queue backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Service) Send(ctx context.Context, emailType, to, name, subject, body string) error {
	job := EmailJob{
		Type:    emailType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		metrics.RecordEmail(emailType, "queue_error")
		return fmt.Errorf("queue email to %s: %w", to, err)
	}

	metrics.RecordEmail(emailType, "queued")
	logger.Info("Email queued", "type", emailType, "to", to)
	return nil
}

// Start delivers queued mail until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	if n, err := s.redis.LLen(ctx, queueKey).Result(); err == nil {
		metrics.EmailQueueLength.Set(float64(n))
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Dropping malformed email job: %v", err)
		return
	}

	job.Tries++
	if err := s.send(job); err != nil {
		logger.WithError(err).Warnw("Email delivery failed", "to", job.To, "attempt", job.Tries)

		if job.Tries < maxTries {
			s.retry(ctx, job)
			return
		}
		metrics.RecordEmail(job.Type, "failed")
		s.saveFailed(job, err)
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("Email sent", "type", job.Type, "to", job.To)
}

func (s *Service) retry(ctx context.Context, job EmailJob) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}

	data, _ := json.Marshal(job)
	// Requeue even when shutting down so the job survives the restart.
	if err := s.redis.LPush(context.Background(), queueKey, string(data)).Err(); err != nil {
		logger.WithError(err).Errorw("Failed to requeue email", "to", job.To)
		return
	}
	metrics.RecordEmail(job.Type, "retry")
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, string(data))
	logger.Error("Email moved to failed queue", "to", job.To, "tries", job.Tries)
}

func (s *Service) sendSMTP(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.opts.FromName, s.opts.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.opts.SMTPUser != "" && s.opts.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.opts.SMTPUser, s.opts.SMTPPass, s.opts.SMTPHost)
	}

	addr := s.opts.SMTPHost + ":" + s.opts.SMTPPort
	return smtp.SendMail(addr, auth, s.opts.From, []string{job.To}, []byte(message))
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

// SendBookingConfirmation mails the slot list of a booking.confirmed event.
// Pending bookings get a reminder that payment is still outstanding.
func (s *Service) SendBookingConfirmation(ctx context.Context, to, name string, e events.Event) error {
	emailType, subject, intro := TypeBookingConfirmed, "Booking Confirmed - "+e.EquipmentName, "Your booking is confirmed!"
	if e.Status == "pending" {
		emailType = TypeBookingPending
		subject = "Booking Received - " + e.EquipmentName
		intro = "Your slots are held. The booking will be confirmed once payment is received."
	}

	body := fmt.Sprintf(`Hi %s,

%s

Equipment: %s
Slots:
%s

See you in the shop!

- %s`, name, intro, e.EquipmentName, s.formatWindows(e.Windows), s.opts.FromName)

	return s.Send(ctx, emailType, to, name, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, to, name string, e events.Event) error {
	subject := "Booking Cancelled - " + e.EquipmentName
	refund := "No refund is due."
	if e.RefundCents > 0 {
		refund = fmt.Sprintf("A refund of $%d.%02d will be issued.", e.RefundCents/100, e.RefundCents%100)
	}

	body := fmt.Sprintf(`Hi %s,

The following slots on %s have been cancelled:
%s

%s

- %s`, name, e.EquipmentName, s.formatWindows(e.Windows), refund, s.opts.FromName)

	return s.Send(ctx, TypeCancellation, to, name, subject, body)
}

func (s *Service) formatWindows(ws []events.Window) string {
	lines := make([]string, 0, len(ws))
	for _, w := range ws {
		start := w.Start.In(s.opts.Location)
		end := w.End.In(s.opts.Location)
		lines = append(lines, fmt.Sprintf("  %s - %s", start.Format("Jan 2, 2006 3:04 PM"), end.Format("3:04 PM")))
	}
	return strings.Join(lines, "\n")
}
