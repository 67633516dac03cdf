package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/config"
	"github.com/synesthesie/verification/internal/models"
)

// EmailSender is the templated email channel.
type EmailSender interface {
	SendTemplate(ctx context.Context, to, subject, templateID string, data map[string]string) error
}

// SMSSender is the plain text SMS channel.
type SMSSender interface {
	SendSMS(ctx context.Context, to, content string) error
}

const (
	subjectRegister    = "Complete sign up"
	subjectChangeEmail = "Change Your Email"
)

var smsContent = map[models.CodeType]string{
	models.CodeTypeRegister:      "%s: your sign up code is %s. It expires in %d minutes.",
	models.CodeTypeChangeEmail:   "%s: your code to confirm your new email is %s. It expires in %d minutes.",
	models.CodeTypeChangePhone:   "%s: your code to confirm your new phone number is %s. It expires in %d minutes.",
	models.CodeTypeResetPassword: "%s: your password reset code is %s. It expires in %d minutes. Do not share it.",
}

type DispatcherConfig struct {
	AppName          string
	RegisterTemplate string
	VerifyTemplate   string
	Workers          int
	QueueSize        int
	Timeout          time.Duration
}

func NewDispatcherConfig(cfg *config.Config) DispatcherConfig {
	return DispatcherConfig{
		AppName:          cfg.AppName,
		RegisterTemplate: cfg.EmailTemplateRegister,
		VerifyTemplate:   cfg.EmailTemplateVerify,
		Workers:          cfg.DispatchWorkers,
		QueueSize:        cfg.DispatchQueueSize,
		Timeout:          cfg.DispatchTimeout,
	}
}

type dispatchJob struct {
	id   string
	code models.SecurityCode
}

// NotificationDispatcher delivers codes by email or SMS on a pool of
// background workers. Dispatch never blocks and delivery errors never reach
// the caller.
type NotificationDispatcher struct {
	email EmailSender
	sms   SMSSender
	cfg   DispatcherConfig

	jobs      chan dispatchJob
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewNotificationDispatcher(email EmailSender, sms SMSSender, cfg DispatcherConfig) *NotificationDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &NotificationDispatcher{
		email: email,
		sms:   sms,
		cfg:   cfg,
		jobs:  make(chan dispatchJob, cfg.QueueSize),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *NotificationDispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				for job := range d.jobs {
					d.run(job)
				}
			}()
		}
		log.Info().Int("workers", d.cfg.Workers).Int("queue", d.cfg.QueueSize).Msg("notification dispatcher started")
	})
}

// Dispatch queues code for delivery and returns immediately. When the queue
// is full or the dispatcher is shut down the job is dropped.
func (d *NotificationDispatcher) Dispatch(code models.SecurityCode) {
	job := dispatchJob{id: uuid.NewString(), code: code}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn().Str("job_id", job.id).Int64("code_id", code.ID).Msg("dispatcher closed, notification dropped")
		return
	}
	select {
	case d.jobs <- job:
	default:
		log.Warn().Str("job_id", job.id).Int64("code_id", code.ID).Msg("dispatch queue full, notification dropped")
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for
// ctx to end.
func (d *NotificationDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) run(job dispatchJob) {
	logger := log.With().Str("job_id", job.id).Int64("code_id", job.code.ID).Str("type", string(job.code.Type)).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("send code panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if err := d.Send(ctx, job.code); err != nil {
		logger.Error().Err(err).Msg("send code fail")
		return
	}
	logger.Info().Dur("took", time.Since(start)).Msg("code sent")
}

// Send delivers code synchronously: names containing "@" go out as templated
// email, anything else as SMS.
func (d *NotificationDispatcher) Send(ctx context.Context, code models.SecurityCode) error {
	if strings.Contains(code.Name, "@") {
		subject, templateID := d.emailTemplate(code.Type)
		return d.email.SendTemplate(ctx, code.Name, subject, templateID, CodeDataFields(code.Code))
	}

	content, err := d.FormatContent(code)
	if err != nil {
		return err
	}
	return d.sms.SendSMS(ctx, code.Name, content)
}

func (d *NotificationDispatcher) emailTemplate(t models.CodeType) (subject, templateID string) {
	if t == models.CodeTypeRegister {
		return subjectRegister, d.cfg.RegisterTemplate
	}
	return subjectChangeEmail, d.cfg.VerifyTemplate
}

// FormatContent renders the SMS text for code's type.
func (d *NotificationDispatcher) FormatContent(code models.SecurityCode) (string, error) {
	format, ok := smsContent[code.Type]
	if !ok {
		return "", fmt.Errorf("no sms content for code type %q", code.Type)
	}
	return fmt.Sprintf(format, d.cfg.AppName, code.Code, int(CodeTTL.Minutes())), nil
}

// CodeDataFields splits code into one template field per digit: code1, code2, ...
func CodeDataFields(code string) map[string]string {
	data := make(map[string]string, len(code))
	for i, r := range code {
		data["code"+strconv.Itoa(i+1)] = string(r)
	}
	return data
}
