package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/acmecorp/auth-service/internal/api/metrics"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
)

// Dispatcher delivers mail jobs through a fixed set of workers sharded by
// recipient, so mails to the same address keep their order. OTP codes are
// generated inside the worker at send time, which keeps last-writer-wins
// semantics between a queued login OTP and an explicit resend, and means no
// OTP store access ever overlaps the blocking SMTP call.
type Dispatcher struct {
	workers []chan ports.MailJob
	otp     ports.OtpService
	mailer  ports.Mailer
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, otp ports.OtpService, mailer ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.MailJob, numWorkers),
		otp:     otp,
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a job to the worker responsible for its recipient.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(job ports.MailJob) {
	idx := d.shardIndex(job.Recipient)
	d.workers[idx] <- job
	metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.MailJob) {
	worker := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(worker).Set(float64(len(ch)))
			if err := d.process(ctx, job); err != nil {
				metrics.MailDispatchTotal.WithLabelValues(job.Kind, "failed").Inc()
				d.log.Error().Err(err).
					Str("job_id", job.ID).
					Str("kind", job.Kind).
					Str("owner", job.Owner).
					Int("worker_id", id).
					Msg("mail dispatch failed")
				continue
			}
			metrics.MailDispatchTotal.WithLabelValues(job.Kind, "sent").Inc()
			d.log.Debug().Str("job_id", job.ID).Str("kind", job.Kind).Msg("mail dispatched")
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job ports.MailJob) error {
	switch job.Kind {
	case ports.MailKindOtp:
		code, err := d.otp.Generate(ctx, job.Owner)
		if err != nil {
			return fmt.Errorf("generate otp: %w", err)
		}
		return d.mailer.SendOtp(ctx, job.Recipient, code)
	case ports.MailKindVerification:
		return d.mailer.SendVerification(ctx, job.Recipient, job.Code)
	default:
		return fmt.Errorf("unknown mail kind %q", job.Kind)
	}
}
