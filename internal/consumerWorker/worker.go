package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"charityevents/internal/dto"
	"charityevents/internal/mailer"
	"charityevents/internal/rabbit"
	"charityevents/internal/repo"
)

// Reader consumes registration notices from RabbitMQ and sends the
// participant a confirmation email.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	smtp   mailer.Config
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, smtp mailer.Config) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		smtp: smtp,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.RegistrationNoticeMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("registration_id", msg.RegistrationID).
				Int("event_id", msg.EventID).
				Msg("Received registration notice")

			event, err := r.repo.GetEventByID(cctx, int64(msg.EventID))
			if err != nil {
				zlog.Logger.Error().
					Err(err).
					Int("event_id", msg.EventID).
					Msg("Failed to get event from DB in worker")
				return nil
			}

			if err := mailer.SendConfirmationEmail(
				&zlog.Logger,
				r.smtp,
				event.Title,
				msg.UserName,
				msg.Email,
				msg.Tickets,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Msg("Failed to send confirmation e-mail")
			} else {
				zlog.Logger.Info().
					Str("email", msg.Email).
					Int64("registration_id", msg.RegistrationID).
					Msg("Confirmation email sent successfully")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
