package service

import (
	"context"
	"time"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/logger"
	"github.com/unclebandit/mailer-backend/internal/transport"
	"github.com/unclebandit/mailer-backend/internal/validator"
)

// TestEmail is a single diagnostic send. It skips quota, queueing and
// tracking.
type TestEmail struct {
	To        string `json:"to" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	HTML      string `json:"html" validate:"required"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail" validate:"required"`
}

type TestEmailResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendTestEmail hands msg straight to the transport. Failures are reported
// in the result, never as an error.
func (s *DispatchService) SendTestEmail(ctx context.Context, msg TestEmail) (res TestEmailResult) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if !res.Success {
			outcome = "error"
		}
		s.Metrics.IncDispatch(modeTest, outcome)
		s.Metrics.ObserveDispatch(modeTest, time.Since(start).Seconds())
	}()

	if s.Transport == nil {
		return TestEmailResult{Error: appErrors.ErrTransportConfigMissing.Error()}
	}

	to := validator.Validate(msg.To)
	if !to.Valid {
		return TestEmailResult{Error: "invalid recipient address: " + string(to.Reason)}
	}
	from := validator.Validate(msg.FromEmail)
	if !from.Valid {
		return TestEmailResult{Error: "invalid sender address: " + string(from.Reason)}
	}

	subject, html := msg.Subject, msg.HTML
	if s.Templates != nil {
		compiled, err := s.Templates.Compile(subject, html)
		if err != nil {
			s.Log.Warn().Err(err).Msg("test email has invalid merge tags")
		}
		subject, html = compiled.Render(MergeData{Email: to.Normalized})
	}

	id, err := s.Transport.Send(ctx, transport.Message{
		FromName:  msg.FromName,
		FromEmail: from.Normalized,
		To:        to.Normalized,
		Subject:   subject,
		HTML:      html,
		Tags:      map[string]string{"kind": "test"},
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("to", logger.RedactEmail(to.Normalized)).Msg("test email failed")
		return TestEmailResult{Error: err.Error()}
	}

	s.Log.Info().Str("to", logger.RedactEmail(to.Normalized)).Str("message_id", id).Msg("test email sent")
	return TestEmailResult{Success: true, MessageID: id}
}
