package notify

import (
	"context"
	"fmt"

	"github.com/medicore/clinic-platform/pkg/logging"
)

// Service sends enrichment outcome notifications to the clinic staff inbox.
// Delivery is best effort: the pipeline logs failures and moves on.
type Service struct {
	email   EmailSender
	inbox   string
	logger  *logging.Logger
	enabled bool
}

// NewService creates a notification service. With no sender or inbox the
// service stays disabled and every call is a logged no-op.
func NewService(email EmailSender, inbox string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:   email,
		inbox:   inbox,
		logger:  logger,
		enabled: email != nil && inbox != "",
	}
}

// EnrichmentCompleted announces that a lab document finished processing.
func (s *Service) EnrichmentCompleted(ctx context.Context, patientID, fileName string, resultCount int) error {
	if !s.enabled {
		s.logger.Debug("notifications disabled, skipping completion email", "patient_id", patientID)
		return nil
	}

	msg := EmailMessage{
		To:      s.inbox,
		Subject: fmt.Sprintf("Analize procesate: %s", fileName),
		Body: fmt.Sprintf(
			"Documentul %q pentru pacientul %s a fost procesat.\n\n"+
				"Rezultate extrase: %d\n"+
				"Rezultatele sunt vizibile în cronologia pacientului.",
			fileName, patientID, resultCount),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: completion email: %w", err)
	}
	return nil
}

// EnrichmentFailed announces that processing a lab document failed.
func (s *Service) EnrichmentFailed(ctx context.Context, patientID, fileName, reason string) error {
	if !s.enabled {
		s.logger.Debug("notifications disabled, skipping failure email", "patient_id", patientID)
		return nil
	}

	msg := EmailMessage{
		To:      s.inbox,
		Subject: fmt.Sprintf("Eroare la procesarea analizelor: %s", fileName),
		Body: fmt.Sprintf(
			"Documentul %q pentru pacientul %s nu a putut fi procesat.\n\n"+
				"Motiv: %s\n"+
				"Documentul poate fi reîncărcat din fișa pacientului.",
			fileName, patientID, reason),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: failure email: %w", err)
	}
	return nil
}
