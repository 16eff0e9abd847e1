package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/pkg/logging"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestEnrichmentCompleted(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "staff@clinica.ro", logging.Default())

	err := svc.EnrichmentCompleted(context.Background(), "patient-1", "analize.pdf", 12)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "staff@clinica.ro", msg.To)
	assert.Contains(t, msg.Subject, "analize.pdf")
	assert.Contains(t, msg.Body, "12")
}

func TestEnrichmentFailed(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "staff@clinica.ro", logging.Default())

	err := svc.EnrichmentFailed(context.Background(), "patient-1", "analize.pdf", "extraction failed")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, "extraction failed")
}

func TestDisabledServiceIsNoOp(t *testing.T) {
	for _, svc := range []*Service{
		NewService(nil, "staff@clinica.ro", logging.Default()),
		NewService(&recordingSender{}, "", logging.Default()),
	} {
		assert.NoError(t, svc.EnrichmentCompleted(context.Background(), "p", "f.pdf", 1))
		assert.NoError(t, svc.EnrichmentFailed(context.Background(), "p", "f.pdf", "x"))
	}
}

func TestSendFailurePropagates(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewService(sender, "staff@clinica.ro", logging.Default())

	err := svc.EnrichmentCompleted(context.Background(), "patient-1", "analize.pdf", 3)
	require.Error(t, err)
}

func TestStubEmailSender(t *testing.T) {
	stub := NewStubEmailSender(logging.Default())
	assert.NoError(t, stub.Send(context.Background(), EmailMessage{To: "x@y.ro", Subject: "s"}))
}
