package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender() *Sender {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewSender(&config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SenderEmail: "dashboard@example.com",
	}, log)
}

var digestInsight = &models.Insight{
	Provider:     "openai",
	Model:        "gpt-3.5-turbo",
	TotalRecords: 1000,
	Content:      "**Key Insights:**\n\n- car loans dominate",
	CreatedAt:    time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
}

func TestSendDigest(t *testing.T) {
	s := newTestSender()
	var (
		sent *email.Email
		addr string
	)
	s.send = func(e *email.Email, a string, _ smtp.Auth) error {
		sent, addr = e, a
		return nil
	}

	require.NoError(t, s.SendDigest([]string{"risk@example.com"}, digestInsight))
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, "dashboard@example.com", sent.From)
	assert.Equal(t, []string{"risk@example.com"}, sent.To)
	assert.Equal(t, "Credit Risk Digest 2026-10-19", sent.Subject)
	assert.Contains(t, string(sent.Text), "over 1000 credit applications")
	assert.Contains(t, string(sent.Text), "- car loans dominate")
	assert.Contains(t, string(sent.HTML), "<strong>Key Insights:</strong>")
}

func TestSendDigestFallbackNote(t *testing.T) {
	s := newTestSender()
	fallback := *digestInsight
	fallback.Fallback = true

	e, err := s.BuildDigest([]string{"risk@example.com"}, &fallback)
	require.NoError(t, err)
	assert.Contains(t, string(e.Text), "rule-based summary")
}

func TestSendDigestErrors(t *testing.T) {
	s := newTestSender()
	assert.Error(t, s.SendDigest(nil, digestInsight))

	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }
	err := s.SendDigest([]string{"risk@example.com"}, digestInsight)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
