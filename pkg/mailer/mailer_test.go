package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/pkg/config"
)

func newTestMailer(t *testing.T) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "exams@example.com", FrontendURL: "https://portal.example.com"})
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestNewSMTPMailerDisabledWithoutHost(t *testing.T) {
	m, err := NewSMTPMailer(config.SMTPConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRenderRejectedIncludesReasonAndEscapes(t *testing.T) {
	m := newTestMailer(t)
	body, err := m.Render(Message{
		Template: TemplateSubmissionRejected,
		Params:   map[string]string{"instructorName": "Ada", "courseName": "CS101", "reason": "<b>missing rows</b>"},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "has been rejected")
	assert.Contains(t, body, "&lt;b&gt;missing rows&lt;/b&gt;")
	assert.Contains(t, body, "https://portal.example.com/lecturer")
	assert.NotContains(t, body, "Notes:")
}

func TestSendDeliversThroughSMTP(t *testing.T) {
	m := newTestMailer(t)
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:       "ada@example.com",
		Subject:  "Result Submission Approved",
		Template: TemplateSubmissionApproved,
		Params:   map[string]string{"instructorName": "Ada", "courseName": "CS101", "notes": "well done"},
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Result Submission Approved")
	assert.Contains(t, string(gotMsg), "well done")
}

func TestSendErrors(t *testing.T) {
	m := newTestMailer(t)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	assert.Error(t, m.Send(context.Background(), Message{To: "a@example.com", Template: TemplateSubmissionApproved}))
	assert.Error(t, m.Send(context.Background(), Message{Template: TemplateSubmissionApproved}))
	assert.Error(t, m.Send(context.Background(), Message{To: "a@example.com", Template: "unknown"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@example.com", Template: TemplateSubmissionApproved}), context.Canceled)
}
