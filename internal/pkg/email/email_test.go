package email

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []Message
}

func (c *captureSender) Send(msg Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestPasswordResetEmail(t *testing.T) {
	cs := &captureSender{}
	svc := newEmailService(cs, "https://guidance.example/", zerolog.Nop())

	require.NoError(t, svc.SendPasswordResetEmail("ana@example.com", "Ana <Reyes>", "tok123"))
	require.Len(t, cs.sent, 1)

	msg := cs.sent[0]
	assert.Equal(t, "ana@example.com", msg.ToEmail)
	assert.Contains(t, msg.HTML, "https://guidance.example/reset-password?token=tok123")
	assert.Contains(t, msg.HTML, "Ana &lt;Reyes&gt;")
}

func TestGuidanceNoticeEmail_EscapesAndKeepsParagraphs(t *testing.T) {
	cs := &captureSender{}
	svc := newEmailService(cs, "", zerolog.Nop())

	require.NoError(t, svc.SendGuidanceNoticeEmail("s@example.com", "Ben", "Guidance Office Notice", "Please come <today>.\n\nRoom 4"))
	assert.Contains(t, cs.sent[0].HTML, "<p>Please come &lt;today&gt;.</p><p>Room 4</p>")
}

func TestTeacherDecisionEmail(t *testing.T) {
	cs := &captureSender{}
	svc := newEmailService(cs, "", zerolog.Nop())

	require.NoError(t, svc.SendTeacherDecisionEmail("t@example.com", "Tess", false, "Unknown employee id"))
	assert.Equal(t, "Your teacher registration was not approved", cs.sent[0].Subject)
	assert.Contains(t, cs.sent[0].HTML, "Reason: Unknown employee id")
}

func TestNewEmailService_FallsBackToLogSender(t *testing.T) {
	var buf bytes.Buffer
	svc := NewEmailService(Config{FromEmail: "g@example.com"}, zerolog.New(&buf))

	require.NoError(t, svc.SendGuidanceNoticeEmail("s@example.com", "Ben", "Hi", "Body"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "s@example.com", entry["toEmail"])
}

func TestSendGridPrepare(t *testing.T) {
	s := NewSendGridSender("key", "Guidance", "g@example.com", zerolog.Nop())
	m := s.prepare(Message{ToEmail: "x@example.com", ToName: "X", Subject: "S", HTML: "<p>hi</p>"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "S", m.Personalizations[0].Subject)
	assert.Equal(t, "x@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "g@example.com", m.From.Address)
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("g@example.com", "Guidance", Message{ToEmail: "x@example.com", Subject: "S", HTML: "<p>b</p>"}))
	assert.Contains(t, raw, "From: Guidance <g@example.com>\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>b</p>")
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
