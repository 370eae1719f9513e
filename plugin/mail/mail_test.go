package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	m, err := New(Config{Host: "smtp.example.org", From: "a@example.org", To: []string{"b@example.org"}})
	require.NoError(t, err)
	assert.Equal(t, 587, m.config.Port)
}

func TestSendReport(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.org", From: "a@example.org", To: []string{"b@example.org", "c@example.org"}})
	require.NoError(t, err)
	fake := &fakeSender{}
	m.dialer = fake

	require.NoError(t, m.SendReport("openhours run", "12 facilities changed", "<h1>Report</h1>"))

	require.Len(t, fake.sent, 1)
	msg := fake.sent[0]
	assert.Equal(t, []string{"a@example.org"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"b@example.org", "c@example.org"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"openhours run"}, msg.GetHeader("Subject"))
}

func TestSendReportWrapsDialError(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.org", From: "a@example.org", To: []string{"b@example.org"}})
	require.NoError(t, err)
	m.dialer = &fakeSender{err: assert.AnError}

	sendErr := m.SendReport("s", "t", "")
	require.Error(t, sendErr)
	assert.Contains(t, sendErr.Error(), "failed to send report mail")
}
