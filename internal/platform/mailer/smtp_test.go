package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturedMail struct {
	from string
	to   []string
	body string
}

func newTestSender(t *testing.T, sendErr error) (*SMTPSender, *[]capturedMail) {
	t.Helper()
	sender, err := NewSMTPSender(config.EmailConfig{
		Enabled:       true,
		Host:          "smtp.example.com",
		Port:          587,
		Username:      "mailer",
		Password:      "secret",
		From:          "TaskHub <noreply@example.com>",
		RatePerSecond: 100,
		Burst:         10,
	}, testLogger())
	require.NoError(t, err)

	var sent []capturedMail
	sender.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		from, err := msg.GetSender(false)
		require.NoError(t, err)
		to, err := msg.GetRecipients()
		require.NoError(t, err)
		var body bytes.Buffer
		_, err = msg.WriteTo(&body)
		require.NoError(t, err)
		sent = append(sent, capturedMail{from: from, to: to, body: body.String()})
		return sendErr
	}
	sender.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return sender, &sent
}

// silentRelay accepts connections and never sends the SMTP greeting.
func silentRelay(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSMTPSender_SendPlainText(t *testing.T) {
	sender, sent := newTestSender(t, nil)

	err := sender.Send(context.Background(), Message{
		To:      "Ada <ada@example.com>",
		Subject: "New Notification: Report due",
		Text:    "Hi Ada,\n\nReport due",
	})
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "noreply@example.com", mail.from)
	assert.Equal(t, []string{"ada@example.com"}, mail.to)
	assert.Contains(t, mail.body, "Subject: New Notification: Report due")
	assert.Contains(t, mail.body, "text/plain")
	assert.Contains(t, mail.body, "Report due")
	assert.NotContains(t, mail.body, "text/html")
}

func TestSMTPSender_SendMultipart(t *testing.T) {
	sender, sent := newTestSender(t, nil)

	err := sender.Send(context.Background(), Message{
		To:      "ada@example.com",
		Subject: "Hello",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	body := (*sent)[0].body
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "text/html")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "<p>html body</p>")
}

func TestSMTPSender_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	sender, _ := newTestSender(t, boom)

	err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "smtp.example.com:587")
}

func TestSMTPSender_RateLimitHonoursContext(t *testing.T) {
	sender, sent := newTestSender(t, nil)
	sender.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	msg := Message{To: "a@example.com", Subject: "s", Text: "t"}

	require.NoError(t, sender.Send(context.Background(), msg))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := sender.Send(ctx, msg)
	assert.Error(t, err)
	assert.Len(t, *sent, 1)
}

func TestSMTPSender_UnresponsiveRelayHonoursDeadline(t *testing.T) {
	host, port := silentRelay(t)
	sender, err := NewSMTPSender(config.EmailConfig{
		Enabled: true,
		Host:    host,
		Port:    port,
		From:    "noreply@example.com",
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sender.Send(ctx, Message{To: "a@example.com", Subject: "s", Text: "t"})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(3 * time.Second):
		t.Fatal("Send did not return after its context deadline")
	}
}

func TestNewSMTPSender_Validation(t *testing.T) {
	_, err := NewSMTPSender(config.EmailConfig{Host: "smtp.example.com", From: "nope"}, testLogger())
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewSMTPSender(config.EmailConfig{From: "a@example.com"}, testLogger())
	assert.Error(t, err)

	_, err = NewSMTPSender(config.EmailConfig{Host: "smtp.example.com", Port: 70000, From: "a@example.com"}, testLogger())
	assert.Error(t, err)

	sender, err := NewSMTPSender(config.EmailConfig{Host: "localhost", Port: 25, From: "a@example.com"}, testLogger())
	require.NoError(t, err)
	assert.Empty(t, sender.username)
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"valid", Message{To: "a@example.com", Subject: "s", Text: "t"}, nil},
		{"html only", Message{To: "a@example.com", Subject: "s", HTML: "<b>t</b>"}, nil},
		{"no recipient", Message{Subject: "s", Text: "t"}, ErrNoRecipient},
		{"bad recipient", Message{To: "not an address", Subject: "s", Text: "t"}, ErrInvalidAddress},
		{"no subject", Message{To: "a@example.com", Text: "t"}, ErrEmptySubject},
		{"no body", Message{To: "a@example.com", Subject: "s"}, ErrEmptyBody},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender(testLogger())
	assert.NoError(t, sender.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"}))
	assert.ErrorIs(t, sender.Send(context.Background(), Message{}), ErrNoRecipient)
}
