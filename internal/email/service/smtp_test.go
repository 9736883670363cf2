package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

type sentMail struct {
	addr string
	from string
	to   []string
	raw  []byte
}

func newTestSMTP(cfg config.MailConfig) (*SMTP, *[]sentMail) {
	s := NewSMTP(cfg)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	var sent []sentMail
	s.send = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, raw: msg})
		return nil
	}
	return s, &sent
}

func TestSMTP_SendsMultipartAlternative(t *testing.T) {
	s, sent := newTestSMTP(config.MailConfig{SMTPHost: "mail.local", SMTPPort: 2525, From: "no-reply@trees.org"})

	err := s.Send(context.Background(), edomain.Message{
		To:      "sam@example.com",
		Subject: "[Tree Tracker] 2 overdue tasks need attention",
		HTML:    "<p>Hello Sam</p>",
		Text:    "Hello Sam",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "mail.local:2525", got.addr)
	assert.Equal(t, "no-reply@trees.org", got.from)
	assert.Equal(t, []string{"sam@example.com"}, got.to)

	mr, err := mail.CreateReader(bytes.NewReader(got.raw))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "[Tree Tracker] 2 overdue tasks need attention", subject)

	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		h, ok := p.Header.(*mail.InlineHeader)
		require.True(t, ok)
		ct, _, _ := h.ContentType()
		b, _ := io.ReadAll(p.Body)
		types = append(types, ct)
		bodies = append(bodies, string(b))
	}
	assert.Equal(t, []string{"text/plain", "text/html"}, types)
	assert.Equal(t, []string{"Hello Sam", "<p>Hello Sam</p>"}, bodies)
}

func TestSMTP_MessageFromOverridesConfig(t *testing.T) {
	s, sent := newTestSMTP(config.MailConfig{SMTPHost: "mail.local", SMTPPort: 25, From: "cfg@trees.org"})

	err := s.Send(context.Background(), edomain.Message{From: "ops@trees.org", To: "a@b.com", Subject: "s", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "ops@trees.org", (*sent)[0].from)
}

func TestSMTP_NotConfigured(t *testing.T) {
	s, sent := newTestSMTP(config.MailConfig{})

	err := s.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s", Text: "t"})
	assert.True(t, errors.Is(err, edomain.ErrNotConfigured))
	assert.Empty(t, *sent)
}

func TestSMTP_InvalidMessage(t *testing.T) {
	s, sent := newTestSMTP(config.MailConfig{SMTPHost: "mail.local", SMTPPort: 25, From: "x@y.z"})

	err := s.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s"})
	assert.True(t, errors.Is(err, edomain.ErrInvalidMessage))
	assert.Empty(t, *sent)
}

func TestSMTP_TransportErrorIsWrapped(t *testing.T) {
	s := NewSMTP(config.MailConfig{SMTPHost: "mail.local", SMTPPort: 25, From: "x@y.z"})
	boom := errors.New("connection refused")
	s.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error { return boom }

	err := s.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a@b.com")
}

// fakeSMTPServer accepts one connection and speaks just enough SMTP to take
// a message. It returns the listener address and the received DATA.
func fakeSMTPServer(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	data := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = io.WriteString(conn, s+"\r\n") }
		reply("220 fake ready")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 ok")
			case cmd == "DATA":
				reply("354 go ahead")
				var b strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					b.WriteString(l)
				}
				data <- b.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unsupported")
			}
		}
	}()
	return ln.Addr().String(), data
}

func TestSendMail_DeliversOverSMTP(t *testing.T) {
	addr, data := fakeSMTPServer(t)

	err := sendMail(context.Background(), addr, nil, "no-reply@trees.org", []string{"sam@example.com"}, []byte("Subject: hi\r\n\r\nHello Sam\r\n"))
	require.NoError(t, err)

	select {
	case got := <-data:
		assert.Contains(t, got, "Hello Sam")
	case <-time.After(2 * time.Second):
		t.Fatal("server never received DATA")
	}
}

func TestSendMail_StalledServerHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Never greet; hold the connection until the listener goes away.
		<-time.After(5 * time.Second)
		_ = conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = sendMail(ctx, ln.Addr().String(), nil, "no-reply@trees.org", []string{"a@b.com"}, []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendMail_CancelledBeforeDial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sendMail(ctx, "127.0.0.1:1", nil, "a@b.c", []string{"d@e.f"}, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
