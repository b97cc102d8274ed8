package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
)

func TestBuildMessage(t *testing.T) {
	svc := NewService(&config.EmailConfig{SMTPFrom: "noreply@example.com"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	msg := string(svc.buildMessage("lead@example.com", "Approved: Innovation Challenge", "<p>hi</p>", now))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\nTo: lead@example.com\r\n"))
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, msg, "Date: Sun, 01 Mar 2026 09:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestSendWithoutHostFails(t *testing.T) {
	svc := NewService(&config.EmailConfig{})
	assert.False(t, svc.Send(context.Background(), "lead@example.com", "s", "b"))
}

func TestSendRejectsHeaderInjection(t *testing.T) {
	svc := NewService(&config.EmailConfig{SMTPHost: "127.0.0.1", SMTPPort: "1"})
	assert.False(t, svc.Send(context.Background(), "a@example.com\r\nBcc: x@example.com", "s", "b"))
}

// fakeSMTP accepts one message and returns the DATA section
func fakeSMTP(t *testing.T) (string, <-chan string) {
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
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		write("220 localhost ESMTP")

		var body strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					data <- body.String()
					write("250 OK")
					continue
				}
				body.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 localhost")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	return ln.Addr().String(), data
}

func TestSendDeliversToServer(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	svc := NewService(&config.EmailConfig{SMTPHost: host, SMTPPort: port, SMTPFrom: "noreply@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.True(t, svc.Send(ctx, "lead@example.com", "Hello", "<p>body</p>"))

	select {
	case msg := <-data:
		assert.Contains(t, msg, "To: lead@example.com")
		assert.Contains(t, msg, "<p>body</p>")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive message")
	}
}
