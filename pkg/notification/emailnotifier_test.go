package notification

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentSMTPServer accepts connections but never sends the SMTP greeting,
// so a client sits waiting on its read deadline.
func silentSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
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
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestNewEmailNotifier(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "localhost",
		Port: 1025,
		From: "noreply@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, notifier.client)
}

func TestDialTimeoutIsSeconds(t *testing.T) {
	assert.Equal(t, 10*time.Second, dialTimeout)
}

// A mail server that never answers must hold the send open until the dial
// timeout, not fail immediately with a sub-millisecond deadline.
func TestSendWaitsForSlowServer(t *testing.T) {
	host, port := silentSMTPServer(t)

	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: host,
		Port: port,
		From: "noreply@example.com",
	})
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		result <- notifier.Send(EmailVerificationNotice, NotificationData{
			To: "user@example.com",
		}, NoticeTemplate{Subject: "Verify Your Email Address"})
	}()

	select {
	case err := <-result:
		t.Fatalf("send returned after %v before the timeout could elapse: %v", 250*time.Millisecond, err)
	case <-time.After(250 * time.Millisecond):
		// still waiting on the greeting, as expected
	}
}

func TestNewTLSConfig(t *testing.T) {
	cfg := newTLSConfig(SMTPConfig{TLS: true})
	assert.False(t, cfg.InsecureSkipVerify)

	cfg = newTLSConfig(SMTPConfig{TLS: true, InsecureSkipVerify: true})
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestSendRequiresRecipient(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "localhost",
		Port: 1025,
		From: "noreply@example.com",
	})
	require.NoError(t, err)

	err = notifier.Send(EmailVerificationNotice, NotificationData{}, NoticeTemplate{})
	assert.Error(t, err)
}
