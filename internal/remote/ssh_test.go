package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type execHandler func(command string, ch ssh.Channel) uint32

func startTestServer(t *testing.T, handler execHandler) (string, int) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == "secret" {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveTestConn(conn, cfg, handler)
		}
	}()

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	return host, p
}

func serveTestConn(conn net.Conn, cfg *ssh.ServerConfig, handler execHandler) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					continue
				}
				_ = req.Reply(true, nil)
				go func() {
					status := handler(payload.Command, ch)
					_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
					_ = ch.Close()
				}()
			}
		}()
	}
}

func testHandler(command string, ch ssh.Channel) uint32 {
	switch command {
	case "echo ok":
		_, _ = io.WriteString(ch, "ok\n")
		return 0
	case "fail":
		_, _ = io.WriteString(ch.Stderr(), "  controller not found  \n")
		return 2
	case "sleep":
		time.Sleep(2 * time.Second)
		return 0
	}
	return 127
}

func TestSSHExecutor_Execute(t *testing.T) {
	host, port := startTestServer(t, testHandler)

	tests := map[string]struct {
		command   string
		password  string
		timeout   time.Duration
		wantOut   string
		wantClass string
		check     func(t *testing.T, err error)
	}{
		"success returns stdout": {
			command:  "echo ok",
			password: "secret",
			timeout:  5 * time.Second,
			wantOut:  "ok\n",
		},
		"non-zero exit is a command error": {
			command:   "fail",
			password:  "secret",
			timeout:   5 * time.Second,
			wantClass: ClassCommandFailed,
			check: func(t *testing.T, err error) {
				var ce *CommandError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, 2, ce.ExitCode)
				assert.Equal(t, "controller not found", ce.Stderr)
				assert.NotContains(t, err.Error(), "fail ")
			},
		},
		"timeout kills the command": {
			command:   "sleep",
			password:  "secret",
			timeout:   200 * time.Millisecond,
			wantClass: ClassTimeout,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrTimeout)
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
		"bad credentials are a transport error": {
			command:   "echo ok",
			password:  "wrong",
			timeout:   5 * time.Second,
			wantClass: ClassTransport,
			check: func(t *testing.T, err error) {
				assert.NotContains(t, err.Error(), "wrong")
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ex, err := NewSSHExecutor(Options{
				Host:     host,
				Port:     port,
				Username: "root",
				Password: test.password,
			}, discardLog)
			require.NoError(t, err)

			out, err := ex.Execute(context.Background(), test.command, test.timeout)

			if test.wantClass == "" {
				require.NoError(t, err)
				assert.Equal(t, test.wantOut, out)
				return
			}
			require.Error(t, err)
			assert.Empty(t, out)
			assert.Equal(t, test.wantClass, Classify(err))
			if test.check != nil {
				test.check(t, err)
			}
		})
	}
}

func TestSSHExecutor_ExecuteUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	ex, err := NewSSHExecutor(Options{Host: "127.0.0.1", Port: addr.Port, Username: "root", Password: "secret"}, discardLog)
	require.NoError(t, err)

	_, err = ex.Execute(context.Background(), "echo ok", time.Second)

	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestNewSSHExecutor(t *testing.T) {
	tests := map[string]struct {
		opts     Options
		wantFail bool
	}{
		"password only": {
			opts: Options{Host: "esxi01", Username: "root", Password: "x"},
		},
		"missing host": {
			opts:     Options{Username: "root", Password: "x"},
			wantFail: true,
		},
		"missing username": {
			opts:     Options{Host: "esxi01", Password: "x"},
			wantFail: true,
		},
		"no auth method": {
			opts:     Options{Host: "esxi01", Username: "root"},
			wantFail: true,
		},
		"missing key file": {
			opts:     Options{Host: "esxi01", Username: "root", KeyFile: "/nonexistent/id_ed25519"},
			wantFail: true,
		},
		"missing known_hosts": {
			opts:     Options{Host: "esxi01", Username: "root", Password: "x", KnownHosts: "/nonexistent/known_hosts"},
			wantFail: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewSSHExecutor(test.opts, discardLog)
			if test.wantFail {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
