package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Options describes how to reach and authenticate against one host
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	KnownHosts string
}

// SSHExecutor runs commands over a fresh SSH connection per call
type SSHExecutor struct {
	addr   string
	config *ssh.ClientConfig
	log    *slog.Logger
}

// NewSSHExecutor validates the options and prepares the client configuration.
// Private keys and known_hosts files are read here, once, not per command.
func NewSSHExecutor(opts Options, log *slog.Logger) (*SSHExecutor, error) {
	if opts.Host == "" {
		return nil, errors.New("host is required")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("username is required for %s", opts.Host)
	}
	port := opts.Port
	if port == 0 {
		port = 22
	}

	auth, err := authMethods(opts)
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if opts.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", opts.KnownHosts, err)
		}
	} else {
		log.Warn("host key verification disabled, set known_hosts to enable it", "host", opts.Host)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &SSHExecutor{
		addr: net.JoinHostPort(opts.Host, strconv.Itoa(port)),
		config: &ssh.ClientConfig{
			User:            opts.Username,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
		},
		log: log,
	}, nil
}

func authMethods(opts Options) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if opts.KeyFile != "" {
		fi, err := os.Stat(opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("unable to stat private key file %s: %w", opts.KeyFile, err)
		}
		if perm := fi.Mode().Perm(); perm&0o077 != 0 {
			return nil, fmt.Errorf("insecure private key file permissions %o for %s: must be owner-only", perm, opts.KeyFile)
		}
		keyBytes, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read private key file %s: %w", opts.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key %s: %w", opts.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if opts.Password != "" {
		password := opts.Password
		// ESXi sshd only offers keyboard-interactive for password logins by default
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication method configured for %s (password or key_file)", opts.Host)
	}
	return methods, nil
}

// Execute runs command and returns its stdout.
// On timeout the remote process is killed and no partial output is returned.
func (e *SSHExecutor) Execute(ctx context.Context, command string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := e.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, context.DeadlineExceeded)
		}
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", &TransportError{Host: e.addr, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	e.log.Debug("executing remote command", "host", e.addr, "command", command)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", e.runError(err, &stdout, &stderr)
		}
		return stdout.String(), nil
	case <-ctx.Done():
		if err := session.Signal(ssh.SIGKILL); err != nil {
			e.log.Debug("failed to signal remote command", "host", e.addr, "err", err)
		}
		// closing the client unblocks Run
		_ = client.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, context.DeadlineExceeded)
		}
		return "", ctx.Err()
	}
}

func (e *SSHExecutor) dial(ctx context.Context) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return nil, &TransportError{Host: e.addr, Err: err}
	}

	// the handshake has no context support, bound it with the connection deadline
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, e.addr, e.config)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Host: e.addr, Err: err}
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func (e *SSHExecutor) runError(err error, stdout, stderr *bytes.Buffer) error {
	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError

	switch {
	case errors.As(err, &exitErr):
		return &CommandError{
			ExitCode: exitErr.ExitStatus(),
			Stderr:   truncate(strings.TrimSpace(stderr.String())),
			Stdout:   stdout.String(),
		}
	case errors.As(err, &missingErr):
		return &CommandError{
			ExitCode: -1,
			Stderr:   truncate(strings.TrimSpace(stderr.String())),
			Stdout:   stdout.String(),
		}
	}
	return &TransportError{Host: e.addr, Err: err}
}
