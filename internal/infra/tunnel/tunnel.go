// Package tunnel forwards a local port to a remote data source over SSH.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"

	"github.com/whhaicheng/PenguinBM/internal/domain/config"
	"github.com/whhaicheng/PenguinBM/internal/domain/connection"
)

// ErrDisabled is returned when Open is called with a disabled SSH section.
var ErrDisabled = errors.New("ssh tunnel is not enabled")

// Tunnel manages an SSH client and the local listener forwarding through it.
type Tunnel struct {
	log       *slog.Logger
	client    *ssh.Client
	listener  net.Listener
	localPort int
	remote    string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Open dials the SSH server and starts forwarding 127.0.0.1:<local> to
// remoteHost:remotePort.
func Open(ctx context.Context, cfg config.SSHConfig, remoteHost string, remotePort int, log *slog.Logger) (*Tunnel, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.With(slog.String("component", "tunnel"))

	clientConfig, err := clientConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create ssh config: %w", err)
	}

	sshAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var d net.Dialer
	if _, ok := ctx.Deadline(); !ok {
		d.Timeout = 30 * time.Second
	}
	raw, err := d.DialContext(ctx, "tcp", sshAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to ssh server %s: %w", sshAddr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(raw, sshAddr, clientConfig)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.LocalPort))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("listen on local port %d: %w", cfg.LocalPort, err)
	}

	t := &Tunnel{
		log:       log,
		client:    client,
		listener:  listener,
		localPort: listener.Addr().(*net.TCPAddr).Port,
		remote:    fmt.Sprintf("%s:%d", remoteHost, remotePort),
	}
	t.wg.Add(1)
	go t.acceptLoop()

	log.Info("tunnel open",
		slog.String("op", "tunnel_open"),
		slog.String("ssh", sshAddr),
		slog.Int("local_port", t.localPort),
		slog.String("remote", t.remote))
	return t, nil
}

// Redirect opens a tunnel for conn when it is a network data source and
// points conn at the local end. It returns nil, nil when cfg is disabled.
func Redirect(ctx context.Context, cfg config.SSHConfig, conn connection.Connection, log *slog.Logger) (*Tunnel, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	remote, ok := conn.(connection.Remote)
	if !ok {
		return nil, fmt.Errorf("%s data source cannot be tunneled", conn.GetType())
	}
	host, port := remote.Endpoint()
	t, err := Open(ctx, cfg, host, port, log)
	if err != nil {
		return nil, err
	}
	remote.SetEndpoint("127.0.0.1", t.LocalPort())
	return t, nil
}

func clientConfig(cfg config.SSHConfig) (*ssh.ClientConfig, error) {
	cc := &ssh.ClientConfig{
		User:            cfg.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	if cfg.KeyPath != "" {
		pem, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		cc.Auth = append(cc.Auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		cc.Auth = append(cc.Auth, ssh.Password(cfg.Password))
	}
	if len(cc.Auth) == 0 {
		return nil, errors.New("ssh requires either a password or a private key")
	}
	return cc, nil
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.IsClosed() {
				return
			}
			t.log.Error("accept failed", slog.Any("error", err))
			continue
		}
		go t.forward(conn)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		t.log.Error("dial remote failed", slog.String("remote", t.remote), slog.Any("error", err))
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

// LocalPort returns the port the tunnel listens on.
func (t *Tunnel) LocalPort() int {
	return t.localPort
}

// IsClosed reports whether Close has been called.
func (t *Tunnel) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops forwarding and closes the SSH client. It is safe to call twice.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var result *multierror.Error
	if err := t.listener.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("listener close: %w", err))
	}
	t.wg.Wait()
	if err := t.client.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("client close: %w", err))
	}

	t.log.Info("tunnel closed", slog.String("op", "tunnel_close"), slog.Int("local_port", t.localPort))
	return result.ErrorOrNil()
}
