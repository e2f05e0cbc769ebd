package bridge

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ameistad/eydeploy/internal/constants"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Executor runs a command on a remote host, streaming its combined output.
type Executor interface {
	Run(ctx context.Context, host, command string, output io.Writer) error
}

// SSHExecutor runs commands over SSH, authenticating with the agent, an
// explicit identity file or the default keys in ~/.ssh.
type SSHExecutor struct {
	User         string
	Port         int
	IdentityFile string
	Logger       *zap.Logger
}

func (e *SSHExecutor) Run(ctx context.Context, host, command string, output io.Writer) error {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	config, cleanup, err := buildSSHConfig(e.User, e.IdentityFile)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := net.JoinHostPort(host, fmt.Sprint(e.Port))
	logger.Debug("connecting", zap.String("addr", addr), zap.String("user", e.User))

	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SSH connection to %s failed: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	session.Stdout = output
	session.Stderr = output

	logger.Debug("running remote command", zap.String("command", command))
	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start remote command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGINT)
		client.Close()
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("remote command failed: %w", err)
		}
		return nil
	}
}

func buildSSHConfig(userName, keyFile string) (*ssh.ClientConfig, func(), error) {
	auth, cleanup, err := authMethods(keyFile)
	if err != nil {
		return nil, nil, err
	}
	return &ssh.ClientConfig{
		User:            userName,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback(),
		Timeout:         10 * time.Second,
	}, cleanup, nil
}

// authMethods offers agent keys first, then the identity file, then the
// default keys in ~/.ssh. The cleanup func closes the agent connection.
func authMethods(keyFile string) ([]ssh.AuthMethod, func(), error) {
	var (
		methods []ssh.AuthMethod
		cleanup = func() {}
	)

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			cleanup = func() { _ = conn.Close() }
		}
	}

	if keyFile != "" {
		signer, err := loadPrivateKey(keyFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	for _, name := range defaultKeyNames {
		if signer, err := loadPrivateKey(filepath.Join(sshDir(), name)); err == nil {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if len(methods) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no SSH credentials found; start an ssh-agent or set %s", constants.EnvVarSSHIdentity)
	}
	return methods, cleanup, nil
}

var defaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

func sshDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ssh")
}

// hostKeyCallback checks the user's and the system's known_hosts files. Any
// host key is accepted when neither exists.
func hostKeyCallback() ssh.HostKeyCallback {
	var files []string
	for _, path := range []string{filepath.Join(sshDir(), "known_hosts"), "/etc/ssh/ssh_known_hosts"} {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return ssh.InsecureIgnoreHostKey()
	}
	callback, err := knownhosts.New(files...)
	if err != nil {
		return ssh.InsecureIgnoreHostKey()
	}
	return callback
}

func loadPrivateKey(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}
