package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig configures an SFTPDelivery. At least one of Password or
// PrivateKeyPath must be provided; when both are set the key is offered
// first and the password is kept as a fallback.
type SFTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	PrivateKeyPath string
	Logger         *slog.Logger
}

// SetDefaults applies default values for optional fields.
func (c *SFTPConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 22
	}
}

// Validate checks the configuration for correctness.
func (c *SFTPConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if c.Password == "" && c.PrivateKeyPath == "" {
		return fmt.Errorf("either a password or a private key path is required")
	}
	return nil
}

// sftpChannel is the slice of the SFTP protocol the delivery client uses.
// Tests substitute an in-memory implementation.
type sftpChannel interface {
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	MkdirAll(path string) error
	Close() error
}

// sftpClientChannel adapts *sftp.Client to the sftpChannel interface.
type sftpClientChannel struct {
	client *sftp.Client
}

func (c *sftpClientChannel) Create(path string) (io.WriteCloser, error) {
	return c.client.Create(path)
}

func (c *sftpClientChannel) Open(path string) (io.ReadCloser, error) {
	return c.client.Open(path)
}

func (c *sftpClientChannel) MkdirAll(path string) error {
	return c.client.MkdirAll(path)
}

func (c *sftpClientChannel) Close() error {
	return c.client.Close()
}

// SFTPDelivery transfers rendered documents to an SFTP server. The lifecycle
// is explicit: Connect, then transfer operations, then Close. An
// SFTPDelivery is not safe for concurrent use.
type SFTPDelivery struct {
	cfg       SFTPConfig
	host      string
	ssh       *ssh.Client
	channel   sftpChannel
	connected bool
	logger    *slog.Logger
}

// NewSFTPDelivery creates a disconnected SFTPDelivery, validating the
// configuration and normalizing the host eagerly.
func NewSFTPDelivery(cfg SFTPConfig) (*SFTPDelivery, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sftp config: %w", err)
	}

	host, err := normalizeHost(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid sftp config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SFTPDelivery{
		cfg:    cfg,
		host:   host,
		logger: logger,
	}, nil
}

// Host returns the normalized host the client dials.
func (d *SFTPDelivery) Host() string {
	return d.host
}

// Connected reports whether the client has an active SFTP session.
func (d *SFTPDelivery) Connected() bool {
	return d.connected
}

// Connect dials the server and opens an SFTP channel over SSH. A failure to
// load or parse the configured private key aborts before any network
// activity. Credential rejections are reported as ErrAuthentication,
// distinct from transport failures.
func (d *SFTPDelivery) Connect(ctx context.Context) error {
	if d.connected {
		return fmt.Errorf("client is already connected")
	}

	auth, err := d.authMethods()
	if err != nil {
		return err
	}

	sshCfg := &ssh.ClientConfig{
		User:            d.cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(d.host, strconv.Itoa(d.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	channel, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return fmt.Errorf("failed to open sftp channel: %w", err)
	}

	d.ssh = sshClient
	d.channel = &sftpClientChannel{client: channel}
	d.connected = true
	d.logger.Info("Connected to SFTP server.", "host", d.host, "port", d.cfg.Port)
	return nil
}

// authMethods builds the SSH auth methods from the configured credentials.
func (d *SFTPDelivery) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if d.cfg.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(d.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if d.cfg.Password != "" {
		methods = append(methods, ssh.Password(d.cfg.Password))
	}

	return methods, nil
}

// UploadFile copies a local file to remotePath, creating missing remote
// parent directories.
func (d *SFTPDelivery) UploadFile(localPath, remotePath string) error {
	if !d.connected {
		return ErrNotConnected
	}

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer local.Close()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := d.channel.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	remote, err := d.channel.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}

	if _, err := io.Copy(remote, local); err != nil {
		remote.Close()
		return fmt.Errorf("failed to write remote file %s: %w", remotePath, err)
	}
	if err := remote.Close(); err != nil {
		return fmt.Errorf("failed to close remote file %s: %w", remotePath, err)
	}

	d.logger.Info("Uploaded file.", "local", localPath, "remote", remotePath)
	return nil
}

// DownloadFile copies a remote file to localPath. The local file appears
// atomically via a temp file and rename.
func (d *SFTPDelivery) DownloadFile(remotePath, localPath string) error {
	if !d.connected {
		return ErrNotConnected
	}

	remote, err := d.channel.Open(remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRemoteNotFound, remotePath)
		}
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, remote); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to read remote file %s: %w", remotePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move downloaded file into place: %w", err)
	}

	d.logger.Info("Downloaded file.", "remote", remotePath, "local", localPath)
	return nil
}

// Upload transfers a local file and verifies the remote copy by re-reading
// it and comparing checksums. It returns true when the digests match. The
// algorithm is validated before any data moves.
func (d *SFTPDelivery) Upload(localPath, remotePath string, algo ChecksumAlgorithm) (bool, error) {
	if err := algo.Validate(); err != nil {
		return false, err
	}
	if !d.connected {
		return false, ErrNotConnected
	}

	localSum, err := FileChecksum(localPath, algo)
	if err != nil {
		return false, err
	}

	if err := d.UploadFile(localPath, remotePath); err != nil {
		return false, err
	}

	remote, err := d.channel.Open(remotePath)
	if err != nil {
		return false, fmt.Errorf("failed to open remote file %s for verification: %w", remotePath, err)
	}
	defer remote.Close()

	remoteSum, err := ReaderChecksum(remote, algo)
	if err != nil {
		return false, err
	}

	if localSum != remoteSum {
		d.logger.Warn("Checksum mismatch after upload.",
			"remote", remotePath, "algorithm", string(algo), "local_sum", localSum, "remote_sum", remoteSum)
		return false, nil
	}

	d.logger.Info("Verified upload.", "remote", remotePath, "algorithm", string(algo), "checksum", localSum)
	return true, nil
}

// Close shuts down the SFTP channel and then the SSH session. Closing a
// disconnected client is a no-op.
func (d *SFTPDelivery) Close() error {
	if !d.connected {
		return nil
	}
	d.connected = false

	var channelErr, sshErr error
	if d.channel != nil {
		channelErr = d.channel.Close()
		d.channel = nil
	}
	if d.ssh != nil {
		sshErr = d.ssh.Close()
		d.ssh = nil
	}

	if channelErr != nil {
		return fmt.Errorf("failed to close sftp channel: %w", channelErr)
	}
	if sshErr != nil {
		return fmt.Errorf("failed to close ssh session: %w", sshErr)
	}

	d.logger.Info("Disconnected from SFTP server.", "host", d.host)
	return nil
}
