package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/newtcli/pkg/util"
)

// DefaultPrompt matches the usual exec and configuration prompts:
// "R1#", "R1(config-if)#", "<HUAWEI>", "[~HUAWEI-GigabitEthernet0/0/1]".
const DefaultPrompt = `^[<\[]?~?\*?[\w.\-/:@]+(\([\w.\-]+\))?[>#\]]\s*$`

const (
	defaultDialTimeout    = 10 * time.Second
	defaultCommandTimeout = 30 * time.Second
)

// SSHConfig describes how to reach one device's CLI over SSH.
type SSHConfig struct {
	Device   string
	Host     string
	Port     int
	User     string
	Password string

	// Prompt matches the last line of output in every CLI mode handlers
	// enter. Empty selects DefaultPrompt.
	Prompt string
	// PagerOff is sent once after login so long show output is not paginated.
	PagerOff string

	DialTimeout    time.Duration
	CommandTimeout time.Duration

	// HostKeyCallback verifies the device key. nil accepts any key.
	HostKeyCallback ssh.HostKeyCallback
}

// SSHChannel is an interactive shell on a device. Lines are written one at
// a time and the output of each is read until the prompt returns.
type SSHChannel struct {
	mu      sync.Mutex
	device  string
	client  *ssh.Client
	session *ssh.Session
	shell   *shell
}

// DialSSH logs in, opens a PTY shell and waits for the first prompt.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSHChannel, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	prompt, err := regexp.Compile("(?m)" + cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt pattern: %v", util.ErrInvalidConfig, err)
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	hostKey := cfg.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}

	password := cfg.Password
	config := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		Timeout:         cfg.DialTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", util.ErrTransport, addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: SSH handshake %s: %v", util.ErrTransport, addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	ch, err := openShell(ctx, client, cfg, prompt)
	if err != nil {
		client.Close()
		return nil, err
	}
	util.WithDevice(cfg.Device).Debugf("Connected to %s", addr)
	return ch, nil
}

func openShell(ctx context.Context, client *ssh.Client, cfg SSHConfig, prompt *regexp.Regexp) (*SSHChannel, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: SSH session: %v", util.ErrTransport, err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := sess.RequestPty("vt100", 0, 511, modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: request pty: %v", util.ErrTransport, err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: stdin: %v", util.ErrTransport, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: stdout: %v", util.ErrTransport, err)
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: start shell: %v", util.ErrTransport, err)
	}

	sh := newShell(stdin, stdout, prompt, cfg.CommandTimeout)
	if _, err := sh.waitPrompt(ctx); err != nil {
		sh.close()
		sess.Close()
		return nil, fmt.Errorf("waiting for login prompt: %w", err)
	}
	if cfg.PagerOff != "" {
		if _, err := sh.send(ctx, []string{cfg.PagerOff}); err != nil {
			sh.close()
			sess.Close()
			return nil, fmt.Errorf("disabling pager: %w", err)
		}
	}
	return &SSHChannel{device: cfg.Device, client: client, session: sess, shell: sh}, nil
}

// Send writes lines and returns the concatenated output. cacheable is
// ignored here; wrap the channel in a CachedChannel to reuse responses.
func (c *SSHChannel) Send(ctx context.Context, lines []string, _ bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shell.send(ctx, lines)
}

// Close ends the shell and the SSH connection.
func (c *SSHChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shell.close()
	c.session.Close()
	return c.client.Close()
}

// shell drives a line-oriented CLI over a pair of streams.
type shell struct {
	stdin   io.Writer
	chunks  chan []byte
	done    chan struct{}
	once    sync.Once
	prompt  *regexp.Regexp
	timeout time.Duration
	pending []byte
}

func newShell(stdin io.Writer, stdout io.Reader, prompt *regexp.Regexp, timeout time.Duration) *shell {
	s := &shell{
		stdin:   stdin,
		chunks:  make(chan []byte, 16),
		done:    make(chan struct{}),
		prompt:  prompt,
		timeout: timeout,
	}
	go s.readLoop(stdout)
	return s
}

func (s *shell) readLoop(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- append([]byte(nil), buf[:n]...):
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *shell) close() {
	s.once.Do(func() { close(s.done) })
}

// send writes each line and collects its output up to the next prompt.
func (s *shell) send(ctx context.Context, lines []string) (string, error) {
	var out strings.Builder
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
			return out.String(), fmt.Errorf("%w: write %q: %v", util.ErrTransport, line, err)
		}
		text, err := s.waitPrompt(ctx)
		if err != nil {
			return out.String(), fmt.Errorf("after %q: %w", line, err)
		}
		out.WriteString(cleanOutput(text, line))
	}
	return out.String(), nil
}

// waitPrompt reads until the buffered output ends with a prompt and returns
// everything before it.
func (s *shell) waitPrompt(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	for {
		if start, ok := s.promptAt(); ok {
			text := string(s.pending[:start])
			s.pending = nil
			return text, nil
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return "", fmt.Errorf("%w: session closed by device", util.ErrTransport)
			}
			s.pending = append(s.pending, chunk...)
		case <-timer.C:
			return "", fmt.Errorf("%w: no prompt within %s", util.ErrTransport, s.timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// promptAt reports where a prompt ending the pending output starts.
func (s *shell) promptAt() (int, bool) {
	trimmed := strings.TrimRight(string(s.pending), " \t\r\n")
	if trimmed == "" {
		return 0, false
	}
	locs := s.prompt.FindAllStringIndex(trimmed, -1)
	if len(locs) == 0 {
		return 0, false
	}
	last := locs[len(locs)-1]
	if strings.TrimRight(trimmed[last[0]:last[1]], " \t\r\n") != trimmed[last[0]:] {
		return 0, false
	}
	return last[0], true
}

// cleanOutput normalizes line endings and drops the echoed command.
func cleanOutput(text, line string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	if first, rest, ok := strings.Cut(text, "\n"); ok && strings.TrimSpace(first) == strings.TrimSpace(line) {
		text = rest
	} else if !ok && strings.TrimSpace(text) == strings.TrimSpace(line) {
		text = ""
	}
	return text
}
