package telephony

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultAMITimeout = 10 * time.Second

// AMIConfig holds Asterisk Manager Interface connection settings.
type AMIConfig struct {
	Host     string
	Port     int
	Username string
	Secret   string
	Timeout  time.Duration
}

// AMIClient writes AstDB keys through the Asterisk Manager Interface.
// The connection is opened lazily and re-established after any I/O failure.
type AMIClient struct {
	cfg    AMIConfig
	logger *zap.Logger

	mu       sync.Mutex
	conn     net.Conn
	reader   *textproto.Reader
	actionID uint64
}

// NewAMIClient creates a new AMI client. No connection is made until the first write.
func NewAMIClient(cfg AMIConfig, logger *zap.Logger) *AMIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAMITimeout
	}
	return &AMIClient{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "ami")),
	}
}

// Put stores value under family/key with a DBPut action.
func (c *AMIClient) Put(ctx context.Context, family, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}

	resp, err := c.sendLocked(ctx, "DBPut", [][2]string{
		{"Family", family},
		{"Key", key},
		{"Val", value},
	})
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("ami DBPut %s/%s: %w", family, key, err)
	}
	if !strings.EqualFold(resp.Get("Response"), "Success") {
		return fmt.Errorf("ami DBPut %s/%s rejected: %s", family, key, resp.Get("Message"))
	}

	c.logger.Debug("astdb key written",
		zap.String("family", family),
		zap.String("key", key),
		zap.String("value", value))
	return nil
}

// Close drops the manager connection.
func (c *AMIClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *AMIClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialer := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to ami at %s: %w", addr, err)
	}
	c.conn = conn
	c.reader = textproto.NewReader(bufio.NewReader(conn))

	c.setDeadlineLocked(ctx)
	// The manager greets with a single banner line, e.g. "Asterisk Call Manager/5.0.1".
	banner, err := c.reader.ReadLine()
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("failed to read ami banner: %w", err)
	}

	resp, err := c.sendLocked(ctx, "Login", [][2]string{
		{"Username", c.cfg.Username},
		{"Secret", c.cfg.Secret},
		{"Events", "off"},
	})
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("ami login: %w", err)
	}
	if !strings.EqualFold(resp.Get("Response"), "Success") {
		c.closeLocked()
		return fmt.Errorf("ami login rejected: %s", resp.Get("Message"))
	}

	c.logger.Info("connected to asterisk manager", zap.String("addr", addr), zap.String("banner", banner))
	return nil
}

// sendLocked writes one action and returns the response carrying its ActionID.
// Unsolicited events read in between are skipped.
func (c *AMIClient) sendLocked(ctx context.Context, action string, fields [][2]string) (textproto.MIMEHeader, error) {
	c.actionID++
	id := strconv.FormatUint(c.actionID, 10)

	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s\r\n", action)
	fmt.Fprintf(&b, "ActionID: %s\r\n", id)
	for _, f := range fields {
		fmt.Fprintf(&b, "%s: %s\r\n", f[0], sanitizeAMIValue(f[1]))
	}
	b.WriteString("\r\n")

	c.setDeadlineLocked(ctx)
	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		return nil, err
	}

	for {
		block, err := c.reader.ReadMIMEHeader()
		if err != nil {
			return nil, err
		}
		if block.Get("Response") != "" && block.Get("ActionID") == id {
			return block, nil
		}
	}
}

func (c *AMIClient) setDeadlineLocked(ctx context.Context) {
	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)
}

func (c *AMIClient) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// AMI is line framed; a CR or LF inside a value would start a new header.
func sanitizeAMIValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
