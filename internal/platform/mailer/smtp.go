package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"time"

	"github.com/phrazzld/teamtask-api/internal/config"
	gomail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// deliverFunc hands a composed message to the relay.
type deliverFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     mail.Address
	limiter  *rate.Limiter
	dialer   net.Dialer
	deliver  deliverFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewSMTPSender builds a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig, logger *slog.Logger) (*SMTPSender, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from address %q", ErrInvalidAddress, cfg.From)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	s := &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     *from,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		now:      time.Now,
		logger:   logger.With("component", "mailer", "transport", "smtp"),
	}
	s.deliver = s.dialAndSend

	// Surfaces option errors such as an out-of-range port.
	if _, err := gomail.NewClient(s.host, s.clientOptions(nil)...); err != nil {
		return nil, fmt.Errorf("invalid smtp settings: %w", err)
	}
	return s, nil
}

func (s *SMTPSender) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *SMTPSender) clientOptions(dial gomail.DialContextFunc) []gomail.Option {
	opts := []gomail.Option{gomail.WithTLSPolicy(gomail.TLSOpportunistic)}
	if s.port != 0 {
		opts = append(opts, gomail.WithPort(s.port))
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password))
	}
	if dial != nil {
		opts = append(opts, gomail.WithDialContextFunc(dial))
	}
	return opts
}

// Send implements Sender. ctx bounds the whole exchange: the rate limiter
// wait, the dial and every read and write on the relay connection.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	to, _ := mail.ParseAddress(msg.To)

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit wait: %w", err)
	}

	m, err := s.compose(*to, msg)
	if err != nil {
		return err
	}

	start := s.now()
	if err := s.deliver(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send to %s: %w", s.addr(), ctxErr)
		}
		return fmt.Errorf("smtp send to %s: %w", s.addr(), err)
	}

	s.logger.DebugContext(ctx, "email sent",
		"subject", msg.Subject,
		"duration_ms", s.now().Sub(start).Milliseconds())
	return nil
}

// dialAndSend delivers over a fresh connection. The connection is closed as
// soon as ctx is done, which unblocks a relay that stops answering.
func (s *SMTPSender) dialAndSend(ctx context.Context, m *gomail.Msg) error {
	var stop func() bool
	dial := func(dialCtx context.Context, network, address string) (net.Conn, error) {
		conn, err := s.dialer.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		stop = context.AfterFunc(ctx, func() { _ = conn.Close() })
		return conn, nil
	}
	defer func() {
		if stop != nil {
			stop()
		}
	}()

	client, err := gomail.NewClient(s.host, s.clientOptions(dial)...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func (s *SMTPSender) compose(to mail.Address, msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.from.String()); err != nil {
		return nil, fmt.Errorf("%w: from address: %v", ErrInvalidAddress, err)
	}
	if err := m.To(to.String()); err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidAddress, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())

	switch {
	case msg.Text == "":
		m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	case msg.HTML == "":
		m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	default:
		m.SetBodyString(gomail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
