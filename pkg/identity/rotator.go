package identity

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

// IPChecker reports the current outbound IP as seen from the network. The
// sreality client satisfies this, so the probe travels the same route as the
// scraping traffic.
type IPChecker interface {
	CheckIP(checkURL string) (string, error)
}

// Rotator obtains a new outbound network identity on demand.
type Rotator interface {
	// Rotate blocks until the new identity is confirmed usable or the
	// bounded wait expires. It returns the outbound IP after rotation.
	Rotate(ctx context.Context) (string, error)
}

// TorRotator rotates identity by signalling NEWNYM on the TOR control port,
// then probing the outbound IP until the circuit is usable.
type TorRotator struct {
	controlAddr string
	password    string
	checkURL    string
	wait        time.Duration
	checker     IPChecker
	logger      logger.Logger

	lastIP string
}

const probeInterval = 2 * time.Second

// NewTorRotator creates a rotator for the given TOR configuration.
func NewTorRotator(cfg *config.TorConfig, checker IPChecker, log logger.Logger) *TorRotator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &TorRotator{
		controlAddr: cfg.ControlAddr,
		password:    cfg.ControlPassword,
		checkURL:    cfg.IPCheckURL,
		wait:        cfg.RotateWait,
		checker:     checker,
		logger:      log,
	}
}

// Rotate requests a new TOR circuit and waits until an IP probe through it
// succeeds. Failure is reported as a rotation error; the caller treats it as
// fatal to the run.
func (r *TorRotator) Rotate(ctx context.Context) (string, error) {
	r.logger.Info("rotating outbound identity")

	if err := r.signalNewIdentity(); err != nil {
		return "", &errors.Error{
			Kind:    errors.KindRotation,
			Message: fmt.Sprintf("control port request failed: %v", err),
		}
	}

	deadline := time.Now().Add(r.wait)
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return "", &errors.Error{
				Kind:    errors.KindRotation,
				Message: fmt.Sprintf("rotation interrupted: %v", err),
			}
		}
		if time.Now().After(deadline) {
			msg := "timed out waiting for a usable identity"
			if lastErr != nil {
				msg = fmt.Sprintf("%s: %v", msg, lastErr)
			}
			return "", &errors.Error{Kind: errors.KindRotation, Message: msg}
		}

		ip, err := r.checker.CheckIP(r.checkURL)
		if err == nil {
			if ip == r.lastIP {
				r.logger.WithField("ip", ip).Warn("exit node unchanged after rotation")
			}
			r.lastIP = ip
			r.logger.WithField("ip", ip).Info("new outbound identity confirmed")
			return ip, nil
		}
		lastErr = err

		time.Sleep(probeInterval)
	}
}

// signalNewIdentity speaks the TOR control protocol: authenticate, request a
// new circuit, quit.
func (r *TorRotator) signalNewIdentity() error {
	conn, err := net.DialTimeout("tcp", r.controlAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to control port: %w", err)
	}
	defer conn.Close()

	proto := textproto.NewConn(conn)
	defer proto.Close()

	auth := "AUTHENTICATE"
	if r.password != "" {
		auth = fmt.Sprintf("AUTHENTICATE %q", r.password)
	}
	if err := r.command(proto, auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := r.command(proto, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("NEWNYM signal failed: %w", err)
	}
	// Best effort; the circuit request already went through
	_ = r.command(proto, "QUIT")

	return nil
}

func (r *TorRotator) command(proto *textproto.Conn, line string) error {
	id, err := proto.Cmd("%s", line)
	if err != nil {
		return err
	}
	proto.StartResponse(id)
	defer proto.EndResponse(id)

	_, _, err = proto.ReadResponse(250)
	return err
}

// Noop is the rotator used when TOR is disabled: rotation requests succeed
// without any side effect.
type Noop struct{}

// Rotate is a no-op.
func (Noop) Rotate(ctx context.Context) (string, error) {
	return "", nil
}
