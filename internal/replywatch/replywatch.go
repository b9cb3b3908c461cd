// internal/replywatch/replywatch.go
package replywatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Store is the slice of persistence the watcher needs.
type Store interface {
	MarkRepliedByEmail(ctx context.Context, email string) (int64, error)
}

// Config holds the IMAP half of the campaign mailbox. The password comes
// from the keychain, not from here.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// Watcher polls the campaign mailbox for recruiter replies and flips the
// matching applications to replied.
type Watcher struct {
	Config Config
	Store  Store
}

// dialAndLogin connects over TLS and logs in.
func dialAndLogin(ctx context.Context, cfg Config) (*imapclient.Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("imap host is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("imap username/password is required")
	}

	c, err := imapclient.DialTLS(cfg.addr(), &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func logoutAndClose(c *imapclient.Client) {
	if c == nil {
		return
	}
	if err := c.Logout().Wait(); err != nil {
		log.Printf("[replywatch] imap logout: %v", err)
	}
	_ = c.Close()
}

// fetchUnseenSenders pulls the sender addresses of up to max unseen messages
// and returns them with their UIDs. Uses envelope data only, no bodies.
func fetchUnseenSenders(ctx context.Context, c *imapclient.Client, mailbox string, max int) (map[string][]imap.UID, error) {
	if c == nil {
		return nil, errors.New("imap client is nil")
	}
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if max <= 0 {
		max = 50
	}

	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", mailbox, err)
	}

	// replies older than this are stale campaigns, skip them
	cutoff := time.Now().AddDate(0, -3, 0)

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}

	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return map[string][]imap.UID{}, nil
	}

	// newest first
	if len(uids) > 1 {
		for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
			uids[i], uids[j] = uids[j], uids[i]
		}
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:      true,
		Envelope: true,
	})
	defer func() { _ = fetchCmd.Close() }()

	bySender := map[string][]imap.UID{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}
		if buf.Envelope == nil || len(buf.Envelope.From) == 0 {
			continue
		}
		sender := normalizeAddr(buf.Envelope.From[0].Addr())
		if sender == "" {
			continue
		}
		bySender[sender] = append(bySender[sender], buf.UID)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return bySender, nil
}

// markSeen sets \Seen so a processed reply is not matched again next poll.
func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func normalizeAddr(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return s
}

// Poll runs one mailbox sweep: every unseen sender address that matches a
// sent application flips those rows to replied, and the handled messages
// get marked seen. Unmatched senders stay unseen for the human.
func (w *Watcher) Poll(ctx context.Context) error {
	c, err := dialAndLogin(ctx, w.Config)
	if err != nil {
		return err
	}
	defer logoutAndClose(c)

	bySender, err := fetchUnseenSenders(ctx, c, w.Config.Mailbox, 50)
	if err != nil {
		return err
	}

	for sender, uids := range bySender {
		n, err := w.Store.MarkRepliedByEmail(ctx, sender)
		if err != nil {
			log.Printf("[replywatch] sender=%s store error: %v", sender, err)
			continue
		}
		if n == 0 {
			continue
		}
		log.Printf("[replywatch] sender=%s applications=%d marked replied", sender, n)
		if err := markSeen(c, uids); err != nil {
			log.Printf("[replywatch] sender=%s mark seen: %v", sender, err)
		}
	}
	return nil
}
