package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	LinkCodeLength = 8
	// 32 symbols, no 0/O/1/I, so a masked random byte maps without bias.
	linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type Link struct {
	LinkID      string    `json:"link_id"`
	Code        string    `json:"code"`
	AffiliateID string    `json:"affiliate_id"`
	ProgramID   string    `json:"program_id"`
	Active      bool      `json:"active"`
	RedirectURL string    `json:"redirect_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResolvedLink is a link together with the program it belongs to.
type ResolvedLink struct {
	Link    Link    `json:"link"`
	Program Program `json:"program"`
}

// Check reports why a resolved link cannot take traffic.
func (r ResolvedLink) Check() error {
	if !r.Link.Active {
		return ErrLinkInactive
	}
	if !r.Program.Active {
		return fmt.Errorf("%w: %w", ErrLinkInactive, ErrProgramInactive)
	}
	return nil
}

func BuildRedirectURL(baseURL, code string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/aff/" + code
}

func NewLinkCode() (string, error) {
	return newLinkCode(rand.Reader, LinkCodeLength)
}

func newLinkCode(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	var b strings.Builder
	b.Grow(n)
	for _, v := range buf {
		b.WriteByte(linkCodeAlphabet[int(v)&(len(linkCodeAlphabet)-1)])
	}
	return b.String(), nil
}

func NormalizeLinkCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
