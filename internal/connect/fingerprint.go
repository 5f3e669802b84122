package connect

import (
	"encoding/hex"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter derives a stable pseudonymous visitor id from the client
// address and user agent. The raw address is never stored.
type Fingerprinter struct {
	key []byte
}

func NewFingerprinter(key string) *Fingerprinter {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum256(k)
		k = sum[:]
	}
	return &Fingerprinter{key: k}
}

// Fingerprint returns nil when there is nothing to derive from.
func (f *Fingerprinter) Fingerprint(remoteAddr, userAgent string) *string {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" && strings.TrimSpace(userAgent) == "" {
		return nil
	}

	h, err := blake2b.New(16, f.key)
	if err != nil {
		return nil
	}
	h.Write([]byte(host))
	h.Write([]byte{0})
	h.Write([]byte(userAgent))
	out := hex.EncodeToString(h.Sum(nil))
	return &out
}
