package ticketing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

const ticketNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces the opaque identifiers handed out with tickets.
type CodeGenerator interface {
	TicketNumber(now time.Time) (string, error)
	QRCode() (string, error)
	RefundTransactionID() (string, error)
}

type RandomCodeGenerator struct{}

// TicketNumber returns TKT-<YYYYMMDD>-<5 uppercase alphanumerics>, dated in UTC.
func (RandomCodeGenerator) TicketNumber(now time.Time) (string, error) {
	suffix, err := randomString(5, ticketNumberCharset)
	if err != nil {
		return "", fmt.Errorf("could not generate ticket number: %w", err)
	}

	return "TKT-" + now.UTC().Format("20060102") + "-" + suffix, nil
}

// QRCode returns 32 uppercase hex characters.
func (RandomCodeGenerator) QRCode() (string, error) {
	code, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("could not generate qr code: %w", err)
	}
	return code, nil
}

func (RandomCodeGenerator) RefundTransactionID() (string, error) {
	id, err := randomHex(8)
	if err != nil {
		return "", fmt.Errorf("could not generate refund transaction id: %w", err)
	}
	return "REF-" + id, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func randomString(length int, charset string) (string, error) {
	return randomStringFrom(rand.Reader, length, charset)
}

// randomStringFrom draws uniformly from charset, discarding bytes at or above the
// largest multiple of len(charset) that fits in a byte.
func randomStringFrom(r io.Reader, length int, charset string) (string, error) {
	limit := 256 - 256%len(charset)
	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, charset[int(c)%len(charset)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
