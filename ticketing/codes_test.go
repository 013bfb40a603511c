package ticketing

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ticketNumberFormat = regexp.MustCompile(`^TKT-\d{8}-[A-Z0-9]{5}$`)
	qrCodeFormat       = regexp.MustCompile(`^[0-9A-F]{32}$`)
)

func TestRandomCodeGenerator_TicketNumber(t *testing.T) {
	gen := RandomCodeGenerator{}
	oslo := time.FixedZone("CEST", 2*60*60)

	// 00:30 in Oslo is still the previous day in UTC
	number, err := gen.TicketNumber(time.Date(2026, 10, 16, 0, 30, 0, 0, oslo))
	require.NoError(t, err)

	assert.Regexp(t, ticketNumberFormat, number)
	assert.Contains(t, number, "TKT-20261015-")
}

func TestRandomCodeGenerator_QRCode(t *testing.T) {
	gen := RandomCodeGenerator{}
	seen := map[string]struct{}{}

	for i := 0; i < 1000; i++ {
		code, err := gen.QRCode()
		require.NoError(t, err)
		require.Regexp(t, qrCodeFormat, code)

		_, duplicate := seen[code]
		require.False(t, duplicate)
		seen[code] = struct{}{}
	}
}

func TestRandomCodeGenerator_RefundTransactionID(t *testing.T) {
	id, err := RandomCodeGenerator{}.RefundTransactionID()
	require.NoError(t, err)

	assert.Regexp(t, `^REF-[0-9A-F]{16}$`, id)
}

func TestRandomStringFrom_discards_biased_bytes(t *testing.T) {
	// 36 symbols: bytes 252..255 would favour A-D, so they are skipped
	source := bytes.NewReader([]byte{252, 253, 254, 255, 0, 35, 251, 36, 71, 1})

	s, err := randomStringFrom(source, 5, ticketNumberCharset)
	require.NoError(t, err)

	assert.Equal(t, "A99A9", s)
}

func TestRandomStringFrom_short_source(t *testing.T) {
	_, err := randomStringFrom(bytes.NewReader([]byte{255, 255, 255, 255, 255}), 5, ticketNumberCharset)
	assert.Error(t, err)
}

func TestRandomString_covers_charset(t *testing.T) {
	counts := map[rune]int{}
	for i := 0; i < 2000; i++ {
		s, err := randomString(5, ticketNumberCharset)
		require.NoError(t, err)
		for _, c := range s {
			counts[c]++
		}
	}

	assert.Len(t, counts, len(ticketNumberCharset))
	for c, n := range counts {
		assert.Contains(t, ticketNumberCharset, string(c))
		// 10000 draws over 36 symbols, roughly 278 each
		assert.Greater(t, n, 150, "symbol %c drawn %d times", c, n)
	}
}
