package domain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateStatusTransition(t *testing.T) {
	statuses := []ConversionStatus{ConversionPending, ConversionApproved, ConversionPaid, ConversionRejected}
	allowed := map[[2]ConversionStatus]bool{
		{ConversionPending, ConversionApproved}:  true,
		{ConversionPending, ConversionRejected}:  true,
		{ConversionApproved, ConversionPaid}:     true,
		{ConversionApproved, ConversionRejected}: true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			err := ValidateStatusTransition(from, to)
			if allowed[[2]ConversionStatus{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}

func TestParseConversionStatus(t *testing.T) {
	s, err := ParseConversionStatus(" APPROVED ")
	require.NoError(t, err)
	require.Equal(t, ConversionApproved, s)
	require.False(t, s.Terminal())

	_, err = ParseConversionStatus("refunded")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.True(t, ConversionPaid.Terminal())
	require.True(t, ConversionRejected.Terminal())
}

func TestCommissionBuckets(t *testing.T) {
	totals := []StatusTotal{
		{LinkID: "L1", Status: ConversionPending, Conversions: 2, Commission: dec("10.50")},
		{LinkID: "L1", Status: ConversionApproved, Conversions: 1, Commission: dec("4.25")},
		{LinkID: "L1", Status: ConversionPaid, Conversions: 1, Commission: dec("3.00")},
		{LinkID: "L1", Status: ConversionRejected, Conversions: 5, Commission: dec("99.99")},
		{LinkID: "L2", Status: ConversionPaid, Conversions: 1, Commission: dec("1.10")},
	}
	byLink := BucketsByLink(totals)

	l1 := byLink["L1"]
	require.Equal(t, 4, l1.Conversions)
	require.Equal(t, "17.75", l1.Total.StringFixed(2))
	require.Equal(t, "10.50", l1.Pending.StringFixed(2))
	require.Equal(t, "3.00", l1.Paid.StringFixed(2))

	var all CommissionBuckets
	all.Merge(l1)
	all.Merge(byLink["L2"])
	require.Equal(t, 5, all.Conversions)
	require.Equal(t, "18.85", all.Total.StringFixed(2))
	require.Equal(t, "4.10", all.Paid.StringFixed(2))
}

func TestNewLinkCode(t *testing.T) {
	code, err := NewLinkCode()
	require.NoError(t, err)
	require.Len(t, code, LinkCodeLength)
	for _, r := range code {
		require.True(t, strings.ContainsRune(linkCodeAlphabet, r), "unexpected symbol %q", r)
	}

	fixed, err := newLinkCode(bytes.NewReader([]byte{0, 31, 32, 255}), 4)
	require.NoError(t, err)
	require.Equal(t, "A9A9", fixed)

	_, err = newLinkCode(bytes.NewReader(nil), 4)
	require.Error(t, err)
}

func TestResolvedLinkCheck(t *testing.T) {
	ok := ResolvedLink{Link: Link{Active: true}, Program: Program{Active: true}}
	require.NoError(t, ok.Check())

	inactiveLink := ResolvedLink{Link: Link{Active: false}, Program: Program{Active: true}}
	require.ErrorIs(t, inactiveLink.Check(), ErrLinkInactive)

	inactiveProgram := ResolvedLink{Link: Link{Active: true}, Program: Program{Active: false}}
	err := inactiveProgram.Check()
	require.ErrorIs(t, err, ErrLinkInactive)
	require.ErrorIs(t, err, ErrProgramInactive)
}

func TestBuildRedirectURL(t *testing.T) {
	require.Equal(t, "https://platform.com/aff/ABCD2345", BuildRedirectURL("https://platform.com/", "ABCD2345"))
	require.Equal(t, "ABCD2345", NormalizeLinkCode(" abcd2345 "))
}
