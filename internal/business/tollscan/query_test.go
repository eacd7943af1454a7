package tollscan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

func TestNewSearchQueryNormalizesPlate(t *testing.T) {
	t.Parallel()

	q, err := NewSearchQuery(" abc-123 ", model.JurisdictionNSW, "TN-1", true)
	require.NoError(t, err)
	require.Equal(t, "ABC123", q.Plate)
	require.Equal(t, model.JurisdictionNSW, q.Jurisdiction)
	require.Equal(t, "TN-1", q.NoticeNumberHint)
	require.True(t, q.TwoWheeler)
	require.Equal(t, "ABC123|NSW", q.Key())
}

func TestNewSearchQueryRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		plate        string
		jurisdiction model.Jurisdiction
		field        string
	}{
		{"empty plate", "", model.JurisdictionNSW, "plate"},
		{"punctuation only", " --- ", model.JurisdictionNSW, "plate"},
		{"too long", "ABCDE12345", model.JurisdictionNSW, "plate"},
		{"unknown jurisdiction", "ABC123", model.Jurisdiction("WA"), "jurisdiction"},
		{"empty jurisdiction", "ABC123", "", "jurisdiction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSearchQuery(tc.plate, tc.jurisdiction, "", false)
			var ie *InputError
			require.ErrorAs(t, err, &ie)
			require.Equal(t, tc.field, ie.Field)
		})
	}
}
