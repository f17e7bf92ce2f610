package conflicts_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/internal/conflicts"
)

var (
	policy = conflicts.Policy{TrustMargin: 15, Staleness: 72 * time.Hour}
	base   = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		field    conflicts.Claim
		external conflicts.Claim
		want     conflicts.Type
		wantErr  error
	}{
		{
			name:     "existence beats everything",
			field:    conflicts.Claim{Exists: ptr(true), State: "open", Value: ptr(3.0)},
			external: conflicts.Claim{Exists: ptr(false), State: "closed", Value: ptr(9.0)},
			want:     conflicts.Existence,
		},
		{
			name:     "implicit existence",
			field:    conflicts.Claim{State: "open"},
			external: conflicts.Claim{Exists: ptr(false)},
			want:     conflicts.Existence,
		},
		{
			name:     "state",
			field:    conflicts.Claim{State: "operational"},
			external: conflicts.Claim{State: "destroyed", Value: ptr(1.0)},
			want:     conflicts.State,
		},
		{
			name:     "state compares case-insensitively",
			field:    conflicts.Claim{State: "Open"},
			external: conflicts.Claim{State: "open"},
			wantErr:  conflicts.ErrNoConflict,
		},
		{
			name:     "attribute value",
			field:    conflicts.Claim{Attribute: "casualties", Value: ptr(12.0)},
			external: conflicts.Claim{Attribute: "casualties", Value: ptr(40.0)},
			want:     conflicts.Attribute,
		},
		{
			name:     "attribute unit",
			field:    conflicts.Claim{Attribute: "distance", Value: ptr(5.0), Unit: "km"},
			external: conflicts.Claim{Attribute: "distance", Value: ptr(5.0), Unit: "mi"},
			want:     conflicts.Attribute,
		},
		{
			name:     "validity window",
			field:    conflicts.Claim{State: "closed", ValidFrom: ptr(base)},
			external: conflicts.Claim{State: "closed", ValidFrom: ptr(base.Add(48 * time.Hour))},
			want:     conflicts.Temporal,
		},
		{
			name:     "identical",
			field:    conflicts.Claim{State: "closed", ValidFrom: ptr(base)},
			external: conflicts.Claim{State: "closed", ValidFrom: ptr(base.In(time.FixedZone("x", 3600)))},
			wantErr:  conflicts.ErrNoConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conflicts.Classify(tt.field, tt.external)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	field := conflicts.Claim{Attribute: "displaced", Value: ptr(1200.0)}
	external := conflicts.Claim{Attribute: "displaced", Value: ptr(300.0)}

	tests := []struct {
		name       string
		fieldTrust *int
		extTrust   *int
		fieldAt    *time.Time
		extAt      *time.Time
		want       conflicts.Resolution
	}{
		{"field trust wins", ptr(80), ptr(40), nil, nil, conflicts.FieldWins},
		{"external trust wins", ptr(20), ptr(90), nil, nil, conflicts.ExternalWins},
		{"trust beats recency", ptr(90), ptr(10), ptr(base), ptr(base.Add(30 * 24 * time.Hour)), conflicts.FieldWins},
		{"trust at margin falls to recency", ptr(60), ptr(45), ptr(base.Add(96 * time.Hour)), ptr(base), conflicts.FieldWins},
		{"external more recent", ptr(50), ptr(50), ptr(base), ptr(base.Add(100 * time.Hour)), conflicts.ExternalWins},
		{"recency only", nil, nil, ptr(base.Add(80 * time.Hour)), ptr(base), conflicts.FieldWins},
		{"within both margins", ptr(50), ptr(60), ptr(base), ptr(base.Add(10 * time.Hour)), conflicts.NeedsReview},
		{"trust close, no timestamps", ptr(50), ptr(55), nil, nil, conflicts.NeedsReview},
		{"nothing to compare", nil, nil, nil, nil, conflicts.Unresolved},
		{"one-sided data", ptr(90), nil, ptr(base), nil, conflicts.Unresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := policy.Resolve(conflicts.Input{
				Subject:           "camp population",
				FieldClaim:        field,
				FieldTimestamp:    tt.fieldAt,
				FieldTrust:        tt.fieldTrust,
				ExternalSourceID:  "unhcr",
				ExternalClaim:     external,
				ExternalTimestamp: tt.extAt,
				ExternalTrust:     tt.extTrust,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Resolution)

			advisory := tt.want == conflicts.NeedsReview || tt.want == conflicts.Unresolved
			assert.Equal(t, advisory, rec.SuggestedAction != nil)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	in := conflicts.Input{
		Subject:           "bridge status",
		FieldClaim:        conflicts.Claim{State: "intact"},
		FieldTimestamp:    ptr(base),
		FieldTrust:        ptr(55),
		ExternalSourceID:  "wire-service",
		ExternalClaim:     conflicts.Claim{State: "collapsed"},
		ExternalTimestamp: ptr(base.Add(time.Hour)),
		ExternalTrust:     ptr(60),
	}

	first, err := policy.Resolve(in)
	require.NoError(t, err)

	for range 50 {
		again, err := policy.Resolve(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveNeverAverages(t *testing.T) {
	field := conflicts.Claim{Attribute: "casualties", Value: ptr(10.0), Unit: "people"}
	external := conflicts.Claim{Attribute: "casualties", Value: ptr(30.0), Unit: "people"}

	for _, trust := range [][2]int{{50, 50}, {90, 10}, {10, 90}} {
		rec, err := policy.Resolve(conflicts.Input{
			Subject:          "incident",
			FieldClaim:       field,
			FieldTrust:       ptr(trust[0]),
			ExternalSourceID: "agency",
			ExternalClaim:    external,
			ExternalTrust:    ptr(trust[1]),
		})
		require.NoError(t, err)

		assert.Equal(t, field, rec.FieldClaim)
		assert.Equal(t, external, rec.ExternalClaim)
		assert.Contains(t, []conflicts.Resolution{
			conflicts.FieldWins, conflicts.ExternalWins, conflicts.NeedsReview, conflicts.Unresolved,
		}, rec.Resolution)
	}
}

func TestResolveNoConflict(t *testing.T) {
	_, err := policy.Resolve(conflicts.Input{
		Subject:       "same",
		FieldClaim:    conflicts.Claim{State: "open"},
		ExternalClaim: conflicts.Claim{State: "open"},
	})
	assert.True(t, errors.Is(err, conflicts.ErrNoConflict))
	assert.Equal(t, 422, conflicts.MapHTTPStatus(err))
}

func TestResolveRejectsTrustOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		field    *int
		external *int
		wantErr  bool
	}{
		{name: "field above range", field: ptr(5000), external: ptr(40), wantErr: true},
		{name: "external below range", field: ptr(60), external: ptr(-300), wantErr: true},
		{name: "field negative, external unknown", field: ptr(-1), wantErr: true},
		{name: "external just over", external: ptr(101), wantErr: true},
		{name: "bounds are inclusive", field: ptr(0), external: ptr(100)},
		{name: "both unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.Resolve(conflicts.Input{
				Subject:          "bridge",
				FieldClaim:       conflicts.Claim{State: "closed"},
				FieldTrust:       tt.field,
				ExternalSourceID: "dot",
				ExternalClaim:    conflicts.Claim{State: "open"},
				ExternalTrust:    tt.external,
			})

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, conflicts.ErrTrustRange)
			assert.Equal(t, 400, conflicts.MapHTTPStatus(err))
		})
	}
}
