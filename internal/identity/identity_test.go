package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/warden/internal/identity"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role identity.Role
		op   identity.Operation
		want bool
	}{
		{identity.Member, identity.OpFileReport, true},
		{identity.Member, identity.OpReviewReport, false},
		{identity.Researcher, identity.OpReviewReport, false},
		{identity.Moderator, identity.OpReviewReport, true},
		{identity.Admin, identity.OpReviewReport, true},
		{identity.Member, identity.OpCastVote, false},
		{identity.Researcher, identity.OpCastVote, true},
		{identity.Moderator, identity.OpReopenReport, false},
		{identity.Admin, identity.OpReopenReport, true},
		{identity.Moderator, identity.OpReadAudit, false},
		{identity.Admin, identity.OpReadAudit, true},
		{identity.Admin, identity.Operation("unknown.op"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, identity.Allowed(tt.role, tt.op))
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, identity.Moderator.Valid())
	assert.False(t, identity.Role("superuser").Valid())
}
