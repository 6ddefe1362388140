package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM \n"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	u := User{ID: "u-1", Email: "a@b.c", PasswordHash: "$2a$10$xyz", ProviderSubject: "google-123"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "$2a$10$xyz")
	assert.NotContains(t, string(raw), "google-123")
	assert.Contains(t, string(raw), `"email":"a@b.c"`)
}

func TestUser_HasPassword(t *testing.T) {
	assert.True(t, (&User{PasswordHash: "h"}).HasPassword())
	assert.False(t, (&User{}).HasPassword())
}

func TestUsernameFromProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile ExternalProfile
		want    string
	}{
		{"display name", ExternalProfile{Name: "Ada Lovelace", Email: "ada@example.com"}, "ada_lovelace"},
		{"falls back to email", ExternalProfile{Email: "grace.hopper@example.com"}, "grace_hopper"},
		{"drops unsupported characters", ExternalProfile{Name: "Zoë!"}, "user_zo"},
		{"too short is prefixed", ExternalProfile{Name: "Al"}, "user_al"},
		{"long names are capped", ExternalProfile{Name: "abcdefghijklmnopqrstuvwxyzabcdefghij"}, "abcdefghijklmnopqrstuvwxyzabcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsernameFromProfile(tt.profile))
		})
	}
}
