package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PublicStripsSecrets(t *testing.T) {
	u := &User{
		ID:           "u1",
		Username:     "alice",
		Password:     "$argon2id$...",
		RefreshToken: "refresh",
		CoverImage:   &MediaAsset{PublicID: "cover", URL: "https://cdn/cover.png"},
	}

	pub := u.Public()
	assert.Empty(t, pub.Password)
	assert.Empty(t, pub.RefreshToken)
	assert.Equal(t, "alice", pub.Username)

	pub.CoverImage.URL = "changed"
	assert.Equal(t, "https://cdn/cover.png", u.CoverImage.URL)
	assert.Equal(t, "refresh", u.RefreshToken)

	var nilUser *User
	assert.Nil(t, nilUser.Public())
}

func TestUser_JSONNeverCarriesSecrets(t *testing.T) {
	u := User{ID: "u1", Username: "alice", Password: "hash", RefreshToken: "tok"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "hash")
	assert.NotContains(t, body, "tok")
	assert.Contains(t, body, `"_id":"u1"`)
	assert.NotContains(t, body, "coverImage")
}
