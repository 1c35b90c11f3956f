package models

import "time"

// MediaAsset references a binary object held by the remote media store.
type MediaAsset struct {
	PublicID string `bson:"publicId" json:"publicId"`
	URL      string `bson:"url" json:"url"`
}

// User is the persisted identity. Password and RefreshToken never leave the
// server: they are excluded from JSON and from every public projection.
type User struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`

	Avatar     MediaAsset  `json:"avatar"`
	CoverImage *MediaAsset `json:"coverImage,omitempty"`

	Password     string `json:"-"`
	RefreshToken string `json:"-"`
}

// Public returns a copy of u with the password hash and refresh token removed.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Password = ""
	cp.RefreshToken = ""
	if u.CoverImage != nil {
		cover := *u.CoverImage
		cp.CoverImage = &cover
	}
	return &cp
}
