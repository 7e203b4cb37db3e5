package model

import "time"

// Session is the server-side record of an authenticated client. The
// client holds a signed token whose ID (JTI) keys this row; deleting
// the row ends the session regardless of the token's validity.
type Session struct {
	TokenID   string    `json:"-"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
