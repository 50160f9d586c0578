package model

// AccountID represents a unique identifier for a Slack user
type AccountID string

// Account is a Slack workspace user as returned by users.list
type Account struct {
	ID      AccountID       `json:"id"`
	Name    string          `json:"name"`
	IsBot   bool            `json:"is_bot"`
	IsAdmin bool            `json:"is_admin"`
	Deleted bool            `json:"deleted"`
	Profile *AccountProfile `json:"profile,omitempty"`
}

// AccountProfile holds the user-editable part of an Account
type AccountProfile struct {
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	StatusText  string `json:"status_text,omitempty"`
	StatusEmoji string `json:"status_emoji,omitempty"`
}

// RealName returns the profile real name, or "" when the profile is absent
func (a *Account) RealName() string {
	if a.Profile == nil {
		return ""
	}
	return a.Profile.RealName
}

// DisplayName returns the profile display name, or "" when the profile is absent
func (a *Account) DisplayName() string {
	if a.Profile == nil {
		return ""
	}
	return a.Profile.DisplayName
}

// Email returns the profile email, or "" when the profile is absent
func (a *Account) Email() string {
	if a.Profile == nil {
		return ""
	}
	return a.Profile.Email
}

// Listed reports whether the account shows up in listings and search. Bots are hidden.
func (a *Account) Listed() bool {
	return !a.IsBot
}

// SearchText is the text matched by search besides the handle
func (a *Account) SearchText() string {
	return joinNonEmpty(a.DisplayName(), a.RealName(), a.Email())
}
