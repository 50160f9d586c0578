package model

// ChannelID represents a unique identifier for a Slack conversation
type ChannelID string

// Channel is a Slack conversation (public/private channel, DM or group DM)
type Channel struct {
	ID         ChannelID     `json:"id"`
	Name       string        `json:"name"`
	IsChannel  bool          `json:"is_channel"`
	IsPrivate  bool          `json:"is_private"`
	IsArchived bool          `json:"is_archived"`
	IsGeneral  bool          `json:"is_general"`
	IsIM       bool          `json:"is_im"`
	IsMpIM     bool          `json:"is_mpim"`
	IsMember   bool          `json:"is_member"`
	Created    int64         `json:"created,omitempty"`
	Creator    string        `json:"creator,omitempty"`
	NumMembers int           `json:"num_members,omitempty"`
	Topic      *ChannelTopic `json:"topic,omitempty"`
	Purpose    *ChannelTopic `json:"purpose,omitempty"`
}

// ChannelTopic is the shape shared by a channel's topic and purpose
type ChannelTopic struct {
	Value   string `json:"value"`
	Creator string `json:"creator"`
	LastSet int64  `json:"last_set"`
}

// Listed reports whether the channel shows up in listings and search. Archived channels are hidden.
func (ch *Channel) Listed() bool {
	return !ch.IsArchived
}

// SearchText is the text matched by search besides the name
func (ch *Channel) SearchText() string {
	var topic, purpose string
	if ch.Topic != nil {
		topic = ch.Topic.Value
	}
	if ch.Purpose != nil {
		purpose = ch.Purpose.Value
	}
	return joinNonEmpty(topic, purpose)
}
