package model

import "strings"

// Identity keys a conversation: one active session per (user, channel) pair.
type Identity struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

func (i Identity) Key() string {
	return i.UserID + ":" + i.ChannelID
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.UserID) == "" || strings.TrimSpace(i.ChannelID) == ""
}
