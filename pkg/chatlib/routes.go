package chatlib

import "fmt"

// ProviderIdentifier is the identity-provider URL presented to the site
// during federated login.
const ProviderIdentifier = "https://openid.stackexchange.com/"

// Routes is the route table collaborator: the fixed set of endpoint
// URLs for one host. The session and dispatcher never build URLs
// themselves; tests substitute a table pointing at local servers.
type Routes struct {
	// Identity provider endpoints.
	ProviderLoginPage   string
	ProviderLoginSubmit string
	ProviderConfirm     string

	// Target site endpoints.
	SiteLoginPage    string
	SiteAuthenticate string
	SiteConfirm      string

	// ChatBase is the scheme+host prefix of the chat subdomain,
	// without a trailing slash.
	ChatBase string
}

// DefaultRoutes builds the route table for a host, e.g.
// "stackoverflow.com".
func DefaultRoutes(host string) *Routes {
	return &Routes{
		ProviderLoginPage:   "https://openid.stackexchange.com/account/login/",
		ProviderLoginSubmit: "https://openid.stackexchange.com/account/login/submit",
		ProviderConfirm:     "https://openid.stackexchange.com/user",
		SiteLoginPage:       fmt.Sprintf("https://%s/users/login?returnurl=%%2f%%2f%s", host, host),
		SiteAuthenticate:    fmt.Sprintf("https://%s/users/authenticate", host),
		SiteConfirm:         fmt.Sprintf("https://%s/", host),
		ChatBase:            "http://chat." + host,
	}
}

// ChatHome is the chat landing page; the profile fragment with the
// session fkey, display name, and user id lives there.
func (r *Routes) ChatHome() string {
	return r.ChatBase
}

// RoomPage is the HTML page of a room.
func (r *Routes) RoomPage(roomID int64) string {
	return fmt.Sprintf("%s/rooms/%d", r.ChatBase, roomID)
}

// WSAuth is the socket-auth endpoint; a POST here yields the base
// socket URL for a room.
func (r *Routes) WSAuth() string {
	return r.ChatBase + "/ws-auth/"
}

// RoomEvents is the event-cursor endpoint; a POST here yields the
// starting time marker for the room's event stream.
func (r *Routes) RoomEvents(roomID int64) string {
	return fmt.Sprintf("%s/chats/%d/events", r.ChatBase, roomID)
}

// NewMessage is the send-message endpoint for a room.
func (r *Routes) NewMessage(roomID int64) string {
	return fmt.Sprintf("%s/chats/%d/messages/new", r.ChatBase, roomID)
}

// EditMessage is the edit endpoint for a message.
func (r *Routes) EditMessage(messageID int64) string {
	return fmt.Sprintf("%s/messages/%d", r.ChatBase, messageID)
}

// DeleteMessage is the delete endpoint for a message.
func (r *Routes) DeleteMessage(messageID int64) string {
	return fmt.Sprintf("%s/messages/%d/delete", r.ChatBase, messageID)
}
