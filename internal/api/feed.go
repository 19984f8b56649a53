package api

import "strings"

// FeedURL returns the websocket URL of the nest change feed.
func (c *Client) FeedURL(nestID int64) string {
	u := c.baseURL + nestPath(nestID, "feed")
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
