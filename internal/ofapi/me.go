package ofapi

import (
	"context"
	"fmt"
)

// Me is the authenticated user's bootstrap document. It carries the
// realtime endpoint and the token the session handshake authenticates with.
type Me struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	WsAuthToken string `json:"wsAuthToken"`
	WsURL       string `json:"wsUrl"`
}

// Me fetches the authenticated user.
func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	if err := c.GetJSON(ctx, "/api2/v2/users/me", &me); err != nil {
		return Me{}, err
	}
	if me.WsAuthToken == "" || me.WsURL == "" {
		return Me{}, fmt.Errorf("ofapi: users/me response missing websocket credentials")
	}
	return me, nil
}
