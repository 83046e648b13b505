package ws

import (
	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/service"
)

// HubBridge implements service.Bridge on top of the Hub.
type HubBridge struct {
	hub *Hub
}

func NewHubBridge(hub *Hub) *HubBridge {
	return &HubBridge{hub: hub}
}

func (b *HubBridge) FindActiveConnection(userID uuid.UUID) (service.ActiveConnection, bool) {
	client, ok := b.hub.Lookup(userID)
	if !ok {
		return service.ActiveConnection{}, false
	}
	return service.ActiveConnection{
		ConnectionID: client.connID,
		Viewing:      client.Viewing(),
	}, true
}

// Notify is fire-and-forget: offline users and full buffers are skipped.
func (b *HubBridge) Notify(userID uuid.UUID, event string, payload any) {
	b.hub.SendEvent(userID, event, payload)
}
