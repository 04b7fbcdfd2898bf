package chat

import (
	"fmt"
	"log"
	"strings"
)

// Broadcaster is the subset of hub behavior the chat handler needs to fan a
// line out to connected clients.
type Broadcaster interface {
	BroadcastChat(msg OutgoingChat)
}

// PlayerNamer resolves a player ID to its display name, for attaching a
// readable FromName to outgoing chat lines.
type PlayerNamer interface {
	PlayerName(id string) (string, bool)
}

// Handler rate-limits and relays player chat, and authors Tusk's
// server-side announcements.
type Handler struct {
	broadcaster Broadcaster
	namer       PlayerNamer
	rateLimiter *RateLimiter
}

// NewHandler creates a chat handler bound to a broadcaster and name resolver.
func NewHandler(broadcaster Broadcaster, namer PlayerNamer) *Handler {
	return &Handler{
		broadcaster: broadcaster,
		namer:       namer,
		rateLimiter: NewRateLimiter(DefaultRateLimitConfig),
	}
}

const maxChatLength = 240

// ProcessChat rate-limits and relays one incoming chat line.
func (h *Handler) ProcessChat(msg IncomingChat) {
	if !h.rateLimiter.Allow(msg.PlayerID) {
		log.Printf("chat: rate limited %s", msg.PlayerID)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxChatLength {
		text = text[:maxChatLength]
	}

	name := msg.PlayerID
	if h.namer != nil {
		if n, ok := h.namer.PlayerName(msg.PlayerID); ok {
			name = n
		}
	}

	h.broadcaster.BroadcastChat(OutgoingChat{
		FromID:   msg.PlayerID,
		FromName: name,
		Text:     text,
		Mode:     msg.Mode.String(),
	})
}

// Announce emits a Tusk-authored global announcement for a notable game
// event, in the teacher's terse status-line style.
func (h *Handler) Announce(event TuskEvent, args ...string) {
	h.broadcaster.BroadcastChat(OutgoingChat{
		Text:   tuskLine(event, args...),
		Mode:   ModeGlobal.String(),
		IsTusk: true,
	})
}

func tuskLine(event TuskEvent, args ...string) string {
	get := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	switch event {
	case TuskTerritoryCaptured:
		return fmt.Sprintf("Tusk: %s has taken cluster %s", get(0), get(1))
	case TuskTerritoryLost:
		return fmt.Sprintf("Tusk: cluster %s has fallen to %s", get(1), get(0))
	case TuskCommanderElected:
		return fmt.Sprintf("Tusk: %s is now commanding %s", get(0), get(1))
	case TuskTankDestroyed:
		return fmt.Sprintf("Tusk: %s destroyed %s", get(0), get(1))
	default:
		return "Tusk: " + strings.Join(args, " ")
	}
}

// Run drains incoming chat from a channel until it is closed; intended to
// run on its own goroutine, fed by the command queue.
func (h *Handler) Run(incoming <-chan IncomingChat) {
	for msg := range incoming {
		h.ProcessChat(msg)
	}
	log.Println("chat: handler stopped")
}
