package model

import "encoding/json"

type Role string

const (
	RoleBroker Role = "broker"
	RoleClient Role = "client"

	// Synthetic chat senders. They never appear in the session registry.
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

type ListingStatus string

const (
	StatusForSale ListingStatus = "FOR_SALE"
	StatusSold    ListingStatus = "SOLD"
)

// Position is an x/y/z world coordinate. The server does not validate range
// or continuity, it just stores the last value a client reported.
type Position [3]float64

type Participant struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Position Position  `json:"position"`
	Rotation *Position `json:"rotation,omitempty"`
}

// ListingState is the read-side view of the shared listing singleton,
// served by the debug API and pushed to every new connection.
type ListingState struct {
	Status   ListingStatus `json:"status"`
	Preset   string        `json:"preset"`
	LightsOn bool          `json:"lightsOn"`
}

// Event names carried in Envelope.Type.
const (
	// client -> server
	EventMove           = "move"
	EventChatSend       = "chat-send"
	EventSetEnvironment = "set-environment"
	EventToggleLights   = "toggle-lights"
	EventRequestSale    = "request-sale"
	EventResetSale      = "reset-sale"

	// server -> client
	EventWelcome              = "welcome"
	EventPresenceSnapshot     = "presence-snapshot"
	EventChatReceive          = "chat-receive"
	EventEnvironmentChanged   = "environment-changed"
	EventLightsChanged        = "lights-changed"
	EventListingStatusChanged = "listing-status-changed"
	EventCertificateIssued    = "certificate-issued"
	EventError                = "error"
)

// Envelope is the single frame format in both directions. Inbound payloads
// are decoded into their typed structs at the boundary; unknown or malformed
// frames are dropped.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an Envelope. Payload types here are all
// plain structs and maps, so the marshal cannot realistically fail; a nil
// payload produces an empty envelope of the given type.
func NewEnvelope(eventType string, payload any) Envelope {
	env := Envelope{Type: eventType}
	if payload != nil {
		env.Payload, _ = json.Marshal(payload)
	}
	return env
}

type MovePayload struct {
	Position Position  `json:"position"`
	Rotation *Position `json:"rotation,omitempty"`
}

type ChatSendPayload struct {
	Text        string `json:"text"`
	RecipientID string `json:"recipientId,omitempty"`
}

type SetEnvironmentPayload struct {
	Preset string `json:"preset"`
}

type RequestSalePayload struct {
	BuyerID string `json:"buyerId"`
}

type WelcomePayload struct {
	ID string `json:"id"`
}

type PresenceSnapshot struct {
	Participants map[string]Participant `json:"participants"`
}

type ChatMessage struct {
	SenderID      string `json:"senderId"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	Text          string `json:"text"`
	IsPrivate     bool   `json:"isPrivate"`
	RecipientName string `json:"recipientName,omitempty"`
}

type StatusPayload struct {
	Status ListingStatus `json:"status"`
}

type LightsPayload struct {
	LightsOn bool `json:"lightsOn"`
}

// Certificate is the mock proof-of-sale delivered privately to broker and
// buyer. Hash is a random display token, not a verifiable artifact.
type Certificate struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
	Price     int    `json:"price"`
	BuyerName string `json:"buyerName"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Wire is the pair of channels connecting a websocket session to the
// service: RX carries frames read from the client, TX frames to be written.
type Wire struct {
	RX chan Envelope
	TX chan Envelope
}

func NewWire() Wire {
	return Wire{
		RX: make(chan Envelope),
		TX: make(chan Envelope, 16),
	}
}
