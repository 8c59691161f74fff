package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/metaestate/showroom/backend/bot"
	"github.com/metaestate/showroom/backend/listing"
	"github.com/metaestate/showroom/backend/model"
	"github.com/metaestate/showroom/backend/registry"
	"github.com/metaestate/showroom/backend/router"
	"github.com/rs/zerolog"
)

const (
	defaultBotReplyDelay = time.Second

	systemSenderID   = "system"
	systemSenderName = "SYSTEM"

	anonymousBuyer = "Anonymous Buyer"
)

type Service struct {
	registry *registry.Registry
	router   *router.Router
	listing  *listing.Listing
	botDelay time.Duration
	logger   zerolog.Logger
}

type Config struct {
	Registry *registry.Registry
	Router   *router.Router
	Listing  *listing.Listing
	Logger   *zerolog.Logger

	// BotReplyDelay overrides the simulated typing delay. Zero means the
	// default one second.
	BotReplyDelay time.Duration
}

func New(cfg Config) *Service {
	delay := cfg.BotReplyDelay
	if delay == 0 {
		delay = defaultBotReplyDelay
	}
	return &Service{
		registry: cfg.Registry,
		router:   cfg.Router,
		listing:  cfg.Listing,
		botDelay: delay,
		logger:   cfg.Logger.With().Str("component", "service").Logger(),
	}
}

// CreateSession wires a new connection in: the client gets its own id and
// the current listing state before it appears in anyone's presence
// snapshot, then registration runs and the full map goes out to everyone.
// Inbound frames are consumed until ctx is canceled.
func (s *Service) CreateSession(ctx context.Context, id string, wire model.Wire) {
	s.router.Connect(id, wire)

	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventWelcome, model.WelcomePayload{ID: id}), id)
	state := s.listing.State()
	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventListingStatusChanged, model.StatusPayload{Status: state.Status}), id)
	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventEnvironmentChanged, model.SetEnvironmentPayload{Preset: state.Preset}), id)
	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventLightsChanged, model.LightsPayload{LightsOn: state.LightsOn}), id)

	p := s.registry.Register(id)
	s.logger.Debug().
		Str("id", id).
		Str("role", string(p.Role)).
		Str("name", p.Name).
		Msg("participant registered")

	s.broadcastPresence(ctx)

	go s.consume(ctx, id, wire.RX)
}

// DeleteSession tears a connection down and tells everyone else. A
// departing broker leaves the role vacant.
func (s *Service) DeleteSession(ctx context.Context, id string) {
	s.router.Disconnect(id)
	if s.registry.Unregister(id) {
		s.logger.Debug().Str("id", id).Msg("participant unregistered")
		s.broadcastPresence(ctx)
	}
}

// Participants exposes the registry snapshot for the debug API.
func (s *Service) Participants() map[string]model.Participant {
	return s.registry.Snapshot()
}

// ListingState exposes the listing view for the debug API.
func (s *Service) ListingState() model.ListingState {
	return s.listing.State()
}

func (s *Service) consume(ctx context.Context, id string, rx <-chan model.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-rx:
			s.dispatch(ctx, id, env)
		}
	}
}

// dispatch decodes and routes one inbound frame. Malformed payloads and
// unknown types are logged and dropped, nothing is reported back to the
// sender except the explicit broker-only rejection.
func (s *Service) dispatch(ctx context.Context, id string, env model.Envelope) {
	var err error
	switch env.Type {
	case model.EventMove:
		var p model.MovePayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			s.handleMove(ctx, id, p)
		}
	case model.EventChatSend:
		var p model.ChatSendPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			s.handleChat(ctx, id, p)
		}
	case model.EventSetEnvironment:
		var p model.SetEnvironmentPayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			s.handleSetEnvironment(ctx, p)
		}
	case model.EventToggleLights:
		s.handleToggleLights(ctx)
	case model.EventRequestSale:
		var p model.RequestSalePayload
		if err = json.Unmarshal(env.Payload, &p); err == nil {
			s.handleRequestSale(ctx, id, p)
		}
	case model.EventResetSale:
		s.handleResetSale(ctx, id)
	default:
		s.logger.Debug().Str("id", id).Str("type", env.Type).Msg("unknown event type, dropped")
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("id", id).Str("type", env.Type).Msg("malformed payload, dropped")
	}
}

func (s *Service) handleMove(ctx context.Context, id string, p model.MovePayload) {
	if !s.registry.UpdatePosition(id, p.Position, p.Rotation) {
		return
	}
	env := model.NewEnvelope(model.EventPresenceSnapshot, model.PresenceSnapshot{Participants: s.registry.Snapshot()})
	s.router.BroadcastOthers(ctx, env, id)
}

func (s *Service) handleChat(ctx context.Context, id string, p model.ChatSendPayload) {
	sender, ok := s.registry.Get(id)
	if !ok {
		return
	}
	msg := model.ChatMessage{
		SenderID:  id,
		Name:      sender.Name,
		Role:      sender.Role,
		Text:      p.Text,
		IsPrivate: p.RecipientID != "",
	}

	if p.RecipientID != "" {
		s.deliverPrivateChat(ctx, id, p.RecipientID, msg)
		return
	}

	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventChatReceive, msg))

	if sender.Role != model.RoleBroker {
		s.scheduleBotReply(p.Text)
	}
}

// deliverPrivateChat echoes the message to the sender (annotated with the
// recipient's name, so the sender's UI can render the outgoing line) and
// delivers a copy to the recipient. A vanished recipient only loses their
// copy, the sender echo still happens.
func (s *Service) deliverPrivateChat(ctx context.Context, senderID, recipientID string, msg model.ChatMessage) {
	echo := msg
	if recipient, ok := s.registry.Get(recipientID); ok {
		echo.RecipientName = recipient.Name
	}
	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventChatReceive, echo), senderID)

	copyMsg := msg
	copyMsg.RecipientName = "You"
	s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventChatReceive, copyMsg), recipientID)
}

// scheduleBotReply fires at most one canned answer per qualifying public
// message, after a fixed delay simulating typing. Broker and bot-authored
// messages never reach this point, so the bot cannot reply to itself.
// The reply outlives the asking session: a sender disconnecting during the
// delay does not cancel it for everyone else.
func (s *Service) scheduleBotReply(text string) {
	reply, ok := bot.Reply(text)
	if !ok {
		return
	}
	time.AfterFunc(s.botDelay, func() {
		msg := model.ChatMessage{
			SenderID: bot.SenderID,
			Name:     bot.Name,
			Role:     model.RoleBot,
			Text:     reply,
		}
		s.router.BroadcastAll(context.Background(), model.NewEnvelope(model.EventChatReceive, msg))
	})
}

func (s *Service) handleSetEnvironment(ctx context.Context, p model.SetEnvironmentPayload) {
	if p.Preset == "" {
		return
	}
	s.listing.SetPreset(p.Preset)
	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventEnvironmentChanged, p))
}

func (s *Service) handleToggleLights(ctx context.Context) {
	on := s.listing.ToggleLights()
	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventLightsChanged, model.LightsPayload{LightsOn: on}))
}

func (s *Service) handleRequestSale(ctx context.Context, id string, p model.RequestSalePayload) {
	broker, ok := s.requireBroker(ctx, id)
	if !ok {
		return
	}

	buyerName := anonymousBuyer
	buyer, buyerLive := s.registry.Get(p.BuyerID)
	if buyerLive {
		buyerName = buyer.Name
	}

	s.listing.Sell()
	s.logger.Info().
		Str("broker", broker.Name).
		Str("buyer", buyerName).
		Msg("listing sold")

	// Public signboard update carries the status only; the buyer's
	// identity stays out of the broadcast.
	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventListingStatusChanged, model.StatusPayload{Status: model.StatusSold}))
	s.broadcastSystemMessage(ctx, "The house has been SOLD!")

	cert := model.NewEnvelope(model.EventCertificateIssued, listing.MintCertificate(buyerName))
	s.router.DeliverPrivate(ctx, cert, id)
	if buyerLive && p.BuyerID != id {
		s.router.DeliverPrivate(ctx, cert, p.BuyerID)
		congrats := model.ChatMessage{
			SenderID:  systemSenderID,
			Name:      systemSenderName,
			Role:      model.RoleSystem,
			Text:      "Congratulations! You now own this house.",
			IsPrivate: true,
		}
		s.router.DeliverPrivate(ctx, model.NewEnvelope(model.EventChatReceive, congrats), p.BuyerID)
	}
}

func (s *Service) handleResetSale(ctx context.Context, id string) {
	if _, ok := s.requireBroker(ctx, id); !ok {
		return
	}
	s.listing.Reset()
	s.logger.Info().Msg("listing reset")
	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventListingStatusChanged, model.StatusPayload{Status: model.StatusForSale}))
	s.broadcastSystemMessage(ctx, "The house is back on the market!")
}

// requireBroker guards the privileged transitions server-side. Non-broker
// callers get an explicit targeted error event instead of a silent drop.
func (s *Service) requireBroker(ctx context.Context, id string) (model.Participant, bool) {
	p, ok := s.registry.Get(id)
	if !ok {
		return model.Participant{}, false
	}
	if p.Role != model.RoleBroker {
		s.logger.Warn().Str("id", id).Str("role", string(p.Role)).Msg("privileged event from non-broker rejected")
		rejection := model.NewEnvelope(model.EventError, model.ErrorPayload{
			Code:    "not_broker",
			Message: "only the broker can change the listing status",
		})
		s.router.DeliverPrivate(ctx, rejection, id)
		return model.Participant{}, false
	}
	return p, true
}

func (s *Service) broadcastPresence(ctx context.Context) {
	env := model.NewEnvelope(model.EventPresenceSnapshot, model.PresenceSnapshot{Participants: s.registry.Snapshot()})
	s.router.BroadcastAll(ctx, env)
}

func (s *Service) broadcastSystemMessage(ctx context.Context, text string) {
	msg := model.ChatMessage{
		SenderID: systemSenderID,
		Name:     systemSenderName,
		Role:     model.RoleSystem,
		Text:     text,
	}
	s.router.BroadcastAll(ctx, model.NewEnvelope(model.EventChatReceive, msg))
}
