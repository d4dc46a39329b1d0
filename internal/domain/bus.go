package domain

// MessageBus decouples channels from the turn engine. Channels publish
// inbound turns and register a handler for their outbound messages.
type MessageBus interface {
	Publish(turn InboundTurn)
	Subscribe() <-chan InboundTurn
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}
