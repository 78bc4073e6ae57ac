package types

// InboundMessage is one inbound text message handed to the command
// router. DeliveryKey is the transport's idempotency anchor (event
// partition/sort identity); it travels with the message so the core can
// be invoked directly in tests, independent of the real transport.
type InboundMessage struct {
	Text        string `json:"text"`
	Sender      string `json:"sender"`
	TimestampMs int64  `json:"timestamp_ms"`
	DeliveryKey string `json:"delivery_key"`
	Channel     string `json:"channel"` // sms, whatsapp, cli
}
