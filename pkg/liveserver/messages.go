package liveserver

// Message is pushed to live clients. MarketID scopes it to clients watching
// that market; empty means every client receives it.
type Message struct {
	Type     string      `json:"type"`
	MarketID string      `json:"marketId,omitempty"`
	Data     interface{} `json:"data"`
}

// Message types
const (
	TypeOrderbook = "orderbook"
	TypeTrades    = "trades"
	TypePositions = "positions"
	TypeMarkPrice = "mark_price"
	TypeSummaries = "summaries"
	TypeGasPrice  = "gas_price"
	TypeSnapshot  = "snapshot"
	TypeError     = "error"
)

// Command is sent by clients to choose the market they watch
type Command struct {
	Op       string `json:"op"`
	MarketID string `json:"marketId"`
}

// Client commands
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

func NewMessage(msgType string, data interface{}) Message {
	return Message{Type: msgType, Data: data}
}

func NewMarketMessage(msgType, marketID string, data interface{}) Message {
	return Message{Type: msgType, MarketID: marketID, Data: data}
}
