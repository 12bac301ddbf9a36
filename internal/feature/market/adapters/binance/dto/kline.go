// Package dto holds the wire types for the Binance kline stream.
package dto

// KlineEvent is one message from the <symbol>@kline_<interval> stream.
// Prices and volumes arrive as strings and are parsed by the adapter.
type KlineEvent struct {
	EventType string `json:"e"` // "kline" for the messages we consume
	EventTime int64  `json:"E"` // event time, unix millis
	Symbol    string `json:"s"`
	Kline     Kline  `json:"k"`
}

// Kline is the payload of a KlineEvent.
type Kline struct {
	StartTime   int64  `json:"t"` // interval start, unix millis
	CloseTime   int64  `json:"T"` // interval end, unix millis
	Symbol      string `json:"s"`
	Interval    string `json:"i"`
	OpenPrice   string `json:"o"`
	ClosePrice  string `json:"c"`
	HighPrice   string `json:"h"`
	LowPrice    string `json:"l"`
	Volume      string `json:"v"`
	TradeCount  int64  `json:"n"`
	IsClosed    bool   `json:"x"`
	QuoteVolume string `json:"q"`
}
