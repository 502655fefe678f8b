package binance

import "testing"

func TestParseTradeFrame(t *testing.T) {
	b := []byte(`{"e":"trade","E":1700000001000,"s":"BTCUSDT","t":12345,"p":"42100.50","q":"0.250","T":1700000000500}`)
	tick, ok := parseTradeFrame(b)
	if !ok {
		t.Fatalf("expected trade frame to parse")
	}
	if tick.Symbol != "BTCUSDT" || tick.Price != 42100.50 || tick.Volume != 0.250 {
		t.Fatalf("bad tick %+v", tick)
	}
	if tick.Timestamp != 1700000000 {
		t.Fatalf("timestamp must be seconds, got %d", tick.Timestamp)
	}
}

func TestParseTradeFrameIgnoresOtherEvents(t *testing.T) {
	if _, ok := parseTradeFrame([]byte(`{"result":null,"id":1}`)); ok {
		t.Fatalf("subscribe ack must be ignored")
	}
	if _, ok := parseTradeFrame([]byte(`{"e":"aggTrade","s":"BTCUSDT","p":"1","q":"1","T":1}`)); ok {
		t.Fatalf("non-trade events must be ignored")
	}
	if _, ok := parseTradeFrame([]byte(`{"e":"trade","s":"BTCUSDT","p":"0","q":"1","T":1}`)); ok {
		t.Fatalf("zero price must be rejected")
	}
	if _, ok := parseTradeFrame([]byte(`not json`)); ok {
		t.Fatalf("garbage must be rejected")
	}
}
