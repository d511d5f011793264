package protocol

import "encoding/json"

// NegotiateResponse is the JSON body of the negotiate exchange. Fields
// beyond the ones the connection engine consumes are carried for
// completeness; servers populate all of them.
type NegotiateResponse struct {
	URL                     string   `json:"Url"`
	ConnectionToken         string   `json:"ConnectionToken"`
	ConnectionID            string   `json:"ConnectionId"`
	ProtocolVersion         string   `json:"ProtocolVersion"`
	TryWebSockets           bool     `json:"TryWebSockets"`
	KeepAliveTimeout        *float64 `json:"KeepAliveTimeout"` // seconds; nil disables the heartbeat
	DisconnectTimeout       float64  `json:"DisconnectTimeout"`
	ConnectionTimeout       float64  `json:"ConnectionTimeout"`
	TransportConnectTimeout float64  `json:"TransportConnectTimeout"`
	LongPollDelay           float64  `json:"LongPollDelay"`
}

// StartResponse is the JSON body of the start exchange. A ready server
// answers {"Response":"started"}.
type StartResponse struct {
	Response string `json:"Response"`
}

// StartedResponse is the Response value a healthy start exchange returns.
const StartedResponse = "started"

// ConnectionData renders the hub name list into the connectionData query
// parameter: a JSON array of {"name":...} records, in registration order.
func ConnectionData(hubs []string) (string, error) {
	type hubRecord struct {
		Name string `json:"name"`
	}
	records := make([]hubRecord, 0, len(hubs))
	for _, h := range hubs {
		records = append(records, hubRecord{Name: h})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
