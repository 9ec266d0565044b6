package models

import "encoding/json"

// TaxiRequest is the body of POST /request.
type TaxiRequest struct {
	Serial   string `json:"serial"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// TaxiResponse is returned when a request was dispatched.
type TaxiResponse struct {
	OK  bool            `json:"ok"`
	FCM json.RawMessage `json:"fcm"`
}

// BlockListUpdate is the body of POST /update-blocked.
// List is kept raw so its shape can be validated separately from the envelope.
type BlockListUpdate struct {
	List json.RawMessage `json:"list"`
}

// BlockList is returned by GET /blocked.
type BlockList struct {
	List []string `json:"list"`
}
