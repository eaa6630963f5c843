// Package webhook parses inbound provider envelopes into reconciliation
// intents.
package webhook

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Envelope is the full inbound webhook payload.
type Envelope struct {
	MetaData  *MetaData `json:"metaData"`
	CreatedAt string    `json:"createdAt,omitempty"`
}

// MetaData mirrors the provider's entry/changes nesting.
type MetaData struct {
	Entry []Entry `json:"entry"`
}

// Entry groups the change sets of one webhook delivery.
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change carries a typed value; only field "messages" is eligible here.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds either inbound messages or status transitions, plus the
// contact and business-line metadata needed to normalize them.
type ChangeValue struct {
	Messages []InboundMessage `json:"messages,omitempty"`
	Statuses []InboundStatus  `json:"statuses,omitempty"`
	Contacts []Contact        `json:"contacts,omitempty"`
	Metadata BusinessMetadata `json:"metadata"`
}

// InboundMessage is a single delivered message.
type InboundMessage struct {
	From      string    `json:"from"`
	ID        string    `json:"id"`
	Timestamp UnixTime  `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextBody `json:"text,omitempty"`
}

// TextBody wraps the body of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// InboundStatus is a single status transition. MetaMsgID is the alias id a
// provider may use instead of the primary message id.
type InboundStatus struct {
	ID           string           `json:"id"`
	MetaMsgID    string           `json:"meta_msg_id,omitempty"`
	Status       string           `json:"status"`
	Timestamp    UnixTime         `json:"timestamp"`
	RecipientID  string           `json:"recipient_id"`
	Conversation *ConversationRef `json:"conversation,omitempty"`
	Pricing      map[string]any   `json:"pricing,omitempty"`
}

// ConversationRef is the provider's own conversation identifier.
type ConversationRef struct {
	ID string `json:"id"`
}

// Contact carries the counterpart's display profile.
type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

// Profile holds the contact's display name.
type Profile struct {
	Name string `json:"name"`
}

// BusinessMetadata identifies the owning business line.
type BusinessMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// UnixTime is an epoch-seconds value that providers serialize either as a
// JSON number or as a quoted string. Unparsable input decodes to zero rather
// than failing the envelope.
type UnixTime int64

// UnmarshalJSON implements json.Unmarshaler.
func (t *UnixTime) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		*t = 0
		return nil
	}
	*t = UnixTime(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(t))
}
