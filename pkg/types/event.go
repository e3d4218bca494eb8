// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Event codes and levels emitted by the checker.
const (
	EventType           = "JsonLdEvent"
	CodeInvalidProperty = "invalid property"
	LevelWarning        = "warning"
	InvalidPropertyMsg  = "Dropping property that did not expand into an absolute IRI or keyword."
)

// Event is a structured lint event. The field layout matches the events
// emitted by JSON-LD processors in lint mode so that reports can be compared
// with other tooling.
type Event struct {
	Type    []string     `json:"type" yaml:"type"`
	Code    string       `json:"code" yaml:"code"`
	Level   string       `json:"level" yaml:"level"`
	Message string       `json:"message" yaml:"message"`
	Details EventDetails `json:"details" yaml:"details"`
}

// EventDetails names the property an event is about.
type EventDetails struct {
	Property         string `json:"property" yaml:"property"`
	ExpandedProperty string `json:"expandedProperty" yaml:"expandedProperty"`
}

// NewInvalidPropertyEvent returns the warning for a key that did not expand.
// The attempted expansion of an unresolved key is the key itself.
func NewInvalidPropertyEvent(property string) Event {
	return Event{
		Type:    []string{EventType},
		Code:    CodeInvalidProperty,
		Level:   LevelWarning,
		Message: InvalidPropertyMsg,
		Details: EventDetails{
			Property:         property,
			ExpandedProperty: property,
		},
	}
}
