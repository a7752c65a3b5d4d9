package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a line that could not be parsed as a JSON object. The
// offending text is preserved for diagnostics; the stream continues past it.
type DecodeError struct {
	Line string
	Err  error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed protocol line %q: %v", e.Line, e.Err)
}

// Unwrap returns the underlying JSON error
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses one trimmed, non-empty protocol line into a typed Message.
//
// Fields beyond "type" are decoded tolerantly: an absent or wrongly-typed
// integer defaults to -1, strings to "", floats to 0 - a single bad optional
// field never discards the line. Unrecognized "type" values decode to Unknown
// rather than failing, so a newer broadcaster never breaks an older kiosk.
// Only non-JSON input returns an error, and that error is always a
// *DecodeError.
func Decode(line string) (Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, &DecodeError{Line: line, Err: err}
	}

	switch MessageKind(stringField(raw, "type")) {
	case KindWheelOpen:
		return WheelOpen{
			X: floatField(raw, "x"),
			Y: floatField(raw, "y"),
		}, nil
	case KindWheelHover:
		return WheelHover{
			Sector:     intField(raw, "sector"),
			Angle:      floatField(raw, "angle"),
			Medication: stringField(raw, "medication"),
		}, nil
	case KindWheelSelectConfirm:
		return WheelSelectConfirm{
			Sector:     intField(raw, "sector"),
			Medication: stringField(raw, "medication"),
		}, nil
	case KindMedicationSelected:
		return MedicationSelected{
			Medication: stringField(raw, "medication"),
			SymbolID:   intField(raw, "symbol_id"),
		}, nil
	case KindBackPressed:
		return BackPressed{}, nil
	default:
		return Unknown{RawType: stringField(raw, "type")}, nil
	}
}

// stringField returns the string value of a field, or "" when the field is
// absent or not a string.
func stringField(raw map[string]json.RawMessage, key string) string {
	data, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

// intField returns the integer value of a field, or -1 when the field is
// absent or not an integer. -1 is the protocol's "no value" marker.
func intField(raw map[string]json.RawMessage, key string) int {
	data, ok := raw[key]
	if !ok {
		return -1
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return -1
	}
	return n
}

func floatField(raw map[string]json.RawMessage, key string) float64 {
	data, ok := raw[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0
	}
	return f
}
