// Package protocol decodes the newline-delimited JSON messages emitted by the
// TUIO broadcaster into a closed set of typed messages. Decoding is a pure
// function of a single line; it performs no I/O and keeps no state.
package protocol

// MessageKind identifies a decoded message variant. The values are the wire
// discriminator strings sent by the broadcaster in the "type" field.
type MessageKind string

const (
	KindWheelOpen          MessageKind = "wheel_open"
	KindWheelHover         MessageKind = "wheel_hover"
	KindWheelSelectConfirm MessageKind = "wheel_select_confirm"
	KindMedicationSelected MessageKind = "medication_selected"
	KindBackPressed        MessageKind = "back_pressed"
	KindUnknown            MessageKind = "unknown"
)

// Message is the interface implemented by all decoded message variants.
type Message interface {
	// Kind returns the variant discriminator
	Kind() MessageKind
}

// WheelOpen signals that the rotate marker was placed and the selection wheel
// should open. Coordinates are normalized table positions.
type WheelOpen struct {
	X float64
	Y float64
}

// Kind returns the variant discriminator for WheelOpen
func (WheelOpen) Kind() MessageKind { return KindWheelOpen }

// WheelHover reports the sector currently under the rotate marker.
// Sector is -1 when the broadcaster omitted it.
type WheelHover struct {
	Sector     int
	Angle      float64
	Medication string
}

// Kind returns the variant discriminator for WheelHover
func (WheelHover) Kind() MessageKind { return KindWheelHover }

// WheelSelectConfirm reports that the select marker confirmed the hovered
// sector. Sector is -1 when the broadcaster omitted it.
type WheelSelectConfirm struct {
	Sector     int
	Medication string
}

// Kind returns the variant discriminator for WheelSelectConfirm
func (WheelSelectConfirm) Kind() MessageKind { return KindWheelSelectConfirm }

// MedicationSelected reports a direct selection via a medication fiducial
// marker, bypassing the wheel. SymbolID is -1 when omitted.
type MedicationSelected struct {
	Medication string
	SymbolID   int
}

// Kind returns the variant discriminator for MedicationSelected
func (MedicationSelected) Kind() MessageKind { return KindMedicationSelected }

// BackPressed reports that the back marker was placed.
type BackPressed struct{}

// Kind returns the variant discriminator for BackPressed
func (BackPressed) Kind() MessageKind { return KindBackPressed }

// Unknown carries a message whose "type" is not in the known set. The
// broadcaster's raw tuio_obj debug messages land here, as will any types a
// newer broadcaster adds. Unknown messages never break the stream; the
// workflow ignores them and the audit log records them.
type Unknown struct {
	RawType string
}

// Kind returns the variant discriminator for Unknown
func (Unknown) Kind() MessageKind { return KindUnknown }
