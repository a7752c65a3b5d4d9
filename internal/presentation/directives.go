// Package presentation carries the directive stream from the workflow core to
// whatever renders it. Directives are plain data: the core stays decoupled
// from how the wheel, popup and history view are drawn.
package presentation

import "github.com/aristath/medkiosk/internal/ledger"

// Op identifies a directive operation
type Op string

const (
	OpSetMode         Op = "set_mode"
	OpShowInstruction Op = "show_instruction"
	OpOpenWheel       Op = "open_wheel"
	OpCloseWheel      Op = "close_wheel"
	OpHighlightSector Op = "highlight_sector"
	OpShowPopup       Op = "show_popup"
	OpHidePopup       Op = "hide_popup"
	OpSetSelectedText Op = "set_selected_text"
	OpSetStatusText   Op = "set_status_text"
	OpAppendLogLine   Op = "append_log_line"
	OpRefreshHistory  Op = "refresh_history"
)

// Directive is one rendering instruction. Which fields are meaningful depends
// on Op; unused fields are zero.
type Directive struct {
	Op         Op                  `json:"op"`
	Text       string              `json:"text,omitempty"`
	Sector     int                 `json:"sector"`
	Confirming bool                `json:"confirming"`
	Records    []ledger.DoseRecord `json:"records,omitempty"`
	Upcoming   *ledger.DoseRecord  `json:"upcoming,omitempty"`
}

// SetMode sets the renderer's mode banner.
func SetMode(text string) Directive { return Directive{Op: OpSetMode, Text: text} }

// ShowInstruction shows a transient instruction line.
func ShowInstruction(text string) Directive { return Directive{Op: OpShowInstruction, Text: text} }

// OpenWheel opens the selection wheel.
func OpenWheel() Directive { return Directive{Op: OpOpenWheel} }

// CloseWheel hides the selection wheel.
func CloseWheel() Directive { return Directive{Op: OpCloseWheel} }

// HighlightSector highlights one wheel sector; confirming marks the
// yes/no confirmation rendering of the wheel.
func HighlightSector(sector int, confirming bool) Directive {
	return Directive{Op: OpHighlightSector, Sector: sector, Confirming: confirming}
}

// ShowPopup shows the confirmation popup with the given text.
func ShowPopup(text string) Directive { return Directive{Op: OpShowPopup, Text: text} }

// HidePopup hides the confirmation popup.
func HidePopup() Directive { return Directive{Op: OpHidePopup} }

// SetSelectedText sets the currently-selected medication label.
func SetSelectedText(text string) Directive { return Directive{Op: OpSetSelectedText, Text: text} }

// SetStatusText sets the connection/status line.
func SetStatusText(text string) Directive { return Directive{Op: OpSetStatusText, Text: text} }

// AppendLogLine appends a line to the renderer's on-screen log.
func AppendLogLine(text string) Directive { return Directive{Op: OpAppendLogLine, Text: text} }

// RefreshHistory replaces the rendered history view.
func RefreshHistory(records []ledger.DoseRecord, upcoming *ledger.DoseRecord) Directive {
	return Directive{Op: OpRefreshHistory, Records: records, Upcoming: upcoming}
}
