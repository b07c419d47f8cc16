package project

import "encoding/json"

// SelectionKind identifies which track a selection belongs to.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectZoom
	SelectText
	SelectMask
	SelectScene
	SelectWebcam
)

// ParseSelectionKind maps a track name to its SelectionKind. Unknown names
// (including "") parse as SelectNone.
func ParseSelectionKind(s string) SelectionKind {
	switch s {
	case "zoom":
		return SelectZoom
	case "text":
		return SelectText
	case "mask":
		return SelectMask
	case "scene":
		return SelectScene
	case "webcam":
		return SelectWebcam
	default:
		return SelectNone
	}
}

func (k SelectionKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *SelectionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseSelectionKind(s)
	return nil
}

func (k SelectionKind) String() string {
	switch k {
	case SelectZoom:
		return "zoom"
	case SelectText:
		return "text"
	case SelectMask:
		return "mask"
	case SelectScene:
		return "scene"
	case SelectWebcam:
		return "webcam"
	default:
		return "none"
	}
}

// Selection is the single active segment across all five tracks. Holding the
// union as one tagged value makes cross-track mutual exclusivity structural:
// selecting a segment on any track necessarily displaces whatever was
// selected before.
type Selection struct {
	Kind      SelectionKind `json:"kind"`
	SegmentID string        `json:"segment_id,omitempty"`
}

// NoSelection is the empty selection.
var NoSelection = Selection{Kind: SelectNone}

// IsNone reports whether nothing is selected.
func (s Selection) IsNone() bool {
	return s.Kind == SelectNone
}

// Is reports whether the selection is the given segment on the given track.
func (s Selection) Is(kind SelectionKind, id string) bool {
	return s.Kind == kind && s.SegmentID == id
}
