// Package pipeline runs the capture session state machine.
package pipeline

import "fmt"

// State is one stage of a capture session.
type State int32

const (
	Idle State = iota
	OpeningSource
	Acquiring
	LocatingFace
	SamplingColor
	Training
	Classifying
	DetectingEdges
	RefiningContours
	Closing
	Stopped
)

var stateNames = [...]string{
	Idle:             "idle",
	OpeningSource:    "opening_source",
	Acquiring:        "acquiring",
	LocatingFace:     "locating_face",
	SamplingColor:    "sampling_color",
	Training:         "training",
	Classifying:      "classifying",
	DetectingEdges:   "detecting_edges",
	RefiningContours: "refining_contours",
	Closing:          "closing",
	Stopped:          "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
