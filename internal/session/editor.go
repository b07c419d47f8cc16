package session

import (
	"github.com/walterlow/snapit/internal/project"
)

const (
	// splitMarginMs is the minimum distance the playhead must keep from both
	// edges of a zoom region for a split, and the minimum surviving duration
	// when a webcam interval is trimmed at an edge.
	splitMarginMs = project.Millis(100)

	// webcamDefaultMs is the length of a freshly inserted visibility interval.
	webcamDefaultMs = project.Millis(5000)
)

// Select sets the active segment. Because the selection is one tagged value,
// selecting on any track necessarily clears every other track's selection.
// No-ops if no project is loaded or the segment does not exist.
func (s *Session) Select(kind project.SelectionKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	if kind == project.SelectNone {
		s.selection = project.NoSelection
		return
	}
	if !s.segmentExistsLocked(kind, id) {
		return
	}
	s.selection = project.Selection{Kind: kind, SegmentID: id}
}

// ClearSelection deselects whatever is selected.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = project.NoSelection
}

// Selection returns the current selection.
func (s *Session) Selection() project.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *Session) segmentExistsLocked(kind project.SelectionKind, id string) bool {
	switch kind {
	case project.SelectZoom:
		for _, seg := range s.project.ZoomRegions {
			if seg.ID == id {
				return true
			}
		}
	case project.SelectText:
		for _, seg := range s.project.TextSegments {
			if seg.ID == id {
				return true
			}
		}
	case project.SelectMask:
		for _, seg := range s.project.MaskSegments {
			if seg.ID == id {
				return true
			}
		}
	case project.SelectScene:
		for _, seg := range s.project.SceneSegments {
			if seg.ID == id {
				return true
			}
		}
	case project.SelectWebcam:
		for _, seg := range s.project.WebcamSegments {
			if seg.ID == id {
				return true
			}
		}
	}
	return false
}

// AddZoomRegion clamps the region to the timeline, inserts it, re-sorts the
// track, and selects it. Overlapping regions are permitted; rendering
// precedence is the engine's concern. Returns the stored region, or nil with
// no loaded project.
func (s *Session) AddZoomRegion(region project.ZoomRegion) *project.ZoomRegion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}

	if region.ID == "" {
		region.ID = project.NewID()
	}
	region.StartMs = s.project.ClampToDuration(region.StartMs)
	region.EndMs = s.project.ClampToDuration(region.EndMs)
	if region.EndMs < region.StartMs {
		region.EndMs = region.StartMs
	}

	s.project.ZoomRegions = append(s.project.ZoomRegions, region)
	s.project.SortZoomRegions()
	s.selection = project.Selection{Kind: project.SelectZoom, SegmentID: region.ID}
	return &region
}

// ZoomRegionUpdate is a partial update; nil fields are left unchanged.
// Values are merged as-is: interactive drags are expected to clamp before
// calling.
type ZoomRegionUpdate struct {
	StartMs *project.Millis
	EndMs   *project.Millis
	Rect    *project.ZoomRect
	Scale   *float64
}

// UpdateZoomRegion merges fields into the matching region.
func (s *Session) UpdateZoomRegion(id string, upd ZoomRegionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.ZoomRegions {
		if s.project.ZoomRegions[i].ID != id {
			continue
		}
		if upd.StartMs != nil {
			s.project.ZoomRegions[i].StartMs = *upd.StartMs
		}
		if upd.EndMs != nil {
			s.project.ZoomRegions[i].EndMs = *upd.EndMs
		}
		if upd.Rect != nil {
			s.project.ZoomRegions[i].Rect = *upd.Rect
		}
		if upd.Scale != nil {
			s.project.ZoomRegions[i].Scale = *upd.Scale
		}
		return
	}
}

// DeleteZoomRegion removes the region and clears the selection if it was
// selected.
func (s *Session) DeleteZoomRegion(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.ZoomRegions {
		if s.project.ZoomRegions[i].ID == id {
			s.project.ZoomRegions = append(s.project.ZoomRegions[:i], s.project.ZoomRegions[i+1:]...)
			if s.selection.Is(project.SelectZoom, id) {
				s.selection = project.NoSelection
			}
			return
		}
	}
}

// SplitZoomRegionAtPlayhead splits the selected zoom region at the current
// playhead into two regions sharing the original payload, selecting the
// first half. No-ops unless the playhead lies strictly inside the region
// with at least splitMarginMs from both edges.
func (s *Session) SplitZoomRegionAtPlayhead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil || s.selection.Kind != project.SelectZoom {
		return
	}

	playhead := s.currentTimeMs
	for i := range s.project.ZoomRegions {
		region := &s.project.ZoomRegions[i]
		if region.ID != s.selection.SegmentID {
			continue
		}
		if playhead-region.StartMs < splitMarginMs || region.EndMs-playhead < splitMarginMs {
			return
		}

		first := *region
		first.ID = project.NewID()
		first.EndMs = playhead
		second := *region
		second.ID = project.NewID()
		second.StartMs = playhead

		s.project.ZoomRegions = append(s.project.ZoomRegions[:i], s.project.ZoomRegions[i+1:]...)
		s.project.ZoomRegions = append(s.project.ZoomRegions, first, second)
		s.project.SortZoomRegions()
		s.selection = project.Selection{Kind: project.SelectZoom, SegmentID: first.ID}
		return
	}
}

// AddTextSegment clamps, inserts, re-sorts, and selects a text segment.
func (s *Session) AddTextSegment(seg project.TextSegment) *project.TextSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}

	if seg.ID == "" {
		seg.ID = project.NewID()
	}
	seg.StartMs = s.project.ClampToDuration(seg.StartMs)
	seg.EndMs = s.project.ClampToDuration(seg.EndMs)
	if seg.EndMs < seg.StartMs {
		seg.EndMs = seg.StartMs
	}

	s.project.TextSegments = append(s.project.TextSegments, seg)
	s.project.SortTextSegments()
	s.selection = project.Selection{Kind: project.SelectText, SegmentID: seg.ID}
	return &seg
}

// TextSegmentUpdate is a partial update; nil fields are left unchanged.
type TextSegmentUpdate struct {
	StartMs  *project.Millis
	EndMs    *project.Millis
	Text     *string
	X        *float64
	Y        *float64
	FontSize *int
}

// UpdateTextSegment merges fields into the matching segment.
func (s *Session) UpdateTextSegment(id string, upd TextSegmentUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.TextSegments {
		if s.project.TextSegments[i].ID != id {
			continue
		}
		if upd.StartMs != nil {
			s.project.TextSegments[i].StartMs = *upd.StartMs
		}
		if upd.EndMs != nil {
			s.project.TextSegments[i].EndMs = *upd.EndMs
		}
		if upd.Text != nil {
			s.project.TextSegments[i].Text = *upd.Text
		}
		if upd.X != nil {
			s.project.TextSegments[i].X = *upd.X
		}
		if upd.Y != nil {
			s.project.TextSegments[i].Y = *upd.Y
		}
		if upd.FontSize != nil {
			s.project.TextSegments[i].FontSize = *upd.FontSize
		}
		return
	}
}

// DeleteTextSegment removes the segment, clearing its selection if needed.
func (s *Session) DeleteTextSegment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.TextSegments {
		if s.project.TextSegments[i].ID == id {
			s.project.TextSegments = append(s.project.TextSegments[:i], s.project.TextSegments[i+1:]...)
			if s.selection.Is(project.SelectText, id) {
				s.selection = project.NoSelection
			}
			return
		}
	}
}

// AddMaskSegment clamps, inserts, re-sorts, and selects a mask segment.
func (s *Session) AddMaskSegment(seg project.MaskSegment) *project.MaskSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}

	if seg.ID == "" {
		seg.ID = project.NewID()
	}
	seg.StartMs = s.project.ClampToDuration(seg.StartMs)
	seg.EndMs = s.project.ClampToDuration(seg.EndMs)
	if seg.EndMs < seg.StartMs {
		seg.EndMs = seg.StartMs
	}

	s.project.MaskSegments = append(s.project.MaskSegments, seg)
	s.project.SortMaskSegments()
	s.selection = project.Selection{Kind: project.SelectMask, SegmentID: seg.ID}
	return &seg
}

// MaskSegmentUpdate is a partial update; nil fields are left unchanged.
type MaskSegmentUpdate struct {
	StartMs *project.Millis
	EndMs   *project.Millis
	Rect    *project.MaskRect
	Blur    *float64
}

// UpdateMaskSegment merges fields into the matching segment.
func (s *Session) UpdateMaskSegment(id string, upd MaskSegmentUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.MaskSegments {
		if s.project.MaskSegments[i].ID != id {
			continue
		}
		if upd.StartMs != nil {
			s.project.MaskSegments[i].StartMs = *upd.StartMs
		}
		if upd.EndMs != nil {
			s.project.MaskSegments[i].EndMs = *upd.EndMs
		}
		if upd.Rect != nil {
			s.project.MaskSegments[i].Rect = *upd.Rect
		}
		if upd.Blur != nil {
			s.project.MaskSegments[i].Blur = *upd.Blur
		}
		return
	}
}

// DeleteMaskSegment removes the segment, clearing its selection if needed.
func (s *Session) DeleteMaskSegment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.MaskSegments {
		if s.project.MaskSegments[i].ID == id {
			s.project.MaskSegments = append(s.project.MaskSegments[:i], s.project.MaskSegments[i+1:]...)
			if s.selection.Is(project.SelectMask, id) {
				s.selection = project.NoSelection
			}
			return
		}
	}
}

// AddSceneSegment clamps, inserts, re-sorts, and selects a scene segment.
func (s *Session) AddSceneSegment(seg project.SceneSegment) *project.SceneSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}

	if seg.ID == "" {
		seg.ID = project.NewID()
	}
	seg.StartMs = s.project.ClampToDuration(seg.StartMs)
	seg.EndMs = s.project.ClampToDuration(seg.EndMs)
	if seg.EndMs < seg.StartMs {
		seg.EndMs = seg.StartMs
	}

	s.project.SceneSegments = append(s.project.SceneSegments, seg)
	s.project.SortSceneSegments()
	s.selection = project.Selection{Kind: project.SelectScene, SegmentID: seg.ID}
	return &seg
}

// SceneSegmentUpdate is a partial update; nil fields are left unchanged.
type SceneSegmentUpdate struct {
	StartMs *project.Millis
	EndMs   *project.Millis
	Layout  *string
}

// UpdateSceneSegment merges fields into the matching segment.
func (s *Session) UpdateSceneSegment(id string, upd SceneSegmentUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.SceneSegments {
		if s.project.SceneSegments[i].ID != id {
			continue
		}
		if upd.StartMs != nil {
			s.project.SceneSegments[i].StartMs = *upd.StartMs
		}
		if upd.EndMs != nil {
			s.project.SceneSegments[i].EndMs = *upd.EndMs
		}
		if upd.Layout != nil {
			s.project.SceneSegments[i].Layout = *upd.Layout
		}
		return
	}
}

// DeleteSceneSegment removes the segment, clearing its selection if needed.
func (s *Session) DeleteSceneSegment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.SceneSegments {
		if s.project.SceneSegments[i].ID == id {
			s.project.SceneSegments = append(s.project.SceneSegments[:i], s.project.SceneSegments[i+1:]...)
			if s.selection.Is(project.SelectScene, id) {
				s.selection = project.NoSelection
			}
			return
		}
	}
}

// ToggleWebcamVisibilityAtTime toggles the webcam overlay at the given time.
// Inside an existing interval the interval is trimmed (near an edge),
// removed (too short to trim), or split in two at the toggle point; outside
// any interval a default 5-second visible interval is inserted, clamped to
// the timeline end. The track stays sorted by start.
func (s *Session) ToggleWebcamVisibilityAtTime(timeMs project.Millis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}

	t := s.project.ClampToDuration(timeMs)

	for i := range s.project.WebcamSegments {
		seg := s.project.WebcamSegments[i]
		if t < seg.StartMs || t >= seg.EndMs {
			continue
		}

		fromStart := t - seg.StartMs
		fromEnd := seg.EndMs - t

		switch {
		case fromStart < splitMarginMs && fromEnd < splitMarginMs:
			// Too short to trim either side; drop the interval.
			s.project.WebcamSegments = append(s.project.WebcamSegments[:i], s.project.WebcamSegments[i+1:]...)
			if s.selection.Is(project.SelectWebcam, seg.ID) {
				s.selection = project.NoSelection
			}
		case fromStart < splitMarginMs:
			s.project.WebcamSegments[i].StartMs = t
		case fromEnd < splitMarginMs:
			s.project.WebcamSegments[i].EndMs = t
		default:
			first := seg
			first.ID = project.NewID()
			first.EndMs = t
			second := seg
			second.ID = project.NewID()
			second.StartMs = t

			s.project.WebcamSegments = append(s.project.WebcamSegments[:i], s.project.WebcamSegments[i+1:]...)
			s.project.WebcamSegments = append(s.project.WebcamSegments, first, second)
			if s.selection.Is(project.SelectWebcam, seg.ID) {
				s.selection = project.NoSelection
			}
		}
		// Overlapping intervals are legal on this track, so trimming a start
		// edge can reorder it just like a split can.
		s.project.SortWebcamSegments()
		return
	}

	seg := project.WebcamSegment{
		ID:      project.NewID(),
		StartMs: t,
		EndMs:   s.project.ClampToDuration(t + webcamDefaultMs),
		Visible: true,
	}
	s.project.WebcamSegments = append(s.project.WebcamSegments, seg)
	s.project.SortWebcamSegments()
}

// DeleteWebcamSegment removes the interval, clearing its selection if needed.
func (s *Session) DeleteWebcamSegment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	for i := range s.project.WebcamSegments {
		if s.project.WebcamSegments[i].ID == id {
			s.project.WebcamSegments = append(s.project.WebcamSegments[:i], s.project.WebcamSegments[i+1:]...)
			if s.selection.Is(project.SelectWebcam, id) {
				s.selection = project.NoSelection
			}
			return
		}
	}
}
