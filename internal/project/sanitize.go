package project

// SanitizeForTransport returns a deep copy of the project with every
// millisecond-denominated field rounded to the nearest whole millisecond.
// The render engine's numeric type cannot represent fractional milliseconds,
// so this must run before a project is serialized for instance creation,
// export, or auto-zoom submission. Applying it twice is a no-op.
func SanitizeForTransport(p *Project) *Project {
	c := p.Clone()

	c.Timeline.DurationMs = c.Timeline.DurationMs.Round()
	c.Timeline.InPointMs = c.Timeline.InPointMs.Round()
	c.Timeline.OutPointMs = c.Timeline.OutPointMs.Round()

	for i := range c.ZoomRegions {
		c.ZoomRegions[i].StartMs = c.ZoomRegions[i].StartMs.Round()
		c.ZoomRegions[i].EndMs = c.ZoomRegions[i].EndMs.Round()
	}
	for i := range c.TextSegments {
		c.TextSegments[i].StartMs = c.TextSegments[i].StartMs.Round()
		c.TextSegments[i].EndMs = c.TextSegments[i].EndMs.Round()
	}
	for i := range c.MaskSegments {
		c.MaskSegments[i].StartMs = c.MaskSegments[i].StartMs.Round()
		c.MaskSegments[i].EndMs = c.MaskSegments[i].EndMs.Round()
	}
	for i := range c.SceneSegments {
		c.SceneSegments[i].StartMs = c.SceneSegments[i].StartMs.Round()
		c.SceneSegments[i].EndMs = c.SceneSegments[i].EndMs.Round()
	}
	for i := range c.WebcamSegments {
		c.WebcamSegments[i].StartMs = c.WebcamSegments[i].StartMs.Round()
		c.WebcamSegments[i].EndMs = c.WebcamSegments[i].EndMs.Round()
	}

	return c
}
