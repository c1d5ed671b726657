package domain

// Confidence is a coarse indicator of how strongly an extracted excerpt
// is believed to correspond to the requested module.
type Confidence int

const (
	// ConfidenceLow means only the module name matched, or a fuzzy or
	// fallback strategy produced the excerpt.
	ConfidenceLow Confidence = iota

	// ConfidenceMedium means a keyword occurs inside the excerpt.
	ConfidenceMedium

	// ConfidenceHigh means an exact phrase occurs inside the excerpt.
	ConfidenceHigh
)

// String returns the lowercase wire form used in JSON output.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON encodes the confidence as its string form.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON decodes the string form; unknown values map to low.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"high"`:
		*c = ConfidenceHigh
	case `"medium"`:
		*c = ConfidenceMedium
	default:
		*c = ConfidenceLow
	}
	return nil
}
