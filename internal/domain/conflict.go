package domain

// ConflictType classifies why a proposed event clashes with current state
type ConflictType string

const (
	ConflictNone               ConflictType = "NONE"
	ConflictOversellMild       ConflictType = "OVERSELL_MILD"
	ConflictOversellSevere     ConflictType = "OVERSELL_SEVERE"
	ConflictPriceMismatchMinor ConflictType = "PRICE_MISMATCH_MINOR"
	ConflictPriceMismatchMajor ConflictType = "PRICE_MISMATCH_MAJOR"
	ConflictProductUnavailable ConflictType = "PRODUCT_UNAVAILABLE"
	ConflictChannelDisabled    ConflictType = "CHANNEL_DISABLED"
	ConflictAllocationExceeded ConflictType = "ALLOCATION_EXCEEDED"
	ConflictCapacityExceeded   ConflictType = "CAPACITY_EXCEEDED"
)

// Severity is a totally ordered measure of conflict importance.
// Only SeverityCritical blocks a mutation.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeveritySevere
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityNone:     "NONE",
	SeverityMild:     "MILD",
	SeveritySevere:   "SEVERE",
	SeverityCritical: "CRITICAL",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseSeverity converts a severity name back to its ordered value
func ParseSeverity(name string) (Severity, bool) {
	for s, n := range severityNames {
		if n == name {
			return s, true
		}
	}
	return SeverityNone, false
}

// MarshalJSON encodes severity by name so API consumers never see raw ranks
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes severity from its name
func (s *Severity) UnmarshalJSON(data []byte) error {
	name := string(data)
	if len(name) >= 2 && name[0] == '"' {
		name = name[1 : len(name)-1]
	}
	if parsed, ok := ParseSeverity(name); ok {
		*s = parsed
	}
	return nil
}

// SeverityRank returns the baseline severity for a conflict type. Oversell
// and channel-disabled conflicts may be escalated by the classifier based
// on magnitude, never reduced below this rank.
func SeverityRank(t ConflictType) Severity {
	switch t {
	case ConflictNone:
		return SeverityNone
	case ConflictOversellMild, ConflictPriceMismatchMinor:
		return SeverityMild
	case ConflictOversellSevere, ConflictPriceMismatchMajor, ConflictAllocationExceeded, ConflictChannelDisabled:
		return SeveritySevere
	case ConflictProductUnavailable, ConflictCapacityExceeded:
		return SeverityCritical
	default:
		return SeverityCritical
	}
}

// SuggestedResolution is the classifier's hint to the resolution workflow
type SuggestedResolution string

const (
	SuggestAccept       SuggestedResolution = "ACCEPT"
	SuggestReject       SuggestedResolution = "REJECT"
	SuggestPartial      SuggestedResolution = "PARTIAL"
	SuggestManualReview SuggestedResolution = "MANUAL_REVIEW"
)

// ConflictDetails is the classification verdict for one proposed event
type ConflictDetails struct {
	Type     ConflictType `bson:"type" json:"type"`
	Severity Severity     `bson:"severity" json:"severity"`

	RequestedQuantity int `bson:"requestedQuantity,omitempty" json:"requestedQuantity,omitempty"`
	AvailableQuantity int `bson:"availableQuantity" json:"availableQuantity"`
	Shortage          int `bson:"shortage,omitempty" json:"shortage,omitempty"`

	PriceVariancePct float64 `bson:"priceVariancePct,omitempty" json:"priceVariancePct,omitempty"`

	Message             string              `bson:"message" json:"message"`
	SuggestedResolution SuggestedResolution `bson:"suggestedResolution,omitempty" json:"suggestedResolution,omitempty"`
}

// HasConflict reports whether a real conflict was detected
func (d *ConflictDetails) HasConflict() bool {
	return d != nil && d.Type != ConflictNone
}

// Blocks reports whether the conflict prevents the mutation. Only
// critical conflicts block; mild and severe ones proceed and are
// surfaced for later correction.
func (d *ConflictDetails) Blocks() bool {
	return d != nil && d.Severity >= SeverityCritical
}

// NoConflict returns the verdict for a clean classification
func NoConflict(available int) *ConflictDetails {
	return &ConflictDetails{
		Type:              ConflictNone,
		Severity:          SeverityNone,
		AvailableQuantity: available,
	}
}
