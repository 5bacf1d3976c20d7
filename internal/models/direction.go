package models

// Direction is the typed trip direction. The vocabulary is deliberately
// non-uniform: the subway signs compass directions, the railroads sign
// inbound/outbound relative to their terminals.
type Direction string

const (
	DirectionNorth    Direction = "N"
	DirectionSouth    Direction = "S"
	DirectionInbound  Direction = "Inbound"
	DirectionOutbound Direction = "Outbound"
	DirectionUnknown  Direction = "Unknown"
)

// Rank orders directions for the final departure sort: northbound first,
// then southbound, then the railroad directions, unknowns last.
func (d Direction) Rank() int {
	switch d {
	case DirectionNorth:
		return 1
	case DirectionSouth:
		return 2
	case DirectionInbound:
		return 3
	case DirectionOutbound:
		return 4
	default:
		return 5
	}
}
