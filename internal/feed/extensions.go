package feed

import (
	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// The NYCT and MTA Railroad vendor extensions are not part of the
// MobilityData bindings, so after the bulk decode they survive as unknown
// fields on TripDescriptor and StopTimeUpdate. They are read here directly
// from the wire bytes by extension field number.
const (
	// transit_realtime.nyct_trip_descriptor / nyct_stop_time_update
	nyctExtensionField = 1001
	// transit_realtime.mta_railroad_stop_time_update
	mtaRailroadExtensionField = 1005
)

// NYCT trip direction values as carried on the wire.
const (
	NyctDirectionNorth int32 = 1
	NyctDirectionEast  int32 = 2
	NyctDirectionSouth int32 = 3
	NyctDirectionWest  int32 = 4
)

// NyctTripDescriptor mirrors the NYCT TripDescriptor extension.
type NyctTripDescriptor struct {
	TrainID    string
	IsAssigned bool
	Direction  int32
}

// NyctStopTimeUpdate mirrors the NYCT StopTimeUpdate extension.
type NyctStopTimeUpdate struct {
	ScheduledTrack string
	ActualTrack    string
}

// RailroadStopTimeUpdate mirrors the MTA Railroad StopTimeUpdate extension
// used by the LIRR and MNR feeds.
type RailroadStopTimeUpdate struct {
	Track       string
	TrainStatus string
}

// NyctTrip extracts the NYCT extension from a trip descriptor, or nil.
func NyctTrip(trip *gtfsrt.TripDescriptor) *NyctTripDescriptor {
	raw := extensionBytes(trip, nyctExtensionField)
	if raw == nil {
		return nil
	}
	out := &NyctTripDescriptor{}
	scanFields(raw, func(num protowire.Number, typ protowire.Type, payload []byte, varint uint64) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			out.TrainID = string(payload)
		case num == 2 && typ == protowire.VarintType:
			out.IsAssigned = varint != 0
		case num == 3 && typ == protowire.VarintType:
			out.Direction = int32(varint)
		}
	})
	return out
}

// NyctStopTime extracts the NYCT extension from a stop time update, or nil.
func NyctStopTime(update *gtfsrt.TripUpdate_StopTimeUpdate) *NyctStopTimeUpdate {
	raw := extensionBytes(update, nyctExtensionField)
	if raw == nil {
		return nil
	}
	out := &NyctStopTimeUpdate{}
	scanFields(raw, func(num protowire.Number, typ protowire.Type, payload []byte, varint uint64) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			out.ScheduledTrack = string(payload)
		case num == 2 && typ == protowire.BytesType:
			out.ActualTrack = string(payload)
		}
	})
	return out
}

// RailroadStopTime extracts the MTA Railroad extension from a stop time
// update, or nil.
func RailroadStopTime(update *gtfsrt.TripUpdate_StopTimeUpdate) *RailroadStopTimeUpdate {
	raw := extensionBytes(update, mtaRailroadExtensionField)
	if raw == nil {
		return nil
	}
	out := &RailroadStopTimeUpdate{}
	scanFields(raw, func(num protowire.Number, typ protowire.Type, payload []byte, varint uint64) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			out.Track = string(payload)
		case num == 2 && typ == protowire.BytesType:
			out.TrainStatus = string(payload)
		}
	})
	return out
}

// EventTrack reads a track string from a stop time event's unknown fields.
// Some railroad feeds attach the railroad extension message to the arrival
// or departure event rather than the update.
func EventTrack(event *gtfsrt.TripUpdate_StopTimeEvent) string {
	if event == nil {
		return ""
	}
	raw := extensionBytes(event, mtaRailroadExtensionField)
	if raw == nil {
		return ""
	}
	track := ""
	scanFields(raw, func(num protowire.Number, typ protowire.Type, payload []byte, varint uint64) {
		if num == 1 && typ == protowire.BytesType && track == "" {
			track = string(payload)
		}
	})
	return track
}

// extensionBytes finds a length-delimited extension field in a message's
// unknown fields. Repeated occurrences are concatenated per proto merge
// semantics.
func extensionBytes(msg proto.Message, field protowire.Number) []byte {
	if msg == nil {
		return nil
	}
	unknown := msg.ProtoReflect().GetUnknown()
	var merged []byte
	for len(unknown) > 0 {
		num, typ, n := protowire.ConsumeTag(unknown)
		if n < 0 {
			return merged
		}
		unknown = unknown[n:]
		size := protowire.ConsumeFieldValue(num, typ, unknown)
		if size < 0 {
			return merged
		}
		if num == field && typ == protowire.BytesType {
			payload, m := protowire.ConsumeBytes(unknown)
			if m >= 0 {
				merged = append(merged, payload...)
			}
		}
		unknown = unknown[size:]
	}
	return merged
}

// scanFields walks one submessage's wire bytes and calls visit for each
// field. Length-delimited fields pass payload; varint fields pass varint.
func scanFields(raw []byte, visit func(num protowire.Number, typ protowire.Type, payload []byte, varint uint64)) {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return
		}
		raw = raw[n:]
		switch typ {
		case protowire.BytesType:
			payload, m := protowire.ConsumeBytes(raw)
			if m < 0 {
				return
			}
			visit(num, typ, payload, 0)
			raw = raw[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return
			}
			visit(num, typ, nil, v)
			raw = raw[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, raw)
			if m < 0 {
				return
			}
			raw = raw[m:]
		}
	}
}
