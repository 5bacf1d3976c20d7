package feed

import (
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// attachExtension plants a length-delimited submessage as an unknown field,
// the same shape the wire decoder leaves vendor extensions in.
func attachExtension(msg proto.Message, field protowire.Number, sub []byte) {
	var raw []byte
	raw = protowire.AppendTag(raw, field, protowire.BytesType)
	raw = protowire.AppendBytes(raw, sub)
	msg.ProtoReflect().SetUnknown(protoreflect.RawFields(raw))
}

func TestNyctTrip(t *testing.T) {
	var sub []byte
	sub = protowire.AppendTag(sub, 1, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("06 0824+ 8AV/RPY"))
	sub = protowire.AppendTag(sub, 2, protowire.VarintType)
	sub = protowire.AppendVarint(sub, 1)
	sub = protowire.AppendTag(sub, 3, protowire.VarintType)
	sub = protowire.AppendVarint(sub, uint64(NyctDirectionSouth))

	trip := &gtfsrt.TripDescriptor{TripId: proto.String("066400_L..S")}
	attachExtension(trip, nyctExtensionField, sub)

	ext := NyctTrip(trip)
	require.NotNil(t, ext)
	assert.Equal(t, "06 0824+ 8AV/RPY", ext.TrainID)
	assert.True(t, ext.IsAssigned)
	assert.Equal(t, NyctDirectionSouth, ext.Direction)
}

func TestNyctTripAbsent(t *testing.T) {
	trip := &gtfsrt.TripDescriptor{TripId: proto.String("066400_L..S")}
	assert.Nil(t, NyctTrip(trip))
	assert.Nil(t, NyctTrip(nil))
}

func TestNyctStopTime(t *testing.T) {
	var sub []byte
	sub = protowire.AppendTag(sub, 1, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("4"))
	sub = protowire.AppendTag(sub, 2, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("6"))

	update := &gtfsrt.TripUpdate_StopTimeUpdate{StopId: proto.String("L11N")}
	attachExtension(update, nyctExtensionField, sub)

	ext := NyctStopTime(update)
	require.NotNil(t, ext)
	assert.Equal(t, "4", ext.ScheduledTrack)
	assert.Equal(t, "6", ext.ActualTrack)
}

func TestRailroadStopTime(t *testing.T) {
	var sub []byte
	sub = protowire.AppendTag(sub, 1, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("19"))
	sub = protowire.AppendTag(sub, 2, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("On Time"))

	update := &gtfsrt.TripUpdate_StopTimeUpdate{StopId: proto.String("237")}
	attachExtension(update, mtaRailroadExtensionField, sub)

	ext := RailroadStopTime(update)
	require.NotNil(t, ext)
	assert.Equal(t, "19", ext.Track)
	assert.Equal(t, "On Time", ext.TrainStatus)
}

func TestEventTrack(t *testing.T) {
	var sub []byte
	sub = protowire.AppendTag(sub, 1, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("12"))

	event := &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(1700000000)}
	attachExtension(event, mtaRailroadExtensionField, sub)

	assert.Equal(t, "12", EventTrack(event))
	assert.Empty(t, EventTrack(nil))
	assert.Empty(t, EventTrack(&gtfsrt.TripUpdate_StopTimeEvent{}))
}

func TestExtensionBytesIgnoresOtherFields(t *testing.T) {
	var raw []byte
	raw = protowire.AppendTag(raw, 999, protowire.VarintType)
	raw = protowire.AppendVarint(raw, 5)
	raw = protowire.AppendTag(raw, nyctExtensionField, protowire.BytesType)
	raw = protowire.AppendBytes(raw, []byte{0x0a, 0x01, 0x41}) // field 1: "A"

	trip := &gtfsrt.TripDescriptor{}
	trip.ProtoReflect().SetUnknown(protoreflect.RawFields(raw))

	ext := NyctTrip(trip)
	require.NotNil(t, ext)
	assert.Equal(t, "A", ext.TrainID)
}
