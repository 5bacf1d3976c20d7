package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func feedBytes(t *testing.T, entities int) []byte {
	t.Helper()
	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
	}
	for i := 0; i < entities; i++ {
		msg.Entity = append(msg.Entity, &gtfsrt.FeedEntity{
			Id:      proto.String(string(rune('a' + i))),
			Vehicle: &gtfsrt.VehiclePosition{},
		})
	}
	data, err := proto.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestFetchAndDecodeCachesByKey(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(feedBytes(t, 2))
	}))
	defer server.Close()

	f := NewFetcher(DefaultTTLConfig())
	ctx := context.Background()

	first := f.FetchAndDecode(ctx, server.URL, "nyct-test")
	require.NotNil(t, first)
	assert.Len(t, first.GetEntity(), 2)

	second := f.FetchAndDecode(ctx, server.URL, "nyct-test")
	require.NotNil(t, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchAndDecodeRefetchesEmptyCachedMessage(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(feedBytes(t, 0))
	}))
	defer server.Close()

	f := NewFetcher(DefaultTTLConfig())
	ctx := context.Background()

	first := f.FetchAndDecode(ctx, server.URL, "nyct-test")
	require.NotNil(t, first)
	assert.Empty(t, first.GetEntity())

	// An empty cached message is discarded and fetched again.
	second := f.FetchAndDecode(ctx, server.URL, "nyct-test")
	require.NotNil(t, second)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchAndDecodeRejectsTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(DefaultTTLConfig())
	assert.Nil(t, f.FetchAndDecode(context.Background(), server.URL, "nyct-test"))
}

func TestFetchAndDecodeRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewFetcher(DefaultTTLConfig())
	assert.Nil(t, f.FetchAndDecode(context.Background(), server.URL, "nyct-test"))
}

func TestFetchAndDecodeRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	f := NewFetcher(DefaultTTLConfig())
	assert.Nil(t, f.FetchAndDecode(context.Background(), server.URL, "nyct-test"))
}

func TestTTLSelection(t *testing.T) {
	f := NewFetcher(DefaultTTLConfig())

	assert.Equal(t, f.ttls.Alerts, f.ttlFor("all-alerts:https://x/camsys%2Fall-alerts"))
	assert.Equal(t, f.ttls.Rail, f.ttlFor("gtfs-lirr:https://x/lirr%2Fgtfs-lirr"))
	assert.Equal(t, f.ttls.Rail, f.ttlFor("gtfs-mnr:https://x/mnr%2Fgtfs-mnr"))
	assert.Equal(t, f.ttls.Subway, f.ttlFor("gtfs-l:https://x/nyct%2Fgtfs-l"))
}

func TestCacheKeyStripsQuery(t *testing.T) {
	key := cacheKey("gtfs-l", "https://x/nyct%2Fgtfs-l?key=secret")
	assert.Equal(t, "gtfs-l:https://x/nyct%2Fgtfs-l", key)
}
