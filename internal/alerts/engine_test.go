package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/kcole93/metroflow-api-sub000/internal/clock"
	"github.com/kcole93/metroflow-api-sub000/internal/feed"
	"github.com/kcole93/metroflow-api-sub000/internal/gtfs"
	"github.com/kcole93/metroflow-api-sub000/internal/models"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2025, 3, 4, 8, 0, 0, 0, loc)
}

func translated(pairs ...string) *gtfsrt.TranslatedString {
	ts := &gtfsrt.TranslatedString{}
	for i := 0; i+1 < len(pairs); i += 2 {
		ts.Translation = append(ts.Translation, &gtfsrt.TranslatedString_Translation{
			Language: proto.String(pairs[i]),
			Text:     proto.String(pairs[i+1]),
		})
	}
	return ts
}

func alertEntity(id string, alert *gtfsrt.Alert) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{Id: proto.String(id), Alert: alert}
}

func newTestEngine(t *testing.T, entities ...*gtfsrt.FeedEntity) *Engine {
	t.Helper()
	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: entities,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.Contains(r.URL.Path, "all-alerts"))
		data, err := proto.Marshal(msg)
		require.NoError(t, err)
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	manager, err := gtfs.InitManager(gtfs.Config{
		StaticRoot:  "../gtfs/testdata/corpus",
		Timezone:    "America/New_York",
		FeedBaseURL: server.URL + "/",
	})
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	return NewEngine(manager, feed.NewFetcher(feed.DefaultTTLConfig()), clock.FixedClock{Time: fixedNow(t)})
}

func TestStationFilterMatchesRouteAndStop(t *testing.T) {
	routeAlert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTASBWY"), RouteId: proto.String("L")},
		},
		HeaderText: translated("en", "L trains rerouted"),
	}
	stopAlert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTASBWY"), StopId: proto.String("L11N")},
		},
		HeaderText: translated("en", "Northbound platform closed"),
	}
	engine := newTestEngine(t, alertEntity("A1", routeAlert), alertEntity("A2", stopAlert))

	result := engine.Alerts(context.Background(), Query{StationID: "SUBWAY-L11"})
	require.Len(t, result, 2)

	ids := []string{result[0].ID, result[1].ID}
	assert.ElementsMatch(t, []string{"A1", "A2"}, ids)
}

func TestStopReferencePullsInParentStation(t *testing.T) {
	alert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTASBWY"), StopId: proto.String("L11N")},
		},
		HeaderText: translated("en", "Platform work"),
	}
	engine := newTestEngine(t, alertEntity("A1", alert))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 1)
	assert.Contains(t, result[0].AffectedStations, "SUBWAY-L11N")
	assert.Contains(t, result[0].AffectedStations, "SUBWAY-L11")
}

func TestEntityDeduplicationFirstWins(t *testing.T) {
	first := &gtfsrt.Alert{HeaderText: translated("en", "first")}
	second := &gtfsrt.Alert{HeaderText: translated("en", "second")}
	engine := newTestEngine(t, alertEntity("A1", first), alertEntity("A1", second))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 1)
	assert.Equal(t, "first", result[0].Header)
}

func TestBusReferencesSkipped(t *testing.T) {
	alert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTA BUS"), RouteId: proto.String("Q44"), StopId: proto.String("L11N")},
			{AgencyId: proto.String("MTASBWY"), RouteId: proto.String("L")},
		},
		HeaderText: translated("en", "Detour"),
	}
	engine := newTestEngine(t, alertEntity("A1", alert))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 1)
	assert.Equal(t, []string{"SUBWAY-L"}, result[0].AffectedLines)
	// The bus informed entity is skipped entirely, stop reference included.
	assert.Empty(t, result[0].AffectedStations)
}

func TestUnknownAgencyStillResolvesStops(t *testing.T) {
	alert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("AMTRAK"), RouteId: proto.String("L"), StopId: proto.String("L11N")},
		},
		HeaderText: translated("en", "Shared corridor work"),
	}
	engine := newTestEngine(t, alertEntity("A1", alert))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 1)
	assert.Empty(t, result[0].AffectedLines)
	assert.Contains(t, result[0].AffectedStations, "SUBWAY-L11")
}

func TestActiveNowFilter(t *testing.T) {
	now := fixedNow(t)
	current := &gtfsrt.Alert{
		ActivePeriod: []*gtfsrt.TimeRange{{
			Start: proto.Uint64(uint64(now.Add(-time.Hour).Unix())),
			End:   proto.Uint64(uint64(now.Add(time.Hour).Unix())),
		}},
		HeaderText: translated("en", "current"),
	}
	expired := &gtfsrt.Alert{
		ActivePeriod: []*gtfsrt.TimeRange{{
			Start: proto.Uint64(uint64(now.Add(-3 * time.Hour).Unix())),
			End:   proto.Uint64(uint64(now.Add(-2 * time.Hour).Unix())),
		}},
		HeaderText: translated("en", "expired"),
	}
	openEnded := &gtfsrt.Alert{
		ActivePeriod: []*gtfsrt.TimeRange{{
			Start: proto.Uint64(uint64(now.Add(-time.Hour).Unix())),
		}},
		HeaderText: translated("en", "open ended"),
	}
	engine := newTestEngine(t,
		alertEntity("A1", current), alertEntity("A2", expired), alertEntity("A3", openEnded))

	result := engine.Alerts(context.Background(), Query{ActiveNow: true})
	require.Len(t, result, 2)
	for _, alert := range result {
		assert.NotEqual(t, "A2", alert.ID)
	}
}

func TestLinesFilterCaseInsensitive(t *testing.T) {
	subway := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTASBWY"), RouteId: proto.String("L")},
		},
		HeaderText: translated("en", "subway"),
	}
	rail := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("LI"), RouteId: proto.String("1")},
		},
		HeaderText: translated("en", "rail"),
	}
	engine := newTestEngine(t, alertEntity("A1", subway), alertEntity("A2", rail))

	result := engine.Alerts(context.Background(), Query{Lines: []string{"subway-l"}})
	require.Len(t, result, 1)
	assert.Equal(t, "A1", result[0].ID)
}

func TestSortByPrimaryStartDescending(t *testing.T) {
	now := fixedNow(t)
	older := &gtfsrt.Alert{
		ActivePeriod: []*gtfsrt.TimeRange{{Start: proto.Uint64(uint64(now.Add(-48 * time.Hour).Unix()))}},
		HeaderText:   translated("en", "older"),
	}
	newer := &gtfsrt.Alert{
		ActivePeriod: []*gtfsrt.TimeRange{{Start: proto.Uint64(uint64(now.Add(-time.Hour).Unix()))}},
		HeaderText:   translated("en", "newer"),
	}
	engine := newTestEngine(t, alertEntity("A1", older), alertEntity("A2", newer))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 2)
	assert.Equal(t, "A2", result[0].ID)
	assert.Equal(t, "A1", result[1].ID)
}

func TestDescriptionPrefersHTMLTranslation(t *testing.T) {
	alert := &gtfsrt.Alert{
		HeaderText: translated("en", "Service change"),
		DescriptionText: translated(
			"en", "plain text",
			"en-html", "<p>Take the <b>\\[A\\]</b> instead</p>",
		),
	}
	engine := newTestEngine(t, alertEntity("A1", alert))

	result := engine.Alerts(context.Background(), Query{})
	require.Len(t, result, 1)
	assert.Equal(t, "Take the **[A]** instead", result[0].Description)
}

func TestLabels(t *testing.T) {
	alert := &gtfsrt.Alert{
		InformedEntity: []*gtfsrt.EntitySelector{
			{AgencyId: proto.String("MTASBWY"), RouteId: proto.String("L"), StopId: proto.String("L11")},
			{AgencyId: proto.String("LI"), RouteId: proto.String("1")},
		},
		HeaderText: translated("en", "Labeled"),
	}
	engine := newTestEngine(t, alertEntity("A1", alert))

	result := engine.Alerts(context.Background(), Query{IncludeLabels: true})
	require.Len(t, result, 1)
	require.NotNil(t, result[0].Labels)
	assert.Equal(t, "L Train", result[0].Labels.Lines["SUBWAY-L"])
	assert.Equal(t, "Babylon Branch", result[0].Labels.Lines["LIRR-1"])
	assert.Equal(t, "Graham Av", result[0].Labels.Stations["SUBWAY-L11"])
}

func TestChoosePrimaryPeriod(t *testing.T) {
	nowMs := fixedNow(t).UnixMilli()

	active := models.ActivePeriod{Start: nowMs - 1000, End: nowMs + 1000}
	future := models.ActivePeriod{Start: nowMs + 5000, End: nowMs + 9000}
	nearFuture := models.ActivePeriod{Start: nowMs + 2000, End: nowMs + 3000}
	past := models.ActivePeriod{Start: nowMs - 9000, End: nowMs - 5000}

	chosen := choosePrimaryPeriod([]models.ActivePeriod{future, active}, nowMs)
	require.NotNil(t, chosen)
	assert.Equal(t, active, *chosen)

	chosen = choosePrimaryPeriod([]models.ActivePeriod{past, future, nearFuture}, nowMs)
	require.NotNil(t, chosen)
	assert.Equal(t, nearFuture, *chosen)

	chosen = choosePrimaryPeriod([]models.ActivePeriod{past}, nowMs)
	require.NotNil(t, chosen)
	assert.Equal(t, past, *chosen)

	assert.Nil(t, choosePrimaryPeriod(nil, nowMs))
}
