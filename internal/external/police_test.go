package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"streetcrime/internal/types"
)

// newPoliceTestClient points a PoliceClient at an httptest server, with a
// single fast retry.
func newPoliceTestClient(t *testing.T, handler http.Handler) *PoliceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := newTestClient(t, fastPolicy(1))
	return NewPoliceClient(base, PoliceClientConfig{BaseURL: server.URL + "/"})
}

func requireAppCode(t *testing.T, err error, want types.ErrorCode) {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError with code %s, got %T: %v", want, err, err)
	}
	if appErr.Code != want {
		t.Fatalf("expected code %s, got %s (%s)", want, appErr.Code, appErr.Message)
	}
}

func TestPoliceClient_ListForces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"avon-and-somerset","name":"Avon and Somerset Constabulary"},{"id":"bedfordshire","name":"Bedfordshire Police"}]`))
	})
	client := newPoliceTestClient(t, mux)

	forces, err := client.ListForces(context.Background())
	if err != nil {
		t.Fatalf("ListForces returned error: %v", err)
	}
	if len(forces) != 2 {
		t.Fatalf("expected 2 forces, got %d", len(forces))
	}
	if forces[0].ID != "avon-and-somerset" || forces[0].Name != "Avon and Somerset Constabulary" {
		t.Errorf("unexpected first force: %+v", forces[0])
	}
}

func TestPoliceClient_ListAvailablePeriods(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crimes-street-dates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2023-05","stop-and-search":["avon-and-somerset"]},{"date":"2023-04","stop-and-search":[]},{"date":""}]`))
	})
	client := newPoliceTestClient(t, mux)

	periods, err := client.ListAvailablePeriods(context.Background())
	if err != nil {
		t.Fatalf("ListAvailablePeriods returned error: %v", err)
	}
	if len(periods) != 2 || periods[0] != "2023-05" || periods[1] != "2023-04" {
		t.Errorf("unexpected periods: %v", periods)
	}
}

func TestPoliceClient_GetForceDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forces/avon-and-somerset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id":"avon-and-somerset","name":"Avon and Somerset Constabulary","telephone":"101",
			"url":"https://www.avonandsomerset.police.uk",
			"engagement_methods":[
				{"type":"facebook","title":"facebook","url":"https://facebook.com/avonandsomersetpolice"},
				{"type":"twitter","title":"","url":"https://twitter.com/aspolice"},
				{"type":"rss","title":"rss","url":""}
			]}`))
	})
	client := newPoliceTestClient(t, mux)

	detail, err := client.GetForceDetail(context.Background(), "avon-and-somerset")
	if err != nil {
		t.Fatalf("GetForceDetail returned error: %v", err)
	}
	if detail.Telephone != "101" {
		t.Errorf("Telephone = %q, want 101", detail.Telephone)
	}
	if len(detail.EngagementLinks) != 2 {
		t.Fatalf("expected 2 links (url-less dropped), got %d", len(detail.EngagementLinks))
	}
	if detail.EngagementLinks[1].Title != "twitter" {
		t.Errorf("empty title should fall back to type, got %q", detail.EngagementLinks[1].Title)
	}
}

func TestPoliceClient_GetForceDetailNotFound(t *testing.T) {
	client := newPoliceTestClient(t, http.NotFoundHandler())

	_, err := client.GetForceDetail(context.Background(), "atlantis")
	requireAppCode(t, err, types.ErrCodeNotFoundForce)
}

func TestPoliceClient_GetNeighbourhoodDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /avon-and-somerset/ASC123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ASC123","name":"City Centre","centre":{"latitude":"51.4545","longitude":"-2.5879"}}`))
	})
	mux.HandleFunc("GET /avon-and-somerset/ASC123/boundary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"latitude":"51.45","longitude":"-2.59"},
			{"latitude":"51.46","longitude":"-2.58"},
			{"latitude":"bad","longitude":"-2.58"},
			{"latitude":"51.44","longitude":"-2.57"}
		]`))
	})
	client := newPoliceTestClient(t, mux)

	detail, err := client.GetNeighbourhoodDetail(context.Background(), "avon-and-somerset", "ASC123")
	if err != nil {
		t.Fatalf("GetNeighbourhoodDetail returned error: %v", err)
	}
	if len(detail.Boundary) != 3 {
		t.Errorf("expected 3 usable boundary points, got %d", len(detail.Boundary))
	}
	if detail.Centroid != (types.Coordinate{Lat: 51.4545, Lon: -2.5879}) {
		t.Errorf("unexpected centroid: %+v", detail.Centroid)
	}
}

func TestPoliceClient_GetNeighbourhoodDetailCentroidFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /f/n", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"n","name":"N","centre":null}`))
	})
	mux.HandleFunc("GET /f/n/boundary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"latitude":"0","longitude":"0"},{"latitude":"3","longitude":"0"},{"latitude":"0","longitude":"3"}]`))
	})
	client := newPoliceTestClient(t, mux)

	detail, err := client.GetNeighbourhoodDetail(context.Background(), "f", "n")
	if err != nil {
		t.Fatalf("GetNeighbourhoodDetail returned error: %v", err)
	}
	if detail.Centroid != (types.Coordinate{Lat: 1, Lon: 1}) {
		t.Errorf("expected vertex mean (1,1), got %+v", detail.Centroid)
	}
}

func TestPoliceClient_GetNeighbourhoodDetailDegenerateBoundary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /f/n", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"n","centre":{"latitude":"1","longitude":"1"}}`))
	})
	mux.HandleFunc("GET /f/n/boundary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"latitude":"0","longitude":"0"}]`))
	})
	client := newPoliceTestClient(t, mux)

	_, err := client.GetNeighbourhoodDetail(context.Background(), "f", "n")
	requireAppCode(t, err, types.ErrCodeUpstreamMalformed)
}

func TestPoliceClient_SearchIncidentsInArea(t *testing.T) {
	var gotForm url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("POST /crimes-street/all-crime", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`[
			{"id":1,"category":"burglary","month":"2023-05","location":{"latitude":"51.45","longitude":"-2.59","street":{"id":9,"name":"On or near Broad Street"}}},
			{"id":2,"category":"drugs","month":"2023-05","location":{"latitude":"","longitude":"-2.58","street":{"id":10,"name":"On or near Park Row"}}},
			{"id":3,"category":"other-crime","month":"2023-05","location":null}
		]`))
	})
	client := newPoliceTestClient(t, mux)

	boundary := types.Polygon{{Lat: 51.45, Lon: -2.59}, {Lat: 51.46, Lon: -2.58}, {Lat: 51.44, Lon: -2.57}}
	incidents, err := client.SearchIncidentsInArea(context.Background(), boundary, "2023-05")
	if err != nil {
		t.Fatalf("SearchIncidentsInArea returned error: %v", err)
	}

	if gotForm.Get("poly") != "51.45,-2.59:51.46,-2.58:51.44,-2.57" {
		t.Errorf("poly = %q", gotForm.Get("poly"))
	}
	if gotForm.Get("date") != "2023-05" {
		t.Errorf("date = %q", gotForm.Get("date"))
	}

	if len(incidents) != 3 {
		t.Fatalf("expected 3 raw incidents, got %d", len(incidents))
	}
	first := incidents[0]
	if first.Latitude == nil || *first.Latitude != 51.45 || first.LocationName == nil || *first.LocationName != "On or near Broad Street" {
		t.Errorf("unexpected first incident: %+v", first)
	}
	if incidents[1].Latitude != nil {
		t.Error("empty latitude should decode as absent")
	}
	if incidents[2].Latitude != nil || incidents[2].LocationName != nil {
		t.Error("null location should leave coordinates and name absent")
	}
}

func TestPoliceClient_SearchRejectsBadInput(t *testing.T) {
	client := newPoliceTestClient(t, http.NotFoundHandler())
	boundary := types.Polygon{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 1, Lon: 2}}

	_, err := client.SearchIncidentsInArea(context.Background(), boundary[:2], "2023-05")
	requireAppCode(t, err, types.ErrCodeValidationMissingField)

	_, err = client.SearchIncidentsInArea(context.Background(), boundary, "May 2023")
	requireAppCode(t, err, types.ErrCodeValidationInvalidPeriod)
}

func TestPoliceClient_MalformedJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})
	client := newPoliceTestClient(t, mux)

	_, err := client.ListForces(context.Background())
	requireAppCode(t, err, types.ErrCodeUpstreamMalformed)
}

func TestPoliceClient_ServerErrorAfterRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forces", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client := newPoliceTestClient(t, mux)

	_, err := client.ListForces(context.Background())
	requireAppCode(t, err, types.ErrCodeUpstreamUnavailable)

	var appErr *types.AppError
	errors.As(err, &appErr)
	if !appErr.Code.IsUpstream() {
		t.Error("exhausted retries should surface as an upstream error")
	}
}

func TestPoliceClient_ClientErrorMapsToUpstream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forces", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	client := newPoliceTestClient(t, mux)

	_, err := client.ListForces(context.Background())
	requireAppCode(t, err, types.ErrCodeUpstreamPoliceAPI)
}

func TestNewHTTPClient_DecodesGzip(t *testing.T) {
	var acceptEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding = r.Header.Get("Accept-Encoding")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	httpClient := NewHTTPClient(time.Second, true)
	base := NewBaseClient(httpClient, "gzip-test", fastPolicy(0), "")
	client := NewPoliceClient(base, PoliceClientConfig{BaseURL: server.URL})

	forces, err := client.ListForces(context.Background())
	if err != nil {
		t.Fatalf("ListForces returned error: %v", err)
	}
	if len(forces) != 0 {
		t.Errorf("expected empty list, got %v", forces)
	}
	if acceptEncoding == "" {
		t.Error("gzip transport should advertise Accept-Encoding")
	}
}
