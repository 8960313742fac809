package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areascope/areascope/internal/app"
	"github.com/areascope/areascope/internal/config"
)

func testState() *app.State {
	cfg := &config.Config{}
	cfg.Areas.Max = 2
	cfg.Clip.Workers = 2
	cfg.Metrics.IntersectionToleranceM = 10
	return app.New(cfg)
}

func newTestServer(t *testing.T) (*httptest.Server, *app.State) {
	t.Helper()
	state := testState()
	ts := httptest.NewServer(New(state).Router())
	t.Cleanup(ts.Close)
	return ts, state
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func selectionBody(lon, lat, side float64) map[string]any {
	poly := orb.Polygon{{
		{lon, lat}, {lon + side, lat}, {lon + side, lat + side}, {lon, lat + side}, {lon, lat},
	}}
	return map[string]any{"polygon": geojson.NewGeometry(poly)}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListLayers(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/layers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var layers []map[string]any
	decode(t, resp, &layers)
	assert.NotEmpty(t, layers)
	assert.Equal(t, true, layers[0]["active"])
}

func TestSetLayerActive_Unknown(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPut, ts.URL+"/layers/nope", map[string]any{"active": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetSelection_ComputesStats(t *testing.T) {
	ts, state := newTestServer(t)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{13.305, 52.505}))
	state.Repository().SetFeatures("restaurants", fc)

	resp := doJSON(t, http.MethodPost, ts.URL+"/selection", selectionBody(13.3, 52.5, 0.01))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sel struct {
		Version uint64  `json:"version"`
		AreaM2  float64 `json:"area_m2"`
	}
	decode(t, resp, &sel)
	assert.Equal(t, uint64(1), sel.Version)
	assert.Greater(t, sel.AreaM2, 0.0)

	statsResp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()
	require.Equal(t, http.StatusOK, statsResp.StatusCode)

	var view struct {
		Layers map[string]struct {
			Stats *struct {
				Count *int `json:"count"`
			} `json:"stats"`
		} `json:"layers"`
	}
	decode(t, statsResp, &view)
	require.Contains(t, view.Layers, "restaurants")
	require.NotNil(t, view.Layers["restaurants"].Stats)
	assert.Equal(t, 1, *view.Layers["restaurants"].Stats.Count)
}

func TestSetSelection_Degenerate(t *testing.T) {
	ts, _ := newTestServer(t)
	line := geojson.NewGeometry(orb.Polygon{{{0, 0}, {1, 1}}})
	resp := doJSON(t, http.MethodPost, ts.URL+"/selection", map[string]any{"polygon": line})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStats_NoSelection(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAreaLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	// No selection yet.
	resp := doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": "Mitte"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/selection", selectionBody(13.3, 52.5, 0.01))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": "Mitte"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var area struct {
		ID string `json:"id"`
	}
	decode(t, resp, &area)
	require.NotEmpty(t, area.ID)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/areas/"+area.ID, map[string]any{"name": "Centre"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(ts.URL + "/areas?sort=name")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var areas []struct {
		Name string `json:"name"`
	}
	decode(t, listResp, &areas)
	require.Len(t, areas, 1)
	assert.Equal(t, "Centre", areas[0].Name)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/areas/"+area.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/areas/"+area.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddArea_LimitSurfaced(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/selection", selectionBody(13.3, 52.5, 0.01))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp = doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": fmt.Sprintf("area-%d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": "one-too-many"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReorderArea(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/selection", selectionBody(13.3, 52.5, 0.01))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ids []string
	for _, name := range []string{"A", "B"} {
		resp = doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var area struct {
			ID string `json:"id"`
		}
		decode(t, resp, &area)
		ids = append(ids, area.ID)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/areas/"+ids[1]+"/reorder", map[string]any{"direction": "up"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(ts.URL + "/areas")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var areas []struct {
		ID string `json:"id"`
	}
	decode(t, listResp, &areas)
	assert.Equal(t, []string{ids[1], ids[0]}, []string{areas[0].ID, areas[1].ID})
}

func TestReorderArea_BadDirection(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/areas/x/reorder", map[string]any{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatrix(t *testing.T) {
	ts, state := newTestServer(t)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{13.305, 52.505}))
	state.Repository().SetFeatures("restaurants", fc)

	resp := doJSON(t, http.MethodPost, ts.URL+"/selection", selectionBody(13.3, 52.5, 0.01))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, ts.URL+"/areas", map[string]any{"name": "Mitte"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	matrixResp, err := http.Get(ts.URL + "/areas/matrix")
	require.NoError(t, err)
	defer matrixResp.Body.Close()
	require.Equal(t, http.StatusOK, matrixResp.StatusCode)

	var groups []struct {
		Group string `json:"group"`
		Rows  []struct {
			LayerID string `json:"layer_id"`
		} `json:"rows"`
	}
	decode(t, matrixResp, &groups)
	assert.NotEmpty(t, groups)
}

func TestQuality(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/quality")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dq struct {
		OverallScore   float64 `json:"overall_score"`
		CategoryScores []any   `json:"category_scores"`
	}
	decode(t, resp, &dq)
	assert.NotEmpty(t, dq.CategoryScores)
}

func TestMetrics_NoSelection(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestImportCustomLayer(t *testing.T) {
	ts, _ := newTestServer(t)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{13.305, 52.505}))
	raw, err := fc.MarshalJSON()
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/layers", map[string]any{
		"id": "benches", "name": "Benches", "features": json.RawMessage(raw),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cfg struct {
		ID       string `json:"id"`
		IsCustom bool   `json:"is_custom"`
	}
	decode(t, resp, &cfg)
	assert.Equal(t, "benches", cfg.ID)
	assert.True(t, cfg.IsCustom)
}
