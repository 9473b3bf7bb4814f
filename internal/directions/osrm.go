package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bbalwant/smart-tracking-system/internal/route"
)

var ErrNoRoute = errors.New("no road route found")

// Router fetches road geometry from an OSRM-compatible routing service.
// Callers treat any failure as soft and fall back to the raw trace.
type Router struct {
	baseURL    string
	httpClient *http.Client
}

func NewRouter(baseURL string) *Router {
	return &Router{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving geometry between two points as ordered map
// points.
func (r *Router) Route(ctx context.Context, from, to route.Point) ([]route.Point, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		r.baseURL, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("routing service status %d: %s", resp.StatusCode, detail)
	}

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return nil, ErrNoRoute
	}

	coords := decoded.Routes[0].Geometry.Coordinates
	points := make([]route.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		// OSRM emits [lng, lat] pairs
		points = append(points, route.Point{Latitude: c[1], Longitude: c[0]})
	}
	if len(points) < 2 {
		return nil, ErrNoRoute
	}
	return points, nil
}
