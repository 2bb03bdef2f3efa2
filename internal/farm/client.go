// Package farm reads a player's farm through the Sunflower Land
// community API: one authenticated GET yields the inventory snapshot
// and the harvestable resource coordinates.
package farm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Dimah98/CBot/internal/bot"
)

// DefaultBaseURL is the public community API endpoint.
const DefaultBaseURL = "https://api.sunflower-land.com"

//go:embed farm.schema.json
var farmSchemaJSON string

var farmSchema = jsonschema.MustCompileString("farm.schema.json", farmSchemaJSON)

// Client fetches farm data over HTTP. A response that is not valid
// against the farm schema counts as the inventory being unavailable;
// the run does not guess at partial data.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Logger     *log.Logger
}

// NewClient builds a client against the given base URL (empty means
// the public API) with the 30s request timeout the game tolerates.
func NewClient(baseURL string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
		Logger:     logger,
	}
}

// farmPayload mirrors the wire format. Tree coordinates come in two
// shapes depending on the API version: flat {"x","y"} or nested
// {"coordinates":{"x","y"}}. Both are accepted.
type farmPayload struct {
	Inventory struct {
		Axes int `json:"axes"`
		Gold int `json:"gold"`
	} `json:"inventory"`
	Trees []treeEntry `json:"trees"`
}

type treeEntry struct {
	X           int `json:"x"`
	Y           int `json:"y"`
	Coordinates *struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"coordinates"`
}

func (t treeEntry) coordinate() bot.Coordinate {
	if t.Coordinates != nil {
		return bot.Coordinate{X: t.Coordinates.X, Y: t.Coordinates.Y}
	}
	return bot.Coordinate{X: t.X, Y: t.Y}
}

// FetchFarm implements bot.FarmSource. Transport errors, non-2xx
// statuses and schema violations all wrap bot.ErrInventoryUnavailable.
func (c *Client) FetchFarm(ctx context.Context, farmID, apiKey string) (bot.FarmData, error) {
	url := fmt.Sprintf("%s/community/farms/%s", c.BaseURL, farmID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: build request: %w", bot.ErrInventoryUnavailable, err)
	}
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: %w", bot.ErrInventoryUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: read body: %w", bot.ErrInventoryUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return bot.FarmData{}, fmt.Errorf("%w: farm API status %d", bot.ErrInventoryUnavailable, resp.StatusCode)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: decode response: %w", bot.ErrInventoryUnavailable, err)
	}
	if err := farmSchema.Validate(raw); err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: malformed farm response: %w", bot.ErrInventoryUnavailable, err)
	}

	var payload farmPayload
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
		return bot.FarmData{}, fmt.Errorf("%w: decode response: %w", bot.ErrInventoryUnavailable, err)
	}

	data := bot.FarmData{
		Inventory: bot.Snapshot{Axes: payload.Inventory.Axes, Gold: payload.Inventory.Gold},
		Resources: map[string][]bot.Coordinate{},
	}
	for _, tree := range payload.Trees {
		data.Resources[bot.ResourceTrees] = append(data.Resources[bot.ResourceTrees], tree.coordinate())
	}

	if c.Logger != nil {
		c.Logger.Printf("[FARM] farm=%s axes=%d gold=%d trees=%d",
			farmID, data.Inventory.Axes, data.Inventory.Gold, len(data.Trees()))
	}
	return data, nil
}
