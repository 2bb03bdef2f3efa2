package farm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/Dimah98/CBot/internal/bot"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, nil), server.Close
}

func TestFetchFarm_ParsesInventoryAndTrees(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/community/farms/farm-42" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("x-api-key=%q", got)
		}
		w.Write([]byte(`{
			"inventory": {"axes": 12, "gold": 30},
			"trees": [{"x": 1, "y": 2}, {"x": 3, "y": 4}]
		}`))
	})
	defer done()

	data, err := client.FetchFarm(context.Background(), "farm-42", "secret")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if data.Inventory != (bot.Snapshot{Axes: 12, Gold: 30}) {
		t.Fatalf("inventory=%+v", data.Inventory)
	}
	want := []bot.Coordinate{{X: 1, Y: 2}, {X: 3, Y: 4}}
	if !reflect.DeepEqual(data.Trees(), want) {
		t.Fatalf("trees=%v want %v", data.Trees(), want)
	}
}

func TestFetchFarm_NestedCoordinateSchema(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"inventory": {"axes": 0, "gold": 600},
			"trees": [
				{"coordinates": {"x": 7, "y": 8}},
				{"x": 9, "y": 10}
			]
		}`))
	})
	defer done()

	data, err := client.FetchFarm(context.Background(), "f", "k")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []bot.Coordinate{{X: 7, Y: 8}, {X: 9, Y: 10}}
	if !reflect.DeepEqual(data.Trees(), want) {
		t.Fatalf("trees=%v want %v", data.Trees(), want)
	}
}

func TestFetchFarm_NoTreesIsValid(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"inventory": {"axes": 1, "gold": 2}}`))
	})
	defer done()

	data, err := client.FetchFarm(context.Background(), "f", "k")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(data.Trees()) != 0 {
		t.Fatalf("trees=%v want none", data.Trees())
	}
}

func TestFetchFarm_MissingInventoryFieldsIsUnavailable(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"inventory": {}}`,
		`{"inventory": {"axes": 5}}`,
		`{"inventory": {"gold": 5}}`,
		`{"inventory": {"axes": -1, "gold": 5}}`,
	}
	for _, payload := range payloads {
		client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		})
		_, err := client.FetchFarm(context.Background(), "f", "k")
		done()
		if !errors.Is(err, bot.ErrInventoryUnavailable) {
			t.Errorf("payload %s: err=%v want ErrInventoryUnavailable", payload, err)
		}
	}
}

func TestFetchFarm_BadStatusIsUnavailable(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	defer done()

	_, err := client.FetchFarm(context.Background(), "f", "k")
	if !errors.Is(err, bot.ErrInventoryUnavailable) {
		t.Fatalf("err=%v want ErrInventoryUnavailable", err)
	}
}

func TestFetchFarm_TransportErrorIsUnavailable(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	done() // server already closed: dial fails

	_, err := client.FetchFarm(context.Background(), "f", "k")
	if !errors.Is(err, bot.ErrInventoryUnavailable) {
		t.Fatalf("err=%v want ErrInventoryUnavailable", err)
	}
}

func TestFetchFarm_NonJSONBodyIsUnavailable(t *testing.T) {
	client, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	})
	defer done()

	_, err := client.FetchFarm(context.Background(), "f", "k")
	if !errors.Is(err, bot.ErrInventoryUnavailable) {
		t.Fatalf("err=%v want ErrInventoryUnavailable", err)
	}
}
