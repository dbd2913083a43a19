package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holiday_merch_forge/pipeline"
	"holiday_merch_forge/retry"
)

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, _ *pipeline.FinalizedProduct) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("listing-%d", f.calls), nil
}

func newTestServer(t *testing.T, pub Publisher) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	pipe, err := pipeline.New(pipeline.MockGenerator{}, pipeline.MockGenerator{}, retry.New(logger), logger)
	require.NoError(t, err)
	pipe.SetMockupPace(time.Nanosecond)

	srv, err := New(pipe, pub, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]json.RawMessage {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Full happy path: ideate, render one design, finalize it, publish it,
// download the bundle.
func TestSessionFlow(t *testing.T) {
	pub := &fakePublisher{}
	ts := newTestServer(t, pub)

	// Ideation.
	resp, body := postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"theme":       "Christmas",
		"style":       "Minimalist Vector",
		"productType": "Mug",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))
	var concepts []pipeline.Concept
	require.NoError(t, json.Unmarshal(body["concepts"], &concepts))
	require.Len(t, concepts, 3)

	base := ts.URL + "/api/sessions/" + sessionID

	// Render one selected concept.
	resp, body = postJSON(t, base+"/designs", map[string]any{
		"titles": []string{concepts[0].Title},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var designs []struct {
		Index int    `json:"index"`
		Title string `json:"title"`
		PNG   []byte `json:"png"`
	}
	require.NoError(t, json.Unmarshal(body["designs"], &designs))
	require.Len(t, designs, 1)
	assert.Equal(t, concepts[0].Title, designs[0].Title)
	assert.NotEmpty(t, designs[0].PNG)

	// Finalize the rendered design.
	resp, body = postJSON(t, base+"/finalize", map[string]any{
		"selections": []map[string]any{{"designIndex": 0}},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var total int
	require.NoError(t, json.Unmarshal(body["total"], &total))
	assert.Equal(t, 1+pipeline.MockupScenesPerDesign, total)

	// Poll until the batch finishes.
	var products []struct {
		ID          string               `json:"id"`
		Listing     pipeline.ListingCopy `json:"listing"`
		MockupCount int                  `json:"mockupCount"`
		PublishedID string               `json:"publishedId"`
	}
	require.Eventually(t, func() bool {
		_, body = getJSON(t, base+"/finalize")
		var progress pipeline.FinalizeProgress
		require.NoError(t, json.Unmarshal(body["progress"], &progress))
		if progress.Running {
			return false
		}
		require.Empty(t, progress.Error)
		require.NoError(t, json.Unmarshal(body["products"], &products))
		return true
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, products, 1)
	assert.LessOrEqual(t, len(products[0].Listing.Title), 140)
	assert.Len(t, products[0].Listing.Tags, 13)
	assert.LessOrEqual(t, products[0].MockupCount, 12)
	assert.Greater(t, products[0].MockupCount, 0)

	// Publish, exactly once.
	resp, body = postJSON(t, base+"/products/"+products[0].ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var publishedID string
	require.NoError(t, json.Unmarshal(body["published_id"], &publishedID))
	assert.Equal(t, "listing-1", publishedID)

	// A second publish is refused at this layer; the stage is never
	// re-invoked.
	resp, _ = postJSON(t, base+"/products/"+products[0].ID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, pub.calls)

	// The bundle holds the design, the mockups, and the listing.
	dl, err := http.Get(base + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	raw, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	prefix := products[0].ID + "/"
	assert.True(t, names[prefix+"design.png"])
	assert.True(t, names[prefix+"listing.json"])
	assert.True(t, names[prefix+"mockups/01-hero.png"])
}

func TestSessionCreateValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := postJSON(t, ts.URL+"/api/sessions", map[string]string{"theme": "Christmas"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"theme":       "Christmas",
		"style":       "Minimalist Vector",
		"productType": "Spaceship",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownSessionAndConcept(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := postJSON(t, ts.URL+"/api/sessions/sess-missing/designs", map[string]any{"titles": []string{"x"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"theme": "Christmas", "style": "Minimalist Vector", "productType": "Mug",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))

	resp, _ = postJSON(t, ts.URL+"/api/sessions/"+sessionID+"/designs", map[string]any{"titles": []string{"Not A Concept"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishWithoutCredential(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"theme": "Christmas", "style": "Minimalist Vector", "productType": "Mug",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))

	resp, _ = postJSON(t, ts.URL+"/api/sessions/"+sessionID+"/products/prod-x/publish", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// finalizeOneProduct drives a fresh session through ideation, one
// design render, and finalization, returning the session base URL and
// the finalized product id.
func finalizeOneProduct(t *testing.T, ts *httptest.Server) (base, productID string) {
	t.Helper()
	resp, body := postJSON(t, ts.URL+"/api/sessions", map[string]string{
		"theme": "Christmas", "style": "Minimalist Vector", "productType": "Mug",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessionID string
	require.NoError(t, json.Unmarshal(body["session_id"], &sessionID))
	base = ts.URL + "/api/sessions/" + sessionID

	resp, _ = postJSON(t, base+"/designs", map[string]any{"titles": []string{"Mock Concept One"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postJSON(t, base+"/finalize", map[string]any{
		"selections": []map[string]any{{"designIndex": 0}},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := getJSON(t, base+"/finalize")
		var progress pipeline.FinalizeProgress
		require.NoError(t, json.Unmarshal(body["progress"], &progress))
		if progress.Running {
			return false
		}
		var products []struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body["products"], &products))
		if len(products) == 0 {
			return false
		}
		productID = products[0].ID
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return base, productID
}

func TestPublishFailureSurfacesMessage(t *testing.T) {
	pub := &fakePublisher{err: errors.New("commerce api: create listing failed")}
	ts := newTestServer(t, pub)
	base, productID := finalizeOneProduct(t, ts)

	resp, errBody := postJSON(t, base+"/products/"+productID+"/publish", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal(errBody["error"], &msg))
	assert.Contains(t, msg, "create listing failed")

	// A failed attempt does not hold the reservation; a retry reaches
	// the stage again.
	resp, _ = postJSON(t, base+"/products/"+productID+"/publish", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 2, pub.calls)
}

// gatedPublisher blocks inside Publish until released, so a test can
// hold one request mid-flight while issuing another.
type gatedPublisher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedPublisher) Publish(_ context.Context, _ *pipeline.FinalizedProduct) (string, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	<-g.release
	return "listing-gated", nil
}

func TestPublishConcurrentRequestsRunStageOnce(t *testing.T) {
	pub := &gatedPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	ts := newTestServer(t, pub)
	base, productID := finalizeOneProduct(t, ts)
	url := base + "/products/" + productID + "/publish"

	first := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(url, "application/json", nil)
		if err != nil {
			t.Error(err)
		}
		first <- resp
	}()
	<-pub.started

	// Second request arrives while the first is mid-flight: conflict,
	// and the stage is not invoked again.
	resp, _ := postJSON(t, url, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(pub.release)
	resp1 := <-first
	require.NotNil(t, resp1)
	body := decodeBody(t, resp1)
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	var publishedID string
	require.NoError(t, json.Unmarshal(body["published_id"], &publishedID))
	assert.Equal(t, "listing-gated", publishedID)
	assert.Equal(t, int32(1), pub.calls.Load())

	// Once attached, further requests conflict on the published id.
	resp, _ = postJSON(t, url, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int32(1), pub.calls.Load())
}

func TestOptionsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := getJSON(t, ts.URL+"/api/options")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var styles []pipeline.Style
	require.NoError(t, json.Unmarshal(body["styles"], &styles))
	assert.Equal(t, pipeline.Styles, styles)

	var products []pipeline.ProductType
	require.NoError(t, json.Unmarshal(body["productTypes"], &products))
	assert.Equal(t, pipeline.ProductTypes, products)
}
