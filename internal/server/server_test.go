package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/keyboard"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/theory"
	"github.com/cbegin/musetheory-go/internal/voice"
)

type fakePlayer struct {
	mu         sync.Mutex
	calls      int
	events     []sequencer.Event
	instrument voice.Instrument
	err        error
}

func (p *fakePlayer) PlayEvents(_ context.Context, events []sequencer.Event, in voice.Instrument) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.events = events
	p.instrument = in
	return 2500 * time.Millisecond, p.err
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	opts.Log = log
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts, hook
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func detail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["detail"]
}

func TestHealthAndRequestID(t *testing.T) {
	ts, hook := newTestServer(t, Options{})
	resp := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "/healthz", entry.Data["path"])
	assert.Equal(t, resp.Header.Get(RequestIDHeader), entry.Data["request_id"])

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "abc", resp2.Header.Get(RequestIDHeader))
}

func TestKeyboard(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := get(t, ts.URL+"/api/keyboard?highlight=C,%20E,G")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var slots []keyboard.KeySlot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&slots))
	require.Len(t, slots, 25)
	assert.Len(t, keyboard.Highlighted(slots), 7)
}

func TestAnalyze(t *testing.T) {
	ts, hook := newTestServer(t, Options{})
	resp := get(t, ts.URL+"/api/analyze?q=C+Major+Chord")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v visualization
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, []string{"C", "E", "G"}, v.Analysis.Notes)
	assert.Len(t, v.Keys, 25)

	bad := get(t, ts.URL+"/api/analyze?q=purple+noise")
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
	assert.Equal(t, theory.FailureMessage, detail(t, bad))
	warned := false
	for _, e := range hook.AllEntries() {
		warned = warned || e.Level == logrus.WarnLevel
	}
	assert.True(t, warned)
}

func TestVisualize(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/visualize",
		`{"name":"A minor","notes":["A","C","E"],"intervals":["R","m3","5"],"description":"sad"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v visualization
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "A minor", v.Analysis.Name)
	require.Len(t, v.Events, 4)
	assert.Equal(t, []string{"A4", "C4", "E4"}, v.Events[3].Pitches)

	for _, body := range []string{`{"name":"x","notes":[]}`, `not json`, `{"notes":["C"]}`} {
		bad := post(t, ts.URL+"/api/visualize", body)
		assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode, body)
		assert.Equal(t, theory.FailureMessage, detail(t, bad))
	}
}

func TestSchedule(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/schedule", `{"notes":["C","E5"],"instrument":"guitar"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []sequencer.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 3)
	assert.Equal(t, 500*time.Millisecond, events[1].Offset)
	assert.Equal(t, 1500*time.Millisecond, events[2].Offset)
	assert.Equal(t, []string{"C4", "E5"}, events[2].Pitches)

	empty := post(t, ts.URL+"/api/schedule", `{"notes":[]}`)
	require.Equal(t, http.StatusOK, empty.StatusCode)
	require.NoError(t, json.NewDecoder(empty.Body).Decode(&events))
	assert.Empty(t, events)
}

func TestBadBodies(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	for _, body := range []string{`{`, `{"notes":["C"],"tempo":3}`, `{"notes":["C"],"duration":"4x"}`} {
		resp := post(t, ts.URL+"/api/schedule", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.NotEmpty(t, detail(t, resp))
	}
}

func TestRender(t *testing.T) {
	got := make(chan voice.Instrument, 2)
	ts, _ := newTestServer(t, Options{
		Render: func(events []sequencer.Event, in voice.Instrument, sr int, bpm float64) ([]byte, error) {
			got <- in
			if len(events) == 0 {
				return nil, nil
			}
			return []byte("RIFF"), nil
		},
	})
	resp := post(t, ts.URL+"/api/render", `{"notes":["C","E","G"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, voice.Piano, <-got, "instrument defaults to piano")

	empty := post(t, ts.URL+"/api/render", `{"notes":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, empty.StatusCode)

	ts2, _ := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotImplemented, post(t, ts2.URL+"/api/render", `{"notes":["C"]}`).StatusCode)
}

func TestExport(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/export", `{"notes":["C","E","G"],"instrument":"violin"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/midi", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 2)
}

func TestPlay(t *testing.T) {
	p := &fakePlayer{}
	ts, _ := newTestServer(t, Options{Player: p})
	resp := post(t, ts.URL+"/api/play", `{"notes":["C","E","G"],"instrument":"violin","duration":"8n"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2.5, body["seconds"])
	p.mu.Lock()
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, voice.Violin, p.instrument)
	assert.Len(t, p.events, 4)
	p.err = errors.New("no device")
	p.mu.Unlock()

	assert.Equal(t, http.StatusInternalServerError, post(t, ts.URL+"/api/play", `{"notes":["C"]}`).StatusCode)

	none, _ := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotImplemented, post(t, none.URL+"/api/play", `{"notes":["C"]}`).StatusCode)
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://app.test"}})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://app.test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	resp := get(t, ts.URL+"/api/schedule")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestScheduleUsesConfiguredStep(t *testing.T) {
	ts, _ := newTestServer(t, Options{Step: 250 * time.Millisecond})
	resp := post(t, ts.URL+"/api/schedule", `{"notes":["C","E"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []sequencer.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 3)
	assert.Equal(t, 250*time.Millisecond, events[1].Offset)
	assert.Equal(t, 750*time.Millisecond, events[2].Offset)
}

func TestRejectsUnboundedLengths(t *testing.T) {
	rendered := make(chan struct{}, 8)
	ts, _ := newTestServer(t, Options{
		Render: func([]sequencer.Event, voice.Instrument, int, float64) ([]byte, error) {
			rendered <- struct{}{}
			return []byte("RIFF"), nil
		},
	})
	for _, path := range []string{"/api/schedule", "/api/render", "/api/export", "/api/play"} {
		for _, d := range []string{"NaN", "Inf", "1e10", "100000", "-5"} {
			resp := post(t, ts.URL+path, `{"notes":["C"],"duration":"`+d+`"}`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s %s", path, d)
		}
	}
	assert.Empty(t, rendered, "nothing reaches the renderer")
}

func TestRejectsOversizedRequests(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	many := make([]string, MaxNotes+1)
	for i := range many {
		many[i] = `"C"`
	}
	resp := post(t, ts.URL+"/api/schedule", `{"notes":[`+strings.Join(many, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	huge := `{"notes":["` + strings.Repeat("C", MaxBodyBytes) + `"]}`
	resp = post(t, ts.URL+"/api/schedule", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = post(t, ts.URL+"/api/visualize", `{"name":"`+strings.Repeat("x", MaxBodyBytes)+`","notes":["C"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRenderTooLongIsUnprocessable(t *testing.T) {
	ts, _ := newTestServer(t, Options{
		SampleRate: 8000,
		Step:       5 * time.Second,
		Render:     musetheory.RenderWAV,
	})
	many := make([]string, MaxNotes)
	for i := range many {
		many[i] = `"C"`
	}
	resp := post(t, ts.URL+"/api/render", `{"notes":[`+strings.Join(many, ",")+`]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, detail(t, resp), "render too long")
}
