package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/geoquiz/apps/go-server/assets"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/database"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/regions"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/results"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/store"
)

var testNames = []string{"Ohio", "Texas", "Utah", "Iowa"}

type fixture struct {
	srv     *Server
	results *results.Store
}

func newFixture(t *testing.T, set *regions.Set) *fixture {
	t.Helper()
	if set == nil {
		var err error
		if set, err = regions.New(testNames); err != nil {
			t.Fatalf("regions: %v", err)
		}
	}
	db, err := database.Open(database.MemoryDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	res := results.NewStore(db)

	mgr := session.NewManager(session.Config{
		Regions:      set.Names(),
		TickInterval: time.Hour,
		NewPicker:    func() quiz.Picker { return rand.New(rand.NewPCG(3, 9)) },
		OnFinish: func(r session.Round) {
			_ = res.Insert(context.Background(), results.Result{
				GameID:     r.GameID,
				Round:      r.Round,
				PlayerID:   r.Player.ID,
				PlayerName: r.Player.Name,
				Variant:    string(r.Variant),
				Score:      r.Summary.Score,
				Total:      r.Summary.Total,
				Reason:     string(r.Summary.Reason),
				ElapsedMs:  r.Summary.Elapsed.Milliseconds(),
			})
		},
	}, store.NewMemoryStore[*session.Session]())
	t.Cleanup(mgr.Close)

	return &fixture{srv: New(mgr, set, res, Options{JWTSecret: "test-secret"}), results: res}
}

// do performs a request and decodes the JSON response into out (if non-nil).
func (f *fixture) do(t *testing.T, method, path, body, token string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func (f *fixture) newGame(t *testing.T, variant, token string) newQuizRes {
	t.Helper()
	var res newQuizRes
	rec := f.do(t, http.MethodPost, "/quiz/new", `{"variant":"`+variant+`"}`, token, &res)
	if rec.Code != http.StatusOK {
		t.Fatalf("new quiz: status %d body %s", rec.Code, rec.Body.String())
	}
	return res
}

func target(t *testing.T, v quiz.View) string {
	t.Helper()
	name, ok := strings.CutPrefix(v.Question, "Find: ")
	if !ok {
		t.Fatalf("question %q has no target", v.Question)
	}
	return name
}

func (f *fixture) selectRegion(t *testing.T, id, name string) selectRes {
	t.Helper()
	var res selectRes
	rec := f.do(t, http.MethodPost, "/quiz/"+id+"/select", `{"name":"`+name+`"}`, "", &res)
	if rec.Code != http.StatusOK {
		t.Fatalf("select %q: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return res
}

func wrongFor(target string) string {
	for _, n := range testNames {
		if n != target {
			return n
		}
	}
	return ""
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
}

func TestTimedGameToAllFound(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "timed", "")
	if g.View.TimeLeft == nil || *g.View.TimeLeft != 90 || g.View.Clock != "01:30" {
		t.Fatalf("unexpected clock: %+v", g.View)
	}

	view := g.View
	for i := range testNames {
		res := f.selectRegion(t, g.GameID, target(t, view))
		if res.Outcome != quiz.OutcomeCorrect {
			t.Fatalf("guess %d: outcome %s", i, res.Outcome)
		}
		view = res.View
	}
	if view.Status != quiz.StatusGameOver || view.Reason != quiz.ReasonAllFound {
		t.Fatalf("unexpected end view: %+v", view)
	}
	if view.Score != len(testNames) || !view.RestartVisible {
		t.Fatalf("score %d restart %v", view.Score, view.RestartVisible)
	}

	// Clicks after game over are ignored.
	res := f.selectRegion(t, g.GameID, "Ohio")
	if res.Outcome != quiz.OutcomeIgnored || res.View.Score != len(testNames) {
		t.Fatalf("post game select: %+v", res)
	}
}

func TestLivesGameToOutOfLives(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "lives", "")
	if g.View.Lives == nil || *g.View.Lives != 3 || g.View.TimeLeft != nil {
		t.Fatalf("unexpected lives view: %+v", g.View)
	}

	view := g.View
	for i := 0; i < 3; i++ {
		res := f.selectRegion(t, g.GameID, wrongFor(target(t, view)))
		if res.Outcome != quiz.OutcomeWrong {
			t.Fatalf("wrong %d: outcome %s", i, res.Outcome)
		}
		view = res.View
	}
	if view.Status != quiz.StatusGameOver || view.Reason != quiz.ReasonOutOfLives || *view.Lives != 0 {
		t.Fatalf("unexpected end view: %+v", view)
	}
	if !strings.HasPrefix(view.Feedback, "Out of lives!") || !view.RestartVisible {
		t.Fatalf("feedback %q restart %v", view.Feedback, view.RestartVisible)
	}

	rows, err := f.results.Leaderboard(context.Background(), "lives", 10)
	if err != nil || len(rows) != 1 || rows[0].Reason != "out_of_lives" {
		t.Fatalf("leaderboard rows=%+v err=%v", rows, err)
	}
}

func TestRestart(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "lives", "")
	first := f.selectRegion(t, g.GameID, target(t, g.View))
	if first.View.Score != 1 {
		t.Fatalf("score %d", first.View.Score)
	}

	var view quiz.View
	rec := f.do(t, http.MethodPost, "/quiz/"+g.GameID+"/restart", "", "", &view)
	if rec.Code != http.StatusOK {
		t.Fatalf("restart: %d", rec.Code)
	}
	if view.Score != 0 || *view.Lives != 3 || len(view.Guessed) != 0 || view.RestartVisible {
		t.Fatalf("restart view not reset: %+v", view)
	}
	if view.LayerVersion <= first.View.LayerVersion {
		t.Fatalf("layer version %d not bumped past %d", view.LayerVersion, first.View.LayerVersion)
	}
}

func TestStyles(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "timed", "")
	name := target(t, g.View)
	f.selectRegion(t, g.GameID, name)

	var res stylesRes
	f.do(t, http.MethodGet, "/quiz/"+g.GameID+"/styles", "", "", &res)
	if len(res.Styles) != len(testNames) {
		t.Fatalf("got %d styles", len(res.Styles))
	}
	for n, st := range res.Styles {
		want := quiz.StyleDefault
		if n == name {
			want = quiz.StyleCorrect
		}
		if st != want {
			t.Fatalf("style[%s] = %s, want %s", n, st, want)
		}
	}
}

func TestQuizErrors(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "timed", "")

	cases := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"unknown game", http.MethodGet, "/quiz/nope", "", http.StatusNotFound, "not_found"},
		{"unknown game select", http.MethodPost, "/quiz/nope/select", `{"name":"Ohio"}`, http.StatusNotFound, "not_found"},
		{"unknown variant", http.MethodPost, "/quiz/new", `{"variant":"sudden_death"}`, http.StatusBadRequest, "unknown_variant"},
		{"bad json new", http.MethodPost, "/quiz/new", `{`, http.StatusBadRequest, "bad_json"},
		{"bad json select", http.MethodPost, "/quiz/" + g.GameID + "/select", `nope`, http.StatusBadRequest, "bad_json"},
		{"unknown region", http.MethodPost, "/quiz/" + g.GameID + "/select", `{"name":"Atlantis"}`, http.StatusBadRequest, "unknown_region"},
		{"route", http.MethodGet, "/nowhere", "", http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			rec := f.do(t, tc.method, tc.path, tc.body, "", &body)
			if rec.Code != tc.status || body["error"] != tc.code {
				t.Fatalf("got %d %v, want %d %s", rec.Code, body, tc.status, tc.code)
			}
		})
	}
}

func TestNewQuizDefaultsToTimed(t *testing.T) {
	f := newFixture(t, nil)
	var res newQuizRes
	rec := f.do(t, http.MethodPost, "/quiz/new", "", "", &res)
	if rec.Code != http.StatusOK || res.View.Variant != quiz.VariantTimed {
		t.Fatalf("got %d %+v", rec.Code, res.View)
	}
}

func TestSelectOutsideRegionIgnored(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "lives", "")
	res := f.selectRegion(t, g.GameID, "")
	if res.Outcome != quiz.OutcomeIgnored || *res.View.Lives != 3 || res.View.Question != g.View.Question {
		t.Fatalf("outside click changed state: %+v", res)
	}
}

func TestPlayerTokenAndResults(t *testing.T) {
	f := newFixture(t, nil)

	var p newPlayerRes
	rec := f.do(t, http.MethodPost, "/player", `{"name":"map_fan"}`, "", &p)
	if rec.Code != http.StatusOK || p.Token == "" || p.ID == "" || p.Name != "map_fan" {
		t.Fatalf("new player: %d %+v", rec.Code, p)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "geoquiz_token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != p.Token {
		t.Fatalf("cookie not set: %+v", cookie)
	}

	g := f.newGame(t, "timed", p.Token)
	view := g.View
	for range testNames {
		view = f.selectRegion(t, g.GameID, target(t, view)).View
	}

	var mine []results.Result
	rec = f.do(t, http.MethodGet, "/players/me/results", "", p.Token, &mine)
	if rec.Code != http.StatusOK || len(mine) != 1 {
		t.Fatalf("my results: %d %+v", rec.Code, mine)
	}
	if mine[0].PlayerName != "map_fan" || mine[0].Score != len(testNames) || mine[0].Reason != "all_found" {
		t.Fatalf("unexpected result: %+v", mine[0])
	}

	var lb lbRes
	rec = f.do(t, http.MethodGet, "/leaderboard?variant=timed&limit=5", "", "", &lb)
	if rec.Code != http.StatusOK || lb.Variant != quiz.VariantTimed || len(lb.Top) != 1 {
		t.Fatalf("leaderboard: %d %+v", rec.Code, lb)
	}
}

func TestPlayerValidation(t *testing.T) {
	f := newFixture(t, nil)
	for _, body := range []string{`{"name":"ab"}`, `{"name":"has space"}`, `{"name":"` + strings.Repeat("x", 25) + `"}`, `{`} {
		rec := f.do(t, http.MethodPost, "/player", body, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", body, rec.Code)
		}
	}
}

func TestMyResultsRequiresToken(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.do(t, http.MethodGet, "/players/me/results", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/players/me/results", "", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}

	// A token signed with another secret is rejected.
	other := &Server{opts: Options{JWTSecret: "other", JWTExpiresDays: 1}}
	tok, _, err := other.signPlayer(session.Player{ID: "x", Name: "xyz"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := f.do(t, http.MethodGet, "/players/me/results", "", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: %d", rec.Code)
	}
}

func TestLeaderboardParams(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"?variant=nope", "?limit=0", "?limit=101", "?limit=abc"} {
		if rec := f.do(t, http.MethodGet, "/leaderboard"+q, "", "", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, rec.Code)
		}
	}
	var lb lbRes
	if rec := f.do(t, http.MethodGet, "/leaderboard", "", "", &lb); rec.Code != http.StatusOK || lb.Variant != quiz.VariantTimed || len(lb.Top) != 0 {
		t.Fatalf("empty leaderboard: %d %+v", rec.Code, lb)
	}
}

func TestRegionsEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	var res regionsRes
	f.do(t, http.MethodGet, "/regions", "", "", &res)
	if res.Count != len(testNames) || len(res.Names) != len(testNames) {
		t.Fatalf("regions: %+v", res)
	}
	if rec := f.do(t, http.MethodGet, "/regions.geojson", "", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("geojson without source: %d", rec.Code)
	}

	raw := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"Ohio"},"geometry":null},
		{"type":"Feature","properties":{"name":"Utah"},"geometry":null}]}`)
	set, err := regions.ParseGeoJSON(raw, "name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f = newFixture(t, set)
	rec := f.do(t, http.MethodGet, "/regions.geojson", "", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/geo+json" {
		t.Fatalf("geojson: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rec.Body.Bytes(), raw) {
		t.Fatalf("geojson body changed")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodOptions, "/quiz/new", "", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("cors headers: %v", rec.Header())
	}
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t, nil)
	g := f.newGame(t, "lives", "")

	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/quiz/"+g.GameID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	next := func() quiz.View {
		t.Helper()
		for sc.Scan() {
			line := sc.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var v quiz.View
				if err := json.Unmarshal([]byte(data), &v); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				return v
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return quiz.View{}
	}

	first := next()
	if first.GameID != g.GameID || *first.Lives != 3 {
		t.Fatalf("initial event: %+v", first)
	}

	f.selectRegion(t, g.GameID, wrongFor(target(t, first)))
	second := next()
	if *second.Lives != 2 || second.FeedbackKind != quiz.FeedbackWrong {
		t.Fatalf("second event: %+v", second)
	}
}

func TestEventsUnknownGame(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.do(t, http.MethodGet, "/quiz/nope/events", "", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}
