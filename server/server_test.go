package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/listicons/auth"
	"github.com/jonwraymond/listicons/identity"
)

var (
	notch    = identity.Player{ID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), Name: "Notch"}
	iconPNG  = []byte("\x89PNG fake icon")
	adminKey = "admin-key"
)

type fakeIcons struct {
	mu          sync.Mutex
	err         error
	calls       []identity.Player
	invalidated []identity.Player
}

func (f *fakeIcons) Invalidate(_ context.Context, p identity.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, p)
	return nil
}

func (f *fakeIcons) Icon(_ context.Context, p identity.Player) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return iconPNG, nil
}

func newTestServer(t *testing.T) (*Server, *fakeIcons, *identity.MemoryDirectory) {
	t.Helper()
	icons := &fakeIcons{}
	dir := identity.NewMemoryDirectory()
	s, err := New(Config{
		Icons:         icons,
		Directory:     dir,
		Authenticator: auth.NewAPIKeyAuthenticator("", auth.NewAPIKey(adminKey, "ops", "admin")),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, icons, dir
}

func do(t *testing.T, s *Server, method, target string, body string, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestIconByAddress(t *testing.T) {
	s, icons, dir := newTestServer(t)
	ctx := context.Background()

	rr := do(t, s, http.MethodGet, "/v1/icon?address=10.0.0.1", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("unknown address = %d, want 204", rr.Code)
	}

	if err := dir.Record(ctx, notch, "10.0.0.1:5555"); err != nil {
		t.Fatal(err)
	}
	rr = do(t, s, http.MethodGet, "/v1/icon?address=10.0.0.1:6000", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("known address = %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rr.Body.Bytes(), iconPNG) {
		t.Fatal("body is not the icon")
	}
	if len(icons.calls) != 1 || icons.calls[0] != notch {
		t.Fatalf("icon calls = %v", icons.calls)
	}

	icons.err = errors.New("icon: unavailable")
	rr = do(t, s, http.MethodGet, "/v1/icon?address=10.0.0.1", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("unavailable icon = %d, want 204", rr.Code)
	}

	rr = do(t, s, http.MethodGet, "/v1/icon", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing address = %d, want 400", rr.Code)
	}
}

func TestFavicon(t *testing.T) {
	s, _, dir := newTestServer(t)
	_ = dir.Record(context.Background(), notch, "[::1]:25565")

	rr := do(t, s, http.MethodGet, "/v1/favicon?address=::1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp FaviconResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(iconPNG)
	if resp.Favicon != want {
		t.Fatalf("favicon = %q", resp.Favicon)
	}
}

func TestPlayerIcon(t *testing.T) {
	s, icons, _ := newTestServer(t)
	const target = "/v1/players/069a79f444e94726a5befca90e38aaf5/icon?name=Notch"

	rr := do(t, s, http.MethodGet, target, "", adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if icons.calls[0] != notch {
		t.Fatalf("player = %v", icons.calls[0])
	}

	rr = do(t, s, http.MethodGet, "/v1/players/nope/icon", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid = %d", rr.Code)
	}
}

func TestPlayerIcon_AnonymousNameIgnored(t *testing.T) {
	s, icons, _ := newTestServer(t)
	const target = "/v1/players/069a79f444e94726a5befca90e38aaf5/icon?name=Notch"

	for _, key := range []string{"", "wrong-key"} {
		rr := do(t, s, http.MethodGet, target, "", key)
		if rr.Code != http.StatusOK {
			t.Fatalf("key %q: status = %d", key, rr.Code)
		}
	}
	for i, p := range icons.calls {
		if p.ID != notch.ID || p.Name != "" {
			t.Fatalf("call %d rendered %v, want uuid-only identity", i, p)
		}
	}
}

func TestInvalidatePlayerIcon(t *testing.T) {
	s, icons, _ := newTestServer(t)
	const target = "/v1/players/069a79f444e94726a5befca90e38aaf5/icon?name=Notch"

	if rr := do(t, s, http.MethodDelete, target, "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous invalidate = %d, want 401", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, target, "", adminKey); rr.Code != http.StatusNoContent {
		t.Fatalf("admin invalidate = %d, want 204", rr.Code)
	}
	if len(icons.invalidated) != 1 || icons.invalidated[0] != notch {
		t.Fatalf("invalidated = %v", icons.invalidated)
	}
}

func TestJoinRequiresAdmin(t *testing.T) {
	s, _, dir := newTestServer(t)
	body := fmt.Sprintf(`{"uuid":%q,"name":"Notch","address":"10.0.0.7:1234"}`, notch.ID)

	if rr := do(t, s, http.MethodPost, "/v1/joins", body, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous join = %d, want 401", rr.Code)
	}
	if rr := do(t, s, http.MethodPost, "/v1/joins", body, adminKey); rr.Code != http.StatusNoContent {
		t.Fatalf("admin join = %d: %s", rr.Code, rr.Body.String())
	}
	got, err := dir.Lookup(context.Background(), "10.0.0.7")
	if err != nil || got != notch {
		t.Fatalf("Lookup = %v, %v", got, err)
	}

	for _, bad := range []string{
		`{"uuid":"x","address":"10.0.0.7"}`,
		fmt.Sprintf(`{"uuid":%q,"address":""}`, notch.ID),
		`{"uuid":`,
		`{"unknown":1}`,
	} {
		if rr := do(t, s, http.MethodPost, "/v1/joins", bad, adminKey); rr.Code != http.StatusBadRequest {
			t.Errorf("join %s = %d, want 400", bad, rr.Code)
		}
	}
}

func TestClearRoutes(t *testing.T) {
	s, _, dir := newTestServer(t)
	ctx := context.Background()
	other := identity.Player{ID: uuid.New(), Name: "jeb_"}
	_ = dir.Record(ctx, notch, "10.0.0.1")
	_ = dir.Record(ctx, other, "10.0.0.2")

	if rr := do(t, s, http.MethodDelete, "/v1/addresses/"+notch.ID.String(), "", adminKey); rr.Code != http.StatusNoContent {
		t.Fatalf("clear player = %d", rr.Code)
	}
	if _, err := dir.Lookup(ctx, "10.0.0.1"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("notch still recorded: %v", err)
	}

	if rr := do(t, s, http.MethodDelete, "/v1/addresses", "", "wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("clear with wrong key = %d", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, "/v1/addresses", "", adminKey); rr.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rr.Code)
	}
	entries, _ := dir.List(ctx)
	if len(entries) != 0 {
		t.Fatalf("entries left: %v", entries)
	}
}

func TestHealthRoutesMounted(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rr := do(t, s, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/metrics", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("/metrics without prometheus = %d, want 404", rr.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
