package texture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/listicons/resilience"
)

var notch = uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")

type profileServer struct {
	*httptest.Server
	profileStatus atomic.Int32
	skinStatus    atomic.Int32
	noTextures    atomic.Bool
	profileHits   atomic.Int32
	skin          []byte
}

func newProfileServer(t *testing.T) *profileServer {
	t.Helper()
	ps := &profileServer{skin: encodePNG(t, makeSkin(64))}
	ps.profileStatus.Store(http.StatusOK)
	ps.skinStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		ps.profileHits.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/profile/")
		if strings.Contains(id, "-") {
			http.Error(w, "hyphenated id", http.StatusBadRequest)
			return
		}
		if code := int(ps.profileStatus.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		p := Profile{ID: id, Name: "Notch"}
		if !ps.noTextures.Load() {
			value, _ := EncodeTextures(Textures{
				ProfileID: id,
				Textures:  map[string]Reference{"SKIN": {URL: ps.URL + "/skins/" + id + ".png"}},
			})
			p.Properties = []Property{{Name: TexturesProperty, Value: value, Signature: "sig"}}
		}
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/skins/", func(w http.ResponseWriter, r *http.Request) {
		if code := int(ps.skinStatus.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(ps.skin)
	})
	ps.Server = httptest.NewServer(mux)
	t.Cleanup(ps.Close)
	return ps
}

func (ps *profileServer) fetcher(guard GuardConfig) *RemoteFetcher {
	return NewRemoteFetcher(Config{
		ProfileURL: ps.URL + "/profile/",
		Client:     ps.Client(),
		Executor:   NewGuard(guard),
	})
}

func TestRemoteFetcher_Fetch(t *testing.T) {
	ps := newProfileServer(t)
	head, err := ps.fetcher(GuardConfig{}).Fetch(context.Background(), notch)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want, _ := HeadFromSkinPNG(ps.skin)
	if string(head) != string(want) {
		t.Fatal("fetched head differs from locally extracted head")
	}
}

func TestRemoteFetcher_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*profileServer)
	}{
		{"404", func(ps *profileServer) { ps.profileStatus.Store(http.StatusNotFound) }},
		{"204", func(ps *profileServer) { ps.profileStatus.Store(http.StatusNoContent) }},
		{"no textures", func(ps *profileServer) { ps.noTextures.Store(true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newProfileServer(t)
			tt.setup(ps)
			_, err := ps.fetcher(GuardConfig{}).Fetch(context.Background(), notch)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRemoteFetcher_RemoteFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*profileServer)
	}{
		{"profile 500", func(ps *profileServer) { ps.profileStatus.Store(http.StatusInternalServerError) }},
		{"skin 403", func(ps *profileServer) { ps.skinStatus.Store(http.StatusForbidden) }},
		{"skin not png", func(ps *profileServer) { ps.skin = []byte("garbage") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newProfileServer(t)
			tt.setup(ps)
			_, err := ps.fetcher(GuardConfig{}).Fetch(context.Background(), notch)
			if !errors.Is(err, ErrRemote) {
				t.Fatalf("expected ErrRemote, got %v", err)
			}
		})
	}
}

func TestRemoteFetcher_CircuitOpensOnRemoteFailures(t *testing.T) {
	ps := newProfileServer(t)
	ps.profileStatus.Store(http.StatusBadGateway)
	var opened atomic.Bool
	f := ps.fetcher(GuardConfig{
		CircuitFailures: 2,
		CircuitReset:    time.Hour,
		OnStateChange: func(_, to resilience.State) {
			if to == resilience.StateOpen {
				opened.Store(true)
			}
		},
	})
	ctx := context.Background()

	_, _ = f.Fetch(ctx, notch)
	_, _ = f.Fetch(ctx, notch)
	if !opened.Load() {
		t.Fatal("breaker did not open")
	}

	hits := ps.profileHits.Load()
	_, err := f.Fetch(ctx, notch)
	if !errors.Is(err, ErrRemote) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrRemote wrapping ErrCircuitOpen, got %v", err)
	}
	if ps.profileHits.Load() != hits {
		t.Fatal("open breaker still called the service")
	}
}

func TestRemoteFetcher_NotFoundDoesNotTripBreaker(t *testing.T) {
	ps := newProfileServer(t)
	ps.profileStatus.Store(http.StatusNotFound)
	f := ps.fetcher(GuardConfig{CircuitFailures: 1})

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), notch); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestRemoteFetcher_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	f := NewRemoteFetcher(Config{
		ProfileURL: srv.URL,
		Client:     srv.Client(),
		Executor:   NewGuard(GuardConfig{Timeout: 50 * time.Millisecond}),
	})
	_, err := f.Fetch(context.Background(), notch)
	if !errors.Is(err, ErrRemote) || !errors.Is(err, resilience.ErrTimeout) {
		t.Fatalf("expected ErrRemote wrapping ErrTimeout, got %v", err)
	}
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(_ context.Context, id uuid.UUID) ([]byte, error) {
		return []byte(id.String()), nil
	})
	out, _ := f.Fetch(context.Background(), notch)
	if string(out) != notch.String() {
		t.Fatalf("FetcherFunc returned %q", out)
	}
}
