package avatar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/listicons/observe"
	"github.com/jonwraymond/listicons/texture"
)

// DefaultFreshness is how long a stored head is served without refetching.
const DefaultFreshness = 24 * time.Hour

// Config configures a Store.
type Config struct {
	// FS is the heads filesystem. When nil, Dir is opened with osfs.
	FS billy.Filesystem

	// Dir is the heads directory, used when FS is nil. It is created if missing.
	Dir string

	// Fetcher supplies fresh heads. Required.
	Fetcher texture.Fetcher

	// Freshness is the maximum age of a stored head. Default: 24h.
	Freshness time.Duration

	// Now supplies the current time. Default: time.Now.
	Now func() time.Time

	// Logger receives store events. Default: observe.NopLogger().
	Logger observe.Logger

	// Middleware instruments fetch-and-store operations. Optional.
	Middleware *observe.Middleware
}

// Store serves head images from disk, refreshing them from the fetcher.
type Store struct {
	fs        billy.Filesystem
	fetcher   texture.Fetcher
	freshness time.Duration
	now       func() time.Time
	logger    observe.Logger
	mw        *observe.Middleware
	group     singleflight.Group
}

// NewStore creates a Store with defaults applied.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	if cfg.FS == nil {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("%w: heads directory is required", ErrStorage)
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrStorage, cfg.Dir, err)
		}
		cfg.FS = osfs.New(cfg.Dir)
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NewMiddleware(observe.NewTracer(observe.NopObserver().Tracer()), nil, cfg.Logger)
	}
	return &Store{
		fs:        cfg.FS,
		fetcher:   cfg.Fetcher,
		freshness: cfg.Freshness,
		now:       cfg.Now,
		logger:    cfg.Logger.With(observe.F("component", "avatar")),
		mw:        cfg.Middleware,
	}, nil
}

// FileName returns the stored file name for id.
func FileName(id uuid.UUID) string {
	return id.String() + ".png"
}

// Avatar returns the head image for id.
//
// A stored file no older than the freshness window is returned without a
// network call. Otherwise the fetcher is called; on success the file is
// replaced and the new bytes returned, on failure the fetcher's error is
// returned as is.
func (s *Store) Avatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if data, ok, err := s.readFresh(id); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	ch := s.group.DoChan(id.String(), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Age reports how long ago the stored file for id was written.
// ok is false when no file exists.
func (s *Store) Age(id uuid.UUID) (age time.Duration, ok bool, err error) {
	info, err := s.fs.Stat(FileName(id))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: stat %s: %w", ErrStorage, FileName(id), err)
	}
	return s.now().Sub(info.ModTime()), true, nil
}

// Filesystem returns the heads filesystem.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *Store) refresh(ctx context.Context, id uuid.UUID) ([]byte, error) {
	// A concurrent flight may have just finished writing the file.
	if data, ok, err := s.readFresh(id); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	op := observe.Operation{Component: "avatar", Name: "refresh"}.
		With(attribute.String("player.uuid", id.String()))

	var data []byte
	err := s.mw.Run(ctx, op, func(ctx context.Context) error {
		head, err := s.fetcher.Fetch(ctx, id)
		if err != nil {
			return err
		}
		if err := s.write(id, head); err != nil {
			return err
		}
		data = head
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "stored head", observe.F("player.uuid", id.String()), observe.F("bytes", len(data)))
	return data, nil
}

func (s *Store) readFresh(id uuid.UUID) ([]byte, bool, error) {
	age, ok, err := s.Age(id)
	if err != nil || !ok || age > s.freshness {
		return nil, false, err
	}
	data, err := util.ReadFile(s.fs, FileName(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %w", ErrStorage, FileName(id), err)
	}
	return data, true, nil
}

// write replaces the stored file via a temp file and rename, then stamps its
// modification time with the store clock.
func (s *Store) write(id uuid.UUID, data []byte) error {
	name := FileName(id)

	tmp, err := s.fs.TempFile("", "."+id.String()+"-")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", ErrStorage, name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", ErrStorage, name, err)
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %w", ErrStorage, name, err)
	}

	if ch, ok := s.fs.(billy.Change); ok {
		now := s.now()
		if err := ch.Chtimes(name, now, now); err != nil {
			s.logger.Warn(context.Background(), "could not stamp head mtime",
				observe.F("file", name), observe.Err(err))
		}
	}
	return nil
}
