package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qview/internal/chunk"
	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/docstore"
	"github.com/kobzarvs/qview/internal/gitinfo"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/notify"
	"github.com/kobzarvs/qview/internal/pager"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/viewer"
	"github.com/kobzarvs/qview/internal/watcher"
)

// Options are the command line settings.
type Options struct {
	Path       string
	Line       int
	ConfigPath string
	Debug      bool
	// Input is read instead of Path when Path is empty, e.g. a pipe.
	Input     io.Reader
	InputName string
}

// App is the top-level runtime for qview.
type App struct {
	opts Options
}

func New(opts Options) *App {
	return &App{opts: opts}
}

type (
	frameTick   struct{}
	fileChanged struct{}
)

func (a *App) Run() error {
	runtime.LockOSThread()
	if err := logger.Init(a.opts.Debug); err != nil {
		return err
	}
	defer logger.Close()

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	s.EnableMouse()
	defer s.Fini()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return a.run(ctx, s)
}

func (a *App) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if a.opts.ConfigPath != "" {
		cfg, err = config.LoadFile(a.opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if a.opts.Path != "" {
		fts, err := config.LoadFileTypes()
		if err != nil {
			return cfg, fmt.Errorf("filetypes: %w", err)
		}
		cfg.Viewer = fts.Apply(cfg.Viewer, a.opts.Path)
	}
	return cfg, nil
}

func viewerOptions(v config.ViewerOptions) viewer.Options {
	return viewer.Options{
		ChunkAlignment:   v.ChunkAlignment,
		CacheCapacity:    v.CacheCapacity,
		CachePolicy:      chunk.ParsePolicy(v.CachePolicy),
		BufferAhead:      v.BufferAhead,
		BufferBehind:     v.BufferBehind,
		RerenderMargin:   v.RerenderMargin,
		MaxVirtualHeight: v.MaxVirtualHeight,
		LineHeight:       float64(v.LineHeight),
		Prefetch:         v.Prefetch,
	}
}

func (a *App) open(docs *docstore.Memory) (string, error) {
	if a.opts.Path != "" {
		return docs.Open(a.opts.Path)
	}
	name := a.opts.InputName
	if name == "" {
		name = "[No Name]"
	}
	if a.opts.Input == nil {
		return docs.OpenText(name, ""), nil
	}
	data, err := io.ReadAll(a.opts.Input)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return docs.OpenText(name, string(data)), nil
}

// post delivers data to the event loop. PostEvent fails while the queue is
// full; completions must not be lost, so it retries until ctx ends.
func post(ctx context.Context, s tcell.Screen, data any) {
	for {
		if err := s.PostEvent(tcell.NewEventInterrupt(data)); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func (a *App) run(ctx context.Context, s tcell.Screen) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	docs := docstore.NewMemory(logger.Named("docstore"))
	id, err := a.open(docs)
	if err != nil {
		return err
	}
	path := docs.Path(id)

	sess, err := session.NewManager()
	if err != nil {
		logger.Warn("session unavailable", "err", err)
		sess = nil
	}

	measurer := pager.NewWrapMeasurer(cfg.Viewer.TabWidth, cfg.Viewer.Wrap)
	if sess != nil && path != "" {
		if st, ok := sess.GetFileState(path); ok && st.Wrap != nil {
			measurer.Wrap = *st.Wrap
		}
	}
	eng := viewer.New(docs,
		viewer.WithOptions(viewerOptions(cfg.Viewer)),
		viewer.WithLogger(logger.Named("viewer")),
		viewer.WithMeasurer(measurer),
	)
	defer eng.Close()

	p := pager.New(eng, docs, measurer, cfg, logger.Named("pager"))
	if path != "" {
		p.SetBranch(gitinfo.Branch(path))
	}
	if sess != nil {
		p.SetBookmarks(sess)
		p.SetHistory(sess.Searches())
		p.OnSearch = sess.AddSearch
	}

	notes := eng.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-eng.Completions():
				post(ctx, s, c)
			case n, ok := <-notes:
				if !ok {
					return
				}
				post(ctx, s, n)
			}
		}
	}()

	var wantFrame, framePosted atomic.Bool
	go func() {
		ticker := time.NewTicker(cfg.Viewer.FrameDuration())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if wantFrame.Load() && framePosted.CompareAndSwap(false, true) {
					post(ctx, s, frameTick{})
				}
			}
		}
	}()

	if path != "" {
		a.watch(ctx, s, path)
	}

	info, err := docs.Info(id)
	if err != nil {
		return err
	}
	start := a.opts.Line
	if start < 1 && sess != nil && path != "" {
		start = sess.LastLine(path)
	}
	w, h := s.Size()
	p.Fit(w, h)
	eng.LoadDocument(viewer.Document{ID: id, TotalLines: info.Lines}, max(start, 1))
	logger.Info("document loaded", "path", path, "lines", info.Lines, "start", start)

	for {
		wantFrame.Store(eng.NeedsFrame())
		w, h := s.Size()
		p.Fit(w, h)
		p.Draw(s)
		s.Show()

		ev := s.PollEvent()
		if ev == nil {
			break
		}
		quit := false
		switch ev := ev.(type) {
		case *tcell.EventKey:
			quit = p.HandleKey(ev)
		case *tcell.EventMouse:
			p.HandleMouse(ev)
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			switch d := ev.Data().(type) {
			case viewer.Completion:
				eng.Resume(d)
			case notify.Event[viewer.Notification]:
				p.Notify(d.Payload)
			case frameTick:
				framePosted.Store(false)
				eng.Frame()
			case fileChanged:
				a.reload(docs, eng, p, id)
			}
		}
		if quit {
			break
		}
	}

	if sess != nil {
		if path != "" {
			sess.SetPosition(path, eng.GetCurrentLine(), measurer.Wrap)
		}
		if err := sess.Stop(); err != nil {
			logger.Warn("session save failed", "err", err)
		}
	}
	return nil
}

func (a *App) watch(ctx context.Context, s tcell.Screen, path string) {
	cfg := watcher.DefaultConfig(path)
	cfg.Logger = logger.Named("watcher")
	w, err := watcher.New(cfg)
	if err != nil {
		logger.Warn("watcher unavailable", "path", path, "err", err)
		return
	}
	changes, err := w.Start()
	if err != nil {
		logger.Warn("watcher unavailable", "path", path, "err", err)
		_ = w.Stop()
		return
	}
	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				post(ctx, s, fileChanged{})
			}
		}
	}()
}

// reload picks up changes made on disk unless the user has unsaved edits.
func (a *App) reload(docs *docstore.Memory, eng *viewer.Engine, p *pager.Pager, id string) {
	if docs.Modified(id) {
		p.Notice(filepath.Base(docs.Path(id)) + " changed on disk; keeping unsaved edits")
		return
	}
	if err := docs.Reload(id); err != nil {
		logger.Warn("reload failed", "doc", id, "err", err)
		return
	}
	logger.Info("reloaded from disk", "doc", id)
	eng.RefreshContent()
}
