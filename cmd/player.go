package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/config"
	"github.com/llehouerou/ripple/internal/db"
	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/imagesearch"
	"github.com/llehouerou/ripple/internal/lastfm"
	"github.com/llehouerou/ripple/internal/library"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/lrclib"
	"github.com/llehouerou/ripple/internal/lyrics"
	"github.com/llehouerou/ripple/internal/mpris"
	"github.com/llehouerou/ripple/internal/musicbrainz"
	"github.com/llehouerou/ripple/internal/notify"
	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/remote"
	"github.com/llehouerou/ripple/internal/resolver"
	"github.com/llehouerou/ripple/internal/state"
	"github.com/llehouerou/ripple/internal/stderr"
	"github.com/llehouerou/ripple/internal/textgen"
	"github.com/llehouerou/ripple/internal/watch"
)

// runPlayer runs the engine and its integrations until SIGINT or SIGTERM.
func runPlayer(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Captured before the audio device opens so backend chatter lands in the log.
	console := os.Stderr
	if capture, err := stderr.Start(func(line string) {
		logger.Warn("audio backend", zap.String("line", line))
	}); err == nil {
		defer capture.Stop()
		console = capture.Original()
	}
	if err := initLogger(cfg, console); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, err := db.Open(cfg.Library.DBPath)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer conn.Close()
	settings := state.New(conn)
	defer settings.Close()

	blobs := blob.NewRegistry()
	dspSettings := dspFromConfig(cfg)
	output := player.NewBeepOutput(player.OutputOptions{Quality: dspSettings.Quality()})

	opts := []playback.Option{
		playback.WithResolver(newResolver(cfg, blobs)),
		playback.WithDSP(dspSettings),
	}
	if cfg.HasEQ() {
		opts = append(opts, playback.WithEQ(eqFromConfig(cfg.EQ)))
	}
	engine := playback.New(output, library.NewSQLiteStore(conn), settings, blobs, opts...)
	defer engine.Close()

	if err := engine.LoadLibrary(ctx); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpLibraryLoad, err), zap.Error(err))
	}
	if err := engine.Resume(ctx); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpPlaybackResume, err), zap.Error(err))
	}
	go engine.Run(ctx)

	if adapter, err := mpris.New(engine, blobs); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpMPRIS, err), zap.Error(err))
	} else {
		defer adapter.Close()
	}

	if cfg.NowPlayingNotifications() {
		nc := cfg.GetNotificationsConfig()
		np := notify.NewNowPlaying(notify.New(), engine, blobs, notify.Options{
			ShowAlbumArt: *nc.ShowAlbumArt,
			Timeout:      int32(nc.Timeout),
		})
		defer np.Close()
	}

	if cfg.HasLastfmSession() {
		client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		client.SetSessionKey(cfg.Lastfm.SessionKey)
		reporter := lastfm.NewReporter(client, engine)
		defer reporter.Close()
	} else if cfg.HasLastfmConfig() {
		logger.Info("last.fm configured without a session, run `ripple lastfm login`")
	}

	if cfg.Library.Inbox != "" {
		w := watch.New(cfg.Library.Inbox, engine)
		if err := w.Start(); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpWatchInbox, err), zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	var serveErr chan error
	if addr := cfg.GetRemoteAddr(); addr != "" {
		serveErr = make(chan error, 1)
		srv := remote.New(engine)
		go func() { serveErr <- srv.ListenAndServe(ctx, addr) }()
	}

	logger.Info("ripple started", zap.Int("library", len(engine.Library())))
	select {
	case <-ctx.Done():
		if serveErr != nil {
			// Shutdown drains in-flight requests before the engine closes.
			<-serveErr
		}
	case err := <-serveErr:
		logger.Error(errmsg.Format(errmsg.OpRemote, err), zap.Error(err))
		return err
	}
	logger.Info("ripple stopping")
	return nil
}

func initLogger(cfg *config.Config, console *os.File) error {
	lc := cfg.GetLogConfig()
	return logger.Init(logger.Config{
		Level:      logger.Level(lc.Level),
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
		Console:    console,
	})
}

func dspFromConfig(cfg *config.Config) playback.DSPSettings {
	d := cfg.GetDSPConfig()
	return playback.DSPSettings{
		AIUpsampling:      d.AIUpsampling,
		UpsamplingLevel:   d.UpsamplingLevel,
		SmartCrossfade:    d.SmartCrossfade,
		CrossfadeDuration: d.CrossfadeSeconds,
		PhaseCorrection:   d.PhaseCorrection,
	}.Normalized()
}

// eqFromConfig maps the file's gains onto the bands; extra gains are
// ignored and missing ones stay flat.
func eqFromConfig(c config.EQConfig) dsp.EQ {
	eq := dsp.EQ{Q: c.Q}
	copy(eq.Gains[:], c.Gains)
	return eq.Clamped()
}

// imageSearchers builds the artwork chain from the configured backends
// only: the tag endpoint first, then the Cover Art Archive. An empty result
// leaves the image stage off.
func imageSearchers(rc config.ResolverConfig, timeout time.Duration) imagesearch.Chain {
	var images imagesearch.Chain
	if rc.ImageSearchURL != "" {
		endpoint, err := imagesearch.NewTagEndpoint(rc.ImageSearchURL, timeout)
		if err != nil {
			logger.Warn("resolver: image search endpoint disabled", zap.Error(err))
		} else {
			images = append(images, endpoint)
		}
	}
	if rc.MusicBrainz != nil && *rc.MusicBrainz {
		mb := musicbrainz.NewClient(musicbrainz.Options{Timeout: timeout})
		images = append(images, imagesearch.NewCoverArt(mb))
	}
	return images
}

func newResolver(cfg *config.Config, blobs *blob.Registry) *resolver.Resolver {
	rc := cfg.GetResolverConfig()
	timeout := time.Duration(rc.TimeoutSeconds) * time.Second
	var opts []resolver.Option

	if rc.OllamaURL != "" {
		gen, err := textgen.NewOllama(rc.OllamaURL, rc.OllamaModel, timeout)
		if err != nil {
			logger.Warn("resolver: text generation disabled", zap.Error(err))
		} else {
			opts = append(opts, resolver.WithTextGenerator(gen))
		}
	}

	images := imageSearchers(rc, timeout)
	if len(images) > 0 {
		opts = append(opts, resolver.WithImageSearcher(images))
	}

	if *rc.Lrclib {
		source := lyrics.NewSource(lrclib.New("", timeout), filepath.Join(xdg.CacheHome, "ripple", "lyrics"))
		opts = append(opts, resolver.WithLyrics(source))
	}

	return resolver.New(blobs, opts...)
}
