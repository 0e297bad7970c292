package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tosync/server/internal/controller"
	connectioninmemory "github.com/tosync/server/internal/repository/connection/inmemory"
	roominmemory "github.com/tosync/server/internal/repository/room/inmemory"
	"github.com/tosync/server/internal/repository/torrent"
	"github.com/tosync/server/internal/repository/wssender"
	"github.com/tosync/server/internal/service/room"
	"github.com/tosync/server/pkg/ctxlogger"
)

type AppConfig struct {
	Host                  string        `json:"host"`
	Port                  int           `json:"port"`
	LogLevel              string        `json:"log_level"`
	RoomCodeLength        int           `json:"room_code_length"`
	MembersLimit          int           `json:"members_limit"`
	RoomInactivityTimeout time.Duration `json:"room_inactivity_timeout"`
	RoomCleanupInterval   time.Duration `json:"room_cleanup_interval"`
	VideoActionInterval   time.Duration `json:"video_action_interval"`
	MediaDedupWindow      time.Duration `json:"media_dedup_window"`
	SendQueueSize         int           `json:"send_queue_size"`
	TorrentEngineURL      string        `json:"torrent_engine_url"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.RoomCodeLength < 1 {
		return fmt.Errorf("room code length must be greater than 0")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.RoomInactivityTimeout <= 0 {
		return fmt.Errorf("room inactivity timeout must be greater than 0")
	}
	if cfg.RoomCleanupInterval <= 0 {
		return fmt.Errorf("room cleanup interval must be greater than 0")
	}
	if cfg.SendQueueSize < 1 {
		return fmt.Errorf("send queue size must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	roomRepo := roominmemory.NewRepo()
	connectionRepo := connectioninmemory.NewRepo()
	sender := wssender.NewRepo(cfg.SendQueueSize)
	torrentRepo := torrent.NewRepo(cfg.TorrentEngineURL)

	roomService := room.NewService(roomRepo, connectionRepo, sender, torrentRepo, &room.Config{
		RoomCodeLength:        cfg.RoomCodeLength,
		MembersLimit:          cfg.MembersLimit,
		RoomInactivityTimeout: cfg.RoomInactivityTimeout,
		MediaDedupWindow:      cfg.MediaDedupWindow,
	}, logger)

	ctrl := controller.NewController(roomService, sender, &controller.Config{
		VideoActionInterval: cfg.VideoActionInterval,
	}, logger)

	reaper := cron.New()
	if _, err := reaper.AddFunc(fmt.Sprintf("@every %s", cfg.RoomCleanupInterval), func() {
		roomService.EvictInactiveRooms(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule room cleanup: %w", err)
	}
	reaper.Start()
	defer reaper.Stop()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
