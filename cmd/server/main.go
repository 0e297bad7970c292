package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tosync/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	roomCodeLength = configVar[int]{
		envKey:       "SERVER_ROOM_CODE_LENGTH",
		flagKey:      "room-code-length",
		defaultValue: 6,
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
	}
	roomInactivityTimeout = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_INACTIVITY_TIMEOUT",
		flagKey:      "room-inactivity-timeout",
		defaultValue: 5 * time.Minute,
	}
	roomCleanupInterval = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_CLEANUP_INTERVAL",
		flagKey:      "room-cleanup-interval",
		defaultValue: time.Minute,
	}
	videoActionInterval = configVar[time.Duration]{
		envKey:       "SERVER_VIDEO_ACTION_INTERVAL",
		flagKey:      "video-action-interval",
		defaultValue: 200 * time.Millisecond,
	}
	mediaDedupWindow = configVar[time.Duration]{
		envKey:       "SERVER_MEDIA_DEDUP_WINDOW",
		flagKey:      "media-dedup-window",
		defaultValue: 2 * time.Second,
	}
	sendQueueSize = configVar[int]{
		envKey:       "SERVER_SEND_QUEUE_SIZE",
		flagKey:      "send-queue-size",
		defaultValue: 32,
	}
	torrentEngineURL = configVar[string]{
		envKey:       "TORRENT_ENGINE_URL",
		flagKey:      "torrent-engine-url",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(roomCodeLength.flagKey, roomCodeLength.defaultValue, "Length of generated room codes")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in the room")
	pflag.Duration(roomInactivityTimeout.flagKey, roomInactivityTimeout.defaultValue, "Idle time before a room is evicted")
	pflag.Duration(roomCleanupInterval.flagKey, roomCleanupInterval.defaultValue, "Interval between eviction sweeps")
	pflag.Duration(videoActionInterval.flagKey, videoActionInterval.defaultValue, "Minimum interval between video actions per connection")
	pflag.Duration(mediaDedupWindow.flagKey, mediaDedupWindow.defaultValue, "Window for suppressing duplicate media actions")
	pflag.Int(sendQueueSize.flagKey, sendQueueSize.defaultValue, "Outbound message queue size per connection")
	pflag.String(torrentEngineURL.flagKey, torrentEngineURL.defaultValue, "Torrent engine base url")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(roomCodeLength.flagKey, roomCodeLength.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(roomInactivityTimeout.flagKey, roomInactivityTimeout.envKey)
	viper.BindEnv(roomCleanupInterval.flagKey, roomCleanupInterval.envKey)
	viper.BindEnv(videoActionInterval.flagKey, videoActionInterval.envKey)
	viper.BindEnv(mediaDedupWindow.flagKey, mediaDedupWindow.envKey)
	viper.BindEnv(sendQueueSize.flagKey, sendQueueSize.envKey)
	viper.BindEnv(torrentEngineURL.flagKey, torrentEngineURL.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(roomCodeLength.flagKey, roomCodeLength.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(roomInactivityTimeout.flagKey, roomInactivityTimeout.defaultValue)
	viper.SetDefault(roomCleanupInterval.flagKey, roomCleanupInterval.defaultValue)
	viper.SetDefault(videoActionInterval.flagKey, videoActionInterval.defaultValue)
	viper.SetDefault(mediaDedupWindow.flagKey, mediaDedupWindow.defaultValue)
	viper.SetDefault(sendQueueSize.flagKey, sendQueueSize.defaultValue)
	viper.SetDefault(torrentEngineURL.flagKey, torrentEngineURL.defaultValue)

	config := &app.AppConfig{
		Host:                  viper.GetString(host.flagKey),
		Port:                  viper.GetInt(port.flagKey),
		LogLevel:              viper.GetString(logLevel.flagKey),
		RoomCodeLength:        viper.GetInt(roomCodeLength.flagKey),
		MembersLimit:          viper.GetInt(membersLimit.flagKey),
		RoomInactivityTimeout: viper.GetDuration(roomInactivityTimeout.flagKey),
		RoomCleanupInterval:   viper.GetDuration(roomCleanupInterval.flagKey),
		VideoActionInterval:   viper.GetDuration(videoActionInterval.flagKey),
		MediaDedupWindow:      viper.GetDuration(mediaDedupWindow.flagKey),
		SendQueueSize:         viper.GetInt(sendQueueSize.flagKey),
		TorrentEngineURL:      viper.GetString(torrentEngineURL.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
