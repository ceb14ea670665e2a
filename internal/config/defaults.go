package config

const (
	defaultWorkDir               = "~/.local/share/mangadrop/work"
	defaultQueueDir              = "~/.local/share/mangadrop/queue"
	defaultCartPath              = "~/.local/share/mangadrop/cart.txt"
	defaultAssetsDir             = "~/.local/share/mangadrop/assets"
	defaultLogDir                = "~/.local/share/mangadrop/logs"
	defaultStateDir              = "~/.local/state/mangadrop"
	defaultDeviceName            = "Kindle"
	defaultDocumentsDir          = "documents"
	defaultCatalogFile           = "kmr2.json"
	defaultSafetyMarginBytes     = 100
	defaultScanTimeoutSeconds    = 10
	defaultFetchConcurrency      = 8
	defaultFetchTimeoutSeconds   = 60
	defaultPageWidth             = 2480
	defaultUserAgent             = "mangadrop/dev"
	defaultKindlegenBinary       = "kindlegen"
	defaultConvertTimeoutSeconds = 600
	defaultAuthor                = "KindleMangaReader"
	defaultMangaDexBaseURL       = "https://api.mangadex.org"
	defaultMangaDexUploadsURL    = "https://uploads.mangadex.org"
	defaultMangaDexLanguage      = "en"
	defaultMangaDexTimeout       = 30
	defaultMangaDexCacheMinutes  = 30
	defaultNotifyTimeoutSeconds  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30

	queueDBFileName = "que_db.json"

	// EndOfChapterFile is the marker page appended to every chapter.
	EndOfChapterFile = "endofthischapter.png"
	// EndOfVolumeFile is the marker page appended to every volume.
	EndOfVolumeFile = "endofthisvolume.png"
	// CoverNotFoundFile is composited onto placeholder volume covers.
	CoverNotFoundFile = "volcovernotfound.png"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			QueueDir:  defaultQueueDir,
			CartPath:  defaultCartPath,
			AssetsDir: defaultAssetsDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Device: Device{
			Name:               defaultDeviceName,
			DocumentsDir:       defaultDocumentsDir,
			CatalogFile:        defaultCatalogFile,
			SafetyMarginBytes:  defaultSafetyMarginBytes,
			ScanTimeoutSeconds: defaultScanTimeoutSeconds,
		},
		Fetch: Fetch{
			Concurrency:    defaultFetchConcurrency,
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			PageWidth:      defaultPageWidth,
			UserAgent:      defaultUserAgent,
		},
		Packager: Packager{
			KindlegenBinary:       defaultKindlegenBinary,
			ConvertTimeoutSeconds: defaultConvertTimeoutSeconds,
			Author:                defaultAuthor,
		},
		MangaDex: MangaDex{
			BaseURL:        defaultMangaDexBaseURL,
			UploadsURL:     defaultMangaDexUploadsURL,
			Language:       defaultMangaDexLanguage,
			TimeoutSeconds: defaultMangaDexTimeout,
			CacheMinutes:   defaultMangaDexCacheMinutes,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
