package config

const (
	defaultDataDir                = "~/.local/share/pixelmint"
	defaultLogDir                 = "~/.local/share/pixelmint/logs"
	defaultBlobDir                = "~/.local/share/pixelmint/blobs"
	defaultKeyPath                = "~/.config/pixelmint/identity.key"
	defaultCanvasKey              = "pixel-canvas-v1"
	defaultExportScale            = 20
	defaultStorageBackend         = BackendLocal
	defaultLedgerBackend          = BackendLocal
	defaultGatewayUploadsPerMin   = 30
	defaultGatewayTimeoutSeconds  = 60
	defaultLedgerTimeoutSeconds   = 60
	defaultAssetPropagationMillis = 3000
	defaultRecordPropagationMS    = 8000
	defaultMaxRecordAttempts      = 3
	defaultRecordBackoffMillis    = 2000
	defaultSymbol                 = "PXCAN"
	defaultDescription            = "Pixel art from Pixel Canvas"
	defaultCategory               = "image"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultNtfyTimeoutSeconds     = 10
)

// Backend names accepted by [storage] and [ledger].
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Canvas: Canvas{
			Key:   defaultCanvasKey,
			Scale: defaultExportScale,
		},
		Storage: Storage{
			Backend:          defaultStorageBackend,
			BlobDir:          defaultBlobDir,
			UploadsPerMinute: defaultGatewayUploadsPerMin,
			TimeoutSeconds:   defaultGatewayTimeoutSeconds,
		},
		Ledger: Ledger{
			Backend:        defaultLedgerBackend,
			TimeoutSeconds: defaultLedgerTimeoutSeconds,
		},
		Identity: Identity{
			KeyPath: defaultKeyPath,
		},
		Publish: Publish{
			AssetPropagationDelayMS:  defaultAssetPropagationMillis,
			RecordPropagationDelayMS: defaultRecordPropagationMS,
			MaxRecordAttempts:        defaultMaxRecordAttempts,
			RecordBackoffBaseMS:      defaultRecordBackoffMillis,
		},
		Metadata: Metadata{
			Symbol:               defaultSymbol,
			Description:          defaultDescription,
			Category:             defaultCategory,
			SellerFeeBasisPoints: 0,
			Mutable:              true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeoutSeconds,
			Published:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
