package common

const (
	// Deployment stages for model and scaler artifacts.
	StageStaging    = "staging"
	StageProduction = "production"
	StageArchived   = "archived"

	// Storage key folders. Layout: {folder}/{stage}/{artifact}.
	StorageFolderHistorical = "historical"
	StorageFolderModel      = "ml_models"
	StorageFolderTrade      = "trade"
	StorageFolderDataset    = "training_datasets"

	// StorageKeyTradingConfig holds the persisted trading parameters.
	StorageKeyTradingConfig = "configs/latest_config.json"

	// Target label column names.
	SignalBuy  = "buy_signal"
	SignalSell = "sell_signal"

	// Trade decision labels.
	TradeLabelBuy  = "BUY"
	TradeLabelSell = "SELL"
	TradeLabelHold = "HOLD"
)
