package models

// BotModel is the slowly adapting per-category performance bias of the bot
// opponent. Skills stay within [-0.35, 0.45].
type BotModel struct {
	ByCategory map[string]float64 `json:"byCategory"`
}
