package common

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorDanger  = 0xED4245 // Red
	ColorWarning = 0xFEE75C // Yellow
	ColorInfo    = 0x3498DB // Blue
	ColorGold    = 0xF1C40F
)

// BotName is shown in help and welcome embeds
const BotName = "Leveler"

// ProgressBarWidth is the number of cells in a rank progress bar
const ProgressBarWidth = 12
