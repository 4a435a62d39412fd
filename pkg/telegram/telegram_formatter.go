package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/common"
)

// FormatTradeResultForTelegram formats an auto-trade decision into a
// Markdown message.
func FormatTradeResultForTelegram(result dto.TradeResult) string {
	var b strings.Builder

	var actionIcon string
	switch result.PredictionLabel {
	case common.TradeLabelBuy:
		actionIcon = "🟢"
	case common.TradeLabelSell:
		actionIcon = "🔴"
	default:
		actionIcon = "🟡"
	}

	b.WriteString("🤖 *Auto Trade Result* 🤖\n\n")
	b.WriteString(fmt.Sprintf("📈 *Market:* %s\n", strings.ToUpper(result.Market)))
	b.WriteString(fmt.Sprintf("%s *Action:* %s\n", actionIcon, result.PredictionLabel))
	b.WriteString(fmt.Sprintf("🎯 *Confidence:* %.0f%%\n", result.Confidence*100))

	if result.PredictionLabel == common.TradeLabelHold || result.Amount == 0 {
		b.WriteString("\n💤 No action taken today.\n")
	} else {
		b.WriteString(fmt.Sprintf("💰 *Price:* %.2f\n", result.Price))
		b.WriteString(fmt.Sprintf("📦 *Amount:* %.6f\n", result.Amount))
		b.WriteString(fmt.Sprintf("💸 *Cost:* %.2f\n", result.Cost))
	}

	b.WriteString(fmt.Sprintf("\n🗓 *Execution:* %s\n", result.ExecutionDate))
	b.WriteString(fmt.Sprintf("🔮 *Prediction:* %s\n", result.PredictionDate))
	return b.String()
}

// FormatTrainingResultForTelegram formats a completed pipeline run summary.
func FormatTrainingResultForTelegram(results []dto.TargetTrainingResult, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("🧠 *Model Training Completed* 🧠\n\n")
	b.WriteString(fmt.Sprintf("⏱ *Duration:* %s\n\n", elapsed.Round(time.Second)))
	for _, r := range results {
		b.WriteString(fmt.Sprintf("📊 *- - - - - %s - - - - -*\n", r.Target))
		b.WriteString(fmt.Sprintf("🧾 *Rows:* %d\n", r.Rows))
		b.WriteString(fmt.Sprintf("✅ *Accuracy:* %.2f%%\n", r.Metrics.Accuracy*100))
		b.WriteString(fmt.Sprintf("🎯 *F1:* %.3f\n", r.Metrics.F1))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatErrorAlertForTelegram formats a failure alert for operators.
func FormatErrorAlertForTelegram(jobName string, err error) string {
	var b strings.Builder
	b.WriteString("🚨 *Job Failed* 🚨\n\n")
	b.WriteString(fmt.Sprintf("🛠 *Job:* %s\n", jobName))
	b.WriteString(fmt.Sprintf("🗓 *Time:* %s\n", time.Now().Format(time.RFC3339)))
	if err != nil {
		b.WriteString(fmt.Sprintf("❗ *Error:* `%s`\n", err.Error()))
	}
	return b.String()
}
