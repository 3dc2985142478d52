package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/desertthunder/transcribeflow/internal/models"
)

var _ list.Item = historyItem{}

// historyItem wraps [models.HistoryItem] to implement [list.Item].
type historyItem struct {
	item models.HistoryItem
}

func (i historyItem) FilterValue() string { return i.item.Filename }
func (i historyItem) Title() string       { return i.item.Filename }
func (i historyItem) Description() string {
	desc := fmt.Sprintf("%s • %d words • %s",
		formatter.FormatTimestamp(i.item.Timestamp), i.item.WordCount, formatter.FormatDuration(i.item.SonicDNA.Duration))
	if len(i.item.Keywords) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Keywords[0])
	}
	return desc
}

func historyListItems(items []models.HistoryItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = historyItem{item: item}
	}
	return out
}
