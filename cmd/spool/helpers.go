package main

import (
	"time"

	"github.com/dustin/go-humanize"

	"spool/internal/queue"
)

const summaryRounding = time.Millisecond

func formatSize(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func formatSlot(t *time.Time) string {
	if t == nil {
		return "ASAP"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		slot := "-"
		if item.Status == queue.StatusScheduled || item.Status == queue.StatusFailed {
			slot = formatSlot(item.ScheduledAt)
		}
		rows = append(rows, []string{
			item.Name,
			string(item.Status),
			formatSize(item.Size),
			slot,
			itoa(item.RetryCount),
			formatAge(item.UpdatedAt),
		})
	}
	return rows
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), itoa(count)})
	}
	return rows
}

func itoa(value int) string {
	return humanize.Comma(int64(value))
}
