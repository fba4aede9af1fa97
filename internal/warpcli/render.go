package warpcli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"warpdir/internal/model"
)

// RenderPaths prints one path per line, which is what shell hooks consume.
func RenderPaths(items []model.Entry) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Path)
		b.WriteByte('\n')
	}
	return b.String()
}

func RenderJSONL(items []model.Entry) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, item := range items {
		_ = enc.Encode(item)
	}
	return b.String()
}

// RenderTable prints rank, visits, last access and path, aligned on rank.
func RenderTable(items []model.Entry) string {
	var b strings.Builder
	for _, item := range items {
		last := time.Unix(item.LastAccessed, 0).Local().Format(time.DateTime)
		_, _ = fmt.Fprintf(&b, "%7.1f %4d  %s  %s\n", item.Rank, item.VisitCount, last, item.Path)
	}
	return b.String()
}
