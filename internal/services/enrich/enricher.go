package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/textutil"
)

// Metadata is the enrichment payload persisted on the queue item.
type Metadata struct {
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	Source     string    `json:"source"`
	SizeBytes  int64     `json:"size_bytes"`
	EnrichedAt time.Time `json:"enriched_at"`
}

// Enricher derives metadata from an item's name and source file.
type Enricher struct {
	logger *slog.Logger
}

// New constructs a filename-based enricher.
func New(logger *slog.Logger) *Enricher {
	return &Enricher{logger: logging.NewComponentLogger(logger, "enrich")}
}

// Enrich produces a JSON metadata payload for the item.
func (e *Enricher) Enrich(ctx context.Context, item *queue.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if item == nil || strings.TrimSpace(item.Name) == "" {
		return "", services.Wrap(services.ErrValidation, "enrich", "derive", "item has no name", nil)
	}

	meta := Metadata{
		Title:      DeriveTitle(item.Name),
		Tags:       deriveTags(item.Name),
		Source:     path.Base(item.Name),
		SizeBytes:  item.Size,
		EnrichedAt: time.Now().UTC(),
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "enrich", "encode", "marshal metadata", err)
	}

	e.logger.Debug("derived item metadata",
		logging.String(logging.FieldItem, item.Name),
		logging.String("title", meta.Title),
	)
	return string(encoded), nil
}

// DeriveTitle turns an item name into a human-readable title: the base name
// without extension or bracketed tags, separators collapsed to spaces, each
// word title-cased.
func DeriveTitle(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = stripTagGroups(base)

	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		title = "Untitled"
	}
	return cases.Title(language.Und).String(title)
}

// deriveTags collects bracketed groups from the filename plus any parent
// directory components of the item name, sanitized to lowercase tokens and
// deduplicated.
// "clips/promo/Launch Day [teaser][4k].mp4" yields clips, promo, teaser, 4k.
func deriveTags(name string) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		tag = textutil.Tag(tag)
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	dir := path.Dir(name)
	if dir != "." && dir != "/" {
		for _, part := range strings.Split(dir, "/") {
			add(part)
		}
	}

	base := path.Base(name)
	for {
		open := strings.Index(base, "[")
		if open < 0 {
			break
		}
		close := strings.Index(base[open:], "]")
		if close < 0 {
			break
		}
		add(base[open+1 : open+close])
		base = base[open+close+1:]
	}
	return tags
}

func stripTagGroups(value string) string {
	var builder strings.Builder
	depth := 0
	for _, r := range value {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// Decode parses a payload previously produced by Enrich.
func Decode(payload string) (Metadata, error) {
	var meta Metadata
	if strings.TrimSpace(payload) == "" {
		return meta, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return meta, fmt.Errorf("decode metadata payload: %w", err)
	}
	return meta, nil
}
