package facebook

import (
	"context"
	"strings"

	"groupfeed-backend/lib/browser"
	"groupfeed-backend/lib/textutil"
)

// Field names one semantic value extracted from a post or comment
// container. Every field carries a ranked list of locator candidates;
// resolution is the only mechanism through which markup drift is
// absorbed.
type Field int

const (
	FieldAuthor Field = iota
	FieldText
	FieldUrl
	FieldTimestamp
	FieldLikes
	FieldComments
	FieldShares
	FieldPrice
	FieldLocation
	FieldTitle
)

type extractFunc func(ctx context.Context, el browser.Element) (string, error)

func elementText(ctx context.Context, el browser.Element) (string, error) {
	return el.Text(ctx)
}

func elementAttr(name string) extractFunc {
	return func(ctx context.Context, el browser.Element) (string, error) {
		return el.Attribute(ctx, name)
	}
}

type fieldSpec struct {
	candidates  []browser.Locator
	extract     extractFunc
	filterNoise bool
}

var fieldSpecs = map[Field]fieldSpec{
	FieldAuthor: {
		candidates: []browser.Locator{
			browser.Css("h2 a"),
			browser.Css("h3 a"),
			browser.Css("strong a"),
			browser.Css(`a[data-sigil="feed-ufi-actor"]`),
			browser.Css(`a[href*="/user/"]`),
			browser.Css(`a[href*="/profile.php"]`),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldText: {
		candidates: []browser.Locator{
			browser.Css(`div[dir="auto"]`),
			browser.Css(`div[data-ad-preview="message"]`),
			browser.Css("div.userContent"),
			browser.Css(`div[data-sigil="m-feed-voice-subtitle"]`),
			browser.Css("div.story_body_container"),
			browser.Css("p"),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldUrl: {
		candidates: []browser.Locator{
			browser.Css(`a[href*="/posts/"]`),
			browser.Css(`a[href*="/permalink/"]`),
			browser.Css("abbr a"),
		},
		extract: elementAttr("href"),
	},
	FieldTimestamp: {
		candidates: []browser.Locator{
			browser.Css("abbr"),
			browser.Css("time"),
			browser.Css(`[data-sigil="m-feed-voice-subtitle"] abbr`),
		},
		extract: elementText,
	},
	FieldLikes: {
		candidates: []browser.Locator{
			browser.Css(`a[href*="reaction"]`),
			browser.Css(`[data-sigil="reactions-sentence"]`),
			browser.Text("a", "like", "j'aime"),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldComments: {
		candidates: []browser.Locator{
			browser.Css(`[data-sigil="comments-token"]`),
			browser.Text("a", "comment", "commentaire"),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldShares: {
		candidates: []browser.Locator{
			browser.Css(`[data-sigil="share-chevron-title"]`),
			browser.Text("a", "share", "partage"),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldPrice: {
		candidates: []browser.Locator{
			browser.Text("span", "$", "€", "£"),
			browser.Text("div", "$", "€", "£"),
		},
		extract: elementText,
	},
	FieldLocation: {
		candidates: []browser.Locator{
			browser.Css(`[data-sigil="location"]`),
			browser.Css(`[aria-label*="ocation"]`),
		},
		extract:     elementText,
		filterNoise: true,
	},
	FieldTitle: {
		candidates: []browser.Locator{
			browser.Css("strong"),
			browser.Css("h4"),
		},
		extract:     elementText,
		filterNoise: true,
	},
}

// Resolve walks the field's candidate list in rank order. For each
// candidate it takes the first element yielding non-empty content; if
// that content is UI noise the whole candidate is rejected and the next
// one is tried. Exhaustion returns absent, never an error.
func Resolve(ctx context.Context, scope browser.Scope, field Field) (string, bool) {
	_, content, ok := ResolveElement(ctx, scope, field)
	return content, ok
}

// ResolveElement is Resolve but also hands back the winning element, for
// fields that need a second read from it (an author link's href).
func ResolveElement(ctx context.Context, scope browser.Scope, field Field) (browser.Element, string, bool) {
	spec := fieldSpecs[field]
	for _, loc := range spec.candidates {
		matches, err := scope.FindAll(ctx, loc)
		if err != nil {
			continue
		}

		var winner browser.Element
		var content string
		for _, el := range matches {
			value, err := spec.extract(ctx, el)
			if err != nil {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			winner = el
			content = value
			break
		}
		if winner == nil {
			continue
		}
		if spec.filterNoise && textutil.IsUINoise(content) {
			continue
		}
		return winner, content, true
	}
	return nil, "", false
}

// ResolveCount resolves a numeric field to the first embedded digit run
// of its content. Absence yields the zero default, never an error.
func ResolveCount(ctx context.Context, scope browser.Scope, field Field) int {
	content, ok := Resolve(ctx, scope, field)
	if !ok {
		return 0
	}
	return textutil.ExtractCount(content)
}
