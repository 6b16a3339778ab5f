// Package extractor turns the upstream daily listing page into structured
// entries. It runs directly on the HTML token stream, so a listing is
// extracted in a single pass without buffering the whole document.
package extractor

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/mkusaka/hinichi/internal/domain"
)

// Structural class names of the listing markup. Matching is by exact class
// token, not substring, so the block class never collides with its
// "-title"/"-users" descendants.
const (
	classBlock       = "entrylist-contents"
	classTitle       = "entrylist-contents-title"
	classUsers       = "entrylist-contents-users"
	classDomain      = "entrylist-contents-domain"
	classDescription = "entrylist-contents-description"
	classDate        = "entrylist-contents-date"
	classTags        = "entrylist-contents-tags"
	classThumb       = "entrylist-contents-thumb"
)

// collector identifies which text stream, if any, is currently being
// captured. Exactly one collector is armed at a time; arming a new one
// replaces the previous, so two fields can never capture the same text.
type collector int

const (
	colIdle collector = iota
	colTitle
	colUsers
	colDomain
	colDescription
	colDate
	colTag
)

type accumulator struct {
	open  bool
	entry domain.Entry
	title strings.Builder
	users strings.Builder
	dom   strings.Builder
	desc  strings.Builder
	date  strings.Builder
	tag   strings.Builder
}

// Extract consumes r exactly once and returns the listing entries in
// document order. Malformed or missing fields degrade to empty/zero values;
// the only discard condition is an entry lacking a title or URL. A read
// error returns the entries finalized so far alongside the error.
func Extract(r io.Reader) ([]domain.Entry, error) {
	z := html.NewTokenizer(r)

	var (
		entries []domain.Entry
		acc     accumulator
		col     = colIdle
		// colOwner is the tag that armed the current collector; its end
		// tag disarms it. Text inside nested elements (e.g. the anchor
		// within a title heading) keeps accumulating until then.
		colOwner string
		inTags   bool
		tagsTag  string
	)

	finalize := func() {
		if !acc.open {
			return
		}
		if e, ok := acc.finish(); ok {
			entries = append(entries, e)
		}
		acc = accumulator{}
		col = colIdle
		inTags = false
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			finalize()
			if err := z.Err(); err != io.EOF {
				return entries, err
			}
			return entries, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			name := t.Data
			class := attr(t, "class")

			if hasClass(class, classBlock) {
				finalize()
				acc.open = true
				continue
			}
			if !acc.open {
				continue
			}

			switch {
			case hasClass(class, classTitle):
				col, colOwner = colTitle, name
				if name == "a" && acc.entry.URL == "" {
					acc.entry.URL = attr(t, "href")
				}
			case hasClass(class, classUsers):
				col, colOwner = colUsers, name
			case hasClass(class, classDomain):
				col, colOwner = colDomain, name
			case hasClass(class, classDescription):
				col, colOwner = colDescription, name
			case hasClass(class, classDate):
				col, colOwner = colDate, name
			case hasClass(class, classTags):
				inTags, tagsTag = true, name
			case name == "img" && hasClass(class, classThumb):
				// Last matching image wins.
				if src := attr(t, "src"); src != "" {
					acc.entry.Thumbnail = src
				}
			case name == "a" && inTags:
				col, colOwner = colTag, name
				acc.tag.Reset()
			case name == "a" && col == colTitle:
				if acc.entry.URL == "" {
					acc.entry.URL = attr(t, "href")
				}
			}

		case html.TextToken:
			if col == colIdle || !acc.open {
				continue
			}
			text := string(z.Text())
			switch col {
			case colTitle:
				acc.title.WriteString(text)
			case colUsers:
				acc.users.WriteString(text)
			case colDomain:
				acc.dom.WriteString(text)
			case colDescription:
				acc.desc.WriteString(text)
			case colDate:
				acc.date.WriteString(text)
			case colTag:
				acc.tag.WriteString(text)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if col != colIdle && tag == colOwner {
				if col == colTag {
					if s := strings.TrimSpace(acc.tag.String()); s != "" {
						acc.entry.Tags = append(acc.entry.Tags, s)
					}
				}
				col = colIdle
			}
			if inTags && tag == tagsTag {
				inTags = false
			}
		}
	}
}

// finish resolves the collected text into a final entry. Returns false when
// the entry must be discarded (missing title or URL).
func (a *accumulator) finish() (domain.Entry, bool) {
	e := a.entry
	e.Title = strings.TrimSpace(a.title.String())
	if e.Title == "" || e.URL == "" {
		return domain.Entry{}, false
	}
	e.Users = firstDigitRun(a.users.String())
	e.Domain = strings.TrimSpace(a.dom.String())
	e.Description = strings.TrimSpace(a.desc.String())
	e.Category, e.Date = splitDateCategory(a.date.String())
	return e, true
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

var digitRun = regexp.MustCompile(`\d+`)

// firstDigitRun parses the first run of digits in s ("1,234" yields 1).
// No digits means zero, matching the "x users" vote text contract.
func firstDigitRun(s string) int {
	m := digitRun.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

var (
	datePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
)

// splitDateCategory splits the combined "category yyyy/mm/dd hh:mm" text.
// The listing always trails the category label with exactly one date+time
// pair; when the last two tokens do not look like that pair the raw trimmed
// text is kept as the date and the category stays empty.
func splitDateCategory(raw string) (category, date string) {
	trimmed := strings.TrimSpace(raw)
	fields := strings.Fields(trimmed)
	if len(fields) >= 2 && datePattern.MatchString(fields[len(fields)-2]) && timePattern.MatchString(fields[len(fields)-1]) {
		return strings.Join(fields[:len(fields)-2], " "), fields[len(fields)-2] + " " + fields[len(fields)-1]
	}
	return "", trimmed
}
