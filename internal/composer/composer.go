package composer

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// ImageMarker is the first token of a line that references an image.
const ImageMarker = "img"

// ZeroWidthSpace is inserted into post text so that repeated posts of the
// same line are never byte-identical.
const ZeroWidthSpace = '\u200B'

// Kind distinguishes text posts from image posts.
type Kind int

const (
	KindText Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Directive is a transcript line turned into something postable.
type Directive struct {
	Kind    Kind
	ImageID string // set for KindImage
	Content string
	Line    string // the raw transcript line
}

// IsImage reports whether the directive carries an image.
func (d Directive) IsImage() bool {
	return d.Kind == KindImage
}

// Compose parses a transcript line. "img <id> <caption...>" becomes an image
// directive whose content is the caption tokens joined by single spaces;
// anything else is posted verbatim as text.
func Compose(line string) Directive {
	fields := strings.Fields(line)
	if len(fields) >= 2 && fields[0] == ImageMarker {
		return Directive{
			Kind:    KindImage,
			ImageID: fields[1],
			Content: strings.Join(fields[2:], " "),
			Line:    line,
		}
	}

	return Directive{
		Kind:    KindText,
		Content: line,
		Line:    line,
	}
}

// Obfuscator inserts a zero-width space at a random position.
type Obfuscator struct {
	rnd *rand.Rand
}

// NewObfuscator creates an obfuscator drawing offsets from src. A nil src
// uses a randomly seeded PCG source.
func NewObfuscator(src rand.Source) *Obfuscator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Obfuscator{rnd: rand.New(src)}
}

// Obfuscate returns s with one zero-width space inserted before a uniformly
// chosen rune in [0, runeCount-1]. Empty input is returned unchanged.
func (o *Obfuscator) Obfuscate(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return s
	}

	offset := o.rnd.IntN(n)

	idx := 0
	for i := 0; i < offset; i++ {
		_, size := utf8.DecodeRuneInString(s[idx:])
		idx += size
	}
	return s[:idx] + string(ZeroWidthSpace) + s[idx:]
}

// Strip removes every zero-width space from s.
func Strip(s string) string {
	return strings.ReplaceAll(s, string(ZeroWidthSpace), "")
}
