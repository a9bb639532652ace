package cleaner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/use-agent/pagegrab/models"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

// maxTokenBuf bounds the tokenizer buffer used to validate markup before it
// is pretty-printed. A single token larger than this is treated as malformed.
const maxTokenBuf = 8 << 20

// condenseOnce switches gohtml to keep text-only elements and inline runs on
// one line. gohtml.Condense is a package variable, so it is set once before
// any Formatter exists.
var condenseOnce sync.Once

// Formatter pretty-prints HTML. It never fails from the caller's point of
// view: markup it cannot format is returned unchanged.
type Formatter struct {
	pretty func(string) string
	maxBuf int
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithMaxTokenBuf overrides the largest single token the Formatter accepts.
// Documents with a bigger token are returned unformatted.
func WithMaxTokenBuf(n int) FormatterOption {
	return func(f *Formatter) { f.maxBuf = n }
}

// NewFormatter returns a Formatter backed by gohtml.
func NewFormatter(opts ...FormatterOption) *Formatter {
	condenseOnce.Do(func() { gohtml.Condense = true })

	f := &Formatter{
		pretty: gohtml.Format,
		maxBuf: maxTokenBuf,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format returns rawHTML indented for human reading, or rawHTML itself when
// formatting fails.
func (f *Formatter) Format(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return rawHTML
	}
	out, err := f.tryFormat(rawHTML)
	if err != nil {
		slog.Debug("formatter: returning unformatted html",
			"length", len(rawHTML),
			"error", err,
		)
		return rawHTML
	}
	return out
}

func (f *Formatter) tryFormat(rawHTML string) (out string, err error) {
	if err := validateMarkup(rawHTML, f.maxBuf); err != nil {
		return "", models.NewScrapeError(models.ErrCodeFormatting, "markup rejected by tokenizer", err)
	}

	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = models.NewScrapeError(models.ErrCodeFormatting, "printer panicked", fmt.Errorf("%v", r))
		}
	}()

	out = f.pretty(rawHTML)
	if strings.TrimSpace(out) == "" {
		return "", models.NewScrapeError(models.ErrCodeFormatting, "printer produced empty output", nil)
	}
	return out, nil
}

// validateMarkup walks every token of rawHTML. The tokenizer is lenient, so
// this only rejects input it cannot read at all.
func validateMarkup(rawHTML string, maxBuf int) error {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	if maxBuf > 0 {
		z.SetMaxBuf(maxBuf)
	}
	for {
		if z.Next() == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
	}
}
