// Package sis reads course definitions from the public course pages of a
// student information system (https://is.cuni.cz/studium and compatible).
package sis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/dusk-indust/studyguide/internal/course"
)

const (
	// DefaultBaseURL is the Charles University SIS instance.
	DefaultBaseURL = "https://is.cuni.cz/studium"
	// DefaultLocale is the language course pages are scraped in.
	DefaultLocale = "cs"

	coursePath = "/predmety/index.php"
)

var (
	// ErrTransport is returned when a course page cannot be downloaded or read.
	ErrTransport = errors.New("sis: transport error")
	// ErrParse is returned when a course page lacks the expected structure.
	ErrParse = errors.New("sis: unexpected page structure")
)

var nonDigits = regexp.MustCompile(`[^0-9]+`)

// Scraper fetches course pages and parses them into definitions. It
// implements resolve.Fetcher.
type Scraper struct {
	baseURL string
	client  *http.Client
	locale  string
	logger  *zap.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithLocale sets the locale tag recorded on scraped courses.
func WithLocale(tag string) Option {
	return func(s *Scraper) { s.locale = tag }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// NewScraper returns a Scraper for the SIS instance at baseURL (without a
// trailing slash). A file:// base reads <dir>/<code>.html from disk instead.
func NewScraper(baseURL string, opts ...Option) (*Scraper, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: SIS url is empty", course.ErrInvalidInput)
	}
	s := &Scraper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		locale:  DefaultLocale,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CourseURL returns the page address of a course.
func (s *Scraper) CourseURL(code string) string {
	q := url.Values{}
	q.Set("do", "predmet")
	q.Set("kod", code)
	return s.baseURL + coursePath + "?" + q.Encode()
}

// Fetch downloads and parses the page of one course.
func (s *Scraper) Fetch(ctx context.Context, code string) (course.Definition, error) {
	if strings.TrimSpace(code) == "" {
		return course.Definition{}, fmt.Errorf("%w: course code is empty", course.ErrInvalidInput)
	}
	if dir, ok := strings.CutPrefix(s.baseURL, "file://"); ok {
		return s.fetchFile(filepath.Join(dir, code+".html"), code)
	}

	target := s.CourseURL(code)
	s.logger.Debug("scraping course", zap.String("code", code), zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrTransport, code, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrTransport, code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return course.Definition{}, fmt.Errorf("%w: %s: HTTP %d", ErrTransport, code, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrTransport, code, err)
	}
	return s.Parse(body, code)
}

func (s *Scraper) fetchFile(path, code string) (course.Definition, error) {
	s.logger.Debug("reading course page", zap.String("code", code), zap.String("path", path))
	f, err := os.Open(path)
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrTransport, code, err)
	}
	defer f.Close()
	return s.Parse(f, code)
}

// Parse reads a course page. The page has a title block ending in
// "- CODE", a second tab2 table with the English name in its first cell and
// labelled semester and credit rows, and a third tab2 table with the
// guarantors and the prerequisite and corequisite links.
func (s *Scraper) Parse(r io.Reader, code string) (course.Definition, error) {
	root, err := html.Parse(r)
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrTransport, code, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	title := text(doc.Find("div.form_div_title").First())
	if title == "" {
		return course.Definition{}, fmt.Errorf("%w: %s: missing title", ErrParse, code)
	}
	localized := title
	if i := strings.LastIndex(title, "-"); i >= 0 {
		localized = strings.TrimSpace(title[:i])
	}

	tables := doc.Find("table.tab2")
	if tables.Length() < 3 {
		return course.Definition{}, fmt.Errorf("%w: %s: expected 3 tab2 tables, found %d", ErrParse, code, tables.Length())
	}

	info := tables.Eq(1).Find("tr")
	if info.Length() == 0 {
		return course.Definition{}, fmt.Errorf("%w: %s: empty course table", ErrParse, code)
	}
	name := text(info.First().Find("td").First())

	semesterRow := findRow(info, func(label string) bool {
		return strings.HasPrefix(label, "semestr") || strings.HasPrefix(label, "semester")
	})
	if semesterRow == nil {
		return course.Definition{}, fmt.Errorf("%w: %s: missing semester row", ErrParse, code)
	}
	label := text(semesterRow.Children().Eq(1))
	term, ok := ParseTermLabel(label)
	if !ok {
		s.logger.Warn("unknown enrollable label, assuming both terms",
			zap.String("code", code), zap.String("label", label))
	}

	creditRow := findRow(info, func(label string) bool {
		return strings.Contains(label, "kredit") || strings.Contains(label, "credit")
	})
	if creditRow == nil {
		return course.Definition{}, fmt.Errorf("%w: %s: missing credits row", ErrParse, code)
	}
	credits, err := strconv.Atoi(nonDigits.ReplaceAllString(text(creditRow.Find("td").First()), ""))
	if err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: credits: %w", ErrParse, code, err)
	}

	def := course.Definition{
		Code:          code,
		Name:          name,
		LocalizedName: localized,
		Locale:        s.locale,
		Credits:       credits,
		EnrollableIn:  term,
	}

	people := tables.Eq(2).Find("tr")
	people.First().Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		header := strings.ToLower(text(th))
		if !strings.Contains(header, "garant") && !strings.Contains(header, "guarantor") {
			return true
		}
		def.Teachers = links(th.Next())
		return false
	})

	people.Each(func(_ int, row *goquery.Selection) {
		header := strings.ToLower(text(row.Find("th").First()))
		cell := row.Find("td").First()
		switch {
		case strings.Contains(header, "korekvizit") || strings.Contains(header, "corequisite"):
			def.Corequisites = appendUnique(def.Corequisites, links(cell)...)
		case strings.Contains(header, "prerekvizit") || strings.Contains(header, "prerequisite"):
			def.Prerequisites = appendUnique(def.Prerequisites, links(cell)...)
		}
	})

	if err := def.Validate(); err != nil {
		return course.Definition{}, fmt.Errorf("%w: %s: %w", ErrParse, code, err)
	}
	return def, nil
}

// Parse reads a course page with the default locale and no logging.
func Parse(r io.Reader, code string) (course.Definition, error) {
	s := &Scraper{locale: DefaultLocale, logger: zap.NewNop()}
	return s.Parse(r, code)
}

// ParseTermLabel maps a semester label from a course page. Unknown labels map
// to course.TermBoth and report false.
func ParseTermLabel(label string) (course.Term, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "zimní", "winter":
		return course.TermWinter, true
	case "letní", "summer":
		return course.TermSummer, true
	case "oba", "both":
		return course.TermBoth, true
	}
	return course.TermBoth, false
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// findRow returns the first row whose first cell, lowercased, matches.
func findRow(rows *goquery.Selection, match func(label string) bool) *goquery.Selection {
	var found *goquery.Selection
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if match(strings.ToLower(text(row.Children().First()))) {
			found = row
			return false
		}
		return true
	})
	return found
}

func links(sel *goquery.Selection) []string {
	var out []string
	sel.Find("a.link3").Each(func(_ int, a *goquery.Selection) {
		if t := text(a); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
