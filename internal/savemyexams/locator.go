package savemyexams

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/rs/zerolog/log"
)

// ErrElementNotFound is returned when a page lacks an element the locator
// needs to continue.
var ErrElementNotFound = errors.New("expected element not found")

// Locator finds subjects, resource trees and PDF links on the site.
//
// Section and sub-section nodes live on the same page as their parent, so
// their Location is the page URL plus a fragment naming the element
// ("…/cells#nav-section-1/nav-topic-3"). Parsed pages are cached for the
// lifetime of the Locator.
type Locator struct {
	client  *http.Client
	baseURL string
	timeout time.Duration

	mu    sync.Mutex
	pages map[string]*goquery.Document
}

var _ download.Locator = (*Locator)(nil)

// NewLocator creates a Locator that browses with client.
func NewLocator(client *http.Client, opts Options) *Locator {
	opts = opts.withDefaults()
	return &Locator{
		client:  client,
		baseURL: opts.BaseURL,
		timeout: opts.NavigationTimeout,
		pages:   make(map[string]*goquery.Document),
	}
}

// ListSubjects reads the subject table in the members area.
func (l *Locator) ListSubjects(ctx context.Context) ([]*model.SubjectJob, error) {
	doc, err := fetchDocument(ctx, l.client, l.baseURL+membersPath, l.timeout)
	if err != nil {
		return nil, err
	}

	var jobs []*model.SubjectJob
	doc.Find(selSubjectRows).Each(func(_ int, row *goquery.Selection) {
		title := text(row.Find(selSubjectName))
		href, ok := row.Find(selSubjectAction).First().Attr("href")
		if title == "" || !ok {
			return
		}
		jobs = append(jobs, model.NewSubjectJob(title, text(row.Find(selSubjectLevel)), absolute(doc, href)))
	})
	if len(jobs) == 0 {
		return nil, fmt.Errorf("subject table: %w", ErrElementNotFound)
	}
	return jobs, nil
}

// ListChildren returns the children of node in page order.
func (l *Locator) ListChildren(ctx context.Context, node *model.ResourceNode) ([]*model.ResourceNode, error) {
	switch node.Kind {
	case model.KindSubject:
		return l.resourceGroups(ctx, node)
	case model.KindResourceGroup:
		switch node.Group {
		case model.GroupRevisionNotes:
			return l.noteSections(ctx, node)
		case model.GroupExamQuestions:
			return l.questionSections(ctx, node)
		default:
			return nil, fmt.Errorf("unknown resource group %q", node.Title)
		}
	case model.KindSection:
		switch node.Group {
		case model.GroupRevisionNotes:
			return l.noteTopics(ctx, node)
		case model.GroupExamQuestions:
			return l.questionCards(ctx, node)
		default:
			return nil, fmt.Errorf("unknown resource group %q", node.Title)
		}
	case model.KindSubSection:
		return l.chapters(ctx, node)
	case model.KindLeafFile:
		return nil, model.ErrLeafHasChildren
	default:
		return nil, fmt.Errorf("unknown node kind %d", int(node.Kind))
	}
}

// ResolveLeafLocation returns the PDF URL of a leaf.
//
// Exam question leaves already point at the PDF. Revision note leaves point
// at a chapter page that carries the download link; an HTTP 429 there is
// reported as a rate-limited TransferError.
func (l *Locator) ResolveLeafLocation(ctx context.Context, leaf *model.ResourceNode) (string, error) {
	if leaf.Location == "" {
		return "", fmt.Errorf("%s: %w", leaf.Title, download.ErrNoDownloadLink)
	}
	if leaf.Group == model.GroupExamQuestions {
		return leaf.Location, nil
	}

	doc, err := fetchDocument(ctx, l.client, leaf.Location, l.timeout)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find(selNotesDownload).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%s: %w", leaf.Title, download.ErrNoDownloadLink)
	}
	return absolute(doc, href), nil
}

func (l *Locator) resourceGroups(ctx context.Context, subject *model.ResourceNode) ([]*model.ResourceNode, error) {
	doc, err := l.page(ctx, subject.Location)
	if err != nil {
		return nil, err
	}

	links := doc.Find(selOpenResourceLinks)
	if links.Length() == 0 {
		links = doc.Find(selAnyResourceLinks)
	}

	var groups []*model.ResourceNode
	seen := make(map[model.GroupKind]bool)
	links.Each(func(_ int, a *goquery.Selection) {
		title := text(a.Find(selResourceText))
		kind := model.ParseGroupKind(title)
		href, ok := a.Attr("href")
		if kind == model.GroupUnknown || !ok || seen[kind] {
			return
		}
		seen[kind] = true
		groups = append(groups, model.NewNode(model.KindResourceGroup, title, absolute(doc, href), kind))
	})
	return groups, nil
}

// noteSections follows the group page to its first topic, whose navigation
// lists every section of the revision notes.
func (l *Locator) noteSections(ctx context.Context, group *model.ResourceNode) ([]*model.ResourceNode, error) {
	doc, err := l.page(ctx, group.Location)
	if err != nil {
		return nil, err
	}
	first := doc.Find(selOpenFirstTopic).First()
	if first.Length() == 0 {
		first = doc.Find(selAnyFirstTopic).First()
	}
	href, ok := first.Attr("href")
	if !ok {
		return nil, fmt.Errorf("first topic link: %w", ErrElementNotFound)
	}

	topicURL := absolute(doc, href)
	topic, err := l.page(ctx, topicURL)
	if err != nil {
		return nil, err
	}

	var sections []*model.ResourceNode
	topic.Find(selNavSections).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-cy")
		title := text(s.Find(selCollapseTitle))
		if title == "" || id == "" {
			return
		}
		sections = append(sections, model.NewNode(model.KindSection, title, withFragment(topicURL, id), model.GroupRevisionNotes))
	})
	if len(sections) == 0 {
		return nil, fmt.Errorf("revision note sections: %w", ErrElementNotFound)
	}
	return sections, nil
}

func (l *Locator) noteTopics(ctx context.Context, section *model.ResourceNode) ([]*model.ResourceNode, error) {
	sel, _, err := l.element(ctx, section.Location)
	if err != nil {
		return nil, err
	}
	pageURL, path := splitFragment(section.Location)

	var topics []*model.ResourceNode
	sel.Find(selNavTopics).Each(func(_ int, t *goquery.Selection) {
		id, _ := t.Attr("data-cy")
		title := text(t.Find(selCollapseTitle))
		if title == "" || id == "" {
			return
		}
		topics = append(topics, model.NewNode(model.KindSubSection, title, withFragment(pageURL, path+"/"+id), model.GroupRevisionNotes))
	})
	return topics, nil
}

func (l *Locator) chapters(ctx context.Context, topic *model.ResourceNode) ([]*model.ResourceNode, error) {
	sel, doc, err := l.element(ctx, topic.Location)
	if err != nil {
		return nil, err
	}

	var leaves []*model.ResourceNode
	sel.Find(selChapterLinks).Each(func(_ int, a *goquery.Selection) {
		title := text(a)
		href, _ := a.Attr("href")
		if title == "" {
			return
		}
		loc := ""
		if href != "" {
			loc = absolute(doc, href)
		}
		leaves = append(leaves, model.NewNode(model.KindLeafFile, title, loc, model.GroupRevisionNotes))
	})
	return leaves, nil
}

func (l *Locator) questionSections(ctx context.Context, group *model.ResourceNode) ([]*model.ResourceNode, error) {
	doc, err := l.page(ctx, group.Location)
	if err != nil {
		return nil, err
	}

	var sections []*model.ResourceNode
	doc.Find(selQuestionSections).Each(func(i int, s *goquery.Selection) {
		title := text(s.Find(selQuestionTitle))
		if title == "" {
			return
		}
		sections = append(sections, model.NewNode(model.KindSection, title, withFragment(group.Location, "item-"+strconv.Itoa(i)), model.GroupExamQuestions))
	})
	if len(sections) == 0 {
		return nil, fmt.Errorf("exam question sections: %w", ErrElementNotFound)
	}
	return sections, nil
}

func (l *Locator) questionCards(ctx context.Context, section *model.ResourceNode) ([]*model.ResourceNode, error) {
	sel, doc, err := l.element(ctx, section.Location)
	if err != nil {
		return nil, err
	}

	var leaves []*model.ResourceNode
	sel.Find(selQuestionCards).Each(func(_ int, card *goquery.Selection) {
		title := text(card.Find(selCardTitle))
		if title == "" {
			return
		}
		loc := ""
		if href, ok := card.Find(selQuestionDownload).First().Attr("href"); ok && href != "" {
			loc = absolute(doc, href)
		}
		leaves = append(leaves, model.NewNode(model.KindLeafFile, title, loc, model.GroupExamQuestions))
	})
	return leaves, nil
}

// element resolves a fragment location to the selection it names.
func (l *Locator) element(ctx context.Context, location string) (*goquery.Selection, *goquery.Document, error) {
	pageURL, path := splitFragment(location)
	if path == "" {
		return nil, nil, fmt.Errorf("location %q names no element", location)
	}
	doc, err := l.page(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	sel := doc.Selection
	for _, part := range strings.Split(path, "/") {
		if idx, ok := strings.CutPrefix(part, "item-"); ok {
			n, err := strconv.Atoi(idx)
			if err != nil {
				return nil, nil, fmt.Errorf("location %q: %w", location, err)
			}
			sel = sel.Find(selQuestionSections).Eq(n)
		} else {
			sel = sel.Find(fmt.Sprintf(`[data-cy=%q]`, part)).First()
		}
		if sel.Length() == 0 {
			return nil, nil, fmt.Errorf("%s: %w", part, ErrElementNotFound)
		}
	}
	return sel, doc, nil
}

// page returns the parsed page, loading it on first use.
func (l *Locator) page(ctx context.Context, pageURL string) (*goquery.Document, error) {
	l.mu.Lock()
	doc, ok := l.pages[pageURL]
	l.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := fetchDocument(ctx, l.client, pageURL, l.timeout)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("url", pageURL).Msg("page loaded")

	l.mu.Lock()
	l.pages[pageURL] = doc
	l.mu.Unlock()
	return doc, nil
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.First().Text())
}

// absolute resolves href against the document's URL.
func absolute(doc *goquery.Document, href string) string {
	href = strings.TrimSpace(href)
	if doc.Url == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return doc.Url.ResolveReference(ref).String()
}

func withFragment(pageURL, path string) string {
	base, _ := splitFragment(pageURL)
	return base + "#" + path
}

func splitFragment(location string) (string, string) {
	base, frag, _ := strings.Cut(location, "#")
	return base, frag
}
