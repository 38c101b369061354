package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrLeafHasChildren is returned when children are attached to a leaf file.
var ErrLeafHasChildren = errors.New("leaf file cannot have children")

// Kind discriminates the levels of the resource hierarchy.
type Kind int

const (
	KindSubject Kind = iota
	KindResourceGroup
	KindSection
	KindSubSection
	KindLeafFile
)

// String returns a human readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSubject:
		return "subject"
	case KindResourceGroup:
		return "resource group"
	case KindSection:
		return "section"
	case KindSubSection:
		return "sub-section"
	case KindLeafFile:
		return "leaf file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// GroupKind identifies which of the two resource groups a node belongs to.
//
// The two groups have a fixed, different depth:
//   - Revision Notes: group → section → sub-section → leaf
//   - Exam Questions: group → section → leaf
type GroupKind int

const (
	GroupUnknown GroupKind = iota
	GroupRevisionNotes
	GroupExamQuestions
)

// Group titles as they appear on the subject page.
const (
	RevisionNotesTitle = "Revision Notes"
	ExamQuestionsTitle = "Exam Questions"
)

// ParseGroupKind maps a resource link title to its GroupKind.
func ParseGroupKind(title string) GroupKind {
	switch strings.TrimSpace(title) {
	case RevisionNotesTitle:
		return GroupRevisionNotes
	case ExamQuestionsTitle:
		return GroupExamQuestions
	default:
		return GroupUnknown
	}
}

// String returns the group title.
func (g GroupKind) String() string {
	switch g {
	case GroupRevisionNotes:
		return RevisionNotesTitle
	case GroupExamQuestions:
		return ExamQuestionsTitle
	default:
		return "Unknown"
	}
}

// ResourceNode is a node in the document hierarchy.
//
// Location is an opaque handle produced and consumed by a content locator;
// nothing else interprets it. Children are filled in lazily while the tree
// is walked.
type ResourceNode struct {
	Kind     Kind
	Title    string
	Location string
	Group    GroupKind
	Children []*ResourceNode
}

// NewNode creates a node with a sanitized title.
func NewNode(kind Kind, title, location string, group GroupKind) *ResourceNode {
	return &ResourceNode{
		Kind:     kind,
		Title:    SanitizeTitle(title),
		Location: location,
		Group:    group,
	}
}

// IsLeaf reports whether the node is a downloadable file.
func (n *ResourceNode) IsLeaf() bool {
	return n.Kind == KindLeafFile
}

// FileName returns the on-disk name of a leaf file.
func (n *ResourceNode) FileName() string {
	return n.Title + ".pdf"
}

// AddChildren attaches listed children to the node.
func (n *ResourceNode) AddChildren(children ...*ResourceNode) error {
	if n.IsLeaf() {
		return ErrLeafHasChildren
	}
	n.Children = append(n.Children, children...)
	return nil
}

// ChildKind returns the kind expected one level below n.
//
// Exam question sections hold leaf files directly, revision note sections
// hold sub-sections.
func (n *ResourceNode) ChildKind() (Kind, error) {
	switch n.Kind {
	case KindSubject:
		return KindResourceGroup, nil
	case KindResourceGroup:
		return KindSection, nil
	case KindSection:
		switch n.Group {
		case GroupRevisionNotes:
			return KindSubSection, nil
		case GroupExamQuestions:
			return KindLeafFile, nil
		default:
			return 0, fmt.Errorf("section %q has no known resource group", n.Title)
		}
	case KindSubSection:
		return KindLeafFile, nil
	case KindLeafFile:
		return 0, ErrLeafHasChildren
	default:
		return 0, fmt.Errorf("unknown node kind %d", int(n.Kind))
	}
}

var (
	invalidTitleChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots      = regexp.MustCompile(`\.+$`)
	repeatedSpace     = regexp.MustCompile(`\s+`)
)

// SanitizeTitle makes a page title usable as a single path segment.
//
// The first colon becomes a dash ("Topic 1: Cells" → "Topic 1- Cells"),
// which keeps existing download trees stable. Any other character that is
// invalid in file names on Windows is replaced by an underscore.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Replace(title, ":", "-", 1)
	title = invalidTitleChars.ReplaceAllString(title, "_")
	title = trailingDots.ReplaceAllString(title, "")
	title = repeatedSpace.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
