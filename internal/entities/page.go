package entities

import "fmt"

// Subject is the domain instance a page is about
type Subject struct {
	Type TypeName
	ID   string
}

// String returns the subject reference
// Format: type:id
func (s *Subject) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}

// PageContext describes the page being loaded
type PageContext struct {
	Subject *Subject // nil when the page has no subject (e.g., dashboards)
	Path    string   // URL path of the page
}

// SubjectType returns the subject type, or "" when there is no subject
func (p PageContext) SubjectType() TypeName {
	if p.Subject == nil {
		return ""
	}
	return p.Subject.Type
}

// PageKind selects the widget set registered for a page
type PageKind int

const (
	PageKindOther      PageKind = iota
	PageKindPrimary             // Subject is the first central type
	PageKindSecondary           // Subject is the second central type
	PageKindAggregator          // Subject is the person-like aggregator type
)

// String returns the page kind name
func (k PageKind) String() string {
	switch k {
	case PageKindPrimary:
		return "primary"
	case PageKindSecondary:
		return "secondary"
	case PageKindAggregator:
		return "aggregator"
	default:
		return "other"
	}
}

// MappingPrefix is the relation name prefix used by central type widgets
type MappingPrefix string

const (
	PrefixRelated MappingPrefix = "related_"
	PrefixOwned   MappingPrefix = "owned_"
	PrefixAll     MappingPrefix = "all_"
)

// Mapping returns the relation name for a table plural
// Example: PrefixOwned.Mapping("risks") = "owned_risks"
func (p MappingPrefix) Mapping(tablePlural string) string {
	return string(p) + tablePlural
}
