package viewmodel

// URLsListTag is the tag of the assessment URL list component
const URLsListTag = "assessment-urls-list"

// URLsList lists the URLs mapped to an assessment
type URLsList struct {
	NoItemsText string // Shown when MappedItems is empty
	MappedItems []Item
}

// NewURLsList creates an empty list with no placeholder text
func NewURLsList() *URLsList {
	return &URLsList{MappedItems: []Item{}}
}

// IsEmpty reports whether the list has no mapped items
func (l *URLsList) IsEmpty() bool {
	return len(l.MappedItems) == 0
}
