// Package paginator partitions the site tree's flattened item list into
// fixed-size pages and answers whether a requested page exists.
package paginator

// Paginator splits totalItems into pages of itemsPerPage each. Page
// numbering starts at 1; a requested number of 0 means the canonical
// first page.
type Paginator struct {
	itemsPerPage  int
	requestedPage int
	totalItems    int
}

func New(itemsPerPage, requestedPage int) *Paginator {
	if itemsPerPage <= 0 {
		itemsPerPage = 1
	}
	if requestedPage < 1 {
		requestedPage = 1
	}
	return &Paginator{
		itemsPerPage:  itemsPerPage,
		requestedPage: requestedPage,
	}
}

// SetTotalItems records the size of the listing once it is known.
func (p *Paginator) SetTotalItems(n int) {
	p.totalItems = n
}

func (p *Paginator) TotalItems() int { return p.totalItems }

func (p *Paginator) RequestedPage() int { return p.requestedPage }

// NumberOfPages is at least 1, even for an empty listing.
func (p *Paginator) NumberOfPages() int {
	if p.totalItems <= p.itemsPerPage {
		return 1
	}
	return (p.totalItems + p.itemsPerPage - 1) / p.itemsPerPage
}

// RequestedPageExists reports whether the requested page falls within
// the listing.
func (p *Paginator) RequestedPageExists() bool {
	return p.requestedPage <= p.NumberOfPages()
}

// Window returns the half-open item range [start, end) of the requested
// page.
func (p *Paginator) Window() (int, int) {
	start := (p.requestedPage - 1) * p.itemsPerPage
	if start > p.totalItems {
		start = p.totalItems
	}
	end := start + p.itemsPerPage
	if end > p.totalItems {
		end = p.totalItems
	}
	return start, end
}
