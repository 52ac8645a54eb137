package catalog

const (
	SearchByTitle    = "title"
	SearchByAuthor   = "author"
	SearchByCategory = "category"

	SortName              = "name"
	SortAuthor            = "author"
	SortTotalQuantity     = "totalQuantity"
	SortAvailableQuantity = "availableQuantity"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

type SearchQuery struct {
	By    string
	Q     string
	Sort  string
	Order string
}

// normalize never fails: unknown fields fall back to title / name / asc.
func (q SearchQuery) normalize() SearchQuery {
	switch q.By {
	case SearchByTitle, SearchByAuthor, SearchByCategory:
	default:
		q.By = SearchByTitle
	}
	switch q.Sort {
	case SortName, SortAuthor, SortTotalQuantity, SortAvailableQuantity:
	case "title":
		q.Sort = SortName
	default:
		q.Sort = SortName
		q.Order = OrderAsc
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		q.Order = OrderAsc
	}
	q.Q = NormalizeName(q.Q)
	return q
}

type AddTitleRequest struct {
	Name       string   `json:"name" binding:"required"`
	Author     string   `json:"author,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Quantity   int      `json:"quantity" binding:"required"`
}

type AddTitleResponse struct {
	TitleID uint64   `json:"title_id"`
	Created bool     `json:"created"`
	Copies  []string `json:"copies"`
}

type TitleResponse struct {
	TitleID           uint64   `json:"title_id"`
	Name              string   `json:"name"`
	Author            string   `json:"author,omitempty"`
	Categories        []string `json:"categories"`
	TotalQuantity     int      `json:"total_quantity"`
	AvailableQuantity int      `json:"available_quantity"`
}

type SearchResult struct {
	Items     []TitleResponse `json:"items"`
	SearchBy  string          `json:"search_by"`
	Query     string          `json:"q,omitempty"`
	SortBy    string          `json:"sort_by"`
	SortOrder string          `json:"sort_order"`
}
