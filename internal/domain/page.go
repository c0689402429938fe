package domain

// Page - номер страницы (с нуля) и ее размер
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

func (p Page) Offset() int {
	return p.Number * p.Size
}

// Normalize приводит страницу к допустимым границам
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

type PageResult[T any] struct {
	Items  []T   `json:"content"`
	Total  int64 `json:"total_elements"`
	Number int   `json:"page"`
	Size   int   `json:"size"`
}

func (r PageResult[T]) TotalPages() int {
	if r.Size <= 0 {
		return 0
	}
	return int((r.Total + int64(r.Size) - 1) / int64(r.Size))
}

func NewPageResult[T any](items []T, total int64, page Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Total: total, Number: page.Number, Size: page.Size}
}
