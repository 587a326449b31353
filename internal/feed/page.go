// Package feed composes the paginated post sequences shown on the home,
// explore and profile pages.
package feed

import (
	"context"
	"errors"
	"math"

	"github.com/isdelr/microblog-be/internal/models"
)

// ErrPageNotFound is returned when a strict listing is asked for a page it does not have.
var ErrPageNotFound = errors.New("page not found")

// OrderedReader reads a window of an ordered post collection, newest first.
type OrderedReader interface {
	ReadRange(ctx context.Context, offset, limit int) ([]models.Post, error)
}

// ReaderFunc adapts a function to OrderedReader.
type ReaderFunc func(ctx context.Context, offset, limit int) ([]models.Post, error)

func (f ReaderFunc) ReadRange(ctx context.Context, offset, limit int) ([]models.Post, error) {
	return f(ctx, offset, limit)
}

// Page is one page of a feed.
type Page struct {
	Posts   []models.Post `json:"posts"`
	Number  int           `json:"page"`
	PerPage int           `json:"perPage"`
	HasNext bool          `json:"hasNext"`
	HasPrev bool          `json:"hasPrev"`
	NextNum int           `json:"nextNum,omitempty"`
	PrevNum int           `json:"prevNum,omitempty"`
}

// Paginate reads page number page (1-indexed) of perPage posts. One extra
// post is read to learn whether a next page exists.
func Paginate(ctx context.Context, r OrderedReader, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	p := Page{
		Posts:   []models.Post{},
		Number:  page,
		PerPage: perPage,
		HasPrev: page > 1,
		PrevNum: page - 1,
	}
	// The offset of such a page does not fit in an int, so nothing is there.
	if page-1 > (math.MaxInt-perPage-1)/perPage {
		return p, nil
	}

	posts, err := r.ReadRange(ctx, (page-1)*perPage, perPage+1)
	if err != nil {
		return Page{}, err
	}
	if posts != nil {
		p.Posts = posts
	}
	if len(posts) > perPage {
		p.Posts = posts[:perPage]
		p.HasNext = true
		p.NextNum = page + 1
	}
	return p, nil
}
