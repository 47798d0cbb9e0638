package usecase

import (
	"context"
	"strings"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/apperror"
)

type searchUsecase struct {
	index domain.SearchIndex
}

func NewSearchUsecase(index domain.SearchIndex) domain.SearchUsecase {
	return &searchUsecase{index: index}
}

// Search runs a multi-field match over title, description and required
// skills. An empty or whitespace-only query matches nothing.
func (u *searchUsecase) Search(ctx context.Context, query string, limit int) ([]domain.SearchDocument, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.SearchDocument{}, nil
	}
	if limit < 1 {
		limit = domain.DefaultPageLimit
	}
	if limit > domain.MaxPageLimit {
		limit = domain.MaxPageLimit
	}

	docs, err := u.index.Search(ctx, query, domain.SearchFields, limit)
	if err != nil {
		return nil, apperror.IndexOperation(err)
	}
	if docs == nil {
		docs = []domain.SearchDocument{}
	}
	return docs, nil
}
