package author

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=author

type Repository interface {
	List(ctx context.Context, q Query) ([]Author, int, error)
	GetByID(ctx context.Context, id string) (Author, error)
	Create(ctx context.Context, a *Author) error
	Update(ctx context.Context, id string, u Update) (Author, error)
	Delete(ctx context.Context, id string) error
}
