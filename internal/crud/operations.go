package crud

import (
	"context"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// Operations holds the backing data-access functions of a store. A nil
// function means the corresponding operation is not exposed. Any function
// with the right shape can back an operation, so callers are free to map
// arbitrarily named service methods onto the CRUD slots.
type Operations[K comparable, T model.Entity[K]] struct {
	Create  func(ctx context.Context, entity T) (T, error)
	ReadAll func(ctx context.Context, query any) ([]T, error)
	ReadOne func(ctx context.Context, id K) (T, error)
	Update  func(ctx context.Context, entity T) (T, error)
	Delete  func(ctx context.Context, entity T) error
}

// Config reports which operations have a backing function.
func (o Operations[K, T]) Config() Config {
	return Config{
		Create:  o.Create != nil,
		ReadAll: o.ReadAll != nil,
		ReadOne: o.ReadOne != nil,
		Update:  o.Update != nil,
		Delete:  o.Delete != nil,
	}
}

// Only returns a copy with every operation not enabled in cfg removed.
func (o Operations[K, T]) Only(cfg Config) Operations[K, T] {
	if !cfg.Create {
		o.Create = nil
	}
	if !cfg.ReadAll {
		o.ReadAll = nil
	}
	if !cfg.ReadOne {
		o.ReadOne = nil
	}
	if !cfg.Update {
		o.Update = nil
	}
	if !cfg.Delete {
		o.Delete = nil
	}
	return o
}

// CreateService is a data-access object able to create entities.
type CreateService[T any] interface {
	Create(ctx context.Context, entity T) (T, error)
}

// ReadAllService is a data-access object able to list entities.
type ReadAllService[T any] interface {
	ReadAll(ctx context.Context, query any) ([]T, error)
}

// ReadOneService is a data-access object able to fetch a single entity.
type ReadOneService[K comparable, T any] interface {
	ReadOne(ctx context.Context, id K) (T, error)
}

// UpdateService is a data-access object able to update entities.
type UpdateService[T any] interface {
	Update(ctx context.Context, entity T) (T, error)
}

// DeleteService is a data-access object able to delete entities.
type DeleteService[T any] interface {
	Delete(ctx context.Context, entity T) error
}

// Service is a data-access object implementing every operation.
type Service[K comparable, T any] interface {
	CreateService[T]
	ReadAllService[T]
	ReadOneService[K, T]
	UpdateService[T]
	DeleteService[T]
}

// FromService resolves the operations enabled in cfg against svc. Services
// may implement only the subset they support; an enabled operation the
// service does not implement is reported as ErrServiceMissing.
func FromService[K comparable, T model.Entity[K]](svc any, cfg Config) (Operations[K, T], error) {
	var (
		ops     Operations[K, T]
		missing []string
	)

	if cfg.Create {
		if s, ok := svc.(CreateService[T]); ok {
			ops.Create = s.Create
		} else {
			missing = append(missing, OpCreate.String())
		}
	}
	if cfg.ReadAll {
		if s, ok := svc.(ReadAllService[T]); ok {
			ops.ReadAll = s.ReadAll
		} else {
			missing = append(missing, OpReadAll.String())
		}
	}
	if cfg.ReadOne {
		if s, ok := svc.(ReadOneService[K, T]); ok {
			ops.ReadOne = s.ReadOne
		} else {
			missing = append(missing, OpReadOne.String())
		}
	}
	if cfg.Update {
		if s, ok := svc.(UpdateService[T]); ok {
			ops.Update = s.Update
		} else {
			missing = append(missing, OpUpdate.String())
		}
	}
	if cfg.Delete {
		if s, ok := svc.(DeleteService[T]); ok {
			ops.Delete = s.Delete
		} else {
			missing = append(missing, OpDelete.String())
		}
	}

	if len(missing) > 0 {
		return Operations[K, T]{}, fmt.Errorf("resolve operations: %w: %s",
			ErrServiceMissing, strings.Join(missing, ", "))
	}
	return ops, nil
}

// FilterReadAll wraps a list function so that only entities accepted by
// keep reach the store.
func FilterReadAll[T any](
	fn func(ctx context.Context, query any) ([]T, error),
	keep func(T) bool,
) func(ctx context.Context, query any) ([]T, error) {
	if fn == nil || keep == nil {
		return fn
	}
	return func(ctx context.Context, query any) ([]T, error) {
		items, err := fn(ctx, query)
		if err != nil {
			return nil, err
		}
		kept := make([]T, 0, len(items))
		for _, item := range items {
			if keep(item) {
				kept = append(kept, item)
			}
		}
		return kept, nil
	}
}
