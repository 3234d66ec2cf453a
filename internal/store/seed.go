package store

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/todo-crud/internal/model"
)

// SeedUsers is the number of distinct user ids seeded todos are spread over.
const SeedUsers = 10

// Seed inserts n deterministic todos titled "todo N". User ids cycle through
// 1..SeedUsers in blocks, and every third todo starts completed.
func Seed(ctx context.Context, s Store, n int) error {
	perUser := (n + SeedUsers - 1) / SeedUsers
	for i := 1; i <= n; i++ {
		todo := &model.Todo{
			UserID:    (i-1)/perUser + 1,
			Title:     fmt.Sprintf("todo %d", i),
			Completed: i%3 == 0,
		}
		if _, err := s.Create(ctx, todo); err != nil {
			return fmt.Errorf("seed todo %d: %w", i, err)
		}
	}
	return nil
}
