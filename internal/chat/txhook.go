package chat

import (
	"context"

	"gorm.io/gorm"
)

// postCommit collects hooks registered during a transaction. Hooks run in
// registration order, only after the transaction has durably committed; a
// rollback discards them untouched.
type postCommit struct {
	hooks []func()
}

func (p *postCommit) add(hook func()) {
	p.hooks = append(p.hooks, hook)
}

func (p *postCommit) run() {
	for _, hook := range p.hooks {
		hook()
	}
}

// transact wraps fn in one gorm transaction and gives it a post-commit hook
// list. Any error from fn rolls the whole transaction back and no hook runs.
func (s *Service) transact(ctx context.Context, fn func(tx *gorm.DB, after *postCommit) error) error {
	after := &postCommit{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, after)
	})
	if err != nil {
		return err
	}
	after.run()
	return nil
}
