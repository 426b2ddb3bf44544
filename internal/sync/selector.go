package sync

import (
	"github.com/marcus/todosync/internal/models"
)

// DirtySet returns the records that must be pushed, preserving the
// store's insertion order. Pure: no side effects, and repeated calls
// over an unmutated replica return the identical set.
func DirtySet(all []*models.Todo) []*models.Todo {
	var dirty []*models.Todo
	for _, t := range all {
		if t.Dirty() {
			dirty = append(dirty, t)
		}
	}
	return dirty
}
