package tasks

import (
	"fmt"
	"strings"
)

// TaskNotFoundError is returned for a task name that was never registered.
// Known lists the registered names to help with typos in trigger requests.
type TaskNotFoundError struct {
	Name  string
	Known []string
}

func (e TaskNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown task '%s'", e.Name)
	}
	return fmt.Sprintf("unknown task '%s' (known: %s)", e.Name, strings.Join(e.Known, ", "))
}
