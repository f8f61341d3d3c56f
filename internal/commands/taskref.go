package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"tasklist/internal/exitcode"
	"tasklist/internal/manager"
	"tasklist/internal/task"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Pos int    // 1-based position in the full collection; 0 if ID is set
	ID  string // explicit task id; "" if Pos is set
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in the first argument.
//
// Parsing rules:
// 1. All digits (e.g., 3) → position in the full collection, as printed by list
// 2. '#' followed by an id (e.g., #1700000000000) → explicit task id
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{Pos: num}, nil
	}

	if id, ok := strings.CutPrefix(firstArg, "#"); ok && strings.TrimSpace(id) != "" {
		return TaskRef{ID: id}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// Resolve finds the referenced task in the full collection.
func (r TaskRef) Resolve(tasks []task.Task) (task.Task, error) {
	if r.ID != "" {
		for _, t := range tasks {
			if t.ID == r.ID {
				return t, nil
			}
		}
		return task.Task{}, fmt.Errorf("task not found: #%s", r.ID)
	}
	if r.Pos < 1 || r.Pos > len(tasks) {
		return task.Task{}, fmt.Errorf("task number out of range: %d", r.Pos)
	}
	return tasks[r.Pos-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// positions maps task ids to their 1-based position in the full collection.
func positions(tasks []task.Task) map[string]int {
	result := make(map[string]int, len(tasks))
	for i, t := range tasks {
		result[t.ID] = i + 1
	}
	return result
}

// lookupTask parses the reference in args and resolves it against the full
// collection. On failure it prints the error and returns a non-zero exit code.
func lookupTask(mgr *manager.Manager, args []string, errOut io.Writer) (task.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, exitcode.UserError
	}

	t, err := ref.Resolve(mgr.Tasks())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, exitcode.UserError
	}
	return t, exitcode.Success
}
