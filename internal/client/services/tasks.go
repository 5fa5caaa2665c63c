package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
)

// TaskEditor computes a todo's new task list. Implementations receive a
// private copy of the current list and may modify it.
type TaskEditor interface {
	Append(tasks []models.Task, text string) ([]models.Task, error)
	Remove(tasks []models.Task, index int) ([]models.Task, error)
	SetCompleted(tasks []models.Task, index int, completed bool) ([]models.Task, error)
}

// IndexTaskEditor addresses tasks by their position in the current list.
// Two sessions editing the same list can therefore hit the wrong task.
type IndexTaskEditor struct{}

func checkIndex(tasks []models.Task, index int) error {
	if index < 0 || index >= len(tasks) {
		return fmt.Errorf("%w: task index %d out of range [0,%d)", ErrValidation, index, len(tasks))
	}
	return nil
}

func (IndexTaskEditor) Append(tasks []models.Task, text string) ([]models.Task, error) {
	return append(tasks, models.Task{Text: text}), nil
}

func (IndexTaskEditor) Remove(tasks []models.Task, index int) ([]models.Task, error) {
	if err := checkIndex(tasks, index); err != nil {
		return nil, err
	}
	return slices.Delete(tasks, index, index+1), nil
}

func (IndexTaskEditor) SetCompleted(tasks []models.Task, index int, completed bool) ([]models.Task, error) {
	if err := checkIndex(tasks, index); err != nil {
		return nil, err
	}
	tasks[index].Completed = completed
	return tasks, nil
}

// Todos adds task editing to the todo collection.
type Todos struct {
	*Collection[models.Todo, *models.Todo]
	Editor TaskEditor
}

func (t *Todos) AddTask(ctx context.Context, todoID, text string) ([]models.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: task text is required", ErrValidation)
	}
	return t.editTasks(ctx, "add task", todoID, func(tasks []models.Task) ([]models.Task, error) {
		return t.Editor.Append(tasks, text)
	})
}

func (t *Todos) RemoveTask(ctx context.Context, todoID string, index int) ([]models.Task, error) {
	return t.editTasks(ctx, "remove task", todoID, func(tasks []models.Task) ([]models.Task, error) {
		return t.Editor.Remove(tasks, index)
	})
}

func (t *Todos) SetTaskCompleted(ctx context.Context, todoID string, index int, completed bool) ([]models.Task, error) {
	return t.editTasks(ctx, "set task completed", todoID, func(tasks []models.Task) ([]models.Task, error) {
		return t.Editor.SetCompleted(tasks, index, completed)
	})
}

// editTasks reads the stored task list, applies fn and writes the whole
// list back. A todo deleted in the meantime fails the edit.
func (t *Todos) editTasks(ctx context.Context, op, id string, fn func([]models.Task) ([]models.Task, error)) ([]models.Task, error) {
	uid, err := t.authorize(ctx, op, id)
	if err != nil {
		return nil, err
	}

	doc, err := t.store.Read(ctx, t.kind.Collection(), id)
	if err != nil {
		return nil, storeError(ctx, t.logger, op, err)
	}
	current, err := models.Decode[models.Todo, *models.Todo](id, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next, err := fn(slices.Clone(current.Tasks))
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = []models.Task{}
	}

	if err := t.store.Update(ctx, t.kind.Collection(), id, docstore.Document{fieldTasks: tasksDocument(next)}); err != nil {
		return nil, storeError(ctx, t.logger, op, err)
	}

	t.session.editFor(uid, func(m *Mirror) {
		if i := slices.IndexFunc(m.Todos, func(td models.Todo) bool { return td.ID == id }); i >= 0 {
			m.Todos[i].Tasks = slices.Clone(next)
		}
	})
	return next, nil
}

func tasksDocument(tasks []models.Task) []any {
	out := make([]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, map[string]any{"text": task.Text, "completed": task.Completed})
	}
	return out
}
