package cli

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
	"github.com/dmitrijs2005/linkstash/internal/client/services"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/spf13/afero"
)

func (a *App) printItem(item models.Item) {
	switch v := item.(type) {
	case models.Link:
		a.printf("link   %s  %s  <%s>\n", v.ID, v.Name, v.URL)
		if v.Description != "" {
			a.printf("       %s\n", v.Description)
		}
	case models.Note:
		a.printf("note   %s  %s\n", v.ID, v.Name)
		if first, _, _ := strings.Cut(v.Content, "\n"); first != "" {
			a.printf("       %s\n", first)
		}
	case models.Todo:
		done := 0
		for _, t := range v.Tasks {
			if t.Completed {
				done++
			}
		}
		a.printf("todo   %s  %s  (%d/%d)\n", v.ID, v.Title, done, len(v.Tasks))
		for i, t := range v.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			a.printf("       %d [%s] %s\n", i, mark, t.Text)
		}
	case models.Image:
		title := v.Title
		if title == "" {
			title = "(untitled)"
		}
		a.printf("image  %s  %s  (%d bytes)\n", v.ID, title, len(v.ImageData))
	}
}

func (a *App) printItems(seq iter.Seq[models.Item]) int {
	n := 0
	for item := range seq {
		a.printItem(item)
		n++
	}
	return n
}

// List prints the mirrored items, optionally of one kind.
func (a *App) List(ctx context.Context, args []string) error {
	filter := services.FilterAll
	if len(args) > 0 {
		f, err := services.ParseFilter(args[0])
		if err != nil {
			return a.report(err)
		}
		filter = f
	}
	if a.printItems(a.items.Search("", filter)) == 0 {
		a.println("No items.")
	}
	return nil
}

// Search prints the items containing the given text.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: search <text>")
		return nil
	}
	if a.printItems(a.items.Search(strings.Join(args, " "), services.FilterAll)) == 0 {
		a.println("Nothing found.")
	}
	return nil
}

// Reload fetches all items from the server again.
func (a *App) Reload(ctx context.Context) error {
	if err := a.items.LoadAll(ctx); err != nil {
		return a.report(err)
	}
	a.printf("%d items loaded.\n", a.accounts.Session().Mirror().Len())
	return nil
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// Add prompts for the fields of a new item of kind and stores it.
func (a *App) Add(ctx context.Context, kind models.Kind) error {
	var (
		id  string
		err error
	)
	switch kind {
	case models.KindLink:
		id, err = a.addLink(ctx)
	case models.KindNote:
		id, err = a.addNote(ctx)
	case models.KindTodo:
		id, err = a.addTodo(ctx)
	case models.KindImage:
		id, err = a.addImage(ctx)
	default:
		err = fmt.Errorf("%w: unknown item kind %q", services.ErrValidation, kind)
	}
	if err != nil {
		return a.report(err)
	}
	a.printf("Added %s %s\n", kind, id)
	return nil
}

func (a *App) cardColor() (string, error) {
	return a.ask("Card color (empty for default)")
}

func (a *App) addLink(ctx context.Context) (string, error) {
	var l models.Link
	var err error
	if l.Name, err = a.ask("Enter name"); err != nil {
		return "", err
	}
	if l.URL, err = a.ask("Enter URL"); err != nil {
		return "", err
	}
	if l.Description, err = a.ask("Enter description (optional)"); err != nil {
		return "", err
	}
	if l.CardColor, err = a.cardColor(); err != nil {
		return "", err
	}
	added, err := a.items.Links.Add(ctx, l)
	return added.ID, err
}

func (a *App) addNote(ctx context.Context) (string, error) {
	var n models.Note
	var err error
	if n.Name, err = a.ask("Enter name"); err != nil {
		return "", err
	}
	if n.Content, err = GetMultiline(a.reader, "Enter note text", a.out); err != nil {
		return "", err
	}
	if n.CardColor, err = a.cardColor(); err != nil {
		return "", err
	}
	added, err := a.items.Notes.Add(ctx, n)
	return added.ID, err
}

func (a *App) addTodo(ctx context.Context) (string, error) {
	var t models.Todo
	var err error
	if t.Title, err = a.ask("Enter title"); err != nil {
		return "", err
	}
	if t.Description, err = a.ask("Enter description (optional)"); err != nil {
		return "", err
	}
	tasks, err := GetMultiline(a.reader, "Enter tasks, one per line", a.out)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(tasks, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			t.Tasks = append(t.Tasks, models.Task{Text: line})
		}
	}
	if t.CardColor, err = a.cardColor(); err != nil {
		return "", err
	}
	added, err := a.items.Todos.Add(ctx, t)
	return added.ID, err
}

func (a *App) addImage(ctx context.Context) (string, error) {
	var img models.Image
	path, err := a.ask("Enter image file path")
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if img.ImageData, err = models.ImageDataURL(data); err != nil {
		return "", err
	}
	if img.Title, err = a.ask("Enter title"); err != nil {
		return "", err
	}
	if img.Description, err = a.ask("Enter description (optional)"); err != nil {
		return "", err
	}
	if img.CardColor, err = a.cardColor(); err != nil {
		return "", err
	}
	added, err := a.items.Images.Add(ctx, img)
	return added.ID, err
}

func parseKindArg(args []string, usage string) (models.Kind, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("%w: usage: %s", services.ErrValidation, usage)
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return "", "", err
	}
	return kind, args[1], nil
}

// fieldDocument converts prompted text fields into a partial document.
func fieldDocument(fields map[string]string) (docstore.Document, error) {
	d := docstore.Document{}
	for name, value := range fields {
		switch name {
		case "isShortened", "completed":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be true or false", services.ErrValidation, name)
			}
			d[name] = b
		case "tasks":
			return nil, fmt.Errorf("%w: use the task command to change tasks", services.ErrValidation)
		default:
			d[name] = value
		}
	}
	return d, nil
}

// Edit prompts for name=value pairs and merges them into an item.
func (a *App) Edit(ctx context.Context, args []string) error {
	kind, id, err := parseKindArg(args, "edit <kind> <id>")
	if err != nil {
		return a.report(err)
	}
	fields, err := GetFields(a.reader, "Fields to change", a.out)
	if err != nil {
		return a.report(fmt.Errorf("%w: %v", services.ErrValidation, err))
	}
	if len(fields) == 0 {
		a.println("Nothing to change.")
		return nil
	}
	partial, err := fieldDocument(fields)
	if err != nil {
		return a.report(err)
	}
	if err := a.items.Update(ctx, kind, id, partial); err != nil {
		return a.report(err)
	}
	a.println("Saved.")
	return nil
}

// Delete removes one of the user's items.
func (a *App) Delete(ctx context.Context, args []string) error {
	kind, id, err := parseKindArg(args, "delete <kind> <id>")
	if err != nil {
		return a.report(err)
	}
	if err := a.items.Remove(ctx, kind, id); err != nil {
		return a.report(err)
	}
	a.println("Deleted.")
	return nil
}

const taskUsage = "task add <todo-id> <text> | task rm|done|undo <todo-id> <n>"

// Task edits the task list of a todo.
func (a *App) Task(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return a.report(fmt.Errorf("%w: usage: %s", services.ErrValidation, taskUsage))
	}
	op, todoID := args[0], args[1]

	var (
		tasks []models.Task
		err   error
	)
	if op == "add" {
		tasks, err = a.items.Todos.AddTask(ctx, todoID, strings.Join(args[2:], " "))
	} else {
		index, convErr := strconv.Atoi(args[2])
		if convErr != nil {
			return a.report(fmt.Errorf("%w: %q is not a task number", services.ErrValidation, args[2]))
		}
		switch op {
		case "rm":
			tasks, err = a.items.Todos.RemoveTask(ctx, todoID, index)
		case "done":
			tasks, err = a.items.Todos.SetTaskCompleted(ctx, todoID, index, true)
		case "undo":
			tasks, err = a.items.Todos.SetTaskCompleted(ctx, todoID, index, false)
		default:
			err = fmt.Errorf("%w: usage: %s", services.ErrValidation, taskUsage)
		}
	}
	if err != nil {
		return a.report(err)
	}

	for i, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		a.printf("%d [%s] %s\n", i, mark, t.Text)
	}
	return nil
}
