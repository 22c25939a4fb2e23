package model

// Collection is the ordered set of fields that makes up one form. Order is
// display order.
type Collection []*Field

// Index returns the position of id or -1.
func (c Collection) Index(id string) int {
	for i, field := range c {
		if field != nil && field.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the first field with id.
func (c Collection) Find(id string) (*Field, bool) {
	if idx := c.Index(id); idx >= 0 {
		return c[idx], true
	}
	return nil, false
}

// Clone copies the slice; the field pointers are shared.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Values maps field ids to plain string/bool payloads.
func (c Collection) Values() map[string]any {
	out := make(map[string]any, len(c))
	for _, field := range c {
		if field == nil {
			continue
		}
		out[field.ID] = field.Value.Interface()
	}
	return out
}

// Errors maps field ids to their current message, omitting valid fields.
func (c Collection) Errors() map[string]string {
	out := make(map[string]string)
	for _, field := range c {
		if field.HasError() {
			out[field.ID] = field.Error
		}
	}
	return out
}

// Duplicates lists ids that appear more than once, in first-seen order.
func (c Collection) Duplicates() []string {
	seen := make(map[string]int, len(c))
	var dupes []string
	for _, field := range c {
		if field == nil {
			continue
		}
		seen[field.ID]++
		if seen[field.ID] == 2 {
			dupes = append(dupes, field.ID)
		}
	}
	return dupes
}

// Check validates every field and rejects duplicate ids.
func (c Collection) Check() error {
	for _, field := range c {
		if err := field.Check(); err != nil {
			return err
		}
	}
	if dupes := c.Duplicates(); len(dupes) > 0 {
		return &DuplicateIDError{IDs: dupes}
	}
	return nil
}

// DuplicateIDError reports ids that occur more than once in a collection.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	return "model: duplicate field ids " + joinQuoted(e.IDs)
}

func joinQuoted(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += "\"" + id + "\""
	}
	return out
}
