package normalize

// TaskChange is the canonical shape of a secondary-store change
// notification: the task it concerns, its current tags, and any tags a
// change-history entry reports as just added.
type TaskChange struct {
	TaskID    string
	Tags      []string
	AddedTags []string
}

var addedTagPaths = fieldPaths{
	{"changes", "tags", "added"},
	{"diff", "tags", "added"},
	{"added_tags"},
}

// ParseTaskChange extracts a task-change notification. The task object may
// sit at the top level or under a "task" or "event" wrapper. The second
// return is false when no task id can be found.
func ParseTaskChange(payload map[string]any) (*TaskChange, bool) {
	node := taskNode(payload)
	if node == nil {
		return nil, false
	}
	id := asString(node["id"])
	if id == "" {
		return nil, false
	}
	return &TaskChange{
		TaskID:    id,
		Tags:      tagNames(node["tags"]),
		AddedTags: probeTags(node),
	}, true
}

// HasTag reports whether tag is present in the current tag set or was just
// added per the change history.
func (t *TaskChange) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	for _, have := range t.AddedTags {
		if have == tag {
			return true
		}
	}
	return false
}

func taskNode(payload map[string]any) map[string]any {
	for _, carrier := range []string{"task", "event"} {
		if node, ok := payload[carrier].(map[string]any); ok {
			return node
		}
	}
	if _, ok := payload["id"]; ok {
		return payload
	}
	return nil
}

func probeTags(node map[string]any) []string {
	for _, path := range addedTagPaths {
		if names := tagNames(dig(node, path...)); len(names) > 0 {
			return names
		}
	}
	return nil
}

// tagNames flattens a tag list that may hold plain strings or objects with
// a name/title field.
func tagNames(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, item := range items {
		switch tag := item.(type) {
		case string:
			names = append(names, tag)
		case map[string]any:
			if name := asString(tag["name"]); name != "" {
				names = append(names, name)
			} else if title := asString(tag["title"]); title != "" {
				names = append(names, title)
			}
		}
	}
	return names
}
