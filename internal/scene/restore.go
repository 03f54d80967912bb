package scene

// Restore validates a stored collection before handing it to the editor.
// Tombstones and degenerate elements that lost their identity are pruned;
// they only matter while reconciling, not when presenting a loaded scene.
func Restore(elements []Element) []Element {
	restored := make([]Element, 0, len(elements))
	for i := range elements {
		if elements[i].ID == "" || elements[i].Deleted {
			continue
		}
		restored = append(restored, elements[i])
	}
	return restored
}
