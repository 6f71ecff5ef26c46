package rbac

// NavItem is a single navigation entry
type NavItem struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Path   string            `json:"path"`
	Icon   string            `json:"icon,omitempty"`
	Access AccessRequirement `json:"-"`
}

// NavSection groups navigation entries. Dynamic sections have their items
// populated at runtime (for example from the user's teams) and are shown even
// when they have no items yet.
type NavSection struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Access  AccessRequirement `json:"-"`
	Items   []NavItem         `json:"items"`
	Dynamic bool              `json:"dynamic,omitempty"`
}

// FilterNavigation returns the sections and items visible to user. A static
// section is dropped when none of its items survive. The input is not modified.
func FilterNavigation(user *User, sections []NavSection) []NavSection {
	visible := make([]NavSection, 0, len(sections))
	for _, section := range sections {
		if !CanAccess(user, section.Access) {
			continue
		}

		items := make([]NavItem, 0, len(section.Items))
		for _, item := range section.Items {
			if CanAccess(user, item.Access) {
				items = append(items, item)
			}
		}

		if len(items) == 0 && !section.Dynamic {
			continue
		}

		filtered := section
		filtered.Items = items
		visible = append(visible, filtered)
	}
	return visible
}
