package checkin

// Selection is a site picked for check-in and the work types chosen for it.
type Selection struct {
	SiteID    int64   `json:"site_id"`
	WorkTypes []int64 `json:"work_types"`
}

// Selections is the ordered set of picked sites for one period.
type Selections []Selection

func (s Selections) index(siteID int64) int {
	for i, sel := range s {
		if sel.SiteID == siteID {
			return i
		}
	}
	return -1
}

// Contains reports whether the site is selected.
func (s Selections) Contains(siteID int64) bool {
	return s.index(siteID) >= 0
}

// ToggleSite removes the site when selected, otherwise appends it with no work types.
func (s Selections) ToggleSite(siteID int64) Selections {
	if i := s.index(siteID); i >= 0 {
		return s.without(i)
	}
	out := s.clone()
	return append(out, Selection{SiteID: siteID, WorkTypes: []int64{}})
}

// ToggleWorkType flips a work type for a site. Selecting a work type on an
// unselected site selects the site too; clearing the last work type of a
// site deselects it.
func (s Selections) ToggleWorkType(siteID, workTypeID int64) Selections {
	i := s.index(siteID)
	if i < 0 {
		out := s.clone()
		return append(out, Selection{SiteID: siteID, WorkTypes: []int64{workTypeID}})
	}

	out := s.clone()
	sel := out[i]
	for j, wt := range sel.WorkTypes {
		if wt != workTypeID {
			continue
		}
		remaining := make([]int64, 0, len(sel.WorkTypes)-1)
		remaining = append(remaining, sel.WorkTypes[:j]...)
		remaining = append(remaining, sel.WorkTypes[j+1:]...)
		if len(remaining) == 0 {
			return out.without(i)
		}
		out[i].WorkTypes = remaining
		return out
	}

	wts := make([]int64, 0, len(sel.WorkTypes)+1)
	wts = append(wts, sel.WorkTypes...)
	out[i].WorkTypes = append(wts, workTypeID)
	return out
}

// MissingWorkTypes returns the sites selected without any work type, in selection order.
func (s Selections) MissingWorkTypes() []int64 {
	var ids []int64
	for _, sel := range s {
		if len(sel.WorkTypes) == 0 {
			ids = append(ids, sel.SiteID)
		}
	}
	return ids
}

func (s Selections) without(i int) Selections {
	out := make(Selections, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func (s Selections) clone() Selections {
	out := make(Selections, len(s), len(s)+1)
	for i, sel := range s {
		wts := make([]int64, len(sel.WorkTypes))
		copy(wts, sel.WorkTypes)
		out[i] = Selection{SiteID: sel.SiteID, WorkTypes: wts}
	}
	return out
}
