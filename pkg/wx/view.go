package wx

// NumericView projects a table onto its numeric imputation targets.
// Station and time identifiers come along as predictors; latitude,
// longitude and elevation are excluded because they are constant per
// station. Columns are shared with the underlying table, so filling a
// value through the view updates the table as well.
type NumericView struct {
	StationIDs []string
	TimeIDs    []int
	Columns    []*Column
}

// NumericView returns the projection of t onto the schema's target
// columns. Targets the table does not have (or that cleaning dropped)
// are simply not part of the view. AssignTimeIDs must have run first.
func (t *Table) NumericView(s Schema) *NumericView {
	v := &NumericView{
		StationIDs: t.StationIDs,
		TimeIDs:    t.TimeIDs,
	}
	for _, name := range s.Targets {
		if c := t.Column(name); c != nil && c.Kind == Numeric {
			v.Columns = append(v.Columns, c)
		}
	}
	return v
}

func (v *NumericView) Nrow() int {
	return len(v.StationIDs)
}
