package blueprint

// ExecPin returns an execution pin.
func ExecPin(name string, dir Direction) Pin {
	return Pin{Name: name, Direction: dir, Type: PinType{Category: "exec"}}
}

// DataPin returns a data pin of the given category. For object-like
// categories sub names the class, struct, or enum.
func DataPin(name string, dir Direction, category, sub string) Pin {
	return Pin{Name: name, Direction: dir, Type: PinType{Category: category, SubCategoryObject: sub}}
}

// WithDefault returns a copy of p carrying a literal default value.
func (p Pin) WithDefault(v string) Pin {
	p.Default = &v
	return p
}
