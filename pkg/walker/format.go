package walker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/bpdoc/pkg/blueprint"
	"github.com/matzehuels/bpdoc/pkg/entity"
)

// Formatter renders a pin's literal default value for display. Returning an
// error keeps the raw literal and records a bad-default warning.
type Formatter func(raw string, t blueprint.PinType) (string, error)

// objectCategories hold a class, struct, or enum in SubCategoryObject and
// therefore produce type references.
var objectCategories = map[string]bool{
	"object":     true,
	"class":      true,
	"softobject": true,
	"softclass":  true,
	"interface":  true,
	"struct":     true,
	"enum":       true,
	"byte":       true,
}

var defaultFormatters = map[string]Formatter{
	"exec":       formatNone,
	"wildcard":   formatNone,
	"bool":       formatBool,
	"byte":       formatByte,
	"int":        formatInt(32),
	"int64":      formatInt(64),
	"float":      formatFloat,
	"real":       formatFloat,
	"double":     formatFloat,
	"string":     formatVerbatim,
	"name":       formatVerbatim,
	"text":       formatText,
	"object":     formatObject,
	"class":      formatObject,
	"softobject": formatObject,
	"softclass":  formatObject,
	"interface":  formatObject,
	"struct":     formatVerbatim,
	"enum":       formatVerbatim,
	"delegate":   formatNone,
	"mcdelegate": formatNone,
}

func formatNone(string, blueprint.PinType) (string, error) { return "", nil }

func formatVerbatim(raw string, _ blueprint.PinType) (string, error) { return raw, nil }

func formatBool(raw string, _ blueprint.PinType) (string, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("not a boolean")
	}
	return strconv.FormatBool(b), nil
}

// formatByte handles plain bytes and byte-backed enums, whose defaults are
// enumerator names.
func formatByte(raw string, t blueprint.PinType) (string, error) {
	if t.SubCategoryObject != "" {
		return raw, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return "", fmt.Errorf("not a byte")
	}
	return strconv.FormatUint(v, 10), nil
}

func formatInt(bits int) Formatter {
	return func(raw string, _ blueprint.PinType) (string, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, bits)
		if err != nil {
			return "", fmt.Errorf("not an int%d", bits)
		}
		return strconv.FormatInt(v, 10), nil
	}
}

func formatFloat(raw string, _ blueprint.PinType) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", fmt.Errorf("not a number")
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

// formatText unwraps localized text literals such as
// NSLOCTEXT("ns", "key", "Hello") to their source string.
func formatText(raw string, _ blueprint.PinType) (string, error) {
	if !strings.HasPrefix(raw, "NSLOCTEXT(") && !strings.HasPrefix(raw, "LOCTEXT(") {
		return raw, nil
	}
	end := strings.LastIndex(raw, "\"")
	if end <= 0 {
		return raw, nil
	}
	start := strings.LastIndex(raw[:end], "\"")
	if start < 0 {
		return raw, nil
	}
	return raw[start+1 : end], nil
}

// formatObject shortens object paths to the object name. "None" and empty
// values mean no default.
func formatObject(raw string, _ blueprint.PinType) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" {
		return "", nil
	}
	if i := strings.LastIndexAny(raw, "./"); i >= 0 && i < len(raw)-1 {
		raw = raw[i+1:]
	}
	return strings.Trim(raw, "'\""), nil
}

// describeType builds the display form of a pin type and, for object-like
// categories, a pending reference to the named type.
func describeType(t blueprint.PinType) entity.TypeDescriptor {
	category := strings.ToLower(t.Category)
	d := entity.TypeDescriptor{
		Category:    category,
		SubCategory: t.SubCategoryObject,
		Container:   strings.ToLower(t.Container),
	}

	base := category
	if t.SubCategoryObject != "" {
		base = entity.DisplayClassName(t.SubCategoryObject)
		if objectCategories[category] {
			ref := entity.Pending(entity.ClassID(t.SubCategoryObject))
			d.Ref = &ref
		}
	}

	switch d.Container {
	case "array":
		d.Display = "Array<" + base + ">"
	case "set":
		d.Display = "Set<" + base + ">"
	case "map":
		d.Display = "Map<" + base + ">"
	default:
		d.Display = base
	}
	return d
}
