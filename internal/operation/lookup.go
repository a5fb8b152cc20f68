package operation

import "fmt"

// ResolveLookupValue extracts a human-displayable value for a lookup field
// from a raw Dynamics record, trying each representation Dynamics may have
// returned, in priority order from most to least precise:
//
//  1. the attribute's formatted-value annotation
//  2. the attribute's own direct value
//  3. the lookup's navigation "name" annotation (`_attr_value@...FormattedValue`)
//  4. an expanded navigation object's name field (present only when the
//     record came from a query with `$expand` on navigationProperty)
//  5. the raw related-record id (`_attr_value`)
//
// navigationProperty/expandedNameField may be empty when the caller has no
// $expand for this field; step 4 is then skipped.
func ResolveLookupValue(record map[string]any, attribute, navigationProperty, expandedNameField string) (string, bool) {
	if v, ok := stringField(record, attribute+"@OData.Community.Display.V1.FormattedValue"); ok {
		return v, true
	}
	if v, ok := stringField(record, attribute); ok {
		return v, true
	}
	navValueKey := fmt.Sprintf("_%s_value", attribute)
	if v, ok := stringField(record, navValueKey+"@OData.Community.Display.V1.FormattedValue"); ok {
		return v, true
	}
	if navigationProperty != "" && expandedNameField != "" {
		if nested, ok := record[navigationProperty].(map[string]any); ok {
			if v, ok := stringField(nested, expandedNameField); ok {
				return v, true
			}
		}
	}
	if v, ok := stringField(record, navValueKey); ok {
		return v, true
	}
	return "", false
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ResolveLookupID returns the raw related-record GUID for a lookup field
// (the `_attr_value` key), independent of any display-value resolution.
func ResolveLookupID(record map[string]any, attribute string) (string, bool) {
	return stringField(record, fmt.Sprintf("_%s_value", attribute))
}
