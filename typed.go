package skinmerge

import (
	"fmt"
	"reflect"
	"strings"
)

// TagKind identifies which sm struct tag directive had an error.
type TagKind int

const (
	// UnknownTag indicates an unknown or unsupported sm tag directive.
	UnknownTag TagKind = iota
	// UnionTag indicates an error with sm:"union=..." directive.
	UnionTag
	// SequenceTag indicates an error with sm:"seq=..." directive.
	SequenceTag
	// KeyedTag indicates an error with sm:"keyed=..." directive.
	KeyedTag
	// MarkerTag indicates an error with sm:"marker=..." directive.
	MarkerTag
	// FieldTag indicates an error with sm:"field=..." directive.
	FieldTag
)

func (k TagKind) String() string {
	switch k {
	case UnknownTag:
		return "unknown"
	case UnionTag:
		return "union"
	case SequenceTag:
		return "seq"
	case KeyedTag:
		return "keyed"
	case MarkerTag:
		return "marker"
	case FieldTag:
		return "field"
	default:
		return fmt.Sprintf("TagKind(%d)", k)
	}
}

// InvalidTagError is returned when an sm struct tag contains an invalid directive or value.
type InvalidTagError struct {
	// Kind indicates which sm tag directive had the error.
	Kind TagKind
	// FieldName is the struct field name where the error occurred.
	FieldName string
	// Value is the invalid value (e.g., the invalid fusion string).
	Value string
	// Message provides details about what went wrong.
	Message string
}

func (e *InvalidTagError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("field %s: invalid %s tag: %s (value: %q)",
			e.FieldName, e.Kind.String(), e.Message, e.Value)
	}
	return fmt.Sprintf("field %s: invalid %s tag: %s",
		e.FieldName, e.Kind.String(), e.Message)
}

func (e *InvalidTagError) Is(target error) bool {
	return target == ErrInvalidTag
}

// Merger is a merger whose options vary per field, as declared by struct tags
// on the skin document type T.
//
// It embeds an [UntypedMerger] and inherits all its methods. T is only
// inspected at creation time; documents are still merged as [Value] trees.
// When the merge descends into a field, the field's directives are applied to
// a copy of the current options, and everything below that field inherits them.
//
// Struct tag format:
//   - sm:"union=name" - sets the union key for sequences in this field
//   - sm:"seq=replace|deep" - sets the positional sequence fusion
//   - sm:"keyed=replace|prepend|deep" - sets the keyed sequence fusion
//   - sm:"marker=flexibleSpace" - sets the insertion marker
//   - sm:"swap" or sm:"noswap" - enables or disables role swapping
//   - sm:"clone" or sm:"noclone" - enables or disables cloning on copy
//   - sm:"field=name" - overrides field name detection
//
// Multiple directives can be combined: sm:"union=name,keyed=prepend"
//
// Field names are automatically detected from yaml, json, and toml struct tags.
//
// Example:
//
//	type Skin struct {
//		Buttons []Button `json:"buttons" sm:"union=name,keyed=prepend"`
//		Colors  []string `json:"colors" sm:"seq=replace"`
//	}
//
//	merger, _ := NewMerger[Skin](Options{})
//	result, _ := merger.MergeMarshal(json.Unmarshal, json.Marshal, defaults, override)
type Merger[T any] struct {
	*UntypedMerger
}

// NewMerger creates a new [Merger] with metadata extracted from type T's struct tags.
//
// The Options provide behavior for fields without specific tags.
// Returns an error if the options are invalid or if struct tags contain invalid directives.
func NewMerger[T any](opts Options) (*Merger[T], error) {
	merger, err := NewUntypedMerger(opts)
	if err != nil {
		return nil, err
	}

	metadata, err := buildMetadata(reflect.TypeOf((*T)(nil)).Elem(), map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}

	merger.metadata = metadata

	return &Merger[T]{UntypedMerger: merger}, nil
}

// fieldMetadata holds the option overrides of one field and the metadata of
// the fields below it. For sequences of structs, children describe the
// element's fields.
type fieldMetadata struct {
	fieldName      string
	children       map[string]*fieldMetadata
	unionKey       *string
	sequenceFusion *SequenceFusion
	keyedFusion    *KeyedFusion
	marker         *string
	swapRoles      *bool
	cloneOnCopy    *bool
}

func (m *fieldMetadata) child(key string) *fieldMetadata {
	if m == nil {
		return nil
	}
	return m.children[key]
}

// apply returns opts with this field's overrides.
func (m *fieldMetadata) apply(opts Options) Options {
	if m == nil {
		return opts
	}
	if m.unionKey != nil {
		opts.UnionKey = *m.unionKey
	}
	if m.sequenceFusion != nil {
		opts.SequenceFusion = *m.sequenceFusion
	}
	if m.keyedFusion != nil {
		opts.KeyedFusion = *m.keyedFusion
	}
	if m.marker != nil {
		opts.InsertionMarker = *m.marker
	}
	if m.swapRoles != nil {
		opts.SwapRoles = *m.swapRoles
	}
	if m.cloneOnCopy != nil {
		opts.CloneOnCopy = *m.cloneOnCopy
	}
	return opts
}

// buildMetadata recursively builds a metadata tree from a type's struct tags.
// Types already being visited get empty metadata, so recursive types terminate.
func buildMetadata(t reflect.Type, visiting map[reflect.Type]bool) (*fieldMetadata, error) {
	if t.Kind() != reflect.Struct || visiting[t] {
		return &fieldMetadata{}, nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	root := &fieldMetadata{
		children: make(map[string]*fieldMetadata),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		fieldName, err := getFieldName(field)
		if err != nil {
			return nil, err
		}

		meta := &fieldMetadata{
			fieldName: fieldName,
		}

		if smTag := field.Tag.Get("sm"); smTag != "" {
			if err := parseSMTag(smTag, meta); err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
		}

		// Unwrap pointer, slice and array types to get to the element type
		fieldType := field.Type
		for {
			switch fieldType.Kind() {
			case reflect.Ptr, reflect.Slice, reflect.Array:
				fieldType = fieldType.Elem()
				continue
			}
			break
		}

		if fieldType.Kind() == reflect.Struct {
			children, err := buildMetadata(fieldType, visiting)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			meta.children = children.children
		}

		root.children[fieldName] = meta
	}

	return root, nil
}

// getFieldName extracts the serialized field name from struct tags.
// Priority: sm:field override > yaml > json > toml > struct field name.
func getFieldName(field reflect.StructField) (string, error) {
	if smTag := field.Tag.Get("sm"); smTag != "" {
		fieldName, err := extractFieldDirective(smTag)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}
		if fieldName != "" {
			return fieldName, nil
		}
	}

	for _, tagName := range []string{"yaml", "json", "toml"} {
		if tag := field.Tag.Get(tagName); tag != "" && tag != "-" {
			// Handle "name,omitempty" format - take first part
			if idx := strings.Index(tag, ","); idx != -1 {
				if idx == 0 {
					continue
				}
				return tag[:idx], nil
			}
			return tag, nil
		}
	}

	return field.Name, nil
}

// extractFieldDirective extracts the field=name directive from an sm tag.
func extractFieldDirective(smTag string) (string, error) {
	for _, part := range strings.Split(smTag, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "field=") {
			fieldName := strings.TrimPrefix(part, "field=")
			if fieldName == "" {
				return "", &InvalidTagError{
					Kind:    FieldTag,
					Value:   part,
					Message: "field name cannot be empty",
				}
			}
			return fieldName, nil
		}
	}
	return "", nil
}

// parseSMTag parses the sm struct tag and populates the fieldMetadata.
func parseSMTag(tag string, meta *fieldMetadata) error {
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		name, value, hasValue := strings.Cut(part, "=")

		switch {
		case part == "swap" || part == "noswap":
			swap := part == "swap"
			meta.swapRoles = &swap

		case part == "clone" || part == "noclone":
			clone := part == "clone"
			meta.cloneOnCopy = &clone

		case hasValue && name == "union":
			if value == "" {
				return &InvalidTagError{
					Kind:      UnionTag,
					FieldName: meta.fieldName,
					Value:     part,
					Message:   "union key cannot be empty",
				}
			}
			meta.unionKey = &value

		case hasValue && name == "seq":
			fusion, err := ParseSequenceFusion(value)
			if err != nil || value == "" {
				return &InvalidTagError{
					Kind:      SequenceTag,
					FieldName: meta.fieldName,
					Value:     value,
					Message:   "valid: replace, deep",
				}
			}
			meta.sequenceFusion = &fusion

		case hasValue && name == "keyed":
			fusion, err := ParseKeyedFusion(value)
			if err != nil || value == "" {
				return &InvalidTagError{
					Kind:      KeyedTag,
					FieldName: meta.fieldName,
					Value:     value,
					Message:   "valid: replace, prepend, deep",
				}
			}
			meta.keyedFusion = &fusion

		case hasValue && name == "marker":
			if value == "" {
				return &InvalidTagError{
					Kind:      MarkerTag,
					FieldName: meta.fieldName,
					Value:     part,
					Message:   "insertion marker cannot be empty",
				}
			}
			meta.marker = &value

		case hasValue && name == "field":
			// handled in getFieldName

		default:
			return &InvalidTagError{
				Kind:      UnknownTag,
				FieldName: meta.fieldName,
				Value:     part,
				Message:   "unknown sm tag directive",
			}
		}
	}

	return nil
}
