package device

import (
	"bytes"
	"encoding/json"
)

// Profile is one device configuration document.
type Profile struct {
	// Type is the category the profile belongs to (its parent directory name).
	Type string
	// Name is the file name with a recognized configuration suffix stripped.
	Name string
	// Content is the compacted JSON document, never interpreted.
	Content json.RawMessage
}

// Category groups profiles of one type in insertion order.
type Category struct {
	// Type is the category name, a top-level manifest key.
	Type string
	// Profiles holds at most one profile per name.
	Profiles []*Profile
}

// Manifest maps categories to profiles, keeping insertion order on both levels.
type Manifest struct {
	// Categories holds non-empty categories only.
	Categories []*Category
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{}
}

// Add inserts profile into its category, creating the category on first use.
// A profile with a name already present replaces the earlier one in place.
func (m *Manifest) Add(profile *Profile) {
	category := m.Category(profile.Type)
	if category == nil {
		category = &Category{Type: profile.Type}
		m.Categories = append(m.Categories, category)
	}

	for i, existing := range category.Profiles {
		if existing.Name == profile.Name {
			category.Profiles[i] = profile

			return
		}
	}

	category.Profiles = append(category.Profiles, profile)
}

// Category returns the category named typ or nil.
func (m *Manifest) Category(typ string) *Category {
	for _, category := range m.Categories {
		if category.Type == typ {
			return category
		}
	}

	return nil
}

// Profile returns the profile typ/name or nil.
func (m *Manifest) Profile(typ, name string) *Profile {
	category := m.Category(typ)
	if category == nil {
		return nil
	}

	for _, profile := range category.Profiles {
		if profile.Name == name {
			return profile
		}
	}

	return nil
}

// Len returns the number of profiles across all categories.
func (m *Manifest) Len() int {
	total := 0
	for _, category := range m.Categories {
		total += len(category.Profiles)
	}

	return total
}

// MarshalJSON renders {"type":{"name":content}} in insertion order.
// Unlike encoding/json maps, keys are neither sorted nor HTML-escaped.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, category := range m.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := writeKey(&buf, category.Type); err != nil {
			return nil, err
		}

		buf.WriteByte('{')

		for j, profile := range category.Profiles {
			if j > 0 {
				buf.WriteByte(',')
			}

			if err := writeKey(&buf, profile.Name); err != nil {
				return nil, err
			}

			if err := json.Compact(&buf, profile.Content); err != nil {
				return nil, err
			}
		}

		buf.WriteByte('}')
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(key); err != nil {
		return err
	}

	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	buf.WriteByte(':')

	return nil
}
