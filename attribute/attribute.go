// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package attribute maps the child elements of a response fragment onto named
// object fields.
//
// Each object type declares a Spec, an ordered list of wire tag to field
// pairs. Parsing a fragment copies the text of every declared tag that is
// present; tags the server omitted leave the field untouched.
package attribute

import (
	"errors"
	"fmt"
	"go/token"

	"github.com/beevik/etree"
)

var ErrInvalidSpec = errors.New("attribute: invalid spec")

// Attribute pairs a wire tag with the name of the field it populates
type Attribute struct {
	Tag   string
	Field string
}

// Field is shorthand for building an Attribute
func Field(tag string, field string) Attribute {
	return Attribute{Tag: tag, Field: field}
}

// Spec is an ordered, read-only list of attributes
type Spec struct {
	attrs []Attribute
}

// NewSpec validates the attributes and returns a Spec. Tags and fields must be unique,
// and fields must be exported Go identifiers so that values can be decoded into structs
func NewSpec(attrs ...Attribute) (Spec, error) {
	tags := make(map[string]bool, len(attrs))
	fields := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		if attr.Tag == "" {
			return Spec{}, fmt.Errorf("%w: empty tag for field %q", ErrInvalidSpec, attr.Field)
		}
		if !token.IsIdentifier(attr.Field) || !token.IsExported(attr.Field) {
			return Spec{}, fmt.Errorf(
				"%w: field %q for tag %q is not an exported identifier",
				ErrInvalidSpec,
				attr.Field,
				attr.Tag,
			)
		}
		if tags[attr.Tag] {
			return Spec{}, fmt.Errorf("%w: duplicate tag %q", ErrInvalidSpec, attr.Tag)
		}
		if fields[attr.Field] {
			return Spec{}, fmt.Errorf("%w: duplicate field %q", ErrInvalidSpec, attr.Field)
		}
		tags[attr.Tag] = true
		fields[attr.Field] = true
	}
	ret := Spec{
		attrs: make([]Attribute, len(attrs)),
	}
	copy(ret.attrs, attrs)
	return ret, nil
}

// MustSpec is like NewSpec but panics on an invalid spec. It is meant for
// package-level spec declarations
func MustSpec(attrs ...Attribute) Spec {
	spec, err := NewSpec(attrs...)
	if err != nil {
		panic(err)
	}
	return spec
}

// Len returns the number of declared attributes
func (s Spec) Len() int {
	return len(s.attrs)
}

// Attributes returns a copy of the declared attributes in order
func (s Spec) Attributes() []Attribute {
	ret := make([]Attribute, len(s.attrs))
	copy(ret, s.attrs)
	return ret
}

// Tags returns the declared wire tags in order
func (s Spec) Tags() []string {
	ret := make([]string, 0, len(s.attrs))
	for _, attr := range s.attrs {
		ret = append(ret, attr.Tag)
	}
	return ret
}

// Fields returns the declared field names in order
func (s Spec) Fields() []string {
	ret := make([]string, 0, len(s.attrs))
	for _, attr := range s.attrs {
		ret = append(ret, attr.Field)
	}
	return ret
}

// FieldForTag returns the field populated by the given tag
func (s Spec) FieldForTag(tag string) (string, bool) {
	for _, attr := range s.attrs {
		if attr.Tag == tag {
			return attr.Field, true
		}
	}
	return "", false
}

// HasField reports whether the spec declares the field
func (s Spec) HasField(field string) bool {
	for _, attr := range s.attrs {
		if attr.Field == field {
			return true
		}
	}
	return false
}

// Parse copies the text of each declared tag found as a direct child of fragment into
// values, creating values if it is nil. Missing tags leave the existing value alone,
// and a nil fragment changes nothing
func (s Spec) Parse(fragment *etree.Element, values Values) Values {
	if values == nil {
		values = make(Values, len(s.attrs))
	}
	if fragment == nil {
		return values
	}
	for _, attr := range s.attrs {
		child := fragment.SelectElement(attr.Tag)
		if child == nil {
			continue
		}
		text := child.Text()
		values[attr.Field] = &text
	}
	return values
}
