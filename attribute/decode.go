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

package attribute

import (
	"fmt"
	"reflect"

	"github.com/jinzhu/copier"
)

var stringPtrType = reflect.TypeOf((*string)(nil))

// Decode copies the set values into the same-named fields of the struct pointed to by
// dest. Destination fields may be string or *string. Fields whose value is not set are
// left untouched
func Decode(spec Spec, values Values, dest any) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Pointer || destValue.IsNil() ||
		destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("attribute: decode destination must be a non-nil struct pointer, got %T", dest)
	}
	if spec.Len() == 0 {
		return nil
	}
	// Build a temporary struct with one *string field per declared attribute and let
	// copier match its fields against the destination by name
	structFields := make([]reflect.StructField, 0, spec.Len())
	for _, attr := range spec.attrs {
		structFields = append(
			structFields,
			reflect.StructField{
				Name: attr.Field,
				Type: stringPtrType,
			},
		)
	}
	tmpSrc := reflect.New(reflect.StructOf(structFields)).Elem()
	for idx, attr := range spec.attrs {
		value, ok := values.Get(attr.Field)
		if !ok {
			continue
		}
		tmpSrc.Field(idx).Set(reflect.ValueOf(&value))
	}
	err := copier.CopyWithOption(
		dest,
		tmpSrc.Addr().Interface(),
		copier.Option{IgnoreEmpty: true, DeepCopy: true},
	)
	if err != nil {
		return fmt.Errorf("attribute: decode: %w", err)
	}
	return nil
}
