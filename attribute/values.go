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
	"strconv"
	"strings"
)

// Values holds hydrated field values keyed by field name. A missing or nil entry
// means the server did not send the field, which is distinct from an empty string
type Values map[string]*string

// Get returns the value of a field and whether it is set
func (v Values) Get(field string) (string, bool) {
	ptr, ok := v[field]
	if !ok || ptr == nil {
		return "", false
	}
	return *ptr, true
}

// Has reports whether a field is set
func (v Values) Has(field string) bool {
	_, ok := v.Get(field)
	return ok
}

// Set assigns a field value
func (v Values) Set(field string, value string) {
	v[field] = &value
}

// Unset clears a field
func (v Values) Unset(field string) {
	delete(v, field)
}

// Int parses a field as a base-10 integer. The bool result is false when the field
// is not set
func (v Values) Int(field string) (int64, bool, error) {
	s, ok := v.Get(field)
	if !ok {
		return 0, false, nil
	}
	ret, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("attribute: field %s: %w", field, err)
	}
	return ret, true, nil
}

// Float parses a field as a float
func (v Values) Float(field string) (float64, bool, error) {
	s, ok := v.Get(field)
	if !ok {
		return 0, false, nil
	}
	ret, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, true, fmt.Errorf("attribute: field %s: %w", field, err)
	}
	return ret, true, nil
}

// Bool parses a field as a boolean. Fishbowl sends "true" and "false"
func (v Values) Bool(field string) (bool, bool, error) {
	s, ok := v.Get(field)
	if !ok {
		return false, false, nil
	}
	ret, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, true, fmt.Errorf("attribute: field %s: %w", field, err)
	}
	return ret, true, nil
}

// Clone returns a copy that does not share pointers with the original
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	ret := make(Values, len(v))
	for field, ptr := range v {
		if ptr == nil {
			continue
		}
		tmp := *ptr
		ret[field] = &tmp
	}
	return ret
}
