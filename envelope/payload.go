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

package envelope

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Payload provides the request element placed inside the message container. The
// returned element must not be attached to another document
type Payload interface {
	Element() (*etree.Element, error)
}

// PayloadFunc adapts a function to the Payload interface
type PayloadFunc func() (*etree.Element, error)

func (f PayloadFunc) Element() (*etree.Element, error) {
	return f()
}

// Tag returns a payload consisting of an empty request element with the given name
func Tag(name string) Payload {
	return PayloadFunc(func() (*etree.Element, error) {
		if err := validTag(name); err != nil {
			return nil, err
		}
		return etree.NewElement(name), nil
	})
}

// Fragment returns a payload that merges a pre-built request element verbatim. The
// element is copied, so the caller keeps ownership of the original
func Fragment(el *etree.Element) Payload {
	return PayloadFunc(func() (*etree.Element, error) {
		if el == nil {
			return nil, fmt.Errorf("%w: nil fragment", ErrInvalidPayload)
		}
		if err := validTag(el.Tag); err != nil {
			return nil, err
		}
		return el.Copy(), nil
	})
}

// Unwrap returns a payload taken from a builder-style wrapper element, such as
// <request><SampleRq/></request>. The wrapper must hold exactly one child element
func Unwrap(wrapper *etree.Element) Payload {
	return PayloadFunc(func() (*etree.Element, error) {
		if wrapper == nil {
			return nil, fmt.Errorf("%w: nil wrapper", ErrInvalidPayload)
		}
		children := wrapper.ChildElements()
		if len(children) != 1 {
			return nil, fmt.Errorf(
				"%w: wrapper %s has %d child elements, expected 1",
				ErrInvalidPayload,
				wrapper.Tag,
				len(children),
			)
		}
		return Fragment(children[0]).Element()
	})
}

func validTag(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty request tag", ErrInvalidPayload)
	}
	if strings.ContainsAny(name, " \t\r\n<>/&\"'=") {
		return fmt.Errorf("%w: invalid request tag %q", ErrInvalidPayload, name)
	}
	return nil
}
