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

// Package envelope builds and parses the XML documents exchanged with a
// Fishbowl server.
//
// An outbound document wraps the session ticket and exactly one request
// element:
//
//	<FbiXml>
//	  <Ticket>...</Ticket>
//	  <FbiMsgsRq><SampleRq/></FbiMsgsRq>
//	</FbiXml>
//
// An inbound document carries the echoed ticket, the status of the call and
// the response element:
//
//	<FbiXml>
//	  <Ticket>...</Ticket>
//	  <FbiMsgsRs statusCode="1000" statusMessage="..."><SampleRs/></FbiMsgsRs>
//	</FbiXml>
package envelope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	RootTag              = "FbiXml"
	TicketTag            = "Ticket"
	TicketKeyTag         = "Key"
	RequestContainerTag  = "FbiMsgsRq"
	ResponseContainerTag = "FbiMsgsRs"
	StatusCodeAttr       = "statusCode"
	StatusMessageAttr    = "statusMessage"

	// DefaultSuccessCode is the status code the Fishbowl server uses for success
	DefaultSuccessCode = 1000
)

// Response is a parsed inbound envelope
type Response struct {
	// Ticket is the session ticket echoed by the server. It is informational only
	Ticket        string
	StatusCode    int
	StatusMessage string
	// Body is the element matching the expected response tag, or nil if the server
	// did not include one
	Body *etree.Element
}

// HasBody reports whether the expected response element was present
func (r *Response) HasBody() bool {
	return r != nil && r.Body != nil
}

// Build returns the request document for the ticket and payload. An empty ticket
// produces an empty Ticket element
func Build(ticket string, payload Payload) (*etree.Document, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	request, err := payload.Element()
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(RootTag)
	ticketElement := root.CreateElement(TicketTag)
	if ticket != "" {
		ticketElement.SetText(ticket)
	}
	msgs := root.CreateElement(RequestContainerTag)
	msgs.AddChild(request)
	return doc, nil
}

// BuildBytes is Build followed by Marshal
func BuildBytes(ticket string, payload Payload) ([]byte, error) {
	doc, err := Build(ticket, payload)
	if err != nil {
		return nil, err
	}
	return Marshal(doc)
}

// Marshal serializes a document for the wire
func Marshal(doc *etree.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidPayload)
	}
	return doc.WriteToBytes()
}

// Parse parses a response document using the default success code. See
// ParseWithSuccessCode
func Parse(data []byte, expectedTag string) (*Response, error) {
	return ParseWithSuccessCode(data, expectedTag, DefaultSuccessCode)
}

// ParseWithSuccessCode parses a response document and locates the element named
// expectedTag inside the message container. A missing response element is not an
// error here; Body is left nil and the caller decides whether that is acceptable.
//
// When the container reports success but the response element carries its own
// failing status, the response element's status is returned.
func ParseWithSuccessCode(
	data []byte,
	expectedTag string,
	successCode int,
) (*Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}
	if root.Tag != RootTag {
		return nil, fmt.Errorf(
			"%w: expected %s, got %s",
			ErrUnexpectedRoot,
			RootTag,
			root.Tag,
		)
	}
	resp := &Response{
		Ticket: ticketText(root.SelectElement(TicketTag)),
	}
	msgs := root.SelectElement(ResponseContainerTag)
	if msgs == nil {
		return nil, fmt.Errorf(
			"%w: no %s element",
			ErrMissingStatus,
			ResponseContainerTag,
		)
	}
	code, ok, err := statusCode(msgs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s has no %s attribute",
			ErrMissingStatus,
			ResponseContainerTag,
			StatusCodeAttr,
		)
	}
	resp.StatusCode = code
	resp.StatusMessage = msgs.SelectAttrValue(StatusMessageAttr, "")
	if expectedTag == "" {
		return resp, nil
	}
	resp.Body = msgs.SelectElement(expectedTag)
	if resp.Body != nil && resp.StatusCode == successCode {
		bodyCode, ok, err := statusCode(resp.Body)
		if err != nil {
			return nil, err
		}
		if ok && bodyCode != successCode {
			resp.StatusCode = bodyCode
			resp.StatusMessage = resp.Body.SelectAttrValue(StatusMessageAttr, "")
		}
	}
	return resp, nil
}

// ElementString serializes a single element, mostly for diagnostics
func ElementString(el *etree.Element) (string, error) {
	if el == nil {
		return "", nil
	}
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	return doc.WriteToString()
}

func statusCode(el *etree.Element) (int, bool, error) {
	attr := el.SelectAttr(StatusCodeAttr)
	if attr == nil {
		return 0, false, nil
	}
	code, err := strconv.Atoi(strings.TrimSpace(attr.Value))
	if err != nil {
		return 0, false, fmt.Errorf(
			"%w: %s=%q on %s",
			ErrInvalidStatus,
			StatusCodeAttr,
			attr.Value,
			el.Tag,
		)
	}
	return code, true, nil
}

// ticketText accepts both a bare ticket and the server's <Ticket><Key>...</Key></Ticket> form
func ticketText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	if key := el.SelectElement(TicketKeyTag); key != nil {
		return strings.TrimSpace(key.Text())
	}
	return strings.TrimSpace(el.Text())
}
