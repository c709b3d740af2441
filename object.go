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

package fishbowl

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/djinnsour/fishbowl-1/attribute"
	"github.com/djinnsour/fishbowl-1/envelope"
)

// Object is the base for domain objects exchanged with the server. A concrete type
// declares its attributes with an attribute.Spec, sends requests through Send or
// SendRequest and hydrates itself from the returned element with ParseAttributes.
//
// An Object is not safe for concurrent use
type Object struct {
	conn   *Connection
	spec   attribute.Spec
	ticket string
	values attribute.Values
	state  RequestState
}

// NewObject returns an Object bound to the connection. The object keeps a copy of the
// connection's current ticket, which can be replaced with SetTicket
func NewObject(conn *Connection, spec attribute.Spec) *Object {
	o := &Object{
		conn:   conn,
		spec:   spec,
		values: attribute.Values{},
		state:  StateIdle,
	}
	if conn != nil {
		o.ticket = conn.Ticket()
	}
	return o
}

func (o *Object) Ticket() string {
	return o.ticket
}

func (o *Object) SetTicket(ticket string) {
	o.ticket = ticket
}

func (o *Object) Spec() attribute.Spec {
	return o.spec
}

// Values returns the attribute values hydrated so far, keyed by field name
func (o *Object) Values() attribute.Values {
	return o.values
}

func (o *Object) Get(field string) (string, bool) {
	return o.values.Get(field)
}

func (o *Object) Set(field string, value string) {
	o.values.Set(field, value)
}

// State returns the state reached by the most recent request
func (o *Object) State() RequestState {
	return o.state
}

// BuildRequest returns the request document for the payload using the object's ticket.
// It performs no I/O
func (o *Object) BuildRequest(payload envelope.Payload) (*etree.Document, error) {
	return envelope.Build(o.ticket, payload)
}

// SendRequest sends an empty request element named requestTag. See Send
func (o *Object) SendRequest(requestTag string, responseTag string) (*envelope.Response, error) {
	return o.Send(envelope.Tag(requestTag), responseTag)
}

// Send performs exactly one round trip for the payload and returns the response, whose
// Body is the element named responseTag. A response with a failing status code is not
// an error; the status is returned for the caller to inspect and the object moves to
// StateFailed
func (o *Object) Send(payload envelope.Payload, responseTag string) (*envelope.Response, error) {
	o.state = StateBuilding
	if o.conn == nil {
		return nil, &ConnectionError{Op: "send", Err: ErrNotConnected}
	}
	doc, err := o.BuildRequest(payload)
	if err != nil {
		return nil, err
	}
	requestTag := requestTagOf(doc)
	data, err := envelope.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := o.conn.ready(); err != nil {
		return nil, err
	}
	o.state = StateSent
	respData, err := o.conn.send(requestTag, data)
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			// The session ended before the request reached the wire
			o.state = StateBuilding
			return nil, err
		}
		o.conn.metrics.observeResult(requestTag, ResultError)
		return nil, err
	}
	resp, err := envelope.ParseWithSuccessCode(respData, responseTag, o.conn.SuccessCode())
	if err != nil {
		o.conn.metrics.observeResult(requestTag, ResultError)
		return nil, &ProtocolError{Op: requestTag, Err: err}
	}
	o.state = StateParsed
	if !o.conn.IsSuccess(resp.StatusCode) {
		o.state = StateFailed
		o.conn.metrics.observeResult(requestTag, ResultFailed)
		o.conn.logger.Debug(
			"request failed",
			"request", requestTag,
			"status_code", resp.StatusCode,
			"status_message", resp.StatusMessage,
		)
		return resp, nil
	}
	if !resp.HasBody() {
		o.conn.metrics.observeResult(requestTag, ResultError)
		return nil, &ProtocolError{
			Op:  requestTag,
			Err: fmt.Errorf("%w: %s", ErrMissingResponse, responseTag),
		}
	}
	o.state = StateSuccess
	o.conn.metrics.observeResult(requestTag, ResultSuccess)
	return resp, nil
}

// ParseAttributes hydrates the object's values from the direct children of fragment
func (o *Object) ParseAttributes(fragment *etree.Element) {
	o.values = o.spec.Parse(fragment, o.values)
}

// Decode copies the hydrated values into the matching fields of dest, which must be a
// pointer to a struct
func (o *Object) Decode(dest any) error {
	return attribute.Decode(o.spec, o.values, dest)
}

func requestTagOf(doc *etree.Document) string {
	root := doc.Root()
	if root == nil {
		return ""
	}
	msgs := root.SelectElement(envelope.RequestContainerTag)
	if msgs == nil {
		return ""
	}
	children := msgs.ChildElements()
	if len(children) == 0 {
		return ""
	}
	return children[0].Tag
}
