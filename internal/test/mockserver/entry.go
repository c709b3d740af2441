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

package mockserver

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/djinnsour/fishbowl-1/envelope"
)

const (
	MockTicket         = "thisisasample"
	MockSuccessCode    = envelope.DefaultSuccessCode
	MockInvalidLogin   = 1120
	MockSuccessMessage = "Success!"
)

type EntryType int

const (
	EntryTypeInput  EntryType = 1
	EntryTypeOutput EntryType = 2
	EntryTypeClose  EntryType = 3
	EntryTypeWait   EntryType = 4
)

// ConversationEntry is one step of a scripted conversation. Input entries read a frame
// from the client and check it against InputMessage (exact bytes) or RequestTag;
// output entries send OutputMessage as one frame. Wait entries block until Release is
// closed
type ConversationEntry struct {
	Type          EntryType
	RequestTag    string
	InputMessage  []byte
	OutputMessage []byte
	Release       <-chan struct{}
}

// ConversationEntryRequest is a conversation entry that matches a request element by name
func ConversationEntryRequest(requestTag string) ConversationEntry {
	return ConversationEntry{
		Type:       EntryTypeInput,
		RequestTag: requestTag,
	}
}

// ConversationEntryResponse is a conversation entry that sends a raw response document
func ConversationEntryResponse(data []byte) ConversationEntry {
	return ConversationEntry{
		Type:          EntryTypeOutput,
		OutputMessage: data,
	}
}

// ConversationEntryWait is a conversation entry that holds the conversation until release
// is closed, leaving the client blocked in its round trip
func ConversationEntryWait(release <-chan struct{}) ConversationEntry {
	return ConversationEntry{
		Type:    EntryTypeWait,
		Release: release,
	}
}

// ConversationEntryClose is a conversation entry that closes the connection
var ConversationEntryClose = ConversationEntry{
	Type: EntryTypeClose,
}

// ConversationEntryLoginRequest matches a login request from the client
var ConversationEntryLoginRequest = ConversationEntryRequest("LoginRq")

// ConversationEntryLoginResponse is a successful login response carrying MockTicket
var ConversationEntryLoginResponse = ConversationEntryResponse(
	ResponseXML(MockTicket, MockSuccessCode, MockSuccessMessage, "<LoginRs/>"),
)

// ConversationEntryLoginRejected is a login response rejecting the credentials
var ConversationEntryLoginRejected = ConversationEntryResponse(
	ResponseXML(
		"",
		MockInvalidLogin,
		"Invalid username or password.",
		fmt.Sprintf(`<LoginRs statusCode="%d"/>`, MockInvalidLogin),
	),
)

// ConversationEntryLogoutRequest matches a logout request from the client
var ConversationEntryLogoutRequest = ConversationEntryRequest("LogoutRq")

// ConversationEntryLogoutResponse is a successful logout response
var ConversationEntryLogoutResponse = ConversationEntryResponse(
	ResponseXML(MockTicket, MockSuccessCode, MockSuccessMessage, "<LogoutRs/>"),
)

// ConversationLogin is the login exchange that starts most conversations
func ConversationLogin() []ConversationEntry {
	return []ConversationEntry{
		ConversationEntryLoginRequest,
		ConversationEntryLoginResponse,
	}
}

// ResponseXML returns a response document with the given ticket, status and response
// elements. body may hold any number of elements, or be empty
func ResponseXML(ticket string, statusCode int, statusMessage string, body string) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(envelope.RootTag)
	ticketElement := root.CreateElement(envelope.TicketTag)
	if ticket != "" {
		ticketElement.SetText(ticket)
	}
	msgs := root.CreateElement(envelope.ResponseContainerTag)
	msgs.CreateAttr(envelope.StatusCodeAttr, strconv.Itoa(statusCode))
	if statusMessage != "" {
		msgs.CreateAttr(envelope.StatusMessageAttr, statusMessage)
	}
	if body != "" {
		bodyDoc := etree.NewDocument()
		if err := bodyDoc.ReadFromString("<body>" + body + "</body>"); err != nil {
			panic(fmt.Sprintf("invalid response body: %s", err))
		}
		for _, child := range bodyDoc.Root().ChildElements() {
			msgs.AddChild(child.Copy())
		}
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		panic(fmt.Sprintf("response encode error: %s", err))
	}
	return data
}
